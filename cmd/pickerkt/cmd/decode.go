package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/solatis/pickerkt/internal/core/auth"
	"github.com/solatis/pickerkt/internal/picker"
)

var decodeCmd = &cobra.Command{
	Use:   "decode <token>",
	Short: "Verify and print a configuration token",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		signer, err := cliSigner()
		if err != nil {
			return err
		}
		cfg, err := signer.OpenConfiguration(args[0])
		if err != nil {
			return err
		}
		raw, err := picker.Encode(cfg)
		if err != nil {
			return err
		}
		var pretty bytes.Buffer
		if err := json.Indent(&pretty, raw, "", "  "); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), pretty.String())
		fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n", cfg)
		return nil
	},
}

var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Generate a token signing secret",
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := auth.GenerateSecret()
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "PICKERKT_SIGNING_SECRET=%s\n", value)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(decodeCmd, secretCmd)
}
