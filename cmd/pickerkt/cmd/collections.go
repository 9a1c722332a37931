package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/solatis/pickerkt/internal/mediastore"
)

var collectionsFlags pickerFlags

var collectionsCmd = &cobra.Command{
	Use:   "collections",
	Short: "List the collections a configuration admits",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, err := collectionsFlags.configuration(cmd)
		if err != nil {
			return err
		}
		log, err := newLogger()
		if err != nil {
			return err
		}
		conn, err := openDB(ctx)
		if err != nil {
			return err
		}
		defer conn.Close()
		store, err := mediastore.New(conn, log)
		if err != nil {
			return err
		}

		collections, err := store.Collections(ctx, cfg)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tITEMS\tSIZE\tLATEST")
		for _, c := range collections {
			latest := "-"
			if c.Latest != nil {
				latest = c.Latest.Name
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", c.ID, c.Name, c.ItemCount, c.TotalSize.HumanReadable(), latest)
		}
		return w.Flush()
	},
}

func init() {
	collectionsFlags.register(collectionsCmd.Flags())
	rootCmd.AddCommand(collectionsCmd)
}
