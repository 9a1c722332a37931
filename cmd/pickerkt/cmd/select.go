package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/solatis/pickerkt/internal/mediastore"
	"github.com/solatis/pickerkt/internal/selection"
)

var selectFlags pickerFlags

var selectCmd = &cobra.Command{
	Use:   "select ID...",
	Short: "Restore a saved selection under a configuration",
	Long: `Loads the given content ids, drops those the configuration does not admit
and caps the rest at the selection maximum. Prints the surviving items in
selection order.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSelect,
}

func init() {
	selectFlags.register(selectCmd.Flags())
	rootCmd.AddCommand(selectCmd)
}

func runSelect(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	ids := make([]int64, len(args))
	for i, arg := range args {
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return fmt.Errorf("content id %q: %w", arg, err)
		}
		ids[i] = id
	}

	cfg, err := selectFlags.configuration(cmd)
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

	res, err := selection.Reconcile(ctx, store, cfg, ids)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if err := printContents(out, res.Tracker.Items()); err != nil {
		return err
	}

	state := "satisfied"
	if !res.Tracker.Satisfied() {
		state = "not satisfied"
	}
	fmt.Fprintf(out, "\nselected %d, %s by %s\n", res.Tracker.Len(), state, res.Tracker.Bounds())
	printIDs(out, "missing", res.Missing)
	printIDs(out, "excluded", res.Excluded)
	printIDs(out, "dropped", res.Dropped)
	return nil
}

func printIDs(out io.Writer, label string, ids []int64) {
	if len(ids) == 0 {
		return
	}
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.FormatInt(id, 10)
	}
	fmt.Fprintf(out, "%s: %s\n", label, strings.Join(parts, ", "))
}
