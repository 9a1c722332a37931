package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/solatis/pickerkt/internal/core/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := openDB(cmd.Context())
		if err != nil {
			return err
		}
		defer conn.Close()

		applied, err := db.MigrateUp(cmd.Context(), conn)
		if err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		if len(applied) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "database is up to date")
			return nil
		}
		for _, id := range applied {
			fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", id)
		}
		return nil
	},
}

var migrateStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show applied and pending migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := openDB(cmd.Context())
		if err != nil {
			return err
		}
		defer conn.Close()

		status, err := db.MigrateStatus(cmd.Context(), conn)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "MIGRATION\tSTATUS\tAPPLIED AT\tDURATION")
		for _, s := range status {
			if !s.Applied {
				fmt.Fprintf(w, "%s\tpending\t-\t-\n", s.ID)
				continue
			}
			at := "-"
			if s.AppliedAt != nil {
				at = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
			fmt.Fprintf(w, "%s\tapplied\t%s\t%dms\n", s.ID, at, s.ExecutionMs)
		}
		return w.Flush()
	},
}

func init() {
	migrateCmd.AddCommand(migrateStatusCmd)
	rootCmd.AddCommand(migrateCmd)
}
