package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/solatis/pickerkt/internal/mediastore"
	"github.com/solatis/pickerkt/internal/types"
)

var queryFlags pickerFlags

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Run a configuration against the index and print one page",
	RunE:  runQuery,
}

func init() {
	queryFlags.register(queryCmd.Flags())
	queryCmd.Flags().Int("page", 0, "page key (result offset) to load")
	queryCmd.Flags().Bool("all", false, "load every page")
	queryCmd.Flags().String("collection", "", "restrict to one collection id")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := queryFlags.configuration(cmd)
	if err != nil {
		return err
	}
	if id, _ := cmd.Flags().GetString("collection"); id != "" {
		if cfg, err = cfg.InCollection(id); err != nil {
			return err
		}
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
	pager := mediastore.NewPager(store, cfg)

	if all, _ := cmd.Flags().GetBool("all"); all {
		items, err := pager.All(ctx)
		if err != nil {
			return err
		}
		return printContents(cmd.OutOrStdout(), items)
	}

	key, _ := cmd.Flags().GetInt("page")
	page, err := pager.Load(ctx, &key)
	if err != nil {
		return err
	}
	if err := printContents(cmd.OutOrStdout(), page.Items); err != nil {
		return err
	}
	if page.NextKey != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "\nnext page: --page %d\n", *page.NextKey)
	}
	return nil
}

func printContents(out io.Writer, items []types.Content) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tMIME\tSIZE\tADDED\tCOLLECTION")
	for _, c := range items {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
			c.ID, c.Name, c.MimeType.ID(), c.Size.HumanReadable(),
			c.DateAdded.Local().Format(time.DateTime), c.CollectionName)
	}
	return w.Flush()
}
