package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/solatis/pickerkt/internal/indexer"
	"github.com/solatis/pickerkt/internal/mediastore"
)

var indexCmd = &cobra.Command{
	Use:   "index <dir>",
	Short: "Scan a directory into the media index",
	Args:  cobra.ExactArgs(1),
	RunE:  runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().Bool("watch", false, "keep following changes after the scan")
	indexCmd.Flags().Int("workers", 4, "concurrent index writers")
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	conn, err := openDB(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := requireMigrated(ctx, conn); err != nil {
		return err
	}

	store, err := mediastore.New(conn, log)
	if err != nil {
		return fmt.Errorf("failed to create store: %w", err)
	}
	ix := indexer.New(store, log)
	if workers, _ := cmd.Flags().GetInt("workers"); workers > 0 {
		ix.SetWorkers(workers)
	}

	res, err := ix.Scan(ctx, args[0])
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "indexed %d, removed %d, skipped %d\n", res.Indexed, res.Removed, res.Skipped)

	if watch, _ := cmd.Flags().GetBool("watch"); watch {
		log.Info("following changes, interrupt to stop", zap.String("root", args[0]))
		return ix.Watch(ctx, args[0])
	}
	return nil
}

// watchRunner adapts an indexer to server.Runnable: Start scans root once
// and then follows it until Shutdown.
type watchRunner struct {
	ix     *indexer.Indexer
	root   string
	ctx    context.Context
	cancel context.CancelFunc
}

func newWatchRunner(ix *indexer.Indexer, root string) *watchRunner {
	ctx, cancel := context.WithCancel(context.Background())
	return &watchRunner{ix: ix, root: root, ctx: ctx, cancel: cancel}
}

func (w *watchRunner) Start() error {
	if _, err := w.ix.Scan(w.ctx, w.root); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return fmt.Errorf("scan %s: %w", w.root, err)
	}
	return w.ix.Watch(w.ctx, w.root)
}

func (w *watchRunner) Shutdown(context.Context) error {
	w.cancel()
	return nil
}
