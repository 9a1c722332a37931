package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/solatis/pickerkt/internal/core/config"
	"github.com/solatis/pickerkt/internal/core/db"
	"github.com/solatis/pickerkt/internal/core/logging"
)

// Version is reported by serve at startup.
const Version = "0.1.0"

var configFile string

// settings resolves the persistent flags: flag > PICKERKT_* env > default.
var settings = viper.New()

var rootCmd = &cobra.Command{
	Use:   "pickerkt",
	Short: "PickerKt media picker query service",
	Long: `PickerKt builds media picker configurations (MIME filters, selection
bounds, ordering and predicates), renders them as SQL and serves them
against an index of media files.`,
	SilenceUsage: true,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file path")
	flags.String("db-url", "", "database connection URL (sqlite://path or postgres://...)")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("log-format", "json", "log format (json, text)")

	settings.SetEnvPrefix(config.EnvPrefix)
	settings.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	settings.AutomaticEnv()
	for _, name := range []string{"db-url", "log-level", "log-format"} {
		_ = settings.BindPFlag(name, flags.Lookup(name))
	}
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command
// context.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func newLogger() (*zap.Logger, error) {
	log, err := logging.New(settings.GetString("log-level"), settings.GetString("log-format"))
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return log, nil
}

// openDB connects to --db-url (or PICKERKT_DB_URL).
func openDB(ctx context.Context) (*sqlx.DB, error) {
	url := settings.GetString("db-url")
	if url == "" {
		return nil, fmt.Errorf("--db-url required (or set %s_DB_URL)", config.EnvPrefix)
	}
	conn, err := db.Open(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return conn, nil
}

// requireMigrated fails unless every embedded migration is applied.
func requireMigrated(ctx context.Context, conn *sqlx.DB) error {
	status, err := db.MigrateStatus(ctx, conn)
	if err != nil {
		return fmt.Errorf("failed to check migrations: %w", err)
	}
	for _, s := range status {
		if !s.Applied {
			return fmt.Errorf("migration %s not applied - run 'pickerkt migrate' first", s.ID)
		}
	}
	return nil
}
