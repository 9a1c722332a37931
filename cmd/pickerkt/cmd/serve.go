package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/solatis/pickerkt/internal/core/api"
	"github.com/solatis/pickerkt/internal/core/auth"
	"github.com/solatis/pickerkt/internal/core/config"
	"github.com/solatis/pickerkt/internal/core/server"
	"github.com/solatis/pickerkt/internal/indexer"
	"github.com/solatis/pickerkt/internal/mediastore"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the gRPC picker service and the metrics endpoint",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("host", "0.0.0.0", "listen host")
	serveCmd.Flags().Int("port", 50051, "gRPC port")
	serveCmd.Flags().Int("http-port", 9090, "metrics and health port (0 disables)")
	serveCmd.Flags().String("watch", "", "keep the index in sync with this directory")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync() //nolint:errcheck

	cfg, err := config.LoadConfig(configFile, cmd.Flags())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

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

	secrets, err := config.SigningSecrets()
	if err != nil {
		return fmt.Errorf("failed to load signing secrets: %w", err)
	}
	if cfg.RequireSignedTokens && len(secrets) == 0 {
		return fmt.Errorf("require_signed_tokens set but no signing secret configured (set %s_SIGNING_SECRET)", config.EnvPrefix)
	}
	signer := auth.NewSigner(secrets, cfg.RequireSignedTokens)

	service, err := api.NewPickerService(store, signer, cfg)
	if err != nil {
		return fmt.Errorf("failed to create service: %w", err)
	}
	grpcServer, err := server.NewGRPCServer(cfg, service, signer, log)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	servers := []server.Runnable{grpcServer}
	if cfg.HTTPPort > 0 {
		servers = append(servers, server.NewHTTPServer(fmt.Sprintf("%s:%d", cfg.Host, cfg.HTTPPort), conn, log))
	}
	if dir, _ := cmd.Flags().GetString("watch"); dir != "" {
		servers = append(servers, newWatchRunner(indexer.New(store, log), dir))
	}

	log.Info("starting pickerkt",
		zap.String("version", Version),
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.Int("http_port", cfg.HTTPPort),
		zap.Bool("signing", signer.Enabled()),
		zap.Bool("require_signed_tokens", cfg.RequireSignedTokens))

	return server.Run(ctx, log, cfg.ShutdownTimeout, servers...)
}
