package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	appsession "marketing-export/application/session"
	"marketing-export/domain/credential"
	"marketing-export/infrastructure/auth"
	"marketing-export/infrastructure/config"
	"marketing-export/infrastructure/metrics"
	"marketing-export/infrastructure/web"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	serveAddress string
	serveSecure  bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the marketing copy form",
	Long: `Serve the web form: sign in with Google, describe a product and
audience, generate copy, edit it, and upload it to Google Drive.

Prometheus metrics are exposed at /metrics and a health check at /healthz.

Example:
  marketing-export serve
  marketing-export serve --address 127.0.0.1:9000`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddress, "address", "", "Listen address (overrides server.address)")
	serveCmd.Flags().BoolVar(&serveSecure, "secure-cookies", false, "Mark session cookies Secure (overrides server.secure_cookies)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := requireConfig(true)
	if err != nil {
		return err
	}
	if serveAddress != "" {
		cfg.Server.Address = serveAddress
	}
	if serveSecure {
		cfg.Server.SecureCookies = true
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := newAuthStore(cfg, os.Stderr, logger)
	return RunServeWithDependencies(ctx, cfg, store, os.Stdout, logger)
}

// RunServeWithDependencies wires the controller and web server and serves
// until ctx is cancelled
func RunServeWithDependencies(ctx context.Context, cfg *config.Config, store *auth.Store, output io.Writer, logger *slog.Logger) error {
	generator, err := newGenerationService(cfg, logger)
	if err != nil {
		return err
	}

	controllerCfg, err := controllerConfig(cfg)
	if err != nil {
		return err
	}

	recorder, err := metrics.NewRecorder()
	if err != nil {
		return fmt.Errorf("failed to create metrics: %w", err)
	}

	controller := appsession.NewController(
		store,
		generator,
		newDriveConnector(store, cfg, logger),
		controllerCfg,
		appsession.WithObserver(recorder),
		appsession.WithLogger(logger),
	)

	server, err := web.NewServer(web.Config{
		Address:       cfg.Server.Address,
		SessionTTL:    cfg.Server.SessionTTL,
		MaxSessions:   cfg.Server.MaxSessions,
		SecureCookies: cfg.Server.SecureCookies,
		RateLimit:     cfg.Server.RateLimit,
		RateBurst:     cfg.Server.RateBurst,
		DefaultTone:   cfg.DefaultTone(),
	}, controller, recorder, logger)
	if err != nil {
		return err
	}

	fmt.Fprintf(output, "Serving marketing-export on %s\n", cfg.Server.Address)
	fmt.Fprintf(output, "  Strategy: %s\n", controllerCfg.Strategy)
	fmt.Fprintf(output, "  Default folder: %s\n", describeFolder(cfg))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx)
	})
	if controllerCfg.Strategy == credential.ServiceAccount {
		g.Go(func() error {
			announceServiceAccount(gctx, store, controllerCfg.Auth, output, logger)
			return nil
		})
	}
	return g.Wait()
}

// announceServiceAccount prints the identity folders must be shared with.
// A bad key is only logged; sign-in reports it to the user.
func announceServiceAccount(ctx context.Context, store *auth.Store, authCfg auth.Config, output io.Writer, logger *slog.Logger) {
	cred, err := store.Acquire(ctx, credential.ServiceAccount, authCfg)
	if err != nil {
		logger.Warn("service account key could not be loaded", slog.String("error", err.Error()))
		return
	}
	fmt.Fprintf(output, "  Share target folders with: %s\n", cred.Identity())
}

func describeFolder(cfg *config.Config) string {
	name := cfg.Drive.FolderName
	if cfg.Drive.FolderID != "" {
		name = "id " + cfg.Drive.FolderID
	}
	if cfg.Drive.SharedDrive != "" {
		return fmt.Sprintf("%s in shared drive %q", name, cfg.Drive.SharedDrive)
	}
	return name
}
