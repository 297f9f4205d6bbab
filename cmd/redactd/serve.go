package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/redactd/internal/config"
	"github.com/fyrsmithlabs/redactd/internal/events"
	redacthttp "github.com/fyrsmithlabs/redactd/internal/http"
	"github.com/fyrsmithlabs/redactd/internal/logging"
	"github.com/fyrsmithlabs/redactd/internal/notes"
	"github.com/fyrsmithlabs/redactd/internal/pii"
	"github.com/fyrsmithlabs/redactd/internal/pin"
	"github.com/fyrsmithlabs/redactd/internal/secrets"
	"github.com/fyrsmithlabs/redactd/internal/spans"
	"github.com/fyrsmithlabs/redactd/internal/store"
	"github.com/fyrsmithlabs/redactd/internal/telemetry"
)

func newServeCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the redactd HTTP API until SIGINT or SIGTERM.

Configuration is read from ~/.config/redactd/config.yaml unless --config is
given. Environment variables such as SERVER_HTTP_PORT override file values.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			err := run(ctx, configPath)
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to config file")
	return cmd
}

// run wires every component and serves until ctx is cancelled.
func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logCfg, err := logging.FromSettings(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return fmt.Errorf("invalid logging configuration: %w", err)
	}
	logCfg.Fields["service"] = cfg.Observability.ServiceName
	logger, err := logging.NewLogger(logCfg, nil)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()
	zl := logger.Underlying()

	logger.Info(ctx, "starting redactd",
		zap.String("version", version),
		zap.String("addr", cfg.Server.Addr()),
		zap.String("store", cfg.Store.Driver),
		zap.String("pii_provider", cfg.PII.Provider))

	tel, err := telemetry.New(ctx, telemetry.FromObservability(cfg.Observability, version), zl)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
		defer cancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Warn(shutdownCtx, "telemetry shutdown failed", zap.Error(err))
		}
	}()

	st, err := openStore(cfg.Store, zl)
	if err != nil {
		return err
	}
	defer st.Close()

	engine, err := newEngine(cfg.Secrets, zl)
	if err != nil {
		return err
	}

	detector, err := pii.New(cfg.PII, zl)
	if err != nil {
		return fmt.Errorf("failed to create pii detector: %w", err)
	}

	pub, err := events.New(cfg.Events, zl)
	if err != nil {
		return fmt.Errorf("failed to create event publisher: %w", err)
	}
	defer pub.Close()

	materializer, err := spans.NewMaterializer(detector, engine, st, pub, zl)
	if err != nil {
		return err
	}
	guard, err := pin.NewGuard(st, cfg.Pin.Guard(), zl)
	if err != nil {
		return err
	}
	svc, err := notes.NewService(st, materializer, guard, engine, pub, zl)
	if err != nil {
		return err
	}

	srv, err := redacthttp.NewServer(svc, logger, &redacthttp.Config{
		Host:      cfg.Server.Host,
		Port:      cfg.Server.Port,
		BodyLimit: cfg.Server.BodyLimit,
	})
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	logger.Info(shutdownCtx, "redactd stopped")
	return http.ErrServerClosed
}

func openStore(cfg store.Config, logger *zap.Logger) (store.Store, error) {
	if cfg.Driver == store.DriverSQLite {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create store directory: %w", err)
		}
	}
	st, err := store.Open(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return st, nil
}

// newEngine builds the secret engine with the optional allow-list file and
// gitleaks rule pack.
func newEngine(cfg secrets.Config, logger *zap.Logger) (*secrets.Engine, error) {
	var allow *secrets.AllowList
	if cfg.AllowListFile != "" {
		a, err := secrets.LoadAllowList(cfg.AllowListFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load allowlist: %w", err)
		}
		allow = a
	}

	registry := secrets.DefaultRegistry()
	if allow != nil {
		r, err := secrets.NewRegistry(secrets.DefaultRules(), allow)
		if err != nil {
			return nil, err
		}
		registry = r
	}

	var opts []secrets.Option
	if cfg.GitleaksEnabled {
		opts = append(opts, secrets.WithExtendedScanner(secrets.NewGitleaksScanner(allow)))
	}
	return secrets.NewEngine(registry, &cfg, logger, opts...)
}
