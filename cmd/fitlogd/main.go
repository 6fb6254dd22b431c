// Fitlogd is the fitlog HTTP daemon.
//
// It serves the check-in API backed by NATS JetStream key-value buckets (or
// an in-memory store for development) and periodically reconciles the
// check-in indexes.
//
// Configuration is loaded from ~/.config/fitlog/config.yaml and FITLOG_*
// environment variables. See internal/config for details.
//
// Usage:
//
//	# Start with defaults (NATS at nats://localhost:4222)
//	fitlogd
//
//	# Development mode with an embedded NATS server
//	FITLOG_STORE_EMBEDDED=true FITLOG_STORE_DATA_DIR=/tmp/fitlog fitlogd
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/fitlog/internal/auth"
	"github.com/fyrsmithlabs/fitlog/internal/checkin"
	"github.com/fyrsmithlabs/fitlog/internal/config"
	httpapi "github.com/fyrsmithlabs/fitlog/internal/http"
	"github.com/fyrsmithlabs/fitlog/internal/kvstore"
	"github.com/fyrsmithlabs/fitlog/internal/logging"
	"github.com/fyrsmithlabs/fitlog/internal/progress"
	"github.com/fyrsmithlabs/fitlog/internal/settings"
	"github.com/fyrsmithlabs/fitlog/internal/telemetry"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default ~/.config/fitlog/config.yaml)")
	flag.Parse()
	args := flag.Args()

	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  fitlogd [-config path]   Start the fitlog daemon\n")
			fmt.Fprintf(os.Stderr, "  fitlogd version          Show version information\n")
			os.Exit(1)
		}
	}

	cfg, err := config.LoadWithFile(*configPath)
	if err != nil {
		log.Fatalf("Configuration error: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("Server error: %v", err)
	}
	log.Println("Server shutdown complete")
}

func printVersion() {
	fmt.Printf("fitlogd by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run starts fitlogd and blocks until ctx is cancelled or the server fails.
func run(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	tel, err := telemetry.New(ctx, telemetry.FromAppConfig(cfg.Telemetry, version))
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = tel.Shutdown(shutdownCtx)
	}()

	logger, err := initLogger(cfg, tel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()
	zl := logger.Underlying()

	zl.Info("Starting fitlogd",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.String("store", cfg.Store.Backend),
		zap.Bool("telemetry", tel.IsEnabled()),
		zap.Duration("shutdown_timeout", cfg.Server.ShutdownTimeout))

	stores, err := kvstore.Open(ctx, cfg.Store, cfg.Auth.SessionTTL, zl)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer func() {
		if err := stores.Close(); err != nil {
			zl.Warn("failed to close store", zap.Error(err))
		}
	}()

	svcs, err := initServices(cfg, stores, zl)
	if err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	srv, err := httpapi.NewServer(svcs, zl, &httpapi.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.Port,
		Cookie: auth.CookieConfig{
			Name:   cfg.Auth.CookieName,
			Secure: cfg.Auth.CookieSecure,
			MaxAge: cfg.Auth.SessionTTL,
		},
		LogoutRedirect: cfg.Auth.LogoutRedirect,
		LoginRate:      cfg.Auth.LoginRate,
		LoginBurst:     cfg.Auth.LoginBurst,
	})
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
	}

	if cfg.Reconcile.Enabled {
		go reconcileLoop(ctx, svcs.Checkins, cfg.Reconcile.Interval, zl)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// initLogger builds the application logger, teeing to the OTEL log bridge
// when telemetry provides one.
func initLogger(cfg *config.Config, tel *telemetry.Telemetry) (*logging.Logger, error) {
	logCfg, err := logging.FromAppConfig(cfg.Logging)
	if err != nil {
		return nil, err
	}
	lp := tel.LoggerProvider()
	logCfg.Output.OTEL = lp != nil
	return logging.NewLogger(logCfg, lp)
}

// initServices wires the domain services onto the stores.
func initServices(cfg *config.Config, stores *kvstore.Stores, logger *zap.Logger) (httpapi.Services, error) {
	settingsSvc, err := settings.NewService(settings.FromAppConfig(cfg.Settings), stores.Data, logger.Named("settings"))
	if err != nil {
		return httpapi.Services{}, err
	}

	checkinSvc, err := checkin.NewService(stores.Data, logger.Named("checkin"))
	if err != nil {
		return httpapi.Services{}, err
	}

	authSvc, err := auth.NewService(auth.FromAppConfig(cfg.Auth), stores.Data, stores.Sessions, settingsSvc, logger.Named("auth"))
	if err != nil {
		return httpapi.Services{}, err
	}

	calc, err := progress.NewCalculator(cfg.Progress.WeeklyMode, cfg.Progress.MonthlyMode)
	if err != nil {
		return httpapi.Services{}, err
	}

	return httpapi.Services{
		Auth:     authSvc,
		Checkins: checkinSvc,
		Settings: settingsSvc,
		Progress: calc,
		Store:    stores,
	}, nil
}

// reconcileLoop repairs check-in indexes once at startup and then on every
// tick until ctx is cancelled.
func reconcileLoop(ctx context.Context, svc checkin.Service, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		report, err := svc.Reconcile(ctx)
		switch {
		case err != nil && ctx.Err() == nil:
			logger.Error("index reconcile failed", zap.Error(err))
		case err == nil:
			logger.Info("index reconcile complete",
				zap.Int("scanned", report.Scanned),
				zap.Int("malformed", report.Malformed),
				zap.Int("added", report.Added),
				zap.Int("pruned", report.Pruned))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
