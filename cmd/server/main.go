package main

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/driftsync/driftsync/internal/server/authority"
	"github.com/driftsync/driftsync/internal/server/config"
	"github.com/driftsync/driftsync/internal/server/handlers"
	"github.com/driftsync/driftsync/internal/server/middleware"
	"github.com/driftsync/driftsync/internal/server/storage/sqlite"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	configPath := flag.String("config", "driftsync.yaml", "Path to config file")
	devToken := flag.String("dev-token", "", "Print an access token for the given tenant:client pair and exit")
	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	if err := run(*configPath, *devToken); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, devToken string) error {
	bootstrapLogger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	cfg, err := config.Load(configPath, bootstrapLogger)
	if err != nil {
		return err
	}

	opts := &slog.HandlerOptions{Level: cfg.Logger.SlogLevel()}
	var logHandler slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if cfg.Logger.JSON {
		logHandler = slog.NewJSONHandler(os.Stdout, opts)
	}
	logger := slog.New(logHandler)

	jwtConfig := handlers.JWTConfig{
		Secret:         []byte(cfg.Auth.JWTSecret),
		AccessTokenTTL: cfg.Auth.AccessTokenTTL,
	}
	if len(jwtConfig.Secret) == 0 {
		// Ephemeral secret: fine for development, tokens die with the
		// process.
		secret := make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return fmt.Errorf("failed to generate jwt secret: %w", err)
		}
		jwtConfig.Secret = secret
		logger.Warn("no jwt_secret configured, using an ephemeral secret")
	}

	// -dev-token tenant:client prints a usable token and exits.
	if devToken != "" {
		return printDevToken(jwtConfig, devToken)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.New(ctx, cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close storage", "error", err)
		}
	}()

	svc := authority.New(store, logger, cfg.Storage.FeedLimit)

	syncHandler := handlers.NewSyncHandler(logger, svc)
	healthHandler := handlers.NewHealthHandler(logger, Version)

	authMw := middleware.AuthMiddleware(logger, jwtConfig)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/sync", authMw(http.HandlerFunc(syncHandler.HandleSync)))
	mux.HandleFunc("/api/v1/health", healthHandler.Health)

	var root http.Handler = mux
	root = middleware.RateLimitMiddleware(cfg.RateLimit.Rate, cfg.RateLimit.Window, logger)(root)
	root = middleware.LoggingWithSkip(logger, []string{"/api/v1/health"})(root)
	root = middleware.RecoveryMiddleware(logger)(root)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           root,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
	}

	// Ledger janitor: old applied-op entries are only needed while clients
	// may still retry them.
	go runJanitor(ctx, store, logger, cfg.Storage.JanitorInterval, cfg.Storage.LedgerRetention)

	errC := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr, "version", Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errC <- err
		}
	}()

	select {
	case err := <-errC:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}
	return nil
}

func runJanitor(ctx context.Context, store *sqlite.Storage, logger *slog.Logger, interval, retention time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pruned, err := store.PruneAppliedOps(ctx, time.Now().Add(-retention))
			if err != nil {
				logger.Error("ledger prune failed", "error", err)
				continue
			}
			if pruned > 0 {
				logger.Info("ledger pruned", "entries", pruned)
			}
		}
	}
}

func printDevToken(cfg handlers.JWTConfig, scope string) error {
	tenantID, clientID, ok := strings.Cut(scope, ":")
	if !ok || tenantID == "" || clientID == "" {
		return fmt.Errorf("expected -dev-token tenant:client")
	}

	token, expiresIn, err := handlers.GenerateAccessToken(cfg, tenantID, clientID)
	if err != nil {
		return err
	}

	fmt.Printf("token: %s\n", token)
	fmt.Printf("expires_in: %ds\n", expiresIn)
	fmt.Printf("secret (keep to validate): %s\n", base64.StdEncoding.EncodeToString(cfg.Secret))
	return nil
}

func printVersion() {
	fmt.Printf("Driftsync Server\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
