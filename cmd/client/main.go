package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/driftsync/driftsync/internal/client/cli"
	"github.com/driftsync/driftsync/internal/client/engine"
	"github.com/driftsync/driftsync/internal/client/storage/boltdb"
	"github.com/driftsync/driftsync/internal/client/transport"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	serverURL := flag.String("server", "http://localhost:8080", "Server URL")
	dbPath := flag.String("db", "driftsync-client.db", "Path to local database")
	tenantID := flag.String("tenant", "", "Tenant id")
	token := flag.String("token", os.Getenv("DRIFTSYNC_TOKEN"), "Bearer token for the server")
	verbose := flag.Bool("v", false, "Verbose logging")

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		cli.PrintUsage()
		os.Exit(1)
	}
	command := args[0]

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	replica, err := boltdb.New(ctx, *dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := replica.Close(); err != nil {
			logger.Error("failed to close database", "error", err)
		}
	}()

	tc := transport.NewHTTPClient(*serverURL, *token)

	eng, err := engine.New(ctx, replica, tc, logger, engine.Config{TenantID: *tenantID})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var cmdErr error
	switch command {
	case "put":
		cmdErr = cli.RunPut(ctx, args[1:], eng)
	case "get":
		cmdErr = cli.RunGet(ctx, args[1:], eng)
	case "delete":
		cmdErr = cli.RunDelete(ctx, args[1:], eng)
	case "list":
		cmdErr = cli.RunList(ctx, args[1:], eng)
	case "status":
		cmdErr = cli.RunStatus(ctx, eng)
	case "sync":
		cmdErr = cli.RunSync(ctx, eng)
	case "watch":
		cmdErr = cli.RunWatch(ctx, eng)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		cli.PrintUsage()
		os.Exit(1)
	}

	if cmdErr != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", cmdErr)
		os.Exit(1)
	}
}

func printVersion() {
	fmt.Printf("Driftsync Client\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
