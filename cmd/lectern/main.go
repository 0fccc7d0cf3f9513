// Package main is the Lectern CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hyperjump/lectern/internal/cli"
	"github.com/hyperjump/lectern/internal/config"
	"github.com/hyperjump/lectern/internal/server"
	"github.com/hyperjump/lectern/internal/storage"
	"github.com/hyperjump/lectern/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/lectern/config.yaml"

// loadConfig loads config from path. When path is the default and a
// config.yaml exists in the working directory, that file is used instead so
// "lectern server" run from a checkout picks up the local config. A missing
// file yields the defaults. Returns the path actually loaded, or "".
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, err := os.Getwd(); err == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, err := os.Stat(fallback); err == nil {
				path = fallback
			}
		}
	}
	if _, err := os.Stat(path); err != nil {
		cfg, err := config.LoadOrDefault("")
		return cfg, "", err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load .env: %v\n", err)
		os.Exit(1)
	}
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("lectern version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.String("database_path", cfg.Storage.DatabasePath),
		zap.Bool("debug", debugMode),
	)

	components, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	srv := server.NewServer(server.Deps{
		QA:      components.QA,
		Classes: components.Classes,
		Auth:    components.Auth,
		Storage: components.Storage,
		Shards:  components.Shards,
	}, cfg, logger)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigChan:
	case err := <-errCh:
		logger.Error("Server failed", zap.Error(err))
	}

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Stop(ctx); err != nil {
		logger.Warn("Graceful shutdown failed", zap.Error(err))
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = read the database directly)")
	token := fs.String("token", os.Getenv("LECTERN_TOKEN"), "bearer token for -server")
	output := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format, err := cli.ParseOutputFormat(*output)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var status *cli.Status
	if *serverURL != "" {
		status, err = cli.FetchStatus(context.Background(), *serverURL, *token)
	} else {
		var cfg *config.Config
		cfg, _, err = loadConfig(*configPath)
		if err == nil {
			status, err = localStatus(context.Background(), cfg)
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Status failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteStatus(os.Stdout, status, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// localStatus reads counts straight from the database. No scope index is
// open in this process, so OpenScopes is always zero.
func localStatus(ctx context.Context, cfg *config.Config) (*cli.Status, error) {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DatabasePath)
	if err != nil {
		return nil, err
	}
	defer store.Close()
	stats, err := store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	status := &cli.Status{
		Documents:    stats.Documents,
		Chunks:       stats.Chunks,
		Classes:      stats.Classes,
		Users:        stats.Users,
		LLMProvider:  cfg.LLM.Provider,
		ChunkSize:    cfg.Ingest.ChunkSize,
		ChunkOverlap: cfg.Ingest.ChunkOverlap,
		DatabasePath: cfg.Storage.DatabasePath,
	}
	if n, err := storage.DiskUsageBytes(storage.DatabaseFiles(cfg.Storage.DatabasePath)...); err == nil {
		status.DiskUsageBytes = &n
	}
	return status, nil
}

func printUsage() {
	fmt.Print(`Lectern - course material Q&A server

Usage:
  lectern <command> [flags]

Commands:
  server    Start the HTTP API server
  status    Show document, chunk, class and user counts
  version   Print the version
  help      Show this help

Server flags:
  -config string   config file path (default "` + defaultConfigPath + `")
  -debug           enable debug logging

Status flags:
  -config string   config file path
  -server string   read status from a running server instead of the database
  -token string    bearer token for -server (default $LECTERN_TOKEN)
  -output string   text or json (default "text")

Environment:
  LECTERN_JWT_SECRET     token signing secret (required for server)
  ANTHROPIC_API_KEY      enables llm.provider=anthropic
  LECTERN_LLM_PROVIDER   local or anthropic
  LECTERN_DATABASE_PATH  SQLite database path
  PORT                   listen port
`)
}
