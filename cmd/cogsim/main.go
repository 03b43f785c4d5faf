package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/cogsim/internal/common"
	"github.com/ternarybob/cogsim/internal/server"
	"github.com/ternarybob/cogsim/internal/services/simulation"
	"github.com/ternarybob/cogsim/internal/worker"
)

// configPaths is a custom flag type that allows multiple -config flags
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	// Command-line flags
	configFiles  configPaths // Multiple -config flags supported
	serverPort   = flag.Int("port", 0, "Server port (overrides config)")
	serverPortP  = flag.Int("p", 0, "Server port (shorthand, overrides config)")
	workdir      = flag.String("workdir", "", "Work directory for job sandboxes (overrides config)")
	logLevel     = flag.String("log-level", "", "Log level (overrides config)")
	noWorker     = flag.Bool("no-worker", false, "Disable the embedded worker pool")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	defer common.RecoverWithCrashFile()

	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("Cogsim version %s\n", common.GetVersion())
		os.Exit(0)
	}

	// Merge port flags (shorthand takes precedence)
	finalPort := *serverPort
	if *serverPortP != 0 {
		finalPort = *serverPortP
	}

	// Startup sequence (REQUIRED ORDER):
	// 1. Load config (defaults -> file1 -> file2 -> ... -> env)
	// 2. Apply CLI overrides (highest priority)
	// 3. Initialize logger
	// 4. Print banner

	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		if _, err := os.Stat("cogsim.toml"); err == nil {
			configFiles = append(configFiles, "cogsim.toml")
		} else if _, err := os.Stat("deployments/local/cogsim.toml"); err == nil {
			configFiles = append(configFiles, "deployments/local/cogsim.toml")
		}
	}

	config, err := common.LoadFromFiles(configFiles)
	if err != nil {
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Err(err).Msg("Failed to load configuration files")
		os.Exit(1)
	}

	config.ApplyFlagOverrides(finalPort, *workdir, *logLevel)

	logger := common.InitLogger(config)

	common.InstallCrashHandler(filepath.Join(config.Workdir, "logs"))

	common.PrintBanner(common.GetVersion())

	logger.Info().
		Strs("config_files", configFiles).
		Int("port", config.Server.Port).
		Str("host", config.Server.Host).
		Str("workdir", config.Workdir).
		Msg("Application configuration loaded")

	svc, err := simulation.NewService(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize simulation service")
	}
	defer svc.Close()

	// Embedded worker pool drains the durable queue alongside the API.
	var pool *worker.WorkerPool
	if config.Worker.Enabled && !*noWorker {
		pool = worker.NewWorkerPool(svc, config.Worker, logger)
		pool.Start()
	} else {
		logger.Info().Msg("Embedded worker pool disabled")
	}

	srv := server.New(config, svc, logger)

	common.SafeGo(logger, "http-server", func() {
		if err := srv.Start(); err != nil {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	})

	// Give goroutine a moment to start
	time.Sleep(100 * time.Millisecond)

	logger.Info().
		Str("url", fmt.Sprintf("http://%s:%d", config.Server.Host, config.Server.Port)).
		Msg("Server ready - Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("Interrupt signal received")

	if pool != nil {
		pool.Stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown failed")
	}

	logger.Info().Msg("Server stopped")
}
