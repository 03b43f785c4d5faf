package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/cogsim/internal/common"
	"github.com/ternarybob/cogsim/internal/services/simulation"
	"github.com/ternarybob/cogsim/internal/worker"
)

// cogsim-worker drains the durable queue without serving HTTP. Useful for
// scaling workers independently of the API, or for one-shot queue steps
// from scripts (-once).

type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	configFiles configPaths
	workdir     = flag.String("workdir", "", "Work directory for job sandboxes (overrides config)")
	logLevel    = flag.String("log-level", "", "Log level (overrides config)")
	concurrency = flag.Int("concurrency", 0, "Number of workers (overrides config)")
	runOnce     = flag.Bool("once", false, "Process at most one queued job, print the step result, and exit")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	flag.Parse()

	if len(configFiles) == 0 {
		if _, err := os.Stat("cogsim.toml"); err == nil {
			configFiles = append(configFiles, "cogsim.toml")
		}
	}

	config, err := common.LoadFromFiles(configFiles)
	if err != nil {
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Err(err).Msg("Failed to load configuration files")
		os.Exit(1)
	}

	config.ApplyFlagOverrides(0, *workdir, *logLevel)
	if *concurrency > 0 {
		config.Worker.Concurrency = *concurrency
	}

	logger := common.InitLogger(config)

	svc, err := simulation.NewService(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize simulation service")
	}
	defer svc.Close()

	if *runOnce {
		step, err := svc.RunNextQueued(context.Background())
		if err != nil {
			logger.Fatal().Err(err).Msg("Worker step failed")
		}
		payload, _ := json.MarshalIndent(step, "", "  ")
		fmt.Println(string(payload))
		return
	}

	pool := worker.NewWorkerPool(svc, config.Worker, logger)
	pool.Start()

	logger.Info().Msg("Worker running - Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("Interrupt signal received")
	pool.Stop()
	logger.Info().Msg("Worker stopped")
}
