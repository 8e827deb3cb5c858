// Command sparkify-etl runs the full batch job: song catalog and event logs
// in, five partitioned parquet tables out. It takes no arguments beyond the
// config path; both pipelines run to completion or the process exits 1.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lmittmann/tint"

	"github.com/loevda/datalake/internal/config"
	"github.com/loevda/datalake/internal/pipeline"
)

var (
	configPath = flag.String("config", "dl.toml", "Path to configuration file")
	verbose    = flag.Bool("verbose", false, "Enable verbose logging")
)

func main() {
	flag.Parse()

	logLevel := slog.LevelInfo
	if *verbose {
		logLevel = slog.LevelDebug
	}
	log := slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: logLevel}))

	// A missing default config file is fine, the environment can carry
	// everything. An explicitly given path must exist.
	cfgPath := *configPath
	if _, err := os.Stat(cfgPath); os.IsNotExist(err) && cfgPath == "dl.toml" {
		cfgPath = ""
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	p, err := pipeline.NewContext(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize", "error", err)
		os.Exit(1)
	}

	log.Info("starting ETL run",
		"input", cfg.AWS.InputPath,
		"output", cfg.AWS.OutputBucket)

	if err := p.Run(ctx); err != nil {
		log.Error("ETL run failed", "error", err)
		os.Exit(1)
	}

	log.Info("ETL run complete")
}
