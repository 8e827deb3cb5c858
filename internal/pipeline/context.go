// Package pipeline runs the two batch pipelines of the job: the catalog
// pipeline building songs and artists, and the log pipeline building users,
// time and songplays.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/loevda/datalake/internal/config"
	"github.com/loevda/datalake/internal/storage"
)

// ErrNoInput reports that an input glob matched zero files. An empty source
// dataset is treated as a misconfiguration, not as an empty run.
var ErrNoInput = errors.New("no input files matched")

// Input glob patterns below the input prefix. The layouts are fixed by the
// source dataset: four directory levels for the catalog, three for the logs.
const (
	songDataGlob = "song_data/*/*/*/*.json"
	logDataGlob  = "log_data/*/*/*.json"
)

// Context carries everything a pipeline run needs: the input and output
// stores and a logger. It holds no mutable state shared between pipelines.
type Context struct {
	In  storage.ObjectStore
	Out storage.ObjectStore
	Log *slog.Logger
}

// NewContext validates the configuration, opens both stores and probes the
// output store. Any failure here happens before a single record is read.
func NewContext(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Context, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	in, err := storage.Open(cfg.AWS.InputPath, cfg.AWS.Region, cfg.AWS.AccessKeyID, cfg.AWS.SecretAccessKey)
	if err != nil {
		return nil, fmt.Errorf("opening input store: %w", err)
	}
	out, err := storage.Open(cfg.AWS.OutputBucket, cfg.AWS.Region, cfg.AWS.AccessKeyID, cfg.AWS.SecretAccessKey)
	if err != nil {
		return nil, fmt.Errorf("opening output store: %w", err)
	}
	if err := out.Check(ctx); err != nil {
		return nil, fmt.Errorf("output store check: %w", err)
	}

	return &Context{In: in, Out: out, Log: log}, nil
}

// Run executes the catalog pipeline followed by the log pipeline. A catalog
// failure prevents the log pipeline from starting.
func (p *Context) Run(ctx context.Context) error {
	if err := p.RunCatalog(ctx); err != nil {
		return fmt.Errorf("catalog pipeline: %w", err)
	}
	if err := p.RunLog(ctx); err != nil {
		return fmt.Errorf("log pipeline: %w", err)
	}
	return nil
}
