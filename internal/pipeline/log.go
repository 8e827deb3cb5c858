package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/loevda/datalake/internal/parquet"
	"github.com/loevda/datalake/internal/schema"
	"github.com/loevda/datalake/internal/transform"
)

func timePartitions(r schema.TimeRow) []string {
	return []string{
		fmt.Sprintf("year=%d", r.Year),
		fmt.Sprintf("month=%d", r.Month),
	}
}

func songplayPartitions(r schema.SongplayRow) []string {
	return []string{
		fmt.Sprintf("year=%d", r.Year),
		fmt.Sprintf("month=%d", r.Month),
	}
}

// RunLog builds the users, time and songplays tables from the event logs.
// The catalog is read a second time for the songplays join; the pipeline
// does not depend on RunCatalog having run in the same process.
func (p *Context) RunLog(ctx context.Context) error {
	start := time.Now()
	p.Log.Info("log pipeline starting")

	events, files, err := loadEvents(ctx, p.In)
	if err != nil {
		return err
	}
	plays := transform.FilterNextSong(events)
	p.Log.Info("events loaded", "files", files, "records", len(events), "nextsong", len(plays))

	users := transform.Users(plays)
	if err := parquet.Write[schema.UserRow](ctx, p.Out, "users.parquet", users, nil); err != nil {
		return fmt.Errorf("writing users: %w", err)
	}

	times := transform.TimeRows(plays)
	if err := parquet.Write(ctx, p.Out, "time.parquet", times, timePartitions); err != nil {
		return fmt.Errorf("writing time: %w", err)
	}

	catalog, _, err := loadCatalog(ctx, p.In)
	if err != nil {
		return err
	}

	songplays, unmatched := transform.Songplays(plays, catalog)
	if unmatched > 0 {
		p.Log.Info("plays without catalog match dropped", "count", unmatched)
	}
	if len(songplays) == 0 {
		p.Log.Warn("artist join produced no rows, writing empty songplays table")
	}
	if err := parquet.Write(ctx, p.Out, "songplays.parquet", songplays, songplayPartitions); err != nil {
		return fmt.Errorf("writing songplays: %w", err)
	}

	stats := RunStats{
		Pipeline:      "log",
		FilesRead:     files,
		RecordsLoaded: len(events),
		TableRows: map[string]int{
			"users":     len(users),
			"time":      len(times),
			"songplays": len(songplays),
		},
		UnmatchedPlays: unmatched,
		Duration:       time.Since(start),
	}
	stats.Log(p.Log)
	return nil
}
