package pipeline

import (
	"log/slog"
	"time"
)

// RunStats summarizes one pipeline run. Counts are logged at completion so
// silent data loss, in particular plays dropped by the artist join, stays
// visible across runs.
type RunStats struct {
	Pipeline       string         `json:"pipeline"`
	FilesRead      int            `json:"files_read"`
	RecordsLoaded  int            `json:"records_loaded"`
	TableRows      map[string]int `json:"table_rows"`
	UnmatchedPlays int            `json:"unmatched_plays,omitempty"`
	Duration       time.Duration  `json:"duration"`
}

func (s RunStats) Log(log *slog.Logger) {
	attrs := []any{
		"pipeline", s.Pipeline,
		"files", s.FilesRead,
		"records", s.RecordsLoaded,
		"duration", s.Duration,
	}
	for table, rows := range s.TableRows {
		attrs = append(attrs, table, rows)
	}
	if s.UnmatchedPlays > 0 {
		attrs = append(attrs, "unmatched_plays", s.UnmatchedPlays)
	}
	log.Info("pipeline complete", attrs...)
}
