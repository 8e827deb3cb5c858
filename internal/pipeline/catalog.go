package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/loevda/datalake/internal/parquet"
	"github.com/loevda/datalake/internal/schema"
	"github.com/loevda/datalake/internal/transform"
)

func songPartitions(r schema.SongRow) []string {
	return []string{fmt.Sprintf("year=%d", r.Year), "artist_id=" + r.ArtistID}
}

// RunCatalog builds the songs and artists tables from the song catalog.
// Stages run strictly in order; the first failure aborts the pipeline with
// no cleanup of tables already written.
func (p *Context) RunCatalog(ctx context.Context) error {
	start := time.Now()
	p.Log.Info("catalog pipeline starting")

	catalog, files, err := loadCatalog(ctx, p.In)
	if err != nil {
		return err
	}
	p.Log.Info("catalog loaded", "files", files, "records", len(catalog))

	songs := transform.Songs(catalog)
	if err := parquet.Write(ctx, p.Out, "songs.parquet", songs, songPartitions); err != nil {
		return fmt.Errorf("writing songs: %w", err)
	}

	artists := transform.Artists(catalog)
	if err := parquet.Write[schema.ArtistRow](ctx, p.Out, "artists.parquet", artists, nil); err != nil {
		return fmt.Errorf("writing artists: %w", err)
	}

	stats := RunStats{
		Pipeline:      "catalog",
		FilesRead:     files,
		RecordsLoaded: len(catalog),
		TableRows: map[string]int{
			"songs":   len(songs),
			"artists": len(artists),
		},
		Duration: time.Since(start),
	}
	stats.Log(p.Log)
	return nil
}
