package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"runtime"
	"sync"

	"github.com/loevda/datalake/internal/schema"
	"github.com/loevda/datalake/internal/storage"
)

// downloadAll fetches every key with a bounded worker pool. Results land in
// a slice indexed like keys, so record order stays equal to listing order
// no matter how the downloads interleave.
func downloadAll(ctx context.Context, store storage.ObjectStore, keys []string) ([][]byte, error) {
	bodies := make([][]byte, len(keys))
	errs := make([]error, len(keys))

	semaphore := make(chan struct{}, runtime.NumCPU()*2)
	var wg sync.WaitGroup
	for i, key := range keys {
		wg.Add(1)
		go func(i int, key string) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()
			bodies[i], errs[i] = store.Download(ctx, key)
		}(i, key)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("downloading %s: %w", keys[i], err)
		}
	}
	return bodies, nil
}

// checkFields verifies that the first record of a file carries every
// expected field. JSON nulls count as present; only a missing key is a
// schema failure.
func checkFields(line []byte, fields []string, source string) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(line, &raw); err != nil {
		return fmt.Errorf("parsing %s: %w", source, err)
	}
	for _, f := range fields {
		if _, ok := raw[f]; !ok {
			return &schema.FieldError{Field: f, Source: source}
		}
	}
	return nil
}

// splitLines returns the non-empty lines of a newline-delimited JSON file.
func splitLines(body []byte) [][]byte {
	var lines [][]byte
	for _, line := range bytes.Split(body, []byte{'\n'}) {
		if len(bytes.TrimSpace(line)) > 0 {
			lines = append(lines, line)
		}
	}
	return lines
}

// loadCatalog reads every song-catalog file into memory. It returns the
// records in listing order and the number of files read.
func loadCatalog(ctx context.Context, store storage.ObjectStore) ([]schema.CatalogRecord, int, error) {
	keys, err := storage.Glob(ctx, store, songDataGlob)
	if err != nil {
		return nil, 0, err
	}
	if len(keys) == 0 {
		return nil, 0, fmt.Errorf("%w: %s", ErrNoInput, songDataGlob)
	}

	bodies, err := downloadAll(ctx, store, keys)
	if err != nil {
		return nil, 0, err
	}

	var records []schema.CatalogRecord
	for i, body := range bodies {
		lines := splitLines(body)
		if len(lines) == 0 {
			continue
		}
		if err := checkFields(lines[0], schema.CatalogFields, keys[i]); err != nil {
			return nil, 0, err
		}
		for _, line := range lines {
			var rec schema.CatalogRecord
			if err := json.Unmarshal(line, &rec); err != nil {
				return nil, 0, fmt.Errorf("parsing %s: %w", keys[i], err)
			}
			records = append(records, rec)
		}
	}
	return records, len(keys), nil
}

// loadEvents reads every log file into memory, in listing order.
func loadEvents(ctx context.Context, store storage.ObjectStore) ([]schema.LogRecord, int, error) {
	keys, err := storage.Glob(ctx, store, logDataGlob)
	if err != nil {
		return nil, 0, err
	}
	if len(keys) == 0 {
		return nil, 0, fmt.Errorf("%w: %s", ErrNoInput, logDataGlob)
	}

	bodies, err := downloadAll(ctx, store, keys)
	if err != nil {
		return nil, 0, err
	}

	var records []schema.LogRecord
	for i, body := range bodies {
		lines := splitLines(body)
		if len(lines) == 0 {
			continue
		}
		if err := checkFields(lines[0], schema.LogFields, keys[i]); err != nil {
			return nil, 0, err
		}
		for _, line := range lines {
			var rec schema.LogRecord
			if err := json.Unmarshal(line, &rec); err != nil {
				return nil, 0, fmt.Errorf("parsing %s: %w", keys[i], err)
			}
			records = append(records, rec)
		}
	}
	return records, len(keys), nil
}
