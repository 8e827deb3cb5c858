// Package parquet writes and reads partitioned parquet datasets through an
// ObjectStore. Each partition becomes one Snappy-compressed part file,
// staged locally and then uploaded, under hive-style key=value directories.
package parquet

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/xitongsys/parquet-go/writer"

	"github.com/loevda/datalake/internal/storage"
)

const parallelism = 4

// Partitioner maps a row to its partition directories, e.g.
// ["year=2018", "month=11"]. A nil Partitioner writes one unpartitioned
// part file.
type Partitioner[T any] func(T) []string

// Write replaces the dataset at root with the given rows. The previous
// content is deleted first, so a rerun fully overwrites the destination.
// An empty row set still produces the dataset: one part file with no rows.
func Write[T any](ctx context.Context, store storage.ObjectStore, root string, rows []T, partition Partitioner[T]) error {
	if err := store.DeletePrefix(ctx, root); err != nil {
		return fmt.Errorf("clearing %s: %w", root, err)
	}

	groups, order := groupRows(rows, partition)
	if len(order) == 0 {
		order = append(order, "")
		groups[""] = nil
	}

	for _, dir := range order {
		if err := writePart(ctx, store, root, dir, groups[dir]); err != nil {
			return err
		}
	}
	return nil
}

func groupRows[T any](rows []T, partition Partitioner[T]) (map[string][]T, []string) {
	groups := make(map[string][]T)
	var order []string
	for _, row := range rows {
		var dir string
		if partition != nil {
			dir = strings.Join(partition(row), "/")
		}
		if _, ok := groups[dir]; !ok {
			order = append(order, dir)
		}
		groups[dir] = append(groups[dir], row)
	}
	return groups, order
}

func writePart[T any](ctx context.Context, store storage.ObjectStore, root, dir string, rows []T) error {
	name := fmt.Sprintf("part-%s.parquet", uuid.NewString())
	tmpPath := filepath.Join(os.TempDir(), name)
	defer os.Remove(tmpPath)

	fw, err := local.NewLocalFileWriter(tmpPath)
	if err != nil {
		return fmt.Errorf("creating temp parquet file: %w", err)
	}
	pw, err := writer.NewParquetWriter(fw, new(T), parallelism)
	if err != nil {
		fw.Close()
		return fmt.Errorf("creating parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, row := range rows {
		if err := pw.Write(row); err != nil {
			fw.Close()
			return fmt.Errorf("writing parquet row: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		fw.Close()
		return fmt.Errorf("finalizing parquet file: %w", err)
	}
	if err := fw.Close(); err != nil {
		return fmt.Errorf("closing parquet file: %w", err)
	}

	key := root + "/"
	if dir != "" {
		key += dir + "/"
	}
	key += name

	f, err := os.Open(tmpPath)
	if err != nil {
		return fmt.Errorf("reopening temp parquet file: %w", err)
	}
	defer f.Close()
	return store.Upload(ctx, key, f)
}

// Read loads every row of the dataset at root, in key order. Used by tests
// and ad-hoc verification; partition columns are stored in the part files,
// so no directory-name decoding is needed.
func Read[T any](ctx context.Context, store storage.ObjectStore, root string) ([]T, error) {
	keys, err := store.List(ctx, root+"/")
	if err != nil {
		return nil, err
	}

	var rows []T
	for _, key := range keys {
		if !strings.HasSuffix(key, ".parquet") {
			continue
		}
		part, err := readPart[T](ctx, store, key)
		if err != nil {
			return nil, err
		}
		rows = append(rows, part...)
	}
	return rows, nil
}

func readPart[T any](ctx context.Context, store storage.ObjectStore, key string) ([]T, error) {
	data, err := store.Download(ctx, key)
	if err != nil {
		return nil, err
	}
	tmpPath := filepath.Join(os.TempDir(), fmt.Sprintf("read-%s.parquet", uuid.NewString()))
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("staging %s: %w", key, err)
	}
	defer os.Remove(tmpPath)

	fr, err := local.NewLocalFileReader(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", key, err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(T), parallelism)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", key, err)
	}
	defer pr.ReadStop()

	rows := make([]T, pr.GetNumRows())
	if len(rows) == 0 {
		return nil, nil
	}
	if err := pr.Read(&rows); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", key, err)
	}
	return rows, nil
}
