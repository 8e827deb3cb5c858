// Package storage abstracts the object store holding source JSON and
// destination parquet datasets. Keys are slash-separated paths relative to
// the store root.
package storage

import (
	"context"
	"io"
	"strings"
)

// ObjectStore is the minimal surface the pipelines need: enumerate input
// files, fetch them, write output files, and wipe a destination before a
// full overwrite.
type ObjectStore interface {
	// List returns all keys under prefix, in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)

	// Download returns the full content of one object.
	Download(ctx context.Context, key string) ([]byte, error)

	// Upload writes one object, replacing any existing content at key.
	Upload(ctx context.Context, key string, body io.Reader) error

	// DeletePrefix removes every object under prefix. Removing a prefix
	// that holds nothing is not an error.
	DeletePrefix(ctx context.Context, prefix string) error

	// Check probes the store with a small write-and-delete round trip so a
	// misconfigured destination fails before any pipeline runs.
	Check(ctx context.Context) error
}

// IsS3Path reports whether a configured path addresses S3 rather than the
// local filesystem. Both the s3:// and Hadoop-style s3a:// schemes appear in
// existing job configs.
func IsS3Path(p string) bool {
	return strings.HasPrefix(p, "s3://") || strings.HasPrefix(p, "s3a://")
}

// Open returns the backend matching the path scheme: S3 for s3:// and
// s3a:// paths, the local directory store otherwise.
func Open(path, region, accessKey, secretKey string) (ObjectStore, error) {
	if IsS3Path(path) {
		return NewS3Store(path, region, accessKey, secretKey)
	}
	return NewDirStore(path), nil
}
