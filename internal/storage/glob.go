package storage

import (
	"context"
	"fmt"
	"path"
	"strings"
)

// Glob lists the keys matching a pattern such as "song_data/*/*/*/*.json".
// Only single-segment wildcards are used by the dataset layouts, so the
// pattern maps directly onto path.Match against each listed key.
func Glob(ctx context.Context, store ObjectStore, pattern string) ([]string, error) {
	keys, err := store.List(ctx, fixedPrefix(pattern))
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", pattern, err)
	}
	return MatchGlob(keys, pattern)
}

// MatchGlob filters keys against a slash-separated glob pattern.
func MatchGlob(keys []string, pattern string) ([]string, error) {
	var out []string
	for _, k := range keys {
		ok, err := path.Match(pattern, k)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
		}
		if ok {
			out = append(out, k)
		}
	}
	return out, nil
}

// fixedPrefix returns the literal leading portion of a glob pattern, used
// to narrow the store listing before matching.
func fixedPrefix(pattern string) string {
	if i := strings.IndexAny(pattern, "*?["); i >= 0 {
		if j := strings.LastIndex(pattern[:i], "/"); j >= 0 {
			return pattern[:j+1]
		}
		return ""
	}
	return pattern
}
