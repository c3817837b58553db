// Package blob stores run artifacts (report files, exported results) under
// run-scoped keys of the form "runs/<id>/<name>".
package blob

import (
	"context"
	"io"
	"path"
)

type ArtifactStore interface {
	// Put writes an artifact under key.
	Put(ctx context.Context, key string, reader io.Reader) error

	// Get opens an artifact for reading.
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	// List returns the keys under a prefix.
	List(ctx context.Context, prefix string) ([]string, error)

	// Delete removes a single artifact.
	Delete(ctx context.Context, key string) error
}

// RunKey builds the canonical key for an artifact of a run.
func RunKey(runID, name string) string {
	return path.Join("runs", runID, name)
}

// RunPrefix is the listing prefix for all artifacts of a run.
func RunPrefix(runID string) string {
	return path.Join("runs", runID)
}
