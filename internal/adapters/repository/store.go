// Package repository keeps the last raw workbook between pipeline runs.
package repository

import (
	"context"
	"time"

	"github.com/okian/gincana/internal/domain/model"
)

// Snapshot is one loaded copy of the source.
type Snapshot struct {
	Data     model.RawDataset
	Source   string
	LoadedAt time.Time
	// Version increases by one on every successful load.
	Version uint64
}

// Store provides cached access to the raw source.
type Store interface {
	// Get returns the cached snapshot, loading it when absent or expired.
	Get(ctx context.Context) (Snapshot, error)

	// Reload drops the cached snapshot and loads a fresh one.
	Reload(ctx context.Context) (Snapshot, error)

	// Invalidate drops the cached snapshot; the next Get loads again.
	Invalidate(reason string)

	// Current returns the cached snapshot without loading.
	// Returns ErrNotLoaded when nothing is cached.
	Current() (Snapshot, error)
}
