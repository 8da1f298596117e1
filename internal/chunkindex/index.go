// Package chunkindex provides a read-only view of the retrieval engine's
// document-to-chunk index.
//
// The index maps an engine-assigned internal document id to the chunk ids the
// engine produced for that document. The index file is owned entirely by the
// engine; this package only reads it.
package chunkindex

import (
	"context"
	"errors"
)

// Errors for chunk index operations.
var (
	// ErrStorageUnavailable indicates the index file could not be read.
	// Fatal for the whole resolve call.
	ErrStorageUnavailable = errors.New("chunk index storage unavailable")

	// ErrNotIndexed is returned when an internal id has no index entry.
	// Non-fatal: resolution falls through to the next candidate.
	ErrNotIndexed = errors.New("internal id not present in chunk index")
)

// Index is the read-only chunk index interface.
type Index interface {
	// GetChunkIDs returns the chunk ids for an internal document id.
	// An empty slice is valid when ingestion produced no retrievable content.
	// Returns ErrNotIndexed for unknown internal ids.
	GetChunkIDs(ctx context.Context, internalID string) ([]string, error)

	// Has reports whether an internal id is present in the index.
	Has(ctx context.Context, internalID string) (bool, error)
}

// Snapshotter exposes the set of indexed internal ids. The ingestion
// reconciler diffs two snapshots to discover the id the engine assigned to a
// freshly ingested document.
type Snapshotter interface {
	// InternalIDs returns all internal ids currently indexed.
	InternalIDs(ctx context.Context) ([]string, error)
}
