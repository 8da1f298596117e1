// Package reconcile discovers the internal id the retrieval engine assigned
// to a freshly ingested document and records it in the document registry.
//
// The engine offers no return value for the id it assigns, so the only way to
// learn it is to diff the chunk index before and after ingestion. The step is
// idempotent and at-most-once: an ambiguous diff records nothing, because the
// resolver's legacy hash fallback keeps such documents fully functional.
package reconcile

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/RandomWilder/Covenantrix-DT-sub000/internal/chunkindex"
	"github.com/RandomWilder/Covenantrix-DT-sub000/internal/docregistry"
)

// ErrAmbiguousDiff indicates the index gained zero or multiple internal ids
// during the observed window, so no id can be attributed to the document.
var ErrAmbiguousDiff = errors.New("cannot attribute an internal id from index diff")

// RegistryWriter is the registry surface the reconciler needs.
type RegistryWriter interface {
	SetInternalID(ctx context.Context, documentID, internalID string) error
}

// Reconciler attributes engine-assigned internal ids to documents.
type Reconciler struct {
	registry RegistryWriter
	index    chunkindex.Snapshotter
	logger   *zap.Logger
}

// NewReconciler creates a Reconciler.
func NewReconciler(registry RegistryWriter, index chunkindex.Snapshotter, logger *zap.Logger) (*Reconciler, error) {
	if registry == nil {
		return nil, errors.New("reconcile: registry writer is required")
	}
	if index == nil {
		return nil, errors.New("reconcile: index snapshotter is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{registry: registry, index: index, logger: logger}, nil
}

// Checkpoint captures the indexed internal ids before an ingestion.
type Checkpoint struct {
	before map[string]struct{}
}

// Begin snapshots the index state. Call immediately before handing a document
// to the engine for ingestion.
func (r *Reconciler) Begin(ctx context.Context) (*Checkpoint, error) {
	ids, err := r.index.InternalIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshotting chunk index: %w", err)
	}
	before := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		before[id] = struct{}{}
	}
	return &Checkpoint{before: before}, nil
}

// Commit diffs the current index state against the checkpoint and, if exactly
// one internal id appeared, records it for documentID.
//
// Zero or multiple new ids (concurrent ingestions, engine batching) return
// ErrAmbiguousDiff without writing anything. Re-committing after a successful
// write is a no-op thanks to the registry's idempotent SetInternalID.
func (r *Reconciler) Commit(ctx context.Context, cp *Checkpoint, documentID string) error {
	if cp == nil {
		return errors.New("reconcile: checkpoint is required")
	}

	ids, err := r.index.InternalIDs(ctx)
	if err != nil {
		return fmt.Errorf("snapshotting chunk index: %w", err)
	}

	var appeared []string
	for _, id := range ids {
		if _, existed := cp.before[id]; !existed {
			appeared = append(appeared, id)
		}
	}

	if len(appeared) != 1 {
		r.logger.Warn("index diff is ambiguous, leaving document to legacy resolution",
			zap.String("document_id", documentID),
			zap.Int("new_internal_ids", len(appeared)),
		)
		return fmt.Errorf("%w: %d new ids for %s", ErrAmbiguousDiff, len(appeared), documentID)
	}

	internalID := appeared[0]
	if err := r.registry.SetInternalID(ctx, documentID, internalID); err != nil {
		// A conflict means another reconciliation already attributed an id;
		// at-most-once is preserved by not overwriting.
		if errors.Is(err, docregistry.ErrInternalIDConflict) {
			r.logger.Warn("internal id already recorded, skipping",
				zap.String("document_id", documentID),
				zap.String("discovered", internalID),
			)
			return nil
		}
		return fmt.Errorf("recording internal id for %s: %w", documentID, err)
	}

	r.logger.Info("reconciled internal id",
		zap.String("document_id", documentID),
		zap.String("internal_id", internalID),
	)
	return nil
}
