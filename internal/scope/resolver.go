package scope

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/RandomWilder/Covenantrix-DT-sub000/internal/chunkindex"
	"github.com/RandomWilder/Covenantrix-DT-sub000/internal/docregistry"
)

// Tracer for OpenTelemetry instrumentation.
var tracer = otel.Tracer("covenantrix.scope")

// Resolver maps document ids to chunk-id scopes.
//
// Stateless per call; safe for concurrent use. Store handles are injected so
// tests can substitute in-memory fakes.
type Resolver struct {
	registry docregistry.Reader
	index    chunkindex.Index
	logger   *zap.Logger
}

// NewResolver creates a Resolver over the given stores.
func NewResolver(registry docregistry.Reader, index chunkindex.Index, logger *zap.Logger) (*Resolver, error) {
	if registry == nil {
		return nil, errors.New("scope: registry reader is required")
	}
	if index == nil {
		return nil, errors.New("scope: chunk index is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{registry: registry, index: index, logger: logger}, nil
}

// Resolve maps documentIDs to a ResolvedScope.
//
// Per document: a missing registry entry or an entry no lookup path can map is
// recorded as unresolved and never fails the call; only storage failures abort
// the whole resolution. An empty input yields the explicit unscoped marker.
// Given fixed store state, the result is deterministic.
func (r *Resolver) Resolve(ctx context.Context, documentIDs []string) (*ResolvedScope, error) {
	ctx, span := tracer.Start(ctx, "Resolver.Resolve")
	defer span.End()
	span.SetAttributes(attribute.Int("documents_requested", len(documentIDs)))

	if len(documentIDs) == 0 {
		span.SetAttributes(attribute.Bool("unscoped", true))
		return Unscoped(), nil
	}

	resolved := newScoped()
	seen := make(map[string]struct{}, len(documentIDs))

	for _, docID := range documentIDs {
		if _, dup := seen[docID]; dup {
			continue
		}
		seen[docID] = struct{}{}

		method, chunkIDs, err := r.resolveOne(ctx, docID)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
		if method == MethodUnresolved {
			resolved.markUnresolved(docID)
			r.logger.Debug("document unresolved", zap.String("document_id", docID))
			continue
		}
		resolved.addChunks(docID, method, chunkIDs)
		r.logger.Debug("document resolved",
			zap.String("document_id", docID),
			zap.String("method", string(method)),
			zap.Int("chunks", len(chunkIDs)),
		)
	}

	span.SetAttributes(
		attribute.Int("chunks_resolved", resolved.Len()),
		attribute.Int("documents_unresolved", len(resolved.unresolved)),
	)
	return resolved, nil
}

// resolveOne resolves a single document id.
//
// Lookup order: recorded internal id, then hash-derived legacy candidates.
// A recorded internal id that misses the index (stale or lagging store) falls
// through to the legacy probe rather than failing.
func (r *Resolver) resolveOne(ctx context.Context, documentID string) (Method, []string, error) {
	entry, err := r.registry.GetEntry(ctx, documentID)
	if err != nil {
		if errors.Is(err, docregistry.ErrEntryNotFound) || errors.Is(err, docregistry.ErrInvalidDocumentID) {
			return MethodUnresolved, nil, nil
		}
		return "", nil, fmt.Errorf("reading registry entry for %s: %w", documentID, err)
	}

	if entry.InternalID != "" {
		chunkIDs, err := r.index.GetChunkIDs(ctx, entry.InternalID)
		if err == nil {
			return MethodDirect, chunkIDs, nil
		}
		if !errors.Is(err, chunkindex.ErrNotIndexed) {
			return "", nil, fmt.Errorf("reading chunk index for %s: %w", entry.InternalID, err)
		}
	}

	for _, candidate := range CandidateInternalIDs(entry.ContentHash) {
		chunkIDs, err := r.index.GetChunkIDs(ctx, candidate)
		if err == nil {
			return MethodLegacyHash, chunkIDs, nil
		}
		if !errors.Is(err, chunkindex.ErrNotIndexed) {
			return "", nil, fmt.Errorf("probing chunk index for %s: %w", candidate, err)
		}
	}

	return MethodUnresolved, nil, nil
}
