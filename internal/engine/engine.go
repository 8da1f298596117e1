// Package engine abstracts the underlying retrieval engine.
//
// The engine is an opaque collaborator: it answers similarity queries over its
// own chunk store and may or may not be able to restrict a query to a set of
// candidate chunk ids. Support for that filter is negotiated per call via
// ErrFilterUnsupported rather than assumed; the isolation guard downstream is
// the actual enforcement point either way.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Errors for engine operations.
var (
	// ErrFilterUnsupported is returned by engines that cannot apply a
	// candidate-id filter. Callers fall back to an unfiltered query.
	ErrFilterUnsupported = errors.New("engine does not support candidate id filters")

	// ErrEngineUnavailable indicates the engine could not be reached.
	ErrEngineUnavailable = errors.New("retrieval engine unavailable")

	// ErrEmptyQuery indicates empty query text.
	ErrEmptyQuery = errors.New("query text cannot be empty")
)

// Mode is the retrieval mode for a query.
type Mode string

const (
	// ModeIsolated is flat retrieval over a fixed candidate set. Graph or
	// relationship traversal is disabled so results cannot leak in content
	// from outside the set.
	ModeIsolated Mode = "isolated"

	// ModeRelational permits cross-document entity and relationship
	// traversal over the full knowledge base.
	ModeRelational Mode = "relational"
)

// Request is a single engine query.
type Request struct {
	// Text is the query text.
	Text string

	// Mode selects flat or relational retrieval.
	Mode Mode

	// TopK is the maximum number of sources to return.
	TopK int

	// Rerank requests second-stage reranking of candidates.
	Rerank bool

	// CandidateIDs restricts retrieval to these chunk ids when non-nil.
	// Engines that cannot honor this return ErrFilterUnsupported.
	CandidateIDs []string
}

// Source is one retrieved chunk.
type Source struct {
	// ChunkID identifies the chunk inside the engine's store.
	ChunkID string

	// DocumentID is the engine's internal document id for the chunk's
	// document, when the engine records it.
	DocumentID string

	// Text is the chunk content.
	Text string

	// Score is the engine's relevance score, higher is better.
	Score float32
}

// Response is the engine's answer to a query.
type Response struct {
	// Content is the rendered answer context.
	Content string

	// Sources are the chunks the content was built from, ranked.
	Sources []Source
}

// Engine is the opaque retrieval engine boundary.
type Engine interface {
	// Query executes a retrieval query. Must honor ctx cancellation.
	Query(ctx context.Context, req Request) (*Response, error)
}

// Embedder generates a query embedding. Implemented by internal/embeddings.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// RenderContent renders retrieved sources into answer context.
//
// The guard re-renders from retained sources after filtering, so this must be
// a pure function of the source list.
func RenderContent(sources []Source) string {
	if len(sources) == 0 {
		return ""
	}
	var b strings.Builder
	for i, src := range sources {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%d] %s\n%s", i+1, src.ChunkID, src.Text)
	}
	return b.String()
}
