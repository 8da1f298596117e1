// Package guard enforces the isolation guarantee on retrieval results.
//
// No chunk outside a query's resolved scope may appear in its result,
// regardless of whether the engine claimed to apply a candidate filter. The
// guard runs unconditionally on every scoped query; "the adapter believes the
// filter was applied" is never sufficient.
package guard

import (
	"go.uber.org/zap"

	"github.com/RandomWilder/Covenantrix-DT-sub000/internal/engine"
)

// Guard filters engine responses down to an allowed chunk set.
type Guard struct {
	logger *zap.Logger
}

// New creates a Guard.
func New(logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{logger: logger}
}

// Enforce returns a response containing only sources whose chunk id is in
// allowed. A nil allowed set means unscoped: the response passes through
// unchanged. Otherwise the content is re-rendered from the retained sources,
// never reused from the engine, and the number of dropped sources is
// returned.
func (g *Guard) Enforce(resp *engine.Response, allowed map[string]struct{}) (*engine.Response, int) {
	if resp == nil {
		return &engine.Response{}, 0
	}
	if allowed == nil {
		return resp, 0
	}

	retained := make([]engine.Source, 0, len(resp.Sources))
	dropped := 0
	for _, src := range resp.Sources {
		if _, ok := allowed[src.ChunkID]; ok {
			retained = append(retained, src)
		} else {
			dropped++
		}
	}

	if dropped > 0 {
		g.logger.Warn("isolation guard dropped out-of-scope sources",
			zap.Int("dropped", dropped),
			zap.Int("retained", len(retained)),
		)
	}

	return &engine.Response{
		Content: engine.RenderContent(retained),
		Sources: retained,
	}, dropped
}
