package retrieval

import (
	"github.com/RandomWilder/Covenantrix-DT-sub000/internal/engine"
	"github.com/RandomWilder/Covenantrix-DT-sub000/internal/scope"
)

// selectMode picks the retrieval mode for a resolved scope.
//
// Unscoped queries get relational retrieval: graph and entity traversal across
// documents is what makes cross-document questions work. Any scoped query gets
// isolated (flat) retrieval: relational modes can pull in content from outside
// the candidate set through relationship edges, so flat retrieval over a fixed
// candidate set is the only mode known to stay within bounds. A scoped query
// that resolved to zero chunks is still isolated; the caller short-circuits it
// before the engine is ever invoked.
func selectMode(sc *scope.ResolvedScope) engine.Mode {
	if !sc.Scoped() {
		return engine.ModeRelational
	}
	return engine.ModeIsolated
}
