package guard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RandomWilder/Covenantrix-DT-sub000/internal/engine"
)

func allowSet(ids ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

func TestEnforce_UnscopedIsIdentity(t *testing.T) {
	g := New(nil)
	resp := &engine.Response{
		Content: "original",
		Sources: []engine.Source{{ChunkID: "c1"}, {ChunkID: "c2"}},
	}

	got, dropped := g.Enforce(resp, nil)
	assert.Zero(t, dropped)
	assert.Same(t, resp, got)
}

func TestEnforce_StripsOutOfScopeSources(t *testing.T) {
	// The engine ignored the filter and mixed in chunks from outside the
	// requested set; enforcement must be independent of engine behavior.
	g := New(nil)
	resp := &engine.Response{
		Content: "engine rendered",
		Sources: []engine.Source{
			{ChunkID: "c1", Text: "in scope"},
			{ChunkID: "x9", Text: "leaked"},
			{ChunkID: "c2", Text: "also in scope"},
		},
	}

	got, dropped := g.Enforce(resp, allowSet("c1", "c2"))
	assert.Equal(t, 1, dropped)
	require.Len(t, got.Sources, 2)
	assert.Equal(t, "c1", got.Sources[0].ChunkID)
	assert.Equal(t, "c2", got.Sources[1].ChunkID)

	// Content is re-rendered from retained sources, not the engine's text.
	assert.NotEqual(t, "engine rendered", got.Content)
	assert.Contains(t, got.Content, "in scope")
	assert.NotContains(t, got.Content, "leaked")
}

func TestEnforce_RetainsChunksFromAllScopedDocuments(t *testing.T) {
	// A scope spanning two documents keeps chunks of both; the guard unions,
	// it does not over-filter to one document.
	g := New(nil)
	resp := &engine.Response{
		Sources: []engine.Source{
			{ChunkID: "a1", DocumentID: "doc-a"},
			{ChunkID: "b1", DocumentID: "doc-b"},
		},
	}

	got, dropped := g.Enforce(resp, allowSet("a1", "b1"))
	assert.Zero(t, dropped)
	assert.Len(t, got.Sources, 2)
}

func TestEnforce_AllSourcesDropped(t *testing.T) {
	g := New(nil)
	resp := &engine.Response{
		Content: "stuff",
		Sources: []engine.Source{{ChunkID: "x1"}, {ChunkID: "x2"}},
	}

	got, dropped := g.Enforce(resp, allowSet("c1"))
	assert.Equal(t, 2, dropped)
	assert.Empty(t, got.Sources)
	assert.Empty(t, got.Content)
}

func TestEnforce_EmptyAllowedSetDropsEverything(t *testing.T) {
	// Empty set is scoped-with-nothing-resolved, not unscoped.
	g := New(nil)
	resp := &engine.Response{Sources: []engine.Source{{ChunkID: "c1"}}}

	got, dropped := g.Enforce(resp, allowSet())
	assert.Equal(t, 1, dropped)
	assert.Empty(t, got.Sources)
}

func TestEnforce_NilResponse(t *testing.T) {
	g := New(nil)
	got, dropped := g.Enforce(nil, allowSet("c1"))
	assert.Zero(t, dropped)
	assert.NotNil(t, got)
	assert.Empty(t, got.Sources)
}
