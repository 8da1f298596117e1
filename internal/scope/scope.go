// Package scope resolves user-facing document ids to the engine chunk ids a
// query may touch.
//
// Resolution bridges two independently-owned identifier spaces: the document
// registry assigns stable external ids at upload time, while the retrieval
// engine derives its own internal ids from content. The resolver prefers the
// recorded internal id and falls back to deriving legacy candidates from the
// content hash for documents ingested before any mapping existed.
package scope

import (
	"sort"
)

// Method describes how a document id was resolved to chunk ids.
type Method string

const (
	// MethodDirect means the registry's recorded internal id hit the chunk
	// index.
	MethodDirect Method = "direct"

	// MethodLegacyHash means a hash-derived candidate internal id hit the
	// chunk index.
	MethodLegacyHash Method = "legacy_hash"

	// MethodUnresolved means no path produced chunk ids for the document.
	MethodUnresolved Method = "unresolved"
)

// ResolvedScope is the outcome of resolving a set of document ids.
//
// An unscoped ResolvedScope (from an empty input set) is explicitly distinct
// from a scoped one whose chunk set came out empty: the former places no
// restriction at all, the latter must zero out results.
type ResolvedScope struct {
	scoped     bool
	chunkIDs   map[string]struct{}
	methods    map[string]Method
	unresolved []string
}

// Unscoped returns the scope used when the caller requested no document
// restriction.
func Unscoped() *ResolvedScope {
	return &ResolvedScope{scoped: false}
}

func newScoped() *ResolvedScope {
	return &ResolvedScope{
		scoped:   true,
		chunkIDs: make(map[string]struct{}),
		methods:  make(map[string]Method),
	}
}

// Scoped reports whether the caller restricted the query to documents.
func (s *ResolvedScope) Scoped() bool { return s.scoped }

// Empty reports whether a scoped resolution produced no chunk ids at all.
// Always false for unscoped.
func (s *ResolvedScope) Empty() bool { return s.scoped && len(s.chunkIDs) == 0 }

// Contains reports whether a chunk id is inside the scope. Unscoped contains
// everything.
func (s *ResolvedScope) Contains(chunkID string) bool {
	if !s.scoped {
		return true
	}
	_, ok := s.chunkIDs[chunkID]
	return ok
}

// Len returns the number of resolved chunk ids.
func (s *ResolvedScope) Len() int { return len(s.chunkIDs) }

// ChunkIDs returns the resolved chunk ids, sorted for determinism. Nil for
// unscoped.
func (s *ResolvedScope) ChunkIDs() []string {
	if !s.scoped {
		return nil
	}
	ids := make([]string, 0, len(s.chunkIDs))
	for id := range s.chunkIDs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ChunkIDSet returns the resolved chunk id set. Nil for unscoped, which the
// isolation guard treats as "allow everything".
func (s *ResolvedScope) ChunkIDSet() map[string]struct{} {
	if !s.scoped {
		return nil
	}
	set := make(map[string]struct{}, len(s.chunkIDs))
	for id := range s.chunkIDs {
		set[id] = struct{}{}
	}
	return set
}

// Method returns how a document id was resolved. MethodUnresolved for unknown
// documents.
func (s *ResolvedScope) Method(documentID string) Method {
	if m, ok := s.methods[documentID]; ok {
		return m
	}
	return MethodUnresolved
}

// UnresolvedDocuments returns the document ids that resolved to nothing, in
// input order.
func (s *ResolvedScope) UnresolvedDocuments() []string {
	out := make([]string, len(s.unresolved))
	copy(out, s.unresolved)
	return out
}

// addChunks unions chunk ids resolved for documentID via method.
func (s *ResolvedScope) addChunks(documentID string, method Method, chunkIDs []string) {
	for _, id := range chunkIDs {
		s.chunkIDs[id] = struct{}{}
	}
	s.methods[documentID] = method
}

// markUnresolved records a document id no path could resolve.
func (s *ResolvedScope) markUnresolved(documentID string) {
	s.methods[documentID] = MethodUnresolved
	s.unresolved = append(s.unresolved, documentID)
}
