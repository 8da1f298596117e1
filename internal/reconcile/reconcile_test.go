package reconcile

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/RandomWilder/Covenantrix-DT-sub000/internal/docregistry"
)

// fakeSnapshotter serves a mutable set of internal ids.
type fakeSnapshotter struct {
	ids []string
	err error
}

func (f *fakeSnapshotter) InternalIDs(ctx context.Context) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.ids, nil
}

// fakeWriter records SetInternalID calls.
type fakeWriter struct {
	recorded map[string]string
	conflict bool
}

func (f *fakeWriter) SetInternalID(ctx context.Context, documentID, internalID string) error {
	if f.conflict {
		return fmt.Errorf("%w: already set", docregistry.ErrInternalIDConflict)
	}
	if f.recorded == nil {
		f.recorded = map[string]string{}
	}
	f.recorded[documentID] = internalID
	return nil
}

func newTestReconciler(t *testing.T, w RegistryWriter, s *fakeSnapshotter) *Reconciler {
	t.Helper()
	r, err := NewReconciler(w, s, zap.NewNop())
	require.NoError(t, err)
	return r
}

func TestReconciler_AttributesSingleNewID(t *testing.T) {
	ctx := context.Background()
	snap := &fakeSnapshotter{ids: []string{"doc-old1", "doc-old2"}}
	writer := &fakeWriter{}
	r := newTestReconciler(t, writer, snap)

	cp, err := r.Begin(ctx)
	require.NoError(t, err)

	// Engine ingests the document and the index gains one id.
	snap.ids = []string{"doc-old1", "doc-old2", "doc-new"}

	require.NoError(t, r.Commit(ctx, cp, "A"))
	assert.Equal(t, "doc-new", writer.recorded["A"])
}

func TestReconciler_NoNewIDIsAmbiguous(t *testing.T) {
	ctx := context.Background()
	snap := &fakeSnapshotter{ids: []string{"doc-old"}}
	writer := &fakeWriter{}
	r := newTestReconciler(t, writer, snap)

	cp, err := r.Begin(ctx)
	require.NoError(t, err)

	err = r.Commit(ctx, cp, "A")
	require.ErrorIs(t, err, ErrAmbiguousDiff)
	assert.Empty(t, writer.recorded)
}

func TestReconciler_MultipleNewIDsAreAmbiguous(t *testing.T) {
	ctx := context.Background()
	snap := &fakeSnapshotter{ids: []string{}}
	writer := &fakeWriter{}
	r := newTestReconciler(t, writer, snap)

	cp, err := r.Begin(ctx)
	require.NoError(t, err)

	// Concurrent ingestions landed during the window.
	snap.ids = []string{"doc-x", "doc-y"}

	err = r.Commit(ctx, cp, "A")
	require.ErrorIs(t, err, ErrAmbiguousDiff)
	assert.Empty(t, writer.recorded, "ambiguous diffs must not write")
}

func TestReconciler_ConflictIsAtMostOnce(t *testing.T) {
	ctx := context.Background()
	snap := &fakeSnapshotter{ids: []string{}}
	r := newTestReconciler(t, &fakeWriter{conflict: true}, snap)

	cp, err := r.Begin(ctx)
	require.NoError(t, err)
	snap.ids = []string{"doc-new"}

	// An already-recorded id is not an error: the earlier attribution wins.
	require.NoError(t, r.Commit(ctx, cp, "A"))
}

func TestReconciler_SnapshotFailurePropagates(t *testing.T) {
	snap := &fakeSnapshotter{err: fmt.Errorf("index offline")}
	r := newTestReconciler(t, &fakeWriter{}, snap)

	_, err := r.Begin(context.Background())
	require.Error(t, err)
}

func TestReconciler_NilCheckpoint(t *testing.T) {
	r := newTestReconciler(t, &fakeWriter{}, &fakeSnapshotter{})
	require.Error(t, r.Commit(context.Background(), nil, "A"))
}
