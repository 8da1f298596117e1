package docregistry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	return s
}

func TestFileStore_RegisterAndGet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	entry, err := s.Register(ctx, "doc-a", "h1")
	require.NoError(t, err)
	assert.Equal(t, "doc-a", entry.DocumentID)
	assert.Equal(t, "h1", entry.ContentHash)
	assert.Empty(t, entry.InternalID)
	assert.False(t, entry.CreatedAt.IsZero())

	got, err := s.GetEntry(ctx, "doc-a")
	require.NoError(t, err)
	assert.Equal(t, entry.DocumentID, got.DocumentID)
	assert.Equal(t, entry.ContentHash, got.ContentHash)
}

func TestFileStore_RegisterGeneratesID(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	entry, err := s.Register(ctx, "", "h1")
	require.NoError(t, err)
	assert.NotEmpty(t, entry.DocumentID)
}

func TestFileStore_RegisterIdempotent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Register(ctx, "doc-a", "h1")
	require.NoError(t, err)

	// Same id, same hash: no-op.
	_, err = s.Register(ctx, "doc-a", "h1")
	require.NoError(t, err)

	// Same id, different hash: rejected.
	_, err = s.Register(ctx, "doc-a", "h2")
	require.Error(t, err)
}

func TestFileStore_GetEntryNotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.GetEntry(context.Background(), "missing")
	require.ErrorIs(t, err, ErrEntryNotFound)
}

func TestFileStore_SetInternalID(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Register(ctx, "doc-a", "h1")
	require.NoError(t, err)

	require.NoError(t, s.SetInternalID(ctx, "doc-a", "eng-1"))

	got, err := s.GetEntry(ctx, "doc-a")
	require.NoError(t, err)
	assert.Equal(t, "eng-1", got.InternalID)

	// Idempotent with the same value.
	require.NoError(t, s.SetInternalID(ctx, "doc-a", "eng-1"))

	// Write-once: a different value is a conflict.
	err = s.SetInternalID(ctx, "doc-a", "eng-2")
	require.ErrorIs(t, err, ErrInternalIDConflict)

	// Unregistered document.
	err = s.SetInternalID(ctx, "doc-z", "eng-3")
	require.ErrorIs(t, err, ErrEntryNotFound)
}

func TestFileStore_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := NewFileStore(dir, zap.NewNop())
	require.NoError(t, err)
	_, err = s.Register(ctx, "doc-a", "h1")
	require.NoError(t, err)
	require.NoError(t, s.SetInternalID(ctx, "doc-a", "eng-1"))

	reopened, err := NewFileStore(dir, zap.NewNop())
	require.NoError(t, err)

	got, err := reopened.GetEntry(ctx, "doc-a")
	require.NoError(t, err)
	assert.Equal(t, "h1", got.ContentHash)
	assert.Equal(t, "eng-1", got.InternalID)
}

func TestFileStore_List(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for _, id := range []string{"doc-c", "doc-a", "doc-b"} {
		_, err := s.Register(ctx, id, "h-"+id)
		require.NoError(t, err)
	}

	entries, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "doc-a", entries[0].DocumentID)
	assert.Equal(t, "doc-b", entries[1].DocumentID)
	assert.Equal(t, "doc-c", entries[2].DocumentID)
}

func TestFileStore_ConcurrentWritesDifferentDocuments(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	const n = 16
	for i := 0; i < n; i++ {
		_, err := s.Register(ctx, fmt.Sprintf("doc-%d", i), fmt.Sprintf("h%d", i))
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = s.SetInternalID(ctx, fmt.Sprintf("doc-%d", i), fmt.Sprintf("eng-%d", i))
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		require.NoError(t, err, "document %d", i)
	}
}

func TestFileStore_CancelledContext(t *testing.T) {
	s := newTestStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.GetEntry(ctx, "doc-a")
	require.ErrorIs(t, err, context.Canceled)
}

func TestValidateDocumentID(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		wantErr bool
	}{
		{"simple", "doc-1", false},
		{"uuid style", "3f2b6f9e-1c9a-4c2f-8a77-0f4f1f2a9b11", false},
		{"with dots", "report.v2", false},
		{"empty", "", true},
		{"leading dot", ".hidden", true},
		{"path traversal", "../etc/passwd", true},
		{"spaces", "doc 1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDocumentID(tt.id)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidDocumentID))
			} else {
				require.NoError(t, err)
			}
		})
	}
}
