package docregistry

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// registryFileName is the persisted registry file under the base path.
const registryFileName = "registry.json"

// writeLockStripes is the number of per-document write lock stripes.
const writeLockStripes = 64

// registryData is the persisted file structure.
type registryData struct {
	Version int               `json:"version"`
	Entries map[string]*Entry `json:"entries"` // key: document id
}

// FileStore is a JSON-file-backed Store.
//
// The full registry is held in memory and flushed to disk on every write.
// Reads take a shared lock so concurrent resolves never block each other.
// The read-modify-write in SetInternalID additionally takes a per-document
// stripe lock, so recording an internal id for one document never serializes
// writes for unrelated documents longer than the final flush.
type FileStore struct {
	mu       sync.RWMutex
	basePath string
	filePath string
	data     *registryData
	logger   *zap.Logger

	stripes [writeLockStripes]sync.Mutex
}

// NewFileStore creates a FileStore rooted at basePath, loading any existing
// registry file.
func NewFileStore(basePath string, logger *zap.Logger) (*FileStore, error) {
	if basePath == "" {
		return nil, fmt.Errorf("%w: base path required", ErrStorageUnavailable)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := os.MkdirAll(basePath, 0700); err != nil {
		return nil, fmt.Errorf("%w: creating base directory: %v", ErrStorageUnavailable, err)
	}

	s := &FileStore{
		basePath: basePath,
		filePath: filepath.Join(basePath, registryFileName),
		data: &registryData{
			Version: 1,
			Entries: make(map[string]*Entry),
		},
		logger: logger,
	}

	if err := s.load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: loading registry: %v", ErrStorageUnavailable, err)
	}

	return s, nil
}

// load reads the registry file into memory. Caller must not hold s.mu.
func (s *FileStore) load() error {
	raw, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	data := &registryData{}
	if err := json.Unmarshal(raw, data); err != nil {
		return fmt.Errorf("parsing %s: %w", s.filePath, err)
	}
	if data.Entries == nil {
		data.Entries = make(map[string]*Entry)
	}

	s.mu.Lock()
	s.data = data
	s.mu.Unlock()
	return nil
}

// persist writes the registry to disk atomically. Caller must hold s.mu.
func (s *FileStore) persist() error {
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return err
	}

	tmp := s.filePath + ".tmp"
	if err := os.WriteFile(tmp, raw, 0600); err != nil {
		return err
	}
	return os.Rename(tmp, s.filePath)
}

// stripeFor returns the write lock stripe for a document id.
func (s *FileStore) stripeFor(documentID string) *sync.Mutex {
	var h uint32
	for i := 0; i < len(documentID); i++ {
		h = h*31 + uint32(documentID[i])
	}
	return &s.stripes[h%writeLockStripes]
}

// GetEntry returns a copy of the entry for documentID.
func (s *FileStore) GetEntry(ctx context.Context, documentID string) (*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := ValidateDocumentID(documentID); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.data.Entries[documentID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, documentID)
	}
	cp := *entry
	return &cp, nil
}

// Register creates a new entry, generating a document id when none is given.
func (s *FileStore) Register(ctx context.Context, documentID, contentHash string) (*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if documentID == "" {
		documentID = uuid.NewString()
	}
	if err := ValidateDocumentID(documentID); err != nil {
		return nil, err
	}
	if contentHash == "" {
		return nil, fmt.Errorf("%w: content hash required for %s", ErrInvalidDocumentID, documentID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.data.Entries[documentID]; ok {
		if existing.ContentHash == contentHash {
			cp := *existing
			return &cp, nil
		}
		return nil, fmt.Errorf("document %s already registered with different content hash", documentID)
	}

	entry := &Entry{
		DocumentID:  documentID,
		ContentHash: contentHash,
		CreatedAt:   time.Now().UTC(),
	}
	s.data.Entries[documentID] = entry

	if err := s.persist(); err != nil {
		delete(s.data.Entries, documentID)
		return nil, fmt.Errorf("%w: persisting registry: %v", ErrStorageUnavailable, err)
	}

	s.logger.Debug("registered document",
		zap.String("document_id", documentID),
		zap.String("content_hash", contentHash),
	)

	cp := *entry
	return &cp, nil
}

// SetInternalID records the engine-assigned internal id for a document.
//
// The per-document stripe lock serializes concurrent read-modify-write for the
// same document while leaving other documents unaffected.
func (s *FileStore) SetInternalID(ctx context.Context, documentID, internalID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := ValidateDocumentID(documentID); err != nil {
		return err
	}
	if internalID == "" {
		return fmt.Errorf("%w: internal id required for %s", ErrInvalidDocumentID, documentID)
	}

	stripe := s.stripeFor(documentID)
	stripe.Lock()
	defer stripe.Unlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.data.Entries[documentID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrEntryNotFound, documentID)
	}

	switch entry.InternalID {
	case internalID:
		return nil // idempotent
	case "":
	default:
		return fmt.Errorf("%w: document %s has %s, refusing %s",
			ErrInternalIDConflict, documentID, entry.InternalID, internalID)
	}

	prev := entry.InternalID
	entry.InternalID = internalID

	if err := s.persist(); err != nil {
		entry.InternalID = prev
		return fmt.Errorf("%w: persisting registry: %v", ErrStorageUnavailable, err)
	}

	s.logger.Info("recorded internal id",
		zap.String("document_id", documentID),
		zap.String("internal_id", internalID),
	)
	return nil
}

// List returns all entries ordered by document id.
func (s *FileStore) List(ctx context.Context) ([]*Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]*Entry, 0, len(s.data.Entries))
	for _, e := range s.data.Entries {
		cp := *e
		entries = append(entries, &cp)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].DocumentID < entries[j].DocumentID })
	return entries, nil
}

var _ Store = (*FileStore)(nil)
