// Package docregistry maintains the registry of uploaded documents.
//
// Each uploaded document gets a stable external DocumentID and a deterministic
// ContentHash at registration time. The retrieval engine's own identifier for
// the document (InternalID) is discovered later by the ingestion reconciler
// and recorded here. The registry is the authoritative bridge between the two
// identifier spaces.
//
// Persistence layout:
//
//	{base}/registry.json
package docregistry

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"
)

// Errors for registry operations.
var (
	// ErrStorageUnavailable indicates the backing store could not be read or
	// written. Callers must treat this as fatal for the whole operation.
	ErrStorageUnavailable = errors.New("document registry storage unavailable")

	// ErrEntryNotFound is returned when a document id has no registry entry.
	// Callers resolving multiple documents collect this per-document instead
	// of failing.
	ErrEntryNotFound = errors.New("document not registered")

	// ErrInvalidDocumentID indicates an empty or malformed document id.
	ErrInvalidDocumentID = errors.New("invalid document id")

	// ErrInternalIDConflict is returned when attempting to overwrite an
	// already-recorded internal id with a different value. Internal ids are
	// write-once.
	ErrInternalIDConflict = errors.New("internal id already recorded with a different value")
)

// documentIDPattern validates document ids.
// Allows alphanumeric, hyphens, underscores, and dots.
var documentIDPattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._-]*$`)

// Entry is a single document registration.
type Entry struct {
	// DocumentID is the stable external identifier, unique per document.
	DocumentID string `json:"document_id"`

	// ContentHash is a deterministic hash over the raw document content,
	// computed at upload time. The legacy resolution path derives engine
	// internal-id candidates from it.
	ContentHash string `json:"content_hash"`

	// InternalID is the identifier the retrieval engine assigned to this
	// document. Empty until the ingestion reconciler records it. Once set it
	// never changes.
	InternalID string `json:"internal_id,omitempty"`

	// CreatedAt is the registration timestamp.
	CreatedAt time.Time `json:"created_at"`
}

// Reader is the read-only view of the registry used during scope resolution.
type Reader interface {
	// GetEntry returns the entry for a document id.
	// Returns ErrEntryNotFound if the document is not registered and
	// ErrStorageUnavailable if the backing store cannot be read.
	GetEntry(ctx context.Context, documentID string) (*Entry, error)
}

// Store is the full registry interface, including the writes performed by the
// ingestion collaborator.
type Store interface {
	Reader

	// Register creates a new entry. If documentID is empty a new id is
	// generated. Registering an existing document id with the same content
	// hash is idempotent.
	Register(ctx context.Context, documentID, contentHash string) (*Entry, error)

	// SetInternalID records the engine-assigned internal id for a document.
	// Idempotent when called with the value already recorded; returns
	// ErrInternalIDConflict when a different value is already present.
	SetInternalID(ctx context.Context, documentID, internalID string) error

	// List returns all entries, ordered by document id.
	List(ctx context.Context) ([]*Entry, error)
}

// ValidateDocumentID checks a document id for emptiness and unsafe characters.
func ValidateDocumentID(id string) error {
	if id == "" {
		return ErrInvalidDocumentID
	}
	if len(id) > 255 {
		return fmt.Errorf("%w: id too long (max 255)", ErrInvalidDocumentID)
	}
	if !documentIDPattern.MatchString(id) {
		return ErrInvalidDocumentID
	}
	return nil
}
