// Package store defines the persistence port for NFC tag records and
// provides the Badger-backed production implementation plus an in-memory
// implementation for tests and diskless development.
package store

import (
	"context"
	"errors"

	"github.com/The-Open-Music-Box/theopenmusicbox-sub005/internal/domain"
)

// Sentinel errors returned by AssociationStore implementations.
var (
	ErrNotFound      = errors.New("record not found")
	ErrAlreadyExists = errors.New("record already exists")
)

// AssociationStore persists NfcTag records. Implementations must provide
// read-your-writes consistency for a single tag.
type AssociationStore interface {
	// SaveTag creates or updates a tag record.
	SaveTag(ctx context.Context, tag *domain.NfcTag) error
	// FindByIdentifier returns the tag with the given identifier, or
	// ErrNotFound.
	FindByIdentifier(ctx context.Context, identifier domain.TagIdentifier) (*domain.NfcTag, error)
	// FindByPlaylistID returns the tag currently associated with a
	// playlist, or ErrNotFound.
	FindByPlaylistID(ctx context.Context, playlistID string) (*domain.NfcTag, error)
	// DeleteTag removes a tag record. Returns false if no such tag existed.
	DeleteTag(ctx context.Context, identifier domain.TagIdentifier) (bool, error)
	// ListTags returns all known tags.
	ListTags(ctx context.Context) ([]*domain.NfcTag, error)
	// Close releases underlying resources.
	Close() error
}
