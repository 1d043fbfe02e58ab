package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/The-Open-Music-Box/theopenmusicbox-sub005/internal/domain"
)

const tagPrefix = "tag:"

// Store is the Badger-backed AssociationStore.
type Store struct {
	db     *badger.DB
	logger *slog.Logger

	tags *entity[domain.NfcTag]
}

var _ AssociationStore = (*Store)(nil)

// New opens (or creates) a Badger database at the given path.
func New(path string, logger *slog.Logger) (*Store, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil            // Disable Badger's internal logging
	opts.SyncWrites = true       // Ensure writes are synced to disk to prevent corruption on crashes
	opts.CompactL0OnClose = true // Compact L0 tables on close for faster startup

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}

	s := &Store{
		db:     db,
		logger: logger,
	}

	// A playlist maps to at most one tag, so the playlist index is unique
	// by construction: the catalog clears a tag's previous binding before
	// the new one is saved.
	s.tags = newEntity[domain.NfcTag](s, tagPrefix).
		withIndex("playlist", func(t *domain.NfcTag) []string {
			if t.AssociatedPlaylistID == "" {
				return nil
			}
			return []string{t.AssociatedPlaylistID}
		})

	if logger != nil {
		logger.Info("Badger database opened successfully", "path", path)
	}

	return s, nil
}

// Close gracefully closes the database connection.
func (s *Store) Close() error {
	if s.logger != nil {
		s.logger.Info("Closing tag database")
	}
	return s.db.Close()
}

// SaveTag creates or updates a tag record.
func (s *Store) SaveTag(ctx context.Context, tag *domain.NfcTag) error {
	return s.tags.Upsert(ctx, tag.Identifier.String(), tag)
}

// FindByIdentifier returns the tag with the given identifier.
func (s *Store) FindByIdentifier(ctx context.Context, identifier domain.TagIdentifier) (*domain.NfcTag, error) {
	return s.tags.Get(ctx, identifier.String())
}

// FindByPlaylistID returns the tag currently associated with a playlist.
func (s *Store) FindByPlaylistID(ctx context.Context, playlistID string) (*domain.NfcTag, error) {
	return s.tags.GetByIndex(ctx, "playlist", playlistID)
}

// DeleteTag removes a tag record. Returns false if no such tag existed.
func (s *Store) DeleteTag(ctx context.Context, identifier domain.TagIdentifier) (bool, error) {
	return s.tags.Delete(ctx, identifier.String())
}

// ListTags returns all known tags.
func (s *Store) ListTags(ctx context.Context) ([]*domain.NfcTag, error) {
	var tags []*domain.NfcTag
	for tag, err := range s.tags.List(ctx) {
		if err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, nil
}
