package store

import (
	"context"
	"sync"

	"github.com/The-Open-Music-Box/theopenmusicbox-sub005/internal/domain"
)

// MemoryStore is an in-memory AssociationStore for tests and diskless
// development. Records are deep-copied on the way in and out so callers
// cannot mutate stored state behind the store's back.
type MemoryStore struct {
	mu   sync.RWMutex
	tags map[domain.TagIdentifier]*domain.NfcTag
}

var _ AssociationStore = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tags: make(map[domain.TagIdentifier]*domain.NfcTag),
	}
}

// SaveTag creates or updates a tag record.
func (m *MemoryStore) SaveTag(ctx context.Context, tag *domain.NfcTag) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.tags[tag.Identifier] = copyTag(tag)
	return nil
}

// FindByIdentifier returns the tag with the given identifier.
func (m *MemoryStore) FindByIdentifier(ctx context.Context, identifier domain.TagIdentifier) (*domain.NfcTag, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	tag, ok := m.tags[identifier]
	if !ok {
		return nil, ErrNotFound
	}
	return copyTag(tag), nil
}

// FindByPlaylistID returns the tag currently associated with a playlist.
func (m *MemoryStore) FindByPlaylistID(ctx context.Context, playlistID string) (*domain.NfcTag, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, tag := range m.tags {
		if tag.AssociatedPlaylistID == playlistID {
			return copyTag(tag), nil
		}
	}
	return nil, ErrNotFound
}

// DeleteTag removes a tag record. Returns false if no such tag existed.
func (m *MemoryStore) DeleteTag(ctx context.Context, identifier domain.TagIdentifier) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.tags[identifier]
	delete(m.tags, identifier)
	return ok, nil
}

// ListTags returns all known tags.
func (m *MemoryStore) ListTags(ctx context.Context) ([]*domain.NfcTag, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	tags := make([]*domain.NfcTag, 0, len(m.tags))
	for _, tag := range m.tags {
		tags = append(tags, copyTag(tag))
	}
	return tags, nil
}

// Close is a no-op for the in-memory store.
func (m *MemoryStore) Close() error {
	return nil
}

func copyTag(tag *domain.NfcTag) *domain.NfcTag {
	dup := *tag
	if tag.LastDetectedAt != nil {
		ts := *tag.LastDetectedAt
		dup.LastDetectedAt = &ts
	}
	if tag.Metadata != nil {
		dup.Metadata = make(map[string]any, len(tag.Metadata))
		for k, v := range tag.Metadata {
			dup.Metadata[k] = v
		}
	}
	return &dup
}
