package catalog

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/The-Open-Music-Box/theopenmusicbox-sub005/internal/domain"
)

// MemoryCatalog is an in-memory Catalog for tests.
type MemoryCatalog struct {
	mu        sync.RWMutex
	playlists map[string]*domain.Playlist
	tracks    map[string][]*domain.Track
}

var _ Catalog = (*MemoryCatalog)(nil)

// NewMemoryCatalog creates an empty in-memory catalog.
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		playlists: make(map[string]*domain.Playlist),
		tracks:    make(map[string][]*domain.Track),
	}
}

// CreatePlaylist inserts a new playlist.
func (c *MemoryCatalog) CreatePlaylist(ctx context.Context, p *domain.Playlist) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.playlists[p.ID]; ok {
		return ErrAlreadyExists
	}
	dup := *p
	c.playlists[p.ID] = &dup
	return nil
}

// GetPlaylist retrieves a playlist by id.
func (c *MemoryCatalog) GetPlaylist(ctx context.Context, playlistID string) (*domain.Playlist, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.playlists[playlistID]
	if !ok {
		return nil, ErrNotFound
	}
	dup := *p
	dup.TrackCount = len(c.tracks[playlistID])
	return &dup, nil
}

// ListPlaylists returns all playlists ordered by title.
func (c *MemoryCatalog) ListPlaylists(ctx context.Context) ([]*domain.Playlist, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	playlists := make([]*domain.Playlist, 0, len(c.playlists))
	for id, p := range c.playlists {
		dup := *p
		dup.TrackCount = len(c.tracks[id])
		playlists = append(playlists, &dup)
	}
	sort.Slice(playlists, func(i, j int) bool {
		return playlists[i].Title < playlists[j].Title
	})
	return playlists, nil
}

// UpdatePlaylist updates a playlist's title and tag binding.
func (c *MemoryCatalog) UpdatePlaylist(ctx context.Context, p *domain.Playlist) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	existing, ok := c.playlists[p.ID]
	if !ok {
		return ErrNotFound
	}
	existing.Title = p.Title
	existing.NfcTagID = p.NfcTagID
	existing.UpdatedAt = time.Now().UTC()
	return nil
}

// DeletePlaylist removes a playlist and its tracks.
func (c *MemoryCatalog) DeletePlaylist(ctx context.Context, playlistID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.playlists[playlistID]
	delete(c.playlists, playlistID)
	delete(c.tracks, playlistID)
	return ok, nil
}

// AddTrack appends a track to a playlist.
func (c *MemoryCatalog) AddTrack(ctx context.Context, track *domain.Track) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.playlists[track.PlaylistID]; !ok {
		return ErrNotFound
	}
	dup := *track
	c.tracks[track.PlaylistID] = append(c.tracks[track.PlaylistID], &dup)
	return nil
}

// ListTracks returns a playlist's tracks in play order.
func (c *MemoryCatalog) ListTracks(ctx context.Context, playlistID string) ([]*domain.Track, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	tracks := make([]*domain.Track, 0, len(c.tracks[playlistID]))
	for _, t := range c.tracks[playlistID] {
		dup := *t
		tracks = append(tracks, &dup)
	}
	sort.Slice(tracks, func(i, j int) bool {
		return tracks[i].Position < tracks[j].Position
	})
	return tracks, nil
}

// UpdateAssociation binds a playlist to a tag, clearing the tag's previous
// binding.
func (c *MemoryCatalog) UpdateAssociation(ctx context.Context, playlistID string, tagID domain.TagIdentifier) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	target, ok := c.playlists[playlistID]
	if !ok {
		return false, nil
	}

	now := time.Now().UTC()
	for _, p := range c.playlists {
		if p.NfcTagID == tagID.String() && p.ID != playlistID {
			p.NfcTagID = ""
			p.UpdatedAt = now
		}
	}
	target.NfcTagID = tagID.String()
	target.UpdatedAt = now
	return true, nil
}

// RemoveAssociation clears the binding of a tag.
func (c *MemoryCatalog) RemoveAssociation(ctx context.Context, tagID domain.TagIdentifier) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	removed := false
	for _, p := range c.playlists {
		if p.NfcTagID == tagID.String() {
			p.NfcTagID = ""
			p.UpdatedAt = time.Now().UTC()
			removed = true
		}
	}
	return removed, nil
}

// FindByTag resolves a tag to the playlist it starts.
func (c *MemoryCatalog) FindByTag(ctx context.Context, tagID domain.TagIdentifier) (*domain.PlaylistSummary, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, p := range c.playlists {
		if p.NfcTagID == tagID.String() {
			return &domain.PlaylistSummary{
				ID:       p.ID,
				Title:    p.Title,
				NfcTagID: p.NfcTagID,
			}, nil
		}
	}
	return nil, ErrNotFound
}

// Close is a no-op for the in-memory catalog.
func (c *MemoryCatalog) Close() error {
	return nil
}
