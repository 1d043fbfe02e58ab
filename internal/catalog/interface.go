// Package catalog is the playlist side of the music box: it stores playlists
// and their tracks, and mirrors the playlist→tag binding so playback can
// resolve a scanned tag without consulting the association store.
package catalog

import (
	"context"
	"errors"

	"github.com/The-Open-Music-Box/theopenmusicbox-sub005/internal/domain"
)

// Sentinel errors returned by catalog implementations.
var (
	ErrNotFound      = errors.New("record not found")
	ErrAlreadyExists = errors.New("record already exists")
)

// SyncPort is the association side's view of the catalog. Association
// outcomes are pushed through it so the catalog's playlist→tag mirror stays
// consistent with the tag store.
type SyncPort interface {
	// UpdateAssociation binds a playlist to a tag, clearing any previous
	// binding of that tag to another playlist. Returns false when the
	// playlist does not exist.
	UpdateAssociation(ctx context.Context, playlistID string, tagID domain.TagIdentifier) (bool, error)
	// RemoveAssociation clears the binding of a tag. Returns false when
	// no playlist was bound to it.
	RemoveAssociation(ctx context.Context, tagID domain.TagIdentifier) (bool, error)
	// FindByTag resolves a tag to the playlist it starts, or ErrNotFound.
	FindByTag(ctx context.Context, tagID domain.TagIdentifier) (*domain.PlaylistSummary, error)
}

// Catalog is the full playlist catalog surface used by the HTTP API.
type Catalog interface {
	SyncPort

	CreatePlaylist(ctx context.Context, p *domain.Playlist) error
	GetPlaylist(ctx context.Context, playlistID string) (*domain.Playlist, error)
	ListPlaylists(ctx context.Context) ([]*domain.Playlist, error)
	UpdatePlaylist(ctx context.Context, p *domain.Playlist) error
	// DeletePlaylist removes a playlist and its tracks. Returns false
	// when no such playlist existed.
	DeletePlaylist(ctx context.Context, playlistID string) (bool, error)

	AddTrack(ctx context.Context, track *domain.Track) error
	ListTracks(ctx context.Context, playlistID string) ([]*domain.Track, error)

	Close() error
}
