package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/The-Open-Music-Box/theopenmusicbox-sub005/internal/domain"
	"github.com/The-Open-Music-Box/theopenmusicbox-sub005/internal/id"
)

func (s *Server) registerPlaylistRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listPlaylists",
		Method:      http.MethodGet,
		Path:        "/api/v1/playlists",
		Summary:     "List playlists",
		Tags:        []string{"Playlists"},
	}, s.handleListPlaylists)

	huma.Register(s.api, huma.Operation{
		OperationID:   "createPlaylist",
		Method:        http.MethodPost,
		Path:          "/api/v1/playlists",
		Summary:       "Create playlist",
		Tags:          []string{"Playlists"},
		DefaultStatus: http.StatusCreated,
	}, s.handleCreatePlaylist)

	huma.Register(s.api, huma.Operation{
		OperationID: "getPlaylist",
		Method:      http.MethodGet,
		Path:        "/api/v1/playlists/{id}",
		Summary:     "Get playlist",
		Tags:        []string{"Playlists"},
	}, s.handleGetPlaylist)

	huma.Register(s.api, huma.Operation{
		OperationID: "deletePlaylist",
		Method:      http.MethodDelete,
		Path:        "/api/v1/playlists/{id}",
		Summary:     "Delete playlist",
		Description: "Removes a playlist and its tracks",
		Tags:        []string{"Playlists"},
	}, s.handleDeletePlaylist)

	huma.Register(s.api, huma.Operation{
		OperationID: "listPlaylistTracks",
		Method:      http.MethodGet,
		Path:        "/api/v1/playlists/{id}/tracks",
		Summary:     "List tracks",
		Tags:        []string{"Playlists"},
	}, s.handleListTracks)

	huma.Register(s.api, huma.Operation{
		OperationID:   "addPlaylistTrack",
		Method:        http.MethodPost,
		Path:          "/api/v1/playlists/{id}/tracks",
		Summary:       "Add track",
		Tags:          []string{"Playlists"},
		DefaultStatus: http.StatusCreated,
	}, s.handleAddTrack)

	huma.Register(s.api, huma.Operation{
		OperationID: "findPlaylistByTag",
		Method:      http.MethodGet,
		Path:        "/api/v1/playlists/by-tag/{tagId}",
		Summary:     "Resolve tag",
		Description: "Returns the playlist a scanned tag would start",
		Tags:        []string{"Playlists"},
	}, s.handleFindPlaylistByTag)
}

// === DTOs ===

// CreatePlaylistRequest is the request body for creating a playlist.
type CreatePlaylistRequest struct {
	Title string `json:"title" validate:"required,max=255" doc:"Playlist title"`
}

// CreatePlaylistInput wraps the create playlist request for Huma.
type CreatePlaylistInput struct {
	Body CreatePlaylistRequest
}

// PlaylistOutput wraps a single playlist.
type PlaylistOutput struct {
	Body domain.Playlist
}

// PlaylistListOutput wraps a playlist listing.
type PlaylistListOutput struct {
	Body struct {
		Playlists []*domain.Playlist `json:"playlists" doc:"All playlists, sorted by title"`
	}
}

// PlaylistPathInput addresses one playlist.
type PlaylistPathInput struct {
	ID string `path:"id" doc:"Playlist ID"`
}

// DeletedOutput reports a deletion result.
type DeletedOutput struct {
	Body struct {
		Deleted bool `json:"deleted" doc:"Whether the record existed"`
	}
}

// AddTrackRequest is the request body for appending a track.
type AddTrackRequest struct {
	Title      string `json:"title" validate:"required,max=255" doc:"Track title"`
	Filename   string `json:"filename" validate:"required" doc:"Audio file name"`
	Position   int    `json:"position" validate:"gte=0" doc:"Position within the playlist"`
	DurationMs int64  `json:"duration_ms,omitempty" validate:"gte=0" doc:"Duration in milliseconds"`
}

// AddTrackInput wraps the add track request for Huma.
type AddTrackInput struct {
	ID   string `path:"id" doc:"Playlist ID"`
	Body AddTrackRequest
}

// TrackOutput wraps a single track.
type TrackOutput struct {
	Body domain.Track
}

// TrackListOutput wraps a track listing.
type TrackListOutput struct {
	Body struct {
		Tracks []*domain.Track `json:"tracks" doc:"Tracks in playback order"`
	}
}

// PlaylistSummaryOutput wraps a tag resolution result.
type PlaylistSummaryOutput struct {
	Body domain.PlaylistSummary
}

// === Handlers ===

func (s *Server) handleListPlaylists(ctx context.Context, _ *struct{}) (*PlaylistListOutput, error) {
	playlists, err := s.catalog.ListPlaylists(ctx)
	if err != nil {
		return nil, err
	}
	out := &PlaylistListOutput{}
	out.Body.Playlists = playlists
	return out, nil
}

func (s *Server) handleCreatePlaylist(ctx context.Context, input *CreatePlaylistInput) (*PlaylistOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	playlist := &domain.Playlist{
		ID:        id.MustGenerate("pl"),
		Title:     input.Body.Title,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.catalog.CreatePlaylist(ctx, playlist); err != nil {
		return nil, err
	}
	return &PlaylistOutput{Body: *playlist}, nil
}

func (s *Server) handleGetPlaylist(ctx context.Context, input *PlaylistPathInput) (*PlaylistOutput, error) {
	playlist, err := s.catalog.GetPlaylist(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &PlaylistOutput{Body: *playlist}, nil
}

func (s *Server) handleDeletePlaylist(ctx context.Context, input *PlaylistPathInput) (*DeletedOutput, error) {
	deleted, err := s.catalog.DeletePlaylist(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	out := &DeletedOutput{}
	out.Body.Deleted = deleted
	return out, nil
}

func (s *Server) handleListTracks(ctx context.Context, input *PlaylistPathInput) (*TrackListOutput, error) {
	if _, err := s.catalog.GetPlaylist(ctx, input.ID); err != nil {
		return nil, err
	}
	tracks, err := s.catalog.ListTracks(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	out := &TrackListOutput{}
	out.Body.Tracks = tracks
	return out, nil
}

func (s *Server) handleAddTrack(ctx context.Context, input *AddTrackInput) (*TrackOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	track := &domain.Track{
		ID:         id.MustGenerate("trk"),
		PlaylistID: input.ID,
		Position:   input.Body.Position,
		Title:      input.Body.Title,
		Filename:   input.Body.Filename,
		DurationMs: input.Body.DurationMs,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.catalog.AddTrack(ctx, track); err != nil {
		return nil, err
	}
	return &TrackOutput{Body: *track}, nil
}

func (s *Server) handleFindPlaylistByTag(ctx context.Context, input *TagPathInput) (*PlaylistSummaryOutput, error) {
	identifier, err := domain.NewTagIdentifier(input.TagID)
	if err != nil {
		return nil, err
	}
	summary, err := s.association.ResolveTag(ctx, identifier)
	if err != nil {
		return nil, err
	}
	return &PlaylistSummaryOutput{Body: *summary}, nil
}
