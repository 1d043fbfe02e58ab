package domain

import "time"

// Playlist is the catalog's view of a playlist. The catalog is the store of
// record for the playlist→tag link consumed during scan-to-start.
type Playlist struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	NfcTagID   string    `json:"nfc_tag_id,omitempty"`
	TrackCount int       `json:"track_count"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Track is one entry of a playlist.
type Track struct {
	ID         string    `json:"id"`
	PlaylistID string    `json:"playlist_id"`
	Position   int       `json:"position"`
	Title      string    `json:"title"`
	Filename   string    `json:"filename"`
	DurationMs int64     `json:"duration_ms,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// PlaylistSummary is the compact record returned by tag lookups.
type PlaylistSummary struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	NfcTagID string `json:"nfc_tag_id,omitempty"`
}
