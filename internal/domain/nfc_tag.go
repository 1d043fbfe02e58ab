package domain

import (
	"time"

	"github.com/The-Open-Music-Box/theopenmusicbox-sub005/internal/errors"
)

// NfcTag tracks a physical tag's playlist association and detection history.
// Tags are created on first detection or first association and live in the
// association store; the catalog holds the mirror playlist→tag fact.
type NfcTag struct {
	Identifier           TagIdentifier  `json:"identifier"`
	AssociatedPlaylistID string         `json:"associated_playlist_id,omitempty"`
	LastDetectedAt       *time.Time     `json:"last_detected_at,omitempty"`
	DetectionCount       int            `json:"detection_count"`
	Metadata             map[string]any `json:"metadata,omitempty"`
	CreatedAt            time.Time      `json:"created_at"`
	UpdatedAt            time.Time      `json:"updated_at"`
}

// NewNfcTag creates a tag record for a freshly seen identifier.
func NewNfcTag(identifier TagIdentifier) *NfcTag {
	now := time.Now().UTC()
	return &NfcTag{
		Identifier: identifier,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// MarkDetected records one hardware detection. The detection count only
// ever increases; it is kept even when the detection produces no
// association outcome.
func (t *NfcTag) MarkDetected() {
	now := time.Now().UTC()
	t.DetectionCount++
	t.LastDetectedAt = &now
	t.UpdatedAt = now
}

// AssociateWithPlaylist binds the tag to a playlist. An empty playlist id
// is rejected; re-associating overwrites any previous binding.
func (t *NfcTag) AssociateWithPlaylist(playlistID string) error {
	if playlistID == "" {
		return errors.Validation("playlist id is empty")
	}
	t.AssociatedPlaylistID = playlistID
	t.UpdatedAt = time.Now().UTC()
	return nil
}

// Dissociate clears the tag's playlist binding.
func (t *NfcTag) Dissociate() {
	t.AssociatedPlaylistID = ""
	t.UpdatedAt = time.Now().UTC()
}

// IsAssociated reports whether the tag currently triggers a playlist.
func (t *NfcTag) IsAssociated() bool {
	return t.AssociatedPlaylistID != ""
}
