// Package events defines the association subsystem's domain events and an
// in-process publisher fanning them out to subscribers (SSE bridge, status
// LED, logs).
package events

import (
	"time"

	"github.com/The-Open-Music-Box/theopenmusicbox-sub005/internal/domain"
	"github.com/The-Open-Music-Box/theopenmusicbox-sub005/internal/id"
)

// EventType identifies the kind of a domain event.
type EventType string

const (
	// EventTagDetected fires on every hardware detection, whatever its
	// routing outcome.
	EventTagDetected EventType = "nfc.tag_detected"
	// EventTagAssociated fires when a tag is bound to a playlist.
	EventTagAssociated EventType = "nfc.tag_associated"
	// EventTagDissociated fires when a tag loses its playlist binding.
	EventTagDissociated EventType = "nfc.tag_dissociated"
	// EventTagRemoved fires when the reader loses sight of a tag.
	EventTagRemoved EventType = "nfc.tag_removed"

	// EventSessionStarted fires when an association session opens.
	EventSessionStarted EventType = "nfc.session_started"
	// EventSessionCompleted fires when a session reaches a terminal state
	// other than TIMEOUT.
	EventSessionCompleted EventType = "nfc.session_completed"
	// EventSessionExpired fires when the sweep times a session out.
	EventSessionExpired EventType = "nfc.session_expired"

	// EventHeartbeat is a connection keepalive, never recorded in the
	// publisher's history.
	EventHeartbeat EventType = "heartbeat"
)

// Event is one domain event. Data holds a type-specific payload that is
// JSON-serializable for the SSE stream.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

func newEvent(eventType EventType, data any) Event {
	return Event{
		ID:        id.MustGenerate("evt"),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// TagDetectedData is the payload of EventTagDetected.
type TagDetectedData struct {
	TagID          string `json:"tag_id"`
	Associated     bool   `json:"associated"`
	PlaylistID     string `json:"playlist_id,omitempty"`
	SessionID      string `json:"session_id,omitempty"`
	DetectionCount int    `json:"detection_count"`
}

// TagAssociatedData is the payload of EventTagAssociated.
type TagAssociatedData struct {
	TagID      string `json:"tag_id"`
	PlaylistID string `json:"playlist_id"`
	SessionID  string `json:"session_id"`
	Override   bool   `json:"override"`
}

// TagDissociatedData is the payload of EventTagDissociated.
type TagDissociatedData struct {
	TagID      string `json:"tag_id"`
	PlaylistID string `json:"playlist_id,omitempty"`
}

// TagRemovedData is the payload of EventTagRemoved.
type TagRemovedData struct {
	TagID string `json:"tag_id"`
}

// SessionData is the payload of the session lifecycle events.
type SessionData struct {
	SessionID  string              `json:"session_id"`
	PlaylistID string              `json:"playlist_id"`
	State      domain.SessionState `json:"state"`
	TagID      string              `json:"tag_id,omitempty"`
	// ConflictPlaylistID carries the other playlist when State is
	// DUPLICATE.
	ConflictPlaylistID string `json:"conflict_playlist_id,omitempty"`
	Error              string `json:"error,omitempty"`
}

// NewTagDetectedEvent builds the event for one hardware detection.
func NewTagDetectedEvent(tag *domain.NfcTag, sessionID string) Event {
	return newEvent(EventTagDetected, TagDetectedData{
		TagID:          tag.Identifier.String(),
		Associated:     tag.IsAssociated(),
		PlaylistID:     tag.AssociatedPlaylistID,
		SessionID:      sessionID,
		DetectionCount: tag.DetectionCount,
	})
}

// NewTagAssociatedEvent builds the event for a completed association.
func NewTagAssociatedEvent(tagID domain.TagIdentifier, playlistID, sessionID string, override bool) Event {
	return newEvent(EventTagAssociated, TagAssociatedData{
		TagID:      tagID.String(),
		PlaylistID: playlistID,
		SessionID:  sessionID,
		Override:   override,
	})
}

// NewTagDissociatedEvent builds the event for a cleared binding.
func NewTagDissociatedEvent(tagID domain.TagIdentifier, playlistID string) Event {
	return newEvent(EventTagDissociated, TagDissociatedData{
		TagID:      tagID.String(),
		PlaylistID: playlistID,
	})
}

// NewTagRemovedEvent builds the event for a tag leaving the reader field.
func NewTagRemovedEvent(tagID domain.TagIdentifier) Event {
	return newEvent(EventTagRemoved, TagRemovedData{TagID: tagID.String()})
}

func sessionData(session *domain.AssociationSession) SessionData {
	return SessionData{
		SessionID:          session.ID,
		PlaylistID:         session.PlaylistID,
		State:              session.State,
		TagID:              session.DetectedTag.String(),
		ConflictPlaylistID: session.ConflictPlaylistID,
		Error:              session.ErrorMessage,
	}
}

// NewSessionStartedEvent builds the event for a freshly opened session.
func NewSessionStartedEvent(session *domain.AssociationSession) Event {
	return newEvent(EventSessionStarted, sessionData(session))
}

// NewSessionCompletedEvent builds the event for a session reaching a
// terminal state.
func NewSessionCompletedEvent(session *domain.AssociationSession) Event {
	return newEvent(EventSessionCompleted, sessionData(session))
}

// NewSessionExpiredEvent builds the event for a timed-out session.
func NewSessionExpiredEvent(session *domain.AssociationSession) Event {
	return newEvent(EventSessionExpired, sessionData(session))
}

// NewHeartbeatEvent builds a keepalive event.
func NewHeartbeatEvent() Event {
	return newEvent(EventHeartbeat, nil)
}
