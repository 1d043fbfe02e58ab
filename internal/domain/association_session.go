package domain

import (
	"time"

	"github.com/The-Open-Music-Box/theopenmusicbox-sub005/internal/errors"
)

// DefaultSessionTimeout is the default lifetime of a link session.
const DefaultSessionTimeout = 60 * time.Second

// SessionState is the state of an association session's state machine.
type SessionState string

const (
	// SessionListening is the initial state: waiting for a tag scan.
	SessionListening SessionState = "LISTENING"
	// SessionSuccess means the tag was bound to the target playlist.
	SessionSuccess SessionState = "SUCCESS"
	// SessionDuplicate means the scanned tag already belongs to another
	// playlist; the session stays active awaiting a user decision.
	SessionDuplicate SessionState = "DUPLICATE"
	// SessionStopped means the session was stopped by its owner.
	SessionStopped SessionState = "STOPPED"
	// SessionCancelled means the user cancelled the link attempt.
	SessionCancelled SessionState = "CANCELLED"
	// SessionTimeout means the session expired before a tag was scanned.
	SessionTimeout SessionState = "TIMEOUT"
	// SessionError means the session failed with an unrecoverable error.
	SessionError SessionState = "ERROR"
)

// IsTerminal reports whether a session in this state can still change.
// DUPLICATE is not terminal: a pending conflict awaits override or cancel.
func (s SessionState) IsTerminal() bool {
	switch s {
	case SessionListening, SessionDuplicate:
		return false
	case SessionSuccess, SessionStopped, SessionCancelled, SessionTimeout, SessionError:
		return true
	}
	return true
}

// AssociationSession models one in-progress "link this tag to this playlist"
// attempt. Sessions are short-lived UI interactions, owned by the
// orchestrator's in-memory registry, and are never persisted.
type AssociationSession struct {
	ID                 string        `json:"id"`
	PlaylistID         string        `json:"playlist_id"`
	State              SessionState  `json:"state"`
	StartedAt          time.Time     `json:"started_at"`
	Timeout            time.Duration `json:"timeout"`
	DetectedTag        TagIdentifier `json:"detected_tag,omitempty"`
	ConflictPlaylistID string        `json:"conflict_playlist_id,omitempty"`
	ErrorMessage       string        `json:"error_message,omitempty"`
	OverrideMode       bool          `json:"override_mode"`
}

// NewAssociationSession creates a LISTENING session for the given playlist.
// A non-positive timeout falls back to DefaultSessionTimeout.
func NewAssociationSession(id, playlistID string, timeout time.Duration) *AssociationSession {
	if timeout <= 0 {
		timeout = DefaultSessionTimeout
	}
	return &AssociationSession{
		ID:         id,
		PlaylistID: playlistID,
		State:      SessionListening,
		StartedAt:  time.Now().UTC(),
		Timeout:    timeout,
	}
}

// TimeoutAt returns the session's deadline.
func (s *AssociationSession) TimeoutAt() time.Time {
	return s.StartedAt.Add(s.Timeout)
}

// IsExpired reports whether the deadline has passed.
func (s *AssociationSession) IsExpired() bool {
	return time.Now().After(s.TimeoutAt())
}

// IsActive reports whether the session still participates in detection
// routing: LISTENING or DUPLICATE, and not past its deadline.
func (s *AssociationSession) IsActive() bool {
	if s.State != SessionListening && s.State != SessionDuplicate {
		return false
	}
	return !s.IsExpired()
}

// Remaining returns the time left before the deadline, clamped to zero.
func (s *AssociationSession) Remaining() time.Duration {
	remaining := time.Until(s.TimeoutAt())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// DetectTag records the scanned tag. Legal only while the session is
// LISTENING and not expired.
func (s *AssociationSession) DetectTag(identifier TagIdentifier) error {
	if s.State != SessionListening {
		return errors.InvalidTransitionf("cannot record tag in state %s", s.State)
	}
	if s.IsExpired() {
		return errors.InvalidTransitionf("session %s has expired", s.ID)
	}
	s.DetectedTag = identifier
	return nil
}

// MarkSuccessful transitions LISTENING → SUCCESS.
func (s *AssociationSession) MarkSuccessful() error {
	if s.State != SessionListening {
		return errors.InvalidTransitionf("cannot mark successful from state %s", s.State)
	}
	s.State = SessionSuccess
	return nil
}

// MarkDuplicate transitions LISTENING → DUPLICATE, recording which playlist
// already owns the scanned tag. The session stays active: the conflict
// needs a user decision (override or cancel).
func (s *AssociationSession) MarkDuplicate(existingPlaylistID string) error {
	if s.State != SessionListening {
		return errors.InvalidTransitionf("cannot mark duplicate from state %s", s.State)
	}
	s.State = SessionDuplicate
	s.ConflictPlaylistID = existingPlaylistID
	return nil
}

// ResolveDuplicate transitions DUPLICATE → SUCCESS after a forced
// association. Legal only from DUPLICATE.
func (s *AssociationSession) ResolveDuplicate() error {
	if s.State != SessionDuplicate {
		return errors.InvalidTransitionf("cannot resolve duplicate from state %s", s.State)
	}
	s.State = SessionSuccess
	s.OverrideMode = true
	return nil
}

// MarkStopped transitions {LISTENING, DUPLICATE} → STOPPED.
func (s *AssociationSession) MarkStopped() error {
	if s.State != SessionListening && s.State != SessionDuplicate {
		return errors.InvalidTransitionf("cannot stop from state %s", s.State)
	}
	s.State = SessionStopped
	return nil
}

// MarkCancelled transitions {LISTENING, DUPLICATE} → CANCELLED.
func (s *AssociationSession) MarkCancelled() error {
	if s.State != SessionListening && s.State != SessionDuplicate {
		return errors.InvalidTransitionf("cannot cancel from state %s", s.State)
	}
	s.State = SessionCancelled
	return nil
}

// MarkTimeout transitions LISTENING → TIMEOUT. DUPLICATE sessions are
// deliberately not timed out: a human decision is pending.
func (s *AssociationSession) MarkTimeout() error {
	if s.State != SessionListening {
		return errors.InvalidTransitionf("cannot time out from state %s", s.State)
	}
	s.State = SessionTimeout
	return nil
}

// MarkError transitions any state → ERROR with a message.
func (s *AssociationSession) MarkError(msg string) {
	s.State = SessionError
	s.ErrorMessage = msg
}
