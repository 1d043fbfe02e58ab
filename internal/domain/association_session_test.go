package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/The-Open-Music-Box/theopenmusicbox-sub005/internal/errors"
)

func newTestSession() *AssociationSession {
	return NewAssociationSession("ses-1", "pl-1", time.Minute)
}

func TestNewAssociationSession(t *testing.T) {
	s := newTestSession()

	assert.Equal(t, "ses-1", s.ID)
	assert.Equal(t, "pl-1", s.PlaylistID)
	assert.Equal(t, SessionListening, s.State)
	assert.False(t, s.StartedAt.IsZero())
	assert.Equal(t, time.Minute, s.Timeout)
	assert.True(t, s.IsActive())
	assert.False(t, s.IsExpired())
}

func TestNewAssociationSession_DefaultTimeout(t *testing.T) {
	s := NewAssociationSession("ses-1", "pl-1", 0)
	assert.Equal(t, DefaultSessionTimeout, s.Timeout)

	s = NewAssociationSession("ses-1", "pl-1", -time.Second)
	assert.Equal(t, DefaultSessionTimeout, s.Timeout)
}

func TestAssociationSession_DetectTag(t *testing.T) {
	s := newTestSession()
	id, _ := NewTagIdentifier("04a1b2c3")

	require.NoError(t, s.DetectTag(id))
	assert.Equal(t, id, s.DetectedTag)

	// Re-detection while still listening is legal.
	require.NoError(t, s.DetectTag(id))
}

func TestAssociationSession_DetectTag_Expired(t *testing.T) {
	s := newTestSession()
	s.StartedAt = time.Now().Add(-2 * time.Minute)
	id, _ := NewTagIdentifier("04a1b2c3")

	err := s.DetectTag(id)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidTransition))
	assert.Empty(t, s.DetectedTag)
}

func TestAssociationSession_SuccessPath(t *testing.T) {
	s := newTestSession()
	require.NoError(t, s.MarkSuccessful())
	assert.Equal(t, SessionSuccess, s.State)
	assert.False(t, s.IsActive())
}

func TestAssociationSession_DuplicatePath(t *testing.T) {
	s := newTestSession()

	require.NoError(t, s.MarkDuplicate("pl-other"))
	assert.Equal(t, SessionDuplicate, s.State)
	assert.Equal(t, "pl-other", s.ConflictPlaylistID)
	// Duplicates stay active pending a user decision.
	assert.True(t, s.IsActive())

	require.NoError(t, s.ResolveDuplicate())
	assert.Equal(t, SessionSuccess, s.State)
	assert.True(t, s.OverrideMode)
}

func TestAssociationSession_IllegalTransitions(t *testing.T) {
	id, _ := NewTagIdentifier("04a1b2c3")

	tests := []struct {
		name    string
		prepare func(*AssociationSession)
		attempt func(*AssociationSession) error
		want    SessionState
	}{
		{
			name:    "mark successful on stopped session",
			prepare: func(s *AssociationSession) { _ = s.MarkStopped() },
			attempt: func(s *AssociationSession) error { return s.MarkSuccessful() },
			want:    SessionStopped,
		},
		{
			name:    "mark successful on duplicate session",
			prepare: func(s *AssociationSession) { _ = s.MarkDuplicate("pl-x") },
			attempt: func(s *AssociationSession) error { return s.MarkSuccessful() },
			want:    SessionDuplicate,
		},
		{
			name:    "mark duplicate twice",
			prepare: func(s *AssociationSession) { _ = s.MarkDuplicate("pl-x") },
			attempt: func(s *AssociationSession) error { return s.MarkDuplicate("pl-y") },
			want:    SessionDuplicate,
		},
		{
			name:    "timeout on duplicate session",
			prepare: func(s *AssociationSession) { _ = s.MarkDuplicate("pl-x") },
			attempt: func(s *AssociationSession) error { return s.MarkTimeout() },
			want:    SessionDuplicate,
		},
		{
			name:    "timeout on success session",
			prepare: func(s *AssociationSession) { _ = s.MarkSuccessful() },
			attempt: func(s *AssociationSession) error { return s.MarkTimeout() },
			want:    SessionSuccess,
		},
		{
			name:    "stop on terminal session",
			prepare: func(s *AssociationSession) { _ = s.MarkCancelled() },
			attempt: func(s *AssociationSession) error { return s.MarkStopped() },
			want:    SessionCancelled,
		},
		{
			name:    "cancel on timed out session",
			prepare: func(s *AssociationSession) { _ = s.MarkTimeout() },
			attempt: func(s *AssociationSession) error { return s.MarkCancelled() },
			want:    SessionTimeout,
		},
		{
			name:    "detect tag on success session",
			prepare: func(s *AssociationSession) { _ = s.MarkSuccessful() },
			attempt: func(s *AssociationSession) error { return s.DetectTag(id) },
			want:    SessionSuccess,
		},
		{
			name:    "resolve duplicate on listening session",
			prepare: func(_ *AssociationSession) {},
			attempt: func(s *AssociationSession) error { return s.ResolveDuplicate() },
			want:    SessionListening,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession()
			tt.prepare(s)

			err := tt.attempt(s)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrInvalidTransition))
			// Illegal transitions never mutate state.
			assert.Equal(t, tt.want, s.State)
		})
	}
}

func TestAssociationSession_StopAndCancelFromDuplicate(t *testing.T) {
	s := newTestSession()
	require.NoError(t, s.MarkDuplicate("pl-x"))
	require.NoError(t, s.MarkStopped())
	assert.Equal(t, SessionStopped, s.State)

	s = newTestSession()
	require.NoError(t, s.MarkDuplicate("pl-x"))
	require.NoError(t, s.MarkCancelled())
	assert.Equal(t, SessionCancelled, s.State)
}

func TestAssociationSession_MarkError(t *testing.T) {
	s := newTestSession()
	require.NoError(t, s.MarkSuccessful())

	// Any state may transition to ERROR.
	s.MarkError("catalog write failed")
	assert.Equal(t, SessionError, s.State)
	assert.Equal(t, "catalog write failed", s.ErrorMessage)
}

func TestAssociationSession_Remaining(t *testing.T) {
	s := newTestSession()
	remaining := s.Remaining()
	assert.Greater(t, remaining, 50*time.Second)
	assert.LessOrEqual(t, remaining, time.Minute)

	s.StartedAt = time.Now().Add(-2 * time.Minute)
	assert.Equal(t, time.Duration(0), s.Remaining())
	assert.True(t, s.IsExpired())
	assert.False(t, s.IsActive())
}

func TestSessionState_IsTerminal(t *testing.T) {
	assert.False(t, SessionListening.IsTerminal())
	assert.False(t, SessionDuplicate.IsTerminal())
	assert.True(t, SessionSuccess.IsTerminal())
	assert.True(t, SessionStopped.IsTerminal())
	assert.True(t, SessionCancelled.IsTerminal())
	assert.True(t, SessionTimeout.IsTerminal())
	assert.True(t, SessionError.IsTerminal())
}
