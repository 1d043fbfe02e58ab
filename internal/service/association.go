// Package service contains the association orchestrator: it owns the live
// session registry and routes hardware detections to sessions, the tag
// store, and the playlist catalog.
package service

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/The-Open-Music-Box/theopenmusicbox-sub005/internal/catalog"
	"github.com/The-Open-Music-Box/theopenmusicbox-sub005/internal/domain"
	"github.com/The-Open-Music-Box/theopenmusicbox-sub005/internal/errors"
	"github.com/The-Open-Music-Box/theopenmusicbox-sub005/internal/events"
	"github.com/The-Open-Music-Box/theopenmusicbox-sub005/internal/id"
	"github.com/The-Open-Music-Box/theopenmusicbox-sub005/internal/store"
)

// DefaultSuccessGrace is how long a successful session stays visible in the
// registry so clients polling it can observe the terminal state.
const DefaultSuccessGrace = 2 * time.Second

// Options tunes the association service.
type Options struct {
	// SessionTimeout is the default session lifetime when the caller does
	// not specify one.
	SessionTimeout time.Duration
	// SuccessGrace is the delay before a successful session is removed
	// from the registry.
	SuccessGrace time.Duration
}

// SessionOutcome is the routing result for one session in a detection.
type SessionOutcome struct {
	SessionID  string `json:"session_id"`
	PlaylistID string `json:"playlist_id"`

	// Success means this session consumed the tag and the association
	// was written through to the store and catalog.
	Success bool `json:"success"`

	// DuplicateAssociation means the tag already belongs to another
	// playlist; the session moved to its conflict state and awaits a
	// user decision.
	DuplicateAssociation bool   `json:"duplicate_association"`
	ConflictPlaylistID   string `json:"conflict_playlist_id,omitempty"`

	Error string `json:"error,omitempty"`
}

// DetectionOutcome describes what one hardware detection did.
type DetectionOutcome struct {
	TagID          domain.TagIdentifier `json:"tag_id"`
	DetectionCount int                  `json:"detection_count"`

	// Sessions holds the per-session routing results, in session start
	// order.
	Sessions []SessionOutcome `json:"sessions,omitempty"`

	// NoActiveSessions means the detection was not consumed by any
	// session. AssociatedPlaylistID then carries the playback target,
	// if the tag has one.
	NoActiveSessions     bool   `json:"no_active_sessions"`
	AssociatedPlaylistID string `json:"associated_playlist_id,omitempty"`
}

// Success reports whether any session committed an association.
func (o *DetectionOutcome) Success() bool {
	for _, s := range o.Sessions {
		if s.Success {
			return true
		}
	}
	return false
}

// Duplicate returns the first duplicate-conflict result, if any.
func (o *DetectionOutcome) Duplicate() (SessionOutcome, bool) {
	for _, s := range o.Sessions {
		if s.DuplicateAssociation {
			return s, true
		}
	}
	return SessionOutcome{}, false
}

// AssociationService orchestrates tag-to-playlist association. It owns the
// in-memory session registry; sessions never survive a restart.
type AssociationService struct {
	store     store.AssociationStore
	catalog   catalog.SyncPort
	publisher *events.Publisher
	logger    *slog.Logger

	sessionTimeout time.Duration
	successGrace   time.Duration

	// mu serializes every registry mutation and detection routing pass.
	mu       sync.Mutex
	sessions map[string]*domain.AssociationSession
}

// NewAssociationService creates the orchestrator with an empty registry.
func NewAssociationService(
	tagStore store.AssociationStore,
	cat catalog.SyncPort,
	publisher *events.Publisher,
	logger *slog.Logger,
	opts Options,
) *AssociationService {
	if opts.SessionTimeout <= 0 {
		opts.SessionTimeout = domain.DefaultSessionTimeout
	}
	if opts.SuccessGrace <= 0 {
		opts.SuccessGrace = DefaultSuccessGrace
	}
	return &AssociationService{
		store:          tagStore,
		catalog:        cat,
		publisher:      publisher,
		logger:         logger,
		sessionTimeout: opts.SessionTimeout,
		successGrace:   opts.SuccessGrace,
		sessions:       make(map[string]*domain.AssociationSession),
	}
}

// StartSession opens a LISTENING session for a playlist. A non-positive
// timeout falls back to the configured default. At most one active session
// may exist per playlist.
func (s *AssociationService) StartSession(ctx context.Context, playlistID string, timeout time.Duration) (*domain.AssociationSession, error) {
	if playlistID == "" {
		return nil, errors.Validation("playlist id is empty")
	}
	if timeout <= 0 {
		timeout = s.sessionTimeout
	}

	// Events go out after the registry lock is released, so a subscriber
	// may call back into the service. Deferred publishing runs after the
	// deferred unlock.
	var pending []events.Event
	defer s.publishPending(&pending)

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.sessions {
		if existing.PlaylistID == playlistID && existing.IsActive() {
			return nil, errors.SessionConflictf("playlist %s already has active session %s", playlistID, existing.ID)
		}
	}

	sessionID, err := id.Generate("ses")
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "generate session id")
	}

	session := domain.NewAssociationSession(sessionID, playlistID, timeout)
	s.sessions[session.ID] = session

	s.logger.Info("Association session started",
		"session_id", session.ID,
		"playlist_id", playlistID,
		"timeout", timeout,
	)
	pending = append(pending, events.NewSessionStartedEvent(session))

	return snapshot(session), nil
}

// publishPending delivers events collected under the registry lock. Callers
// defer it before deferring the unlock, so it runs lock-free.
func (s *AssociationService) publishPending(pending *[]events.Event) {
	for _, event := range *pending {
		s.publisher.Publish(event)
	}
}

// ProcessDetection routes one hardware detection. The detection is recorded
// on the tag before any session routing, so detection history survives
// whatever the routing decides. A non-empty sessionID restricts routing to
// that session; otherwise every session still in LISTENING receives the
// detection, in start order. Association failures are folded into the
// outcome, never raised, because this runs inside the hardware callback.
func (s *AssociationService) ProcessDetection(ctx context.Context, identifier domain.TagIdentifier, sessionID string) (*DetectionOutcome, error) {
	tag, err := s.loadOrCreateTag(ctx, identifier)
	if err != nil {
		return nil, err
	}

	// Detection history is best-effort and independent of routing: a
	// failed write is logged and the detection still routes.
	tag.MarkDetected()
	if err := s.store.SaveTag(ctx, tag); err != nil {
		s.logger.Error("Failed to record detection", "tag_id", identifier.String(), "error", err)
	}

	outcome := &DetectionOutcome{
		TagID:          identifier,
		DetectionCount: tag.DetectionCount,
	}

	var pending []events.Event
	defer s.publishPending(&pending)

	s.mu.Lock()
	defer s.mu.Unlock()

	targets := s.listeningSessionsLocked(sessionID)
	if len(targets) == 0 {
		outcome.NoActiveSessions = true
		outcome.AssociatedPlaylistID = tag.AssociatedPlaylistID
		pending = append(pending, events.NewTagDetectedEvent(tag, ""))
		return outcome, nil
	}

	pending = append(pending, events.NewTagDetectedEvent(tag, targets[0].ID))

	// All targets see the pre-detection association state; at most one
	// session can commit an association per detection.
	previousPlaylist := tag.AssociatedPlaylistID
	associated := false

	for _, target := range targets {
		result := SessionOutcome{SessionID: target.ID, PlaylistID: target.PlaylistID}

		if err := target.DetectTag(identifier); err != nil {
			result.Error = err.Error()
			outcome.Sessions = append(outcome.Sessions, result)
			continue
		}

		// A tag already bound to a different playlist needs a user
		// decision before it is rebound. The session holds the tag
		// and waits.
		if previousPlaylist != "" && previousPlaylist != target.PlaylistID {
			if err := target.MarkDuplicate(previousPlaylist); err != nil {
				result.Error = err.Error()
				outcome.Sessions = append(outcome.Sessions, result)
				continue
			}
			result.DuplicateAssociation = true
			result.ConflictPlaylistID = previousPlaylist
			outcome.Sessions = append(outcome.Sessions, result)
			s.logger.Info("Detection hit an already associated tag",
				"session_id", target.ID,
				"tag_id", identifier.String(),
				"conflict_playlist_id", previousPlaylist,
			)
			continue
		}

		if associated {
			// Another session in this batch already took the tag.
			result.Error = "tag already consumed in this detection"
			outcome.Sessions = append(outcome.Sessions, result)
			continue
		}

		if err := s.completeAssociationLocked(ctx, target, tag, false, &pending); err != nil {
			result.Error = err.Error()
			s.logger.Error("Association failed",
				"session_id", target.ID,
				"tag_id", identifier.String(),
				"error", err,
			)
		} else {
			result.Success = true
			associated = true
		}
		outcome.Sessions = append(outcome.Sessions, result)
	}

	return outcome, nil
}

// ForceAssociate resolves a DUPLICATE session by rebinding its detected tag
// to the session's playlist, overriding the previous owner.
func (s *AssociationService) ForceAssociate(ctx context.Context, sessionID string) (*domain.AssociationSession, error) {
	var pending []events.Event
	defer s.publishPending(&pending)

	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, errors.NotFoundf("session %s not found", sessionID)
	}
	if session.State != domain.SessionDuplicate {
		return nil, errors.InvalidTransitionf("session %s is %s, not awaiting an override", sessionID, session.State)
	}

	tag, err := s.loadOrCreateTag(ctx, session.DetectedTag)
	if err != nil {
		return nil, err
	}

	if err := s.completeAssociationLocked(ctx, session, tag, true, &pending); err != nil {
		return nil, err
	}
	return snapshot(session), nil
}

// completeAssociationLocked writes an association through the tag store and
// the catalog, then finalizes the session. The catalog write decides the
// overall result: a failed or refused sync errors the session even though
// the tag-side write already happened. Events are appended to pending for
// the caller to publish once the lock is released.
func (s *AssociationService) completeAssociationLocked(ctx context.Context, session *domain.AssociationSession, tag *domain.NfcTag, override bool, pending *[]events.Event) error {
	previousPlaylist := tag.AssociatedPlaylistID

	if err := tag.AssociateWithPlaylist(session.PlaylistID); err != nil {
		return err
	}

	if err := s.store.SaveTag(ctx, tag); err != nil {
		s.failSessionLocked(session, "tag store write failed: "+err.Error(), pending)
		return errors.Wrap(err, errors.CodeInternal, "persist association")
	}

	synced, err := s.catalog.UpdateAssociation(ctx, session.PlaylistID, tag.Identifier)
	if err != nil {
		s.failSessionLocked(session, "catalog sync failed: "+err.Error(), pending)
		return errors.Wrap(err, errors.CodeInternal, "sync association to catalog")
	}
	if !synced {
		s.failSessionLocked(session, "playlist "+session.PlaylistID+" not found in catalog", pending)
		return errors.NotFoundf("playlist %s not found in catalog", session.PlaylistID)
	}

	var transitionErr error
	if override {
		transitionErr = session.ResolveDuplicate()
	} else {
		transitionErr = session.MarkSuccessful()
	}
	if transitionErr != nil {
		return transitionErr
	}

	s.logger.Info("Tag associated",
		"session_id", session.ID,
		"tag_id", tag.Identifier.String(),
		"playlist_id", session.PlaylistID,
		"override", override,
		"previous_playlist_id", previousPlaylist,
	)
	*pending = append(*pending,
		events.NewTagAssociatedEvent(tag.Identifier, session.PlaylistID, session.ID, override),
		events.NewSessionCompletedEvent(session),
	)

	// Keep the terminal session visible briefly so a polling client sees
	// the outcome before the registry forgets it.
	s.scheduleRemovalLocked(session.ID, s.successGrace)
	return nil
}

func (s *AssociationService) failSessionLocked(session *domain.AssociationSession, msg string, pending *[]events.Event) {
	session.MarkError(msg)
	*pending = append(*pending, events.NewSessionCompletedEvent(session))
	s.scheduleRemovalLocked(session.ID, s.successGrace)
}

// StopSession stops an active session without an association.
func (s *AssociationService) StopSession(ctx context.Context, sessionID string) (*domain.AssociationSession, error) {
	return s.endSession(sessionID, (*domain.AssociationSession).MarkStopped, "Association session stopped")
}

// CancelSession cancels an active session, including one parked on a
// duplicate conflict.
func (s *AssociationService) CancelSession(ctx context.Context, sessionID string) (*domain.AssociationSession, error) {
	return s.endSession(sessionID, (*domain.AssociationSession).MarkCancelled, "Association session cancelled")
}

func (s *AssociationService) endSession(sessionID string, transition func(*domain.AssociationSession) error, msg string) (*domain.AssociationSession, error) {
	var pending []events.Event
	defer s.publishPending(&pending)

	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, errors.NotFoundf("session %s not found", sessionID)
	}
	if err := transition(session); err != nil {
		return nil, err
	}

	s.logger.Info(msg, "session_id", sessionID, "playlist_id", session.PlaylistID)
	pending = append(pending, events.NewSessionCompletedEvent(session))
	delete(s.sessions, sessionID)
	return snapshot(session), nil
}

// DissociateTag clears a tag's playlist binding in both the tag store and
// the catalog. The tag record and its detection history are kept.
func (s *AssociationService) DissociateTag(ctx context.Context, identifier domain.TagIdentifier) error {
	tag, err := s.store.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return errors.NotFoundf("tag %s not found", identifier.String())
		}
		return errors.Wrap(err, errors.CodeInternal, "load tag")
	}

	playlistID := tag.AssociatedPlaylistID
	tag.Dissociate()
	if err := s.store.SaveTag(ctx, tag); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "persist dissociation")
	}
	if _, err := s.catalog.RemoveAssociation(ctx, identifier); err != nil {
		return errors.Wrap(err, errors.CodeInternal, "sync dissociation to catalog")
	}

	s.logger.Info("Tag dissociated", "tag_id", identifier.String(), "playlist_id", playlistID)
	s.publisher.Publish(events.NewTagDissociatedEvent(identifier, playlistID))
	return nil
}

// HandleTagRemoved reacts to the reader losing sight of a tag.
func (s *AssociationService) HandleTagRemoved(identifier domain.TagIdentifier) {
	s.publisher.Publish(events.NewTagRemovedEvent(identifier))
}

// CleanupExpiredSessions times out expired LISTENING sessions and removes
// them from the registry. DUPLICATE sessions are left alone: a conflict
// awaits a human decision and has no deadline anymore. The sweep is
// idempotent and returns how many sessions it expired.
func (s *AssociationService) CleanupExpiredSessions(ctx context.Context) int {
	var pending []events.Event
	defer s.publishPending(&pending)

	s.mu.Lock()
	defer s.mu.Unlock()

	expired := 0
	for sessionID, session := range s.sessions {
		if session.State != domain.SessionListening || !session.IsExpired() {
			continue
		}
		if err := session.MarkTimeout(); err != nil {
			continue
		}
		expired++
		s.logger.Info("Association session expired",
			"session_id", sessionID,
			"playlist_id", session.PlaylistID,
		)
		pending = append(pending, events.NewSessionExpiredEvent(session))
		delete(s.sessions, sessionID)
	}
	return expired
}

// GetSession returns a copy of a live session.
func (s *AssociationService) GetSession(sessionID string) (*domain.AssociationSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[sessionID]
	if !ok {
		return nil, errors.NotFoundf("session %s not found", sessionID)
	}
	return snapshot(session), nil
}

// GetActiveSessions returns copies of all sessions still participating in
// detection routing.
func (s *AssociationService) GetActiveSessions() []*domain.AssociationSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	active := make([]*domain.AssociationSession, 0, len(s.sessions))
	for _, session := range s.sessions {
		if session.IsActive() {
			active = append(active, snapshot(session))
		}
	}
	return active
}

// ResolveTag returns the playlist a tag would start, for the playback path.
func (s *AssociationService) ResolveTag(ctx context.Context, identifier domain.TagIdentifier) (*domain.PlaylistSummary, error) {
	summary, err := s.catalog.FindByTag(ctx, identifier)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			return nil, errors.NotFoundf("tag %s is not associated", identifier.String())
		}
		return nil, errors.Wrap(err, errors.CodeInternal, "resolve tag")
	}
	return summary, nil
}

// listeningSessionsLocked returns the sessions a detection routes to, in
// start order. A non-empty sessionID restricts the result to that session.
// Sessions parked on DUPLICATE hold their tag and do not take new
// detections.
func (s *AssociationService) listeningSessionsLocked(sessionID string) []*domain.AssociationSession {
	var targets []*domain.AssociationSession
	for _, session := range s.sessions {
		if sessionID != "" && session.ID != sessionID {
			continue
		}
		if session.State != domain.SessionListening || session.IsExpired() {
			continue
		}
		targets = append(targets, session)
	}
	sort.Slice(targets, func(i, j int) bool {
		return targets[i].StartedAt.Before(targets[j].StartedAt)
	})
	return targets
}

func (s *AssociationService) loadOrCreateTag(ctx context.Context, identifier domain.TagIdentifier) (*domain.NfcTag, error) {
	tag, err := s.store.FindByIdentifier(ctx, identifier)
	if err == nil {
		return tag, nil
	}
	if errors.Is(err, store.ErrNotFound) {
		return domain.NewNfcTag(identifier), nil
	}
	return nil, errors.Wrap(err, errors.CodeInternal, "load tag")
}

// scheduleRemovalLocked drops a terminal session from the registry after a
// grace period.
func (s *AssociationService) scheduleRemovalLocked(sessionID string, grace time.Duration) {
	time.AfterFunc(grace, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if session, ok := s.sessions[sessionID]; ok && session.State.IsTerminal() {
			delete(s.sessions, sessionID)
		}
	})
}

func snapshot(session *domain.AssociationSession) *domain.AssociationSession {
	dup := *session
	return &dup
}
