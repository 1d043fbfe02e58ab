package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/The-Open-Music-Box/theopenmusicbox-sub005/internal/domain"
)

func (s *Server) registerNfcRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:   "startNfcSession",
		Method:        http.MethodPost,
		Path:          "/api/v1/nfc/sessions",
		Summary:       "Start association session",
		Description:   "Opens a session that binds the next scanned tag to a playlist",
		Tags:          []string{"NFC"},
		DefaultStatus: http.StatusCreated,
	}, s.handleStartSession)

	huma.Register(s.api, huma.Operation{
		OperationID: "getNfcSession",
		Method:      http.MethodGet,
		Path:        "/api/v1/nfc/sessions/{id}",
		Summary:     "Get session",
		Description: "Returns the live state of an association session",
		Tags:        []string{"NFC"},
	}, s.handleGetSession)

	huma.Register(s.api, huma.Operation{
		OperationID: "stopNfcSession",
		Method:      http.MethodDelete,
		Path:        "/api/v1/nfc/sessions/{id}",
		Summary:     "Stop session",
		Description: "Stops or cancels an active association session",
		Tags:        []string{"NFC"},
	}, s.handleStopSession)

	huma.Register(s.api, huma.Operation{
		OperationID: "overrideNfcSession",
		Method:      http.MethodPost,
		Path:        "/api/v1/nfc/sessions/{id}/override",
		Summary:     "Force association",
		Description: "Resolves a duplicate conflict by rebinding the tag to the session's playlist",
		Tags:        []string{"NFC"},
	}, s.handleOverrideSession)

	huma.Register(s.api, huma.Operation{
		OperationID: "dissociateNfcTag",
		Method:      http.MethodDelete,
		Path:        "/api/v1/nfc/associations/{tagId}",
		Summary:     "Dissociate tag",
		Description: "Clears a tag's playlist binding; detection history is kept",
		Tags:        []string{"NFC"},
	}, s.handleDissociateTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "getNfcStatus",
		Method:      http.MethodGet,
		Path:        "/api/v1/nfc/status",
		Summary:     "NFC status",
		Description: "Returns active sessions and hardware reader status",
		Tags:        []string{"NFC"},
	}, s.handleNfcStatus)
}

// === DTOs ===

// SessionResponse is the API view of an association session.
type SessionResponse struct {
	SessionID          string    `json:"session_id" doc:"Session ID"`
	PlaylistID         string    `json:"playlist_id" doc:"Playlist being linked"`
	State              string    `json:"state" doc:"Session state"`
	StartedAt          time.Time `json:"started_at" doc:"Start time"`
	ExpiresAt          time.Time `json:"expires_at" doc:"Deadline"`
	RemainingSeconds   int       `json:"remaining_seconds" doc:"Seconds until the deadline, zero once passed"`
	TagID              string    `json:"tag_id,omitempty" doc:"Detected tag, once scanned"`
	ConflictPlaylistID string    `json:"conflict_playlist_id,omitempty" doc:"Playlist already owning the tag on a duplicate"`
	OverrideMode       bool      `json:"override_mode,omitempty" doc:"Whether the association was forced"`
	ErrorMessage       string    `json:"error_message,omitempty" doc:"Failure detail in the ERROR state"`
}

func sessionResponse(session *domain.AssociationSession) SessionResponse {
	return SessionResponse{
		SessionID:          session.ID,
		PlaylistID:         session.PlaylistID,
		State:              string(session.State),
		StartedAt:          session.StartedAt,
		ExpiresAt:          session.TimeoutAt(),
		RemainingSeconds:   int(session.Remaining().Seconds()),
		TagID:              session.DetectedTag.String(),
		ConflictPlaylistID: session.ConflictPlaylistID,
		OverrideMode:       session.OverrideMode,
		ErrorMessage:       session.ErrorMessage,
	}
}

// StartSessionRequest is the request body for starting a session.
type StartSessionRequest struct {
	PlaylistID     string `json:"playlist_id" validate:"required" doc:"Playlist to link"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty" validate:"gte=0,lte=3600" doc:"Session lifetime, default 60"`
}

// StartSessionInput wraps the start session request for Huma.
type StartSessionInput struct {
	Body StartSessionRequest
}

// SessionOutput wraps a session response for Huma.
type SessionOutput struct {
	Body SessionResponse
}

// SessionPathInput addresses one session.
type SessionPathInput struct {
	ID string `path:"id" doc:"Session ID"`
}

// StopSessionInput addresses one session with a stop mode.
type StopSessionInput struct {
	ID     string `path:"id" doc:"Session ID"`
	Cancel bool   `query:"cancel" doc:"Cancel instead of stop"`
}

// StoppedOutput reports a stop/cancel result.
type StoppedOutput struct {
	Body struct {
		Stopped bool   `json:"stopped" doc:"Whether the session was ended"`
		State   string `json:"state" doc:"Terminal state"`
	}
}

// TagPathInput addresses one tag.
type TagPathInput struct {
	TagID string `path:"tagId" doc:"Tag identifier"`
}

// DissociatedOutput reports a dissociation result.
type DissociatedOutput struct {
	Body struct {
		Dissociated bool `json:"dissociated" doc:"Whether the binding was cleared"`
	}
}

// NfcStatusOutput is the dashboard snapshot.
type NfcStatusOutput struct {
	Body struct {
		ActiveSessions []SessionResponse `json:"active_sessions" doc:"Sessions still routing detections"`
		Hardware       map[string]any    `json:"hardware" doc:"Reader status"`
	}
}

// === Handlers ===

func (s *Server) handleStartSession(ctx context.Context, input *StartSessionInput) (*SessionOutput, error) {
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	timeout := time.Duration(input.Body.TimeoutSeconds) * time.Second
	session, err := s.association.StartSession(ctx, input.Body.PlaylistID, timeout)
	if err != nil {
		return nil, err
	}
	return &SessionOutput{Body: sessionResponse(session)}, nil
}

func (s *Server) handleGetSession(_ context.Context, input *SessionPathInput) (*SessionOutput, error) {
	session, err := s.association.GetSession(input.ID)
	if err != nil {
		return nil, err
	}
	return &SessionOutput{Body: sessionResponse(session)}, nil
}

func (s *Server) handleStopSession(ctx context.Context, input *StopSessionInput) (*StoppedOutput, error) {
	var (
		session *domain.AssociationSession
		err     error
	)
	if input.Cancel {
		session, err = s.association.CancelSession(ctx, input.ID)
	} else {
		session, err = s.association.StopSession(ctx, input.ID)
	}
	if err != nil {
		return nil, err
	}

	out := &StoppedOutput{}
	out.Body.Stopped = true
	out.Body.State = string(session.State)
	return out, nil
}

func (s *Server) handleOverrideSession(ctx context.Context, input *SessionPathInput) (*SessionOutput, error) {
	session, err := s.association.ForceAssociate(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &SessionOutput{Body: sessionResponse(session)}, nil
}

func (s *Server) handleDissociateTag(ctx context.Context, input *TagPathInput) (*DissociatedOutput, error) {
	identifier, err := domain.NewTagIdentifier(input.TagID)
	if err != nil {
		return nil, err
	}
	if err := s.association.DissociateTag(ctx, identifier); err != nil {
		return nil, err
	}

	out := &DissociatedOutput{}
	out.Body.Dissociated = true
	return out, nil
}

func (s *Server) handleNfcStatus(_ context.Context, _ *struct{}) (*NfcStatusOutput, error) {
	sessions := s.association.GetActiveSessions()

	out := &NfcStatusOutput{}
	out.Body.ActiveSessions = make([]SessionResponse, 0, len(sessions))
	for _, session := range sessions {
		out.Body.ActiveSessions = append(out.Body.ActiveSessions, sessionResponse(session))
	}
	if s.reader != nil {
		out.Body.Hardware = s.reader.Status()
	} else {
		out.Body.Hardware = map[string]any{"type": "none", "detecting": false}
	}
	return out, nil
}
