package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns server health status with component checks",
		Tags:        []string{"Health"},
	}, s.handleHealthCheck)
}

// ComponentHealth describes the health of a single component.
type ComponentHealth struct {
	Status  string `json:"status" doc:"Component status: healthy, degraded, or unhealthy"`
	Message string `json:"message,omitempty" doc:"Additional status information"`
}

// HealthResponse contains health check data in API responses.
type HealthResponse struct {
	Status     string                     `json:"status" doc:"Overall status: healthy or degraded"`
	Components map[string]ComponentHealth `json:"components" doc:"Individual component statuses"`
}

// HealthOutput wraps the health response for Huma.
type HealthOutput struct {
	Body HealthResponse
}

func (s *Server) handleHealthCheck(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
	components := make(map[string]ComponentHealth)
	overall := "healthy"

	if _, err := s.catalog.ListPlaylists(ctx); err != nil {
		components["catalog"] = ComponentHealth{Status: "unhealthy", Message: err.Error()}
		overall = "degraded"
	} else {
		components["catalog"] = ComponentHealth{Status: "healthy"}
	}

	// The reader is optional hardware; its absence degrades, never fails,
	// the service.
	if s.reader != nil && s.reader.IsDetecting() {
		components["nfc_reader"] = ComponentHealth{Status: "healthy"}
	} else {
		components["nfc_reader"] = ComponentHealth{Status: "degraded", Message: "detection not running"}
		if overall == "healthy" {
			overall = "degraded"
		}
	}

	return &HealthOutput{Body: HealthResponse{
		Status:     overall,
		Components: components,
	}}, nil
}
