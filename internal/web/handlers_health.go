package web

import (
	"context"
	"net/http"
	"time"

	"github.com/JonMunkholm/PartsHole/internal/core"
)

const healthTimeout = 2 * time.Second

// HealthResponse reports store reachability and import capacity.
type HealthResponse struct {
	Status  string                   `json:"status"`
	Store   string                   `json:"store"`
	Imports core.ImportLimiterStatus `json:"imports"`
}

// handleHealth answers 200 when the store responds to a ping and 503
// otherwise.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	resp := HealthResponse{
		Status:  "ok",
		Store:   "ok",
		Imports: s.service.Limiter().Status(),
	}
	status := http.StatusOK

	if err := s.service.Store().Ping(ctx); err != nil {
		resp.Status = "degraded"
		resp.Store = err.Error()
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, resp)
}
