package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// HealthResponse describes the running instance.
type HealthResponse struct {
	Status  string `json:"status"`
	Store   string `json:"store"`
	Durable bool   `json:"durable"`
	Warning string `json:"warning,omitempty"`
}

// HealthHandler reports liveness and which order store is in use.
type HealthHandler struct {
	mode    string
	durable bool
	ping    func(ctx context.Context) error
	logger  zerolog.Logger
}

// NewHealthHandler creates a health handler. ping may be nil when the store
// has no backing service.
func NewHealthHandler(mode string, durable bool, ping func(ctx context.Context) error, logger zerolog.Logger) *HealthHandler {
	return &HealthHandler{
		mode:    mode,
		durable: durable,
		ping:    ping,
		logger:  logger.With().Str("handler", "health").Logger(),
	}
}

// Check handles GET /health requests.
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "healthy", Store: h.mode, Durable: h.durable}
	if !h.durable {
		resp.Warning = "orders are kept in memory and lost on restart"
	}

	if h.ping != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.ping(ctx); err != nil {
			h.logger.Error().Err(err).Msg("store ping failed")
			resp.Status = "unhealthy"
			writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
	}

	writeJSON(w, http.StatusOK, resp)
}
