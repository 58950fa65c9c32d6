package handlers

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/drborges/apollo-react-spike/internal/http/respond"
)

// HealthHandler returns uptime and basic status.
type HealthHandler struct {
	startedAt time.Time
	sessions  func() int
}

// NewHealthHandler creates a health endpoint handler. sessions reports the live session count.
func NewHealthHandler(startedAt time.Time, sessions func() int) *HealthHandler {
	return &HealthHandler{startedAt: startedAt, sessions: sessions}
}

// Register wires the handler into a router.
func (h *HealthHandler) Register(r *mux.Router) {
	r.HandleFunc("/health", h.handle).Methods(http.MethodGet)
}

func (h *HealthHandler) handle(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, "ok", map[string]any{
		"status":   "ok",
		"uptime":   time.Since(h.startedAt).Truncate(time.Second).String(),
		"sessions": h.sessions(),
	})
}
