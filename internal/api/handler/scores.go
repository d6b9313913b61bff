package handler

import (
	"net/http"

	"github.com/openkermesse/stallpoints/internal/api/response"
	"github.com/openkermesse/stallpoints/internal/api/sse"
	"github.com/openkermesse/stallpoints/internal/services/leaderboard"
)

// ScoresHandler serves the live leaderboard: a point-in-time snapshot, a
// manual refresh trigger, and the SSE stream the big screen hangs off.
type ScoresHandler struct {
	session *leaderboard.Session
	hub     *sse.Hub
}

// NewScoresHandler creates a new scores handler
func NewScoresHandler(session *leaderboard.Session, hub *sse.Hub) *ScoresHandler {
	return &ScoresHandler{session: session, hub: hub}
}

// Get handles GET /api/v1/scores
func (h *ScoresHandler) Get(w http.ResponseWriter, r *http.Request) {
	board := response.ScoreboardFromUpdate(h.session.State(), h.session.Current())
	response.JSON(w, http.StatusOK, board)
}

// Refresh handles POST /api/v1/scores/refresh
func (h *ScoresHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	h.session.Refresh()
	response.NoContent(w)
}

// Stream handles GET /api/v1/scores/stream. The current scoreboard is sent
// as the first event so late-attaching viewers render immediately.
func (h *ScoresHandler) Stream(w http.ResponseWriter, r *http.Request) {
	initial, err := sse.EncodeScoresEvent(h.session.State(), h.session.Current())
	if err != nil {
		WriteError(w, err)
		return
	}
	sse.ServeSSE(w, r, h.hub, initial)
}
