package api

import (
	"net/http"

	"github.com/okian/gincana/pkg/logger"
)

// LeaderboardHandler serves the ranking and the category goals.
type LeaderboardHandler struct {
	deps   Dependencies
	logger logger.Logger
}

// NewLeaderboardHandler creates a new leaderboard handler.
func NewLeaderboardHandler(deps Dependencies, log logger.Logger) *LeaderboardHandler {
	return &LeaderboardHandler{deps: deps, logger: log}
}

// HandleGetLeaderboard handles GET /leaderboard?group=G&sprint=S requests.
func (h *LeaderboardHandler) HandleGetLeaderboard(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_leaderboard"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	lb, err := h.deps.Leaderboard(r.Context(), selectionFrom(r))
	if err != nil {
		fail(r.Context(), w, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, lb)
}

// HandleGetGoals handles GET /goals requests.
func (h *LeaderboardHandler) HandleGetGoals(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_goals"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	g, err := h.deps.Goals(r.Context(), selectionFrom(r))
	if err != nil {
		fail(r.Context(), w, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, g)
}
