package http

import (
	"net/http"

	"github.com/vncsmyrnk/rushvote/internal/core/ports"
)

type StatsHandler struct {
	stats     ports.StatsService
	standings ports.StandingsService
}

func NewStatsHandler(stats ports.StatsService, standings ports.StandingsService) *StatsHandler {
	return &StatsHandler{
		stats:     stats,
		standings: standings,
	}
}

func (h *StatsHandler) VoteStats(w http.ResponseWriter, r *http.Request) {
	pnmID, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	stats, err := h.stats.ComputeVoteStats(r.Context(), pnmID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *StatsHandler) InteractionStats(w http.ResponseWriter, r *http.Request) {
	pnmID, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	stats, err := h.stats.ComputeInteractionStats(r.Context(), pnmID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *StatsHandler) Standings(w http.ResponseWriter, r *http.Request) {
	standings, err := h.standings.Standings(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, standings)
}
