package http

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/rushvote/internal/core/ports"
)

type VoteHandler struct {
	service ports.VoteService
}

func NewVoteHandler(service ports.VoteService) *VoteHandler {
	return &VoteHandler{
		service: service,
	}
}

type voteRequest struct {
	PnmID   uuid.UUID `json:"pnmId"`
	RoundID uuid.UUID `json:"roundId"`
	Score   int       `json:"score"`
}

func (h *VoteHandler) SubmitVote(w http.ResponseWriter, r *http.Request) {
	var req voteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	vote, err := h.service.SubmitVote(r.Context(), ports.VoteInput{
		VoterID: userID(r),
		PnmID:   req.PnmID,
		RoundID: req.RoundID,
		Score:   req.Score,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, vote)
}

type interactionRequest struct {
	PnmID      uuid.UUID `json:"pnmId"`
	RoundID    uuid.UUID `json:"roundId"`
	Interacted bool      `json:"interacted"`
}

func (h *VoteHandler) SubmitInteraction(w http.ResponseWriter, r *http.Request) {
	var req interactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	interaction, err := h.service.SubmitInteraction(r.Context(), ports.InteractionInput{
		VoterID:    userID(r),
		PnmID:      req.PnmID,
		RoundID:    req.RoundID,
		Interacted: req.Interacted,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, interaction)
}
