package http

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/rushvote/internal/core/domain"
	"github.com/vncsmyrnk/rushvote/internal/core/ports"
)

type DeliberationHandler struct {
	service ports.DeliberationService
}

func NewDeliberationHandler(service ports.DeliberationService) *DeliberationHandler {
	return &DeliberationHandler{
		service: service,
	}
}

type roundControlRequest struct {
	RoundID         uuid.UUID                          `json:"roundId"`
	VotingOpen      *bool                              `json:"votingOpen"`
	ResultsRevealed *bool                              `json:"resultsRevealed"`
	CurrentPnmID    *uuid.UUID                         `json:"currentPnmId"`
	SealedPnmIDs    *[]uuid.UUID                       `json:"sealedPnmIds"`
	SealedResults   *map[uuid.UUID]domain.SealedResult `json:"sealedResults"`
}

// UpdateControl applies a partial update of the live deliberation state.
func (h *DeliberationHandler) UpdateControl(w http.ResponseWriter, r *http.Request) {
	var req roundControlRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.RoundID == uuid.Nil {
		writeError(w, r, domain.ErrInvalidID)
		return
	}

	round, err := h.service.UpdateControl(r.Context(), ports.RoundControlInput{
		RoundID:         req.RoundID,
		VotingOpen:      req.VotingOpen,
		ResultsRevealed: req.ResultsRevealed,
		CurrentPnmID:    req.CurrentPnmID,
		SealedPnmIDs:    req.SealedPnmIDs,
		SealedResults:   req.SealedResults,
		IsAdmin:         isAdmin(r),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, round)
}

func (h *DeliberationHandler) Result(w http.ResponseWriter, r *http.Request) {
	roundID, pnmID, ok := candidateParams(w, r)
	if !ok {
		return
	}
	result, err := h.service.Result(r.Context(), roundID, pnmID, isAdmin(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *DeliberationHandler) Tally(w http.ResponseWriter, r *http.Request) {
	if !isAdmin(r) {
		writeError(w, r, domain.ErrForbidden)
		return
	}
	roundID, pnmID, ok := candidateParams(w, r)
	if !ok {
		return
	}
	tally, err := h.service.Tally(r.Context(), roundID, pnmID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tally)
}

func (h *DeliberationHandler) Decisions(w http.ResponseWriter, r *http.Request) {
	roundID, pnmID, ok := candidateParams(w, r)
	if !ok {
		return
	}
	decisions, err := h.service.ListDecisions(r.Context(), roundID, pnmID, isAdmin(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, decisions)
}

func (h *DeliberationHandler) Seal(w http.ResponseWriter, r *http.Request) {
	h.seal(w, r, h.service.Seal)
}

func (h *DeliberationHandler) Unseal(w http.ResponseWriter, r *http.Request) {
	h.seal(w, r, h.service.Unseal)
}

func (h *DeliberationHandler) seal(w http.ResponseWriter, r *http.Request, apply func(context.Context, ports.SealInput) (*domain.Round, error)) {
	roundID, pnmID, ok := candidateParams(w, r)
	if !ok {
		return
	}
	round, err := apply(r.Context(), ports.SealInput{RoundID: roundID, PnmID: pnmID, IsAdmin: isAdmin(r)})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, round)
}

type decisionRequest struct {
	Decision bool `json:"decision"`
}

func (h *DeliberationHandler) SubmitDecision(w http.ResponseWriter, r *http.Request) {
	roundID, pnmID, ok := candidateParams(w, r)
	if !ok {
		return
	}
	var req decisionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	_, err := h.service.SubmitDecision(r.Context(), ports.DecisionInput{
		VoterID:  userID(r),
		RoundID:  roundID,
		PnmID:    pnmID,
		Decision: req.Decision,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	// Decisions are secret ballots; nothing is echoed back.
	w.WriteHeader(http.StatusNoContent)
}

func candidateParams(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	roundID, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return uuid.Nil, uuid.Nil, false
	}
	pnmID, err := urlID(r, "pnmId")
	if err != nil {
		writeError(w, r, err)
		return uuid.Nil, uuid.Nil, false
	}
	return roundID, pnmID, true
}
