package http

import (
	"context"
	"net/http"

	"github.com/vncsmyrnk/rushvote/internal/core/domain"
	"github.com/vncsmyrnk/rushvote/internal/core/ports"
)

type RoundHandler struct {
	service ports.RoundService
}

func NewRoundHandler(service ports.RoundService) *RoundHandler {
	return &RoundHandler{
		service: service,
	}
}

type createRoundRequest struct {
	Name      string `json:"name"`
	Archetype string `json:"archetype"`
	Open      bool   `json:"open"`
	Confirm   bool   `json:"confirm"`
}

func (h *RoundHandler) CreateRound(w http.ResponseWriter, r *http.Request) {
	var req createRoundRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	round, err := h.service.Create(r.Context(), ports.CreateRoundInput{
		Name:      req.Name,
		Archetype: req.Archetype,
		Open:      req.Open,
		Confirm:   req.Confirm || confirmed(r),
		IsAdmin:   isAdmin(r),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, round)
}

func (h *RoundHandler) ListRounds(w http.ResponseWriter, r *http.Request) {
	rounds, err := h.service.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rounds)
}

func (h *RoundHandler) CurrentRound(w http.ResponseWriter, r *http.Request) {
	round, err := h.service.Current(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, round)
}

func (h *RoundHandler) GetRound(w http.ResponseWriter, r *http.Request) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}

	round, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, round)
}

func (h *RoundHandler) DeleteRound(w http.ResponseWriter, r *http.Request) {
	input, ok := h.transitionInput(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), input); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *RoundHandler) OpenRound(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Open)
}

func (h *RoundHandler) ReopenRound(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Reopen)
}

func (h *RoundHandler) CloseRound(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Close)
}

func (h *RoundHandler) transition(w http.ResponseWriter, r *http.Request, apply func(context.Context, ports.TransitionInput) (*domain.Round, error)) {
	input, ok := h.transitionInput(w, r)
	if !ok {
		return
	}
	round, err := apply(r.Context(), input)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, round)
}

func (h *RoundHandler) transitionInput(w http.ResponseWriter, r *http.Request) (ports.TransitionInput, bool) {
	id, err := urlID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return ports.TransitionInput{}, false
	}
	return ports.TransitionInput{
		RoundID: id,
		Confirm: confirmed(r),
		IsAdmin: isAdmin(r),
	}, true
}
