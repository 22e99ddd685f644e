package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Handlers struct {
	Rounds       *RoundHandler
	Deliberation *DeliberationHandler
	Votes        *VoteHandler
	Stats        *StatsHandler
	Events       *EventsHandler
}

func NewHandler(h Handlers, auth *Authenticator) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("welcome"))
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware)

			r.Route("/rounds", func(r chi.Router) {
				r.Get("/", h.Rounds.ListRounds)
				r.Post("/", h.Rounds.CreateRound)
				r.Get("/current", h.Rounds.CurrentRound)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", h.Rounds.GetRound)
					r.Delete("/", h.Rounds.DeleteRound)
					r.Post("/open", h.Rounds.OpenRound)
					r.Post("/close", h.Rounds.CloseRound)
					r.Post("/reopen", h.Rounds.ReopenRound)

					r.Route("/pnms/{pnmId}", func(r chi.Router) {
						r.Get("/result", h.Deliberation.Result)
						r.Get("/tally", h.Deliberation.Tally)
						r.Get("/decisions", h.Deliberation.Decisions)
						r.Post("/seal", h.Deliberation.Seal)
						r.Delete("/seal", h.Deliberation.Unseal)
						r.Post("/decision", h.Deliberation.SubmitDecision)
					})
				})
			})

			r.Patch("/round-control", h.Deliberation.UpdateControl)

			r.Post("/votes", h.Votes.SubmitVote)
			r.Post("/interactions", h.Votes.SubmitInteraction)

			r.Get("/pnms/{id}/stats", h.Stats.VoteStats)
			r.Get("/pnms/{id}/interaction-stats", h.Stats.InteractionStats)
			r.Get("/standings", h.Stats.Standings)

			r.Get("/events", h.Events.Stream)
		})
	})

	return r
}
