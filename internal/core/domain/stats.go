package domain

import "github.com/google/uuid"

type ScoreStats struct {
	Average  float64 `json:"average"`
	Bayesian float64 `json:"bayesian"`
	Count    int     `json:"count"`
}

type RoundScoreStats struct {
	RoundID uuid.UUID `json:"round_id"`
	ScoreStats
}

type VoteStats struct {
	PnmID uuid.UUID `json:"pnm_id"`
	ScoreStats
	RoundStats map[string]RoundScoreStats `json:"round_stats"`
}

type RoundInteractionStats struct {
	RoundID       uuid.UUID `json:"round_id"`
	Percent       float64   `json:"percent"`
	Interacted    int       `json:"interacted"`
	NotInteracted int       `json:"not_interacted"`
}

type InteractionStats struct {
	PnmID      uuid.UUID                        `json:"pnm_id"`
	RoundStats map[string]RoundInteractionStats `json:"round_stats"`
}

type Standing struct {
	Rank  int       `json:"rank"`
	PnmID uuid.UUID `json:"pnm_id"`
	ScoreStats
}

// ScoreSummary is the population-level mean used as the Bayesian prior.
type ScoreSummary struct {
	Mean  float64
	Count int
}
