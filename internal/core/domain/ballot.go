package domain

import (
	"time"

	"github.com/google/uuid"
)

const (
	MinScore = 1
	MaxScore = 5
)

type Vote struct {
	VoterID   uuid.UUID `json:"voter_id"`
	PnmID     uuid.UUID `json:"pnm_id"`
	RoundID   uuid.UUID `json:"round_id"`
	Score     int       `json:"score"`
	CreatedAt time.Time `json:"created_at"`
}

func ValidScore(score int) bool {
	return score >= MinScore && score <= MaxScore
}

type Interaction struct {
	VoterID    uuid.UUID `json:"voter_id"`
	PnmID      uuid.UUID `json:"pnm_id"`
	RoundID    uuid.UUID `json:"round_id"`
	Interacted bool      `json:"interacted"`
	CreatedAt  time.Time `json:"created_at"`
}

// DeliberationDecision is one voter's yes/no. It must only leave the service
// layer through the administrative decision listing.
type DeliberationDecision struct {
	VoterID   uuid.UUID `json:"voter_id"`
	PnmID     uuid.UUID `json:"pnm_id"`
	RoundID   uuid.UUID `json:"round_id"`
	Decision  bool      `json:"decision"`
	CreatedAt time.Time `json:"created_at"`
}

// InteractionCount is the per-round interaction breakdown for one candidate.
type InteractionCount struct {
	RoundID       uuid.UUID
	Interacted    int
	NotInteracted int
}
