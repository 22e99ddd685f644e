package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/rushvote/internal/core/domain"
)

type DecisionRepository interface {
	UpsertDecision(ctx context.Context, decision *domain.DeliberationDecision) error
	Tally(ctx context.Context, roundID, pnmID uuid.UUID) (domain.Tally, error)
	// ListDecisions returns voter-level rows. Only the administrative
	// decision listing may call it.
	ListDecisions(ctx context.Context, roundID, pnmID uuid.UUID) ([]domain.DeliberationDecision, error)
}

type RoundControlInput struct {
	RoundID         uuid.UUID
	VotingOpen      *bool
	ResultsRevealed *bool
	CurrentPnmID    *uuid.UUID
	SealedPnmIDs    *[]uuid.UUID
	SealedResults   *map[uuid.UUID]domain.SealedResult
	IsAdmin         bool
}

type SealInput struct {
	RoundID uuid.UUID
	PnmID   uuid.UUID
	IsAdmin bool
}

type DecisionInput struct {
	VoterID  uuid.UUID
	RoundID  uuid.UUID
	PnmID    uuid.UUID
	Decision bool
}

// CandidateResult is what a caller may see of one candidate's deliberation.
type CandidateResult struct {
	RoundID uuid.UUID            `json:"round_id"`
	PnmID   uuid.UUID            `json:"pnm_id"`
	Sealed  bool                 `json:"sealed"`
	Visible bool                 `json:"visible"`
	Tally   *domain.Tally        `json:"tally,omitempty"`
	Seal    *domain.SealedResult `json:"seal,omitempty"`
}

type DeliberationService interface {
	UpdateControl(ctx context.Context, input RoundControlInput) (*domain.Round, error)
	SetActiveCandidate(ctx context.Context, roundID, pnmID uuid.UUID, isAdmin bool) (*domain.Round, error)
	SetVotingOpen(ctx context.Context, roundID uuid.UUID, open, isAdmin bool) (*domain.Round, error)
	SetResultsRevealed(ctx context.Context, roundID uuid.UUID, revealed, isAdmin bool) (*domain.Round, error)
	Tally(ctx context.Context, roundID, pnmID uuid.UUID) (domain.Tally, error)
	Seal(ctx context.Context, input SealInput) (*domain.Round, error)
	Unseal(ctx context.Context, input SealInput) (*domain.Round, error)
	SubmitDecision(ctx context.Context, input DecisionInput) (*domain.DeliberationDecision, error)
	Result(ctx context.Context, roundID, pnmID uuid.UUID, isAdmin bool) (*CandidateResult, error)
	ListDecisions(ctx context.Context, roundID, pnmID uuid.UUID, isAdmin bool) ([]domain.DeliberationDecision, error)
}
