package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/rushvote/internal/core/domain"
)

type VoteRepository interface {
	UpsertVote(ctx context.Context, vote *domain.Vote) error
	ListByCandidate(ctx context.Context, pnmID uuid.UUID) ([]domain.Vote, error)
	ScoreSummary(ctx context.Context) (domain.ScoreSummary, error)
}

type InteractionRepository interface {
	UpsertInteraction(ctx context.Context, interaction *domain.Interaction) error
	CountByCandidate(ctx context.Context, pnmID uuid.UUID) ([]domain.InteractionCount, error)
}

type CandidateRepository interface {
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
}

type VoteInput struct {
	VoterID uuid.UUID
	PnmID   uuid.UUID
	RoundID uuid.UUID
	Score   int
}

type InteractionInput struct {
	VoterID    uuid.UUID
	PnmID      uuid.UUID
	RoundID    uuid.UUID
	Interacted bool
}

type VoteService interface {
	SubmitVote(ctx context.Context, input VoteInput) (*domain.Vote, error)
	SubmitInteraction(ctx context.Context, input InteractionInput) (*domain.Interaction, error)
}
