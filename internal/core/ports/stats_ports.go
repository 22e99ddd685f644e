package ports

import (
	"context"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/rushvote/internal/core/domain"
)

type StatsService interface {
	ComputeVoteStats(ctx context.Context, pnmID uuid.UUID) (*domain.VoteStats, error)
	ComputeInteractionStats(ctx context.Context, pnmID uuid.UUID) (*domain.InteractionStats, error)
}

type StandingsService interface {
	Standings(ctx context.Context) ([]domain.Standing, error)
}
