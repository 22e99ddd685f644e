package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/rushvote/internal/core/domain"
)

type RoundRepository interface {
	Create(ctx context.Context, round *domain.Round) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Round, error)
	List(ctx context.Context) ([]*domain.Round, error)
	ListByArchetype(ctx context.Context, archetype domain.Archetype) ([]*domain.Round, error)
	GetOpen(ctx context.Context) (*domain.Round, error)

	// Open closes any other open round and opens id as one serialized
	// operation. It returns the id of the round it closed, if any.
	Open(ctx context.Context, id uuid.UUID, at time.Time) (*uuid.UUID, error)
	// Close moves an open round to closed. A round in any other status
	// yields domain.ErrInvalidTransition.
	Close(ctx context.Context, id uuid.UUID, at time.Time) error
	Delete(ctx context.Context, id uuid.UUID) error

	UpdateControl(ctx context.Context, id uuid.UUID, control domain.RoundControl) (*domain.Round, error)
	Seal(ctx context.Context, roundID, pnmID uuid.UUID, result domain.SealedResult) (*domain.Round, error)
	Unseal(ctx context.Context, roundID, pnmID uuid.UUID) (*domain.Round, error)
}

type CreateRoundInput struct {
	Name      string
	Archetype string
	Open      bool
	Confirm   bool
	IsAdmin   bool
}

type TransitionInput struct {
	RoundID uuid.UUID
	Confirm bool
	IsAdmin bool
}

type RoundService interface {
	Create(ctx context.Context, input CreateRoundInput) (*domain.Round, error)
	Get(ctx context.Context, id uuid.UUID) (*domain.Round, error)
	List(ctx context.Context) ([]*domain.Round, error)
	Current(ctx context.Context) (*domain.Round, error)
	Open(ctx context.Context, input TransitionInput) (*domain.Round, error)
	Reopen(ctx context.Context, input TransitionInput) (*domain.Round, error)
	Close(ctx context.Context, input TransitionInput) (*domain.Round, error)
	Delete(ctx context.Context, input TransitionInput) error
	// InvalidateCache drops cached round listings after an external change.
	InvalidateCache()
}
