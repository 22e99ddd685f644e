package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/rushvote/internal/cache"
	"github.com/vncsmyrnk/rushvote/internal/core/domain"
	"github.com/vncsmyrnk/rushvote/internal/core/ports"
	"github.com/vncsmyrnk/rushvote/internal/logging"
)

const roundListKey = "rounds"

type roundService struct {
	repo   ports.RoundRepository
	bus    ports.Publisher
	cache  *cache.TTL[string, []*domain.Round]
	now    func() time.Time
	logger *slog.Logger
}

func NewRoundService(repo ports.RoundRepository, bus ports.Publisher, cacheTTL time.Duration) ports.RoundService {
	return &roundService{
		repo:   repo,
		bus:    bus,
		cache:  cache.New[string, []*domain.Round](cacheTTL),
		now:    time.Now,
		logger: logging.New("rounds"),
	}
}

func (s *roundService) Create(ctx context.Context, input ports.CreateRoundInput) (*domain.Round, error) {
	if !input.IsAdmin {
		return nil, domain.ErrForbidden
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, domain.ErrNameRequired
	}
	archetype, err := domain.ParseArchetype(input.Archetype)
	if err != nil {
		return nil, err
	}

	if input.Open && !input.Confirm {
		if err := s.requireNoOtherOpen(ctx, uuid.Nil); err != nil {
			return nil, err
		}
	}

	round := &domain.Round{
		ID:        uuid.New(),
		Name:      name,
		Archetype: archetype,
		Status:    domain.RoundPending,
		CreatedAt: s.now(),
	}
	if archetype.IsDeliberation() {
		round.Deliberation = domain.NewDeliberationState()
	}

	if err := s.repo.Create(ctx, round); err != nil {
		return nil, err
	}

	var closedID *uuid.UUID
	if input.Open {
		closedID, err = s.repo.Open(ctx, round.ID, s.now())
		if err != nil {
			// A failed create-and-open leaves no pending round behind.
			if delErr := s.repo.Delete(context.WithoutCancel(ctx), round.ID); delErr != nil {
				s.logger.Error("failed to remove round after open failed", "round_id", round.ID, "error", delErr)
			}
			s.cache.InvalidateAll()
			return nil, err
		}
	}

	s.cache.InvalidateAll()
	s.logger.Info("round created", "round_id", round.ID, "name", round.Name, "archetype", round.Archetype)
	publish(ctx, s.bus, s.logger, domain.TableTopic(domain.EntityRounds),
		domain.TableChanged(domain.EntityRounds, round.ID.String(), domain.OperationInsert, round.ID, s.now()))

	if !input.Open {
		return round, nil
	}
	s.opened(ctx, round.ID, closedID)
	return s.repo.GetByID(ctx, round.ID)
}

func (s *roundService) Get(ctx context.Context, id uuid.UUID) (*domain.Round, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *roundService) List(ctx context.Context) ([]*domain.Round, error) {
	return s.cache.GetOrLoad(ctx, roundListKey, s.repo.List)
}

func (s *roundService) Current(ctx context.Context) (*domain.Round, error) {
	round, err := s.repo.GetOpen(ctx)
	if err != nil {
		return nil, err
	}
	if round == nil {
		return nil, domain.ErrRoundNotFound
	}
	return round, nil
}

func (s *roundService) Open(ctx context.Context, input ports.TransitionInput) (*domain.Round, error) {
	return s.transitionToOpen(ctx, input, false)
}

func (s *roundService) Reopen(ctx context.Context, input ports.TransitionInput) (*domain.Round, error) {
	return s.transitionToOpen(ctx, input, true)
}

func (s *roundService) transitionToOpen(ctx context.Context, input ports.TransitionInput, fromClosedOnly bool) (*domain.Round, error) {
	if !input.IsAdmin {
		return nil, domain.ErrForbidden
	}

	round, err := s.repo.GetByID(ctx, input.RoundID)
	if err != nil {
		return nil, err
	}
	if fromClosedOnly && round.Status != domain.RoundClosed {
		return nil, fmt.Errorf("%w: cannot reopen a %s round", domain.ErrInvalidTransition, round.Status)
	}
	if round.IsOpen() {
		return round, nil
	}

	if !input.Confirm {
		if err := s.requireNoOtherOpen(ctx, round.ID); err != nil {
			return nil, err
		}
	}

	return s.open(ctx, round.ID)
}

func (s *roundService) open(ctx context.Context, id uuid.UUID) (*domain.Round, error) {
	closedID, err := s.repo.Open(ctx, id, s.now())
	if err != nil {
		return nil, err
	}
	s.opened(ctx, id, closedID)
	return s.repo.GetByID(ctx, id)
}

func (s *roundService) opened(ctx context.Context, id uuid.UUID, closedID *uuid.UUID) {
	s.cache.InvalidateAll()
	if closedID != nil {
		s.logger.Info("round opened", "round_id", id, "closed_round_id", *closedID)
	} else {
		s.logger.Info("round opened", "round_id", id)
	}
	publish(ctx, s.bus, s.logger, domain.TopicRounds, domain.RoundStatusChanged(id, s.now()))
}

// requireNoOtherOpen reports ErrConfirmationRequired when a round other than
// except is open. The read is advisory; Open itself is atomic.
func (s *roundService) requireNoOtherOpen(ctx context.Context, except uuid.UUID) error {
	current, err := s.repo.GetOpen(ctx)
	if err != nil {
		return err
	}
	if current != nil && current.ID != except {
		return fmt.Errorf("%w: %q will be closed", domain.ErrConfirmationRequired, current.Name)
	}
	return nil
}

func (s *roundService) Close(ctx context.Context, input ports.TransitionInput) (*domain.Round, error) {
	if !input.IsAdmin {
		return nil, domain.ErrForbidden
	}

	if err := s.repo.Close(ctx, input.RoundID, s.now()); err != nil {
		return nil, err
	}
	s.cache.InvalidateAll()
	s.logger.Info("round closed", "round_id", input.RoundID)
	publish(ctx, s.bus, s.logger, domain.TopicRounds, domain.RoundStatusChanged(input.RoundID, s.now()))

	return s.repo.GetByID(ctx, input.RoundID)
}

func (s *roundService) Delete(ctx context.Context, input ports.TransitionInput) error {
	if !input.IsAdmin {
		return domain.ErrForbidden
	}

	if err := s.repo.Delete(ctx, input.RoundID); err != nil {
		return err
	}
	s.cache.InvalidateAll()
	s.logger.Info("round deleted", "round_id", input.RoundID)
	publish(ctx, s.bus, s.logger, domain.TopicRounds, domain.RoundStatusChanged(input.RoundID, s.now()))

	return nil
}

func (s *roundService) InvalidateCache() {
	s.cache.InvalidateAll()
}
