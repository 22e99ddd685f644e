package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/rushvote/internal/core/domain"
	"github.com/vncsmyrnk/rushvote/internal/core/ports"
	"github.com/vncsmyrnk/rushvote/internal/logging"
)

type voteService struct {
	rounds       ports.RoundRepository
	votes        ports.VoteRepository
	interactions ports.InteractionRepository
	bus          ports.Publisher
	now          func() time.Time
	logger       *slog.Logger
}

func NewVoteService(rounds ports.RoundRepository, votes ports.VoteRepository, interactions ports.InteractionRepository, bus ports.Publisher) ports.VoteService {
	return &voteService{
		rounds:       rounds,
		votes:        votes,
		interactions: interactions,
		bus:          bus,
		now:          time.Now,
		logger:       logging.New("votes"),
	}
}

func (s *voteService) SubmitVote(ctx context.Context, input ports.VoteInput) (*domain.Vote, error) {
	if !domain.ValidScore(input.Score) {
		return nil, domain.ErrInvalidScore
	}
	if err := requireIDs(input.VoterID, input.PnmID, input.RoundID); err != nil {
		return nil, err
	}

	if _, err := s.openRound(ctx, input.RoundID, domain.ArchetypeScored); err != nil {
		return nil, err
	}

	vote := &domain.Vote{
		VoterID:   input.VoterID,
		PnmID:     input.PnmID,
		RoundID:   input.RoundID,
		Score:     input.Score,
		CreatedAt: s.now(),
	}
	if err := s.votes.UpsertVote(ctx, vote); err != nil {
		return nil, err
	}

	s.logger.Debug("vote recorded", "round_id", vote.RoundID, "pnm_id", vote.PnmID)
	publish(ctx, s.bus, s.logger, domain.TableTopic(domain.EntityVotes),
		domain.TableChanged(domain.EntityVotes, vote.PnmID.String(), domain.OperationUpdate, vote.RoundID, s.now()))
	return vote, nil
}

func (s *voteService) SubmitInteraction(ctx context.Context, input ports.InteractionInput) (*domain.Interaction, error) {
	if err := requireIDs(input.VoterID, input.PnmID, input.RoundID); err != nil {
		return nil, err
	}

	if _, err := s.openRound(ctx, input.RoundID, domain.ArchetypeInteraction); err != nil {
		return nil, err
	}

	interaction := &domain.Interaction{
		VoterID:    input.VoterID,
		PnmID:      input.PnmID,
		RoundID:    input.RoundID,
		Interacted: input.Interacted,
		CreatedAt:  s.now(),
	}
	if err := s.interactions.UpsertInteraction(ctx, interaction); err != nil {
		return nil, err
	}

	s.logger.Debug("interaction recorded", "round_id", interaction.RoundID, "pnm_id", interaction.PnmID)
	publish(ctx, s.bus, s.logger, domain.TableTopic(domain.EntityInteractions),
		domain.TableChanged(domain.EntityInteractions, interaction.PnmID.String(), domain.OperationUpdate, interaction.RoundID, s.now()))
	return interaction, nil
}

func (s *voteService) openRound(ctx context.Context, id uuid.UUID, archetype domain.Archetype) (*domain.Round, error) {
	round, err := s.rounds.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if round.Archetype != archetype {
		return nil, domain.ErrWrongArchetype
	}
	if !round.IsOpen() {
		return nil, domain.ErrRoundNotOpen
	}
	return round, nil
}

func requireIDs(ids ...uuid.UUID) error {
	for _, id := range ids {
		if id == uuid.Nil {
			return domain.ErrInvalidID
		}
	}
	return nil
}
