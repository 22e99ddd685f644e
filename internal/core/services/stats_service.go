package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/vncsmyrnk/rushvote/internal/core/domain"
	"github.com/vncsmyrnk/rushvote/internal/core/ports"
	"golang.org/x/sync/errgroup"
)

type statsService struct {
	rounds       ports.RoundRepository
	votes        ports.VoteRepository
	interactions ports.InteractionRepository
	priorWeight  float64
}

func NewStatsService(rounds ports.RoundRepository, votes ports.VoteRepository, interactions ports.InteractionRepository, priorWeight float64) ports.StatsService {
	return &statsService{
		rounds:       rounds,
		votes:        votes,
		interactions: interactions,
		priorWeight:  priorWeight,
	}
}

func (s *statsService) ComputeVoteStats(ctx context.Context, pnmID uuid.UUID) (*domain.VoteStats, error) {
	var (
		rounds  []*domain.Round
		votes   []domain.Vote
		summary domain.ScoreSummary
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		rounds, err = s.rounds.ListByArchetype(gctx, domain.ArchetypeScored)
		return err
	})
	g.Go(func() (err error) {
		votes, err = s.votes.ListByCandidate(gctx, pnmID)
		return err
	})
	g.Go(func() (err error) {
		summary, err = s.votes.ScoreSummary(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load vote stats inputs: %w", err)
	}

	globalMean := summary.Mean
	if summary.Count == 0 {
		globalMean = DefaultGlobalMean
	}

	byRound := make(map[uuid.UUID][]int, len(rounds))
	for _, r := range rounds {
		byRound[r.ID] = nil
	}
	var all []int
	for _, v := range votes {
		if _, ok := byRound[v.RoundID]; !ok {
			continue
		}
		byRound[v.RoundID] = append(byRound[v.RoundID], v.Score)
		all = append(all, v.Score)
	}

	stats := &domain.VoteStats{
		PnmID:      pnmID,
		ScoreStats: scoreStats(all, s.priorWeight, globalMean),
		RoundStats: make(map[string]domain.RoundScoreStats, len(rounds)),
	}
	for _, r := range rounds {
		stats.RoundStats[roundKey(stats.RoundStats, r)] = domain.RoundScoreStats{
			RoundID:    r.ID,
			ScoreStats: scoreStats(byRound[r.ID], s.priorWeight, globalMean),
		}
	}
	return stats, nil
}

func (s *statsService) ComputeInteractionStats(ctx context.Context, pnmID uuid.UUID) (*domain.InteractionStats, error) {
	var (
		rounds []*domain.Round
		counts []domain.InteractionCount
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		rounds, err = s.rounds.ListByArchetype(gctx, domain.ArchetypeInteraction)
		return err
	})
	g.Go(func() (err error) {
		counts, err = s.interactions.CountByCandidate(gctx, pnmID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to load interaction stats inputs: %w", err)
	}

	byRound := make(map[uuid.UUID]domain.InteractionCount, len(counts))
	for _, c := range counts {
		byRound[c.RoundID] = c
	}

	stats := &domain.InteractionStats{
		PnmID:      pnmID,
		RoundStats: make(map[string]domain.RoundInteractionStats, len(rounds)),
	}
	for _, r := range rounds {
		c := byRound[r.ID]
		stats.RoundStats[roundKey(stats.RoundStats, r)] = domain.RoundInteractionStats{
			RoundID:       r.ID,
			Percent:       InteractionPercent(c.Interacted, c.NotInteracted),
			Interacted:    c.Interacted,
			NotInteracted: c.NotInteracted,
		}
	}
	return stats, nil
}

// roundKey keys stats by round name, disambiguating duplicate names.
func roundKey[V any](m map[string]V, r *domain.Round) string {
	if _, taken := m[r.Name]; !taken {
		return r.Name
	}
	return fmt.Sprintf("%s (%s)", r.Name, r.ID.String()[:8])
}
