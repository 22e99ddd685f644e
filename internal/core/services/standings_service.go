package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/vncsmyrnk/rushvote/internal/core/domain"
	"github.com/vncsmyrnk/rushvote/internal/core/ports"
	"golang.org/x/sync/errgroup"
)

const standingsWorkers = 8

type standingsService struct {
	candidates ports.CandidateRepository
	stats      ports.StatsService
}

func NewStandingsService(candidates ports.CandidateRepository, stats ports.StatsService) ports.StandingsService {
	return &standingsService{
		candidates: candidates,
		stats:      stats,
	}
}

// Standings ranks every candidate by Bayesian score, then vote count.
func (s *standingsService) Standings(ctx context.Context) ([]domain.Standing, error) {
	ids, err := s.candidates.ListIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch pnms: %w", err)
	}

	standings := make([]domain.Standing, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(standingsWorkers)
	for i, id := range ids {
		g.Go(func() error {
			st, err := s.stats.ComputeVoteStats(gctx, id)
			if err != nil {
				return fmt.Errorf("failed to compute stats for pnm %s: %w", id, err)
			}
			standings[i] = domain.Standing{PnmID: id, ScoreStats: st.ScoreStats}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(standings, func(i, j int) bool {
		a, b := standings[i], standings[j]
		if a.Bayesian != b.Bayesian {
			return a.Bayesian > b.Bayesian
		}
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.PnmID.String() < b.PnmID.String()
	})
	for i := range standings {
		standings[i].Rank = i + 1
	}
	return standings, nil
}
