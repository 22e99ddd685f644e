// Package app wires configuration to repositories, the notification bus and
// services. Both the HTTP server and roundctl start from here.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	_ "github.com/lib/pq"
	notifymemory "github.com/vncsmyrnk/rushvote/internal/adapters/notify/memory"
	notifypostgres "github.com/vncsmyrnk/rushvote/internal/adapters/notify/postgres"
	"github.com/vncsmyrnk/rushvote/internal/adapters/repository/memory"
	"github.com/vncsmyrnk/rushvote/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/rushvote/internal/config"
	"github.com/vncsmyrnk/rushvote/internal/core/domain"
	"github.com/vncsmyrnk/rushvote/internal/core/ports"
	"github.com/vncsmyrnk/rushvote/internal/core/services"
	"github.com/vncsmyrnk/rushvote/internal/logging"
)

type App struct {
	Rounds       ports.RoundService
	Votes        ports.VoteService
	Stats        ports.StatsService
	Deliberation ports.DeliberationService
	Standings    ports.StandingsService
	Bus          ports.EventBus

	db     *sql.DB
	logger *slog.Logger
}

type repositories struct {
	rounds       ports.RoundRepository
	votes        ports.VoteRepository
	interactions ports.InteractionRepository
	decisions    ports.DecisionRepository
	candidates   ports.CandidateRepository
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	a := &App{logger: logging.New("app")}

	var repos repositories
	switch cfg.Store {
	case config.StoreMemory:
		store := memory.NewStore()
		store.AddCandidates(cfg.SeedPnms...)
		repos = repositories{store, store, store, store, store}
		a.Bus = notifymemory.NewBus()
		a.logger.Warn("using in-memory store; data is lost on exit", "seeded_pnms", len(cfg.SeedPnms))

	case config.StorePostgres:
		db, err := sql.Open("postgres", cfg.DBConnString())
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to reach database: %w", err)
		}
		a.db = db
		repos = repositories{
			rounds:       postgres.NewRoundRepository(db),
			votes:        postgres.NewVoteRepository(db),
			interactions: postgres.NewInteractionRepository(db),
			decisions:    postgres.NewDecisionRepository(db),
			candidates:   postgres.NewCandidateRepository(db),
		}
		a.Bus = notifypostgres.NewBus(db, cfg.DBConnString(), cfg.NotifyPrefix)

	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}

	a.Rounds = services.NewRoundService(repos.rounds, a.Bus, cfg.CacheTTL)
	a.Votes = services.NewVoteService(repos.rounds, repos.votes, repos.interactions, a.Bus)
	a.Stats = services.NewStatsService(repos.rounds, repos.votes, repos.interactions, cfg.PriorWeight)
	a.Deliberation = services.NewDeliberationService(repos.rounds, repos.decisions, a.Bus)
	a.Standings = services.NewStandingsService(repos.candidates, a.Stats)
	return a, nil
}

// WatchRounds drops the cached round list whenever any process reports a
// round change. It stops when ctx is done.
func (a *App) WatchRounds(ctx context.Context) error {
	invalidate := func(ctx context.Context, ev domain.Event) {
		a.logger.Debug("round change observed", "type", ev.Type, "entity_id", ev.EntityID)
		a.Rounds.InvalidateCache()
	}
	for _, topic := range []string{domain.TopicRounds, domain.TableTopic(domain.EntityRounds)} {
		if _, err := a.Bus.Subscribe(ctx, topic, invalidate); err != nil {
			return fmt.Errorf("failed to watch %s: %w", topic, err)
		}
	}
	return nil
}

func (a *App) Close() error {
	var errs []error
	if a.Bus != nil {
		errs = append(errs, a.Bus.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}
