package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/rushvote/internal/adapters/repository/memory"
	"github.com/vncsmyrnk/rushvote/internal/core/domain"
	"github.com/vncsmyrnk/rushvote/internal/core/ports"
)

type published struct {
	topic string
	event domain.Event
}

// recordingBus captures publications synchronously.
type recordingBus struct {
	mu     sync.Mutex
	events []published
	err    error
}

func (b *recordingBus) Publish(ctx context.Context, topic string, event domain.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.events = append(b.events, published{topic: topic, event: event})
	return nil
}

func (b *recordingBus) onTopic(topic string) []domain.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []domain.Event
	for _, p := range b.events {
		if p.topic == topic {
			out = append(out, p.event)
		}
	}
	return out
}

func (b *recordingBus) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = nil
}

var errBusDown = errors.New("bus down")

type fixture struct {
	store        *memory.Store
	bus          *recordingBus
	rounds       ports.RoundService
	votes        ports.VoteService
	stats        ports.StatsService
	deliberation ports.DeliberationService
	standings    ports.StandingsService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	bus := &recordingBus{}
	stats := NewStatsService(store, store, store, 5)
	return &fixture{
		store:        store,
		bus:          bus,
		rounds:       NewRoundService(store, bus, time.Minute),
		votes:        NewVoteService(store, store, store, bus),
		stats:        stats,
		deliberation: NewDeliberationService(store, store, bus),
		standings:    NewStandingsService(store, stats),
	}
}

func (f *fixture) createRound(t *testing.T, name string, archetype domain.Archetype, open bool) *domain.Round {
	t.Helper()
	round, err := f.rounds.Create(context.Background(), ports.CreateRoundInput{
		Name:      name,
		Archetype: string(archetype),
		Open:      open,
		Confirm:   true,
		IsAdmin:   true,
	})
	require.NoError(t, err)
	return round
}

func (f *fixture) candidates(n int) []uuid.UUID {
	ids := make([]uuid.UUID, n)
	for i := range ids {
		ids[i] = uuid.New()
	}
	f.store.AddCandidates(ids...)
	return ids
}

// castScores records one vote per score, each from a new voter.
func (f *fixture) castScores(t *testing.T, roundID, pnmID uuid.UUID, scores ...int) {
	t.Helper()
	for _, score := range scores {
		_, err := f.votes.SubmitVote(context.Background(), ports.VoteInput{
			VoterID: uuid.New(),
			PnmID:   pnmID,
			RoundID: roundID,
			Score:   score,
		})
		require.NoError(t, err)
	}
}
