package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vncsmyrnk/rushvote/internal/core/domain"
)

func collect(t *testing.T, bus *Bus, topic string) (func() []domain.Event, func()) {
	t.Helper()
	var mu sync.Mutex
	var got []domain.Event
	unsubscribe, err := bus.Subscribe(context.Background(), topic, func(ctx context.Context, ev domain.Event) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, ev)
	})
	require.NoError(t, err)
	return func() []domain.Event {
		mu.Lock()
		defer mu.Unlock()
		return append([]domain.Event(nil), got...)
	}, unsubscribe
}

func TestBus_DeliversToTopicSubscribers(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	rounds, _ := collect(t, bus, domain.TopicRounds)
	votes, _ := collect(t, bus, domain.TableTopic(domain.EntityVotes))

	id := uuid.New()
	require.NoError(t, bus.Publish(context.Background(), domain.TopicRounds, domain.RoundStatusChanged(id, time.Now())))

	assert.Eventually(t, func() bool { return len(rounds()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, id, *rounds()[0].RoundID)
	assert.Empty(t, votes())
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := NewBus()
	defer bus.Close()

	got, unsubscribe := collect(t, bus, domain.TopicRounds)
	unsubscribe()

	require.NoError(t, bus.Publish(context.Background(), domain.TopicRounds, domain.RoundStatusChanged(uuid.New(), time.Now())))
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, got())
}

func TestBus_DropsWhenSubscriberIsSlow(t *testing.T) {
	bus := NewBusWithBuffer(1)
	defer bus.Close()

	release := make(chan struct{})
	_, err := bus.Subscribe(context.Background(), domain.TopicRounds, func(ctx context.Context, ev domain.Event) {
		<-release
	})
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		assert.NoError(t, bus.Publish(context.Background(), domain.TopicRounds, domain.RoundStatusChanged(uuid.New(), time.Now())))
	}
	close(release)
}

func TestBus_Closed(t *testing.T) {
	bus := NewBus()
	require.NoError(t, bus.Close())

	err := bus.Publish(context.Background(), domain.TopicRounds, domain.Event{})
	assert.ErrorIs(t, err, ErrBusClosed)

	_, err = bus.Subscribe(context.Background(), domain.TopicRounds, func(context.Context, domain.Event) {})
	assert.ErrorIs(t, err, ErrBusClosed)
}
