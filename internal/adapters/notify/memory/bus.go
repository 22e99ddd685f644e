// Package memory is an in-process Notification Bus. Delivery is best-effort:
// each subscriber has a bounded queue and events are dropped when it is full.
package memory

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/vncsmyrnk/rushvote/internal/core/domain"
	"github.com/vncsmyrnk/rushvote/internal/core/ports"
	"github.com/vncsmyrnk/rushvote/internal/logging"
)

var ErrBusClosed = errors.New("notification bus closed")

const defaultBuffer = 64

type subscription struct {
	events chan domain.Event
	done   chan struct{}
	once   sync.Once
}

func (s *subscription) stop() {
	s.once.Do(func() { close(s.done) })
}

type Bus struct {
	mu     sync.RWMutex
	subs   map[string]map[uint64]*subscription
	next   uint64
	buffer int
	closed bool
	logger *slog.Logger
}

var _ ports.EventBus = (*Bus)(nil)

func NewBus() *Bus {
	return NewBusWithBuffer(defaultBuffer)
}

func NewBusWithBuffer(buffer int) *Bus {
	if buffer < 1 {
		buffer = 1
	}
	return &Bus{
		subs:   make(map[string]map[uint64]*subscription),
		buffer: buffer,
		logger: logging.New("bus"),
	}
}

func (b *Bus) Publish(ctx context.Context, topic string, event domain.Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrBusClosed
	}
	for _, sub := range b.subs[topic] {
		select {
		case sub.events <- event:
		default:
			b.logger.Warn("subscriber queue full; event dropped", "topic", topic, "type", event.Type)
		}
	}
	return nil
}

func (b *Bus) Subscribe(ctx context.Context, topic string, handler ports.EventHandler) (func(), error) {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrBusClosed
	}
	id := b.next
	b.next++
	sub := &subscription{
		events: make(chan domain.Event, b.buffer),
		done:   make(chan struct{}),
	}
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[uint64]*subscription)
	}
	b.subs[topic][id] = sub
	b.mu.Unlock()

	unsubscribe := func() {
		b.mu.Lock()
		delete(b.subs[topic], id)
		if len(b.subs[topic]) == 0 {
			delete(b.subs, topic)
		}
		b.mu.Unlock()
		sub.stop()
	}

	go func() {
		for {
			select {
			case ev := <-sub.events:
				handler(ctx, ev)
			case <-sub.done:
				return
			case <-ctx.Done():
				unsubscribe()
				return
			}
		}
	}()

	return unsubscribe, nil
}

func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	for _, subs := range b.subs {
		for _, sub := range subs {
			sub.stop()
		}
	}
	b.subs = make(map[string]map[uint64]*subscription)
	return nil
}
