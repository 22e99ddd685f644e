// Package postgres is a Notification Bus over Postgres LISTEN/NOTIFY. Every
// process that shares the database sees every other process's events.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"
	"github.com/vncsmyrnk/rushvote/internal/core/domain"
	"github.com/vncsmyrnk/rushvote/internal/core/ports"
	"github.com/vncsmyrnk/rushvote/internal/logging"
)

const (
	minReconnectInterval = 10 * time.Second
	maxReconnectInterval = time.Minute
	pingInterval         = 90 * time.Second
)

type subscriber struct {
	ctx     context.Context
	handler ports.EventHandler
}

type Bus struct {
	db       *sql.DB
	listener *pq.Listener
	prefix   string

	// listenMu serializes LISTEN/UNLISTEN round trips. dispatch never takes
	// it, so the listener keeps draining notifications while one is pending.
	listenMu sync.Mutex

	mu   sync.Mutex
	subs map[string]map[uint64]subscriber
	next uint64

	done      chan struct{}
	closeOnce sync.Once
	logger    *slog.Logger
}

var _ ports.EventBus = (*Bus)(nil)

// NewBus publishes through db and listens on a dedicated connection opened
// from connString. Channel names are prefix + topic.
func NewBus(db *sql.DB, connString, prefix string) *Bus {
	b := &Bus{
		db:     db,
		prefix: prefix,
		subs:   make(map[string]map[uint64]subscriber),
		done:   make(chan struct{}),
		logger: logging.New("bus"),
	}
	b.listener = pq.NewListener(connString, minReconnectInterval, maxReconnectInterval, b.reportProblem)
	go b.run()
	return b
}

func (b *Bus) channel(topic string) string {
	return b.prefix + topic
}

func (b *Bus) Publish(ctx context.Context, topic string, event domain.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	if _, err := b.db.ExecContext(ctx, `SELECT pg_notify($1, $2)`, b.channel(topic), string(payload)); err != nil {
		return fmt.Errorf("failed to notify %s: %w", topic, err)
	}
	return nil
}

func (b *Bus) Subscribe(ctx context.Context, topic string, handler ports.EventHandler) (func(), error) {
	b.listenMu.Lock()
	defer b.listenMu.Unlock()

	b.mu.Lock()
	listening := len(b.subs[topic]) > 0
	b.mu.Unlock()

	if !listening {
		err := b.listener.Listen(b.channel(topic))
		if err != nil && !errors.Is(err, pq.ErrChannelAlreadyOpen) {
			return nil, fmt.Errorf("failed to listen on %s: %w", topic, err)
		}
	}

	b.mu.Lock()
	if b.subs[topic] == nil {
		b.subs[topic] = make(map[uint64]subscriber)
	}
	id := b.next
	b.next++
	b.subs[topic][id] = subscriber{ctx: ctx, handler: handler}
	b.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() { b.unsubscribe(topic, id) })
	}
	go func() {
		select {
		case <-ctx.Done():
			unsubscribe()
		case <-b.done:
		}
	}()
	return unsubscribe, nil
}

func (b *Bus) unsubscribe(topic string, id uint64) {
	b.listenMu.Lock()
	defer b.listenMu.Unlock()

	b.mu.Lock()
	delete(b.subs[topic], id)
	empty := len(b.subs[topic]) == 0
	if empty {
		delete(b.subs, topic)
	}
	b.mu.Unlock()

	if !empty {
		return
	}
	if err := b.listener.Unlisten(b.channel(topic)); err != nil && !errors.Is(err, pq.ErrChannelNotOpen) {
		b.logger.Warn("failed to unlisten", "topic", topic, "error", err)
	}
}

func (b *Bus) run() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.done:
			return
		case n := <-b.listener.Notify:
			// nil after a reconnect; events sent meanwhile are lost.
			if n == nil {
				continue
			}
			b.dispatch(n)
		case <-ticker.C:
			go func() {
				if err := b.listener.Ping(); err != nil {
					b.logger.Warn("listener ping failed", "error", err)
				}
			}()
		}
	}
}

func (b *Bus) dispatch(n *pq.Notification) {
	if !strings.HasPrefix(n.Channel, b.prefix) {
		return
	}
	topic := strings.TrimPrefix(n.Channel, b.prefix)

	var event domain.Event
	if err := json.Unmarshal([]byte(n.Extra), &event); err != nil {
		b.logger.Warn("discarding malformed event", "topic", topic, "error", err)
		return
	}

	b.mu.Lock()
	handlers := make([]subscriber, 0, len(b.subs[topic]))
	for _, s := range b.subs[topic] {
		handlers = append(handlers, s)
	}
	b.mu.Unlock()

	for _, s := range handlers {
		if s.ctx.Err() != nil {
			continue
		}
		s.handler(s.ctx, event)
	}
}

func (b *Bus) reportProblem(ev pq.ListenerEventType, err error) {
	switch ev {
	case pq.ListenerEventConnectionAttemptFailed, pq.ListenerEventDisconnected:
		b.logger.Warn("listener connection problem", "event", ev, "error", err)
	case pq.ListenerEventReconnected:
		b.logger.Info("listener reconnected; events may have been missed")
	}
}

func (b *Bus) Close() error {
	var err error
	b.closeOnce.Do(func() {
		close(b.done)
		err = b.listener.Close()
	})
	return err
}
