package ports

import (
	"context"

	"github.com/vncsmyrnk/rushvote/internal/core/domain"
)

// EventHandler receives a change hint. Implementations re-read the store.
type EventHandler func(ctx context.Context, event domain.Event)

type Publisher interface {
	Publish(ctx context.Context, topic string, event domain.Event) error
}

type Subscriber interface {
	Subscribe(ctx context.Context, topic string, handler EventHandler) (unsubscribe func(), err error)
}

type EventBus interface {
	Publisher
	Subscriber
	Close() error
}
