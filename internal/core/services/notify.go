package services

import (
	"context"
	"log/slog"

	"github.com/vncsmyrnk/rushvote/internal/core/domain"
	"github.com/vncsmyrnk/rushvote/internal/core/ports"
)

// publish is best-effort: a failed notification only delays observers.
func publish(ctx context.Context, bus ports.Publisher, logger *slog.Logger, topic string, event domain.Event) {
	if bus == nil {
		return
	}
	if err := bus.Publish(ctx, topic, event); err != nil {
		logger.Warn("failed to publish event", "topic", topic, "type", event.Type, "error", err)
	}
}
