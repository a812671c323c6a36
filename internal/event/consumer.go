package event

import (
	"context"
	"fmt"
	"log/slog"

	pkgkafka "github.com/utafrali/GameCatalog/pkg/kafka"
	"github.com/utafrali/GameCatalog/pkg/logger"
)

// ConsumerGroup is the consumer group of the reconciler.
const ConsumerGroup = "game-catalog-reconciler"

// Reconciler re-projects one game into the search index.
type Reconciler interface {
	Reconcile(ctx context.Context, id int64) error
}

// Consumer turns reindex_requested events into reconciliations.
type Consumer struct {
	reconciler Reconciler
	logger     *slog.Logger
}

// NewConsumer creates a new event consumer.
func NewConsumer(reconciler Reconciler, logger *slog.Logger) *Consumer {
	return &Consumer{
		reconciler: reconciler,
		logger:     logger,
	}
}

// Handle processes a Kafka event based on its type. The correlation ID of the
// event is restored on ctx.
func (c *Consumer) Handle(ctx context.Context, event *pkgkafka.Event) error {
	if event.CorrelationID != "" {
		ctx = logger.WithCorrelationID(ctx, event.CorrelationID)
	}

	switch event.EventType {
	case TopicReindexRequested:
		return c.handleReindexRequested(ctx, event)
	default:
		c.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}
}

func (c *Consumer) handleReindexRequested(ctx context.Context, event *pkgkafka.Event) error {
	var data ReindexRequestedData
	if err := event.UnmarshalData(&data); err != nil {
		return fmt.Errorf("unmarshal reindex_requested data: %w", err)
	}
	if data.ID <= 0 {
		c.logger.WarnContext(ctx, "dropping reindex request without a valid id",
			slog.String("event_id", event.EventID),
		)
		return nil
	}

	if err := c.reconciler.Reconcile(ctx, data.ID); err != nil {
		return fmt.Errorf("reconcile game from reindex_requested event: %w", err)
	}
	return nil
}
