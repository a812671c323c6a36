package event

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	pkgkafka "github.com/utafrali/GameCatalog/pkg/kafka"
)

// TopicReindexRequested carries IDs of games whose search document needs to
// be re-projected from the canonical store.
var TopicReindexRequested = pkgkafka.Topic("game", "reindex_requested")

// AggregateTypeGame is the aggregate type of game events.
const AggregateTypeGame = "game"

// SourceCatalogService identifies events published by this service.
const SourceCatalogService = "game-catalog-service"

// ReindexRequestedData is the payload of a reindex_requested event.
type ReindexRequestedData struct {
	ID int64 `json:"id"`
}

// Publisher is the subset of *pkgkafka.Producer used here.
type Publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer publishes catalog events to Kafka.
type Producer struct {
	kafka  Publisher
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka Publisher, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishReindexRequested queues the game with id for reconciliation.
func (p *Producer) PublishReindexRequested(ctx context.Context, id int64) error {
	evt, err := pkgkafka.NewEvent(ctx,
		TopicReindexRequested,
		strconv.FormatInt(id, 10),
		AggregateTypeGame,
		SourceCatalogService,
		ReindexRequestedData{ID: id},
	)
	if err != nil {
		return fmt.Errorf("create reindex_requested event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicReindexRequested, evt); err != nil {
		return fmt.Errorf("publish reindex_requested event: %w", err)
	}

	p.logger.InfoContext(ctx, "queued game for reindex",
		slog.Int64("game_id", id),
		slog.String("event_id", evt.EventID),
	)
	return nil
}
