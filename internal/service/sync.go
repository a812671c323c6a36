package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/utafrali/GameCatalog/internal/domain"
	"github.com/utafrali/GameCatalog/internal/engine"
	"github.com/utafrali/GameCatalog/internal/repository"
	apperrors "github.com/utafrali/GameCatalog/pkg/errors"
)

// ReindexBatchSize is the number of documents sent per bulk request by a
// full reindex.
const ReindexBatchSize = 500

// reindexPublishTimeout bounds a reindex request queued after a failed write.
// The publish outlives the request context, which is usually what expired.
const reindexPublishTimeout = 5 * time.Second

var (
	indexSyncTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_index_sync_total",
		Help: "In-request search index writes by result.",
	}, []string{"result"})

	indexReconcileTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_index_reconcile_total",
		Help: "Out-of-band index reconciliations by result.",
	}, []string{"result"})
)

// ReindexPublisher queues a game for out-of-band re-indexing.
type ReindexPublisher interface {
	PublishReindexRequested(ctx context.Context, id int64) error
}

// CacheInvalidator drops cached aggregates once the index has changed.
type CacheInvalidator interface {
	Invalidate(ctx context.Context)
}

// IndexSynchronizer keeps the search index in step with the canonical store.
type IndexSynchronizer struct {
	engine    engine.SearchEngine
	repo      repository.GameRepository
	publisher ReindexPublisher
	cache     CacheInvalidator
	logger    *slog.Logger
}

// NewIndexSynchronizer creates a synchronizer. publisher may be nil, in which
// case failed writes are not queued for reconciliation.
func NewIndexSynchronizer(eng engine.SearchEngine, repo repository.GameRepository, publisher ReindexPublisher, logger *slog.Logger) *IndexSynchronizer {
	return &IndexSynchronizer{
		engine:    eng,
		repo:      repo,
		publisher: publisher,
		logger:    logger,
	}
}

// WithCacheInvalidator makes successful index writes drop cached aggregates.
func (s *IndexSynchronizer) WithCacheInvalidator(c CacheInvalidator) *IndexSynchronizer {
	s.cache = c
	return s
}

// Sync writes the search document for game. A failure is returned as an
// indexing error after queuing the ID for reconciliation.
func (s *IndexSynchronizer) Sync(ctx context.Context, game *domain.Game) error {
	doc := domain.NewGameDocument(game)
	if err := s.engine.Index(ctx, &doc); err != nil {
		indexSyncTotal.WithLabelValues("failure").Inc()
		s.logger.ErrorContext(ctx, "failed to index game",
			slog.Int64("game_id", game.ID),
			slog.String("error", err.Error()),
		)
		s.requestReindex(ctx, game.ID)
		return apperrors.IndexingFailed(game.ID, err)
	}

	indexSyncTotal.WithLabelValues("success").Inc()
	s.invalidate(ctx)
	return nil
}

func (s *IndexSynchronizer) requestReindex(ctx context.Context, id int64) {
	if s.publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), reindexPublishTimeout)
	defer cancel()
	if err := s.publisher.PublishReindexRequested(pubCtx, id); err != nil {
		s.logger.ErrorContext(ctx, "failed to queue game for reindex",
			slog.Int64("game_id", id),
			slog.String("error", err.Error()),
		)
	}
}

func (s *IndexSynchronizer) invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx)
	}
}

// Reconcile re-projects the current canonical record for id into the index.
// A record that no longer exists is skipped.
func (s *IndexSynchronizer) Reconcile(ctx context.Context, id int64) error {
	game, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			indexReconcileTotal.WithLabelValues("skipped").Inc()
			s.logger.WarnContext(ctx, "reconcile skipped, game no longer exists",
				slog.Int64("game_id", id),
			)
			return nil
		}
		indexReconcileTotal.WithLabelValues("failure").Inc()
		return fmt.Errorf("reconcile game %d: %w", id, err)
	}

	doc := domain.NewGameDocument(game)
	if err := s.engine.Index(ctx, &doc); err != nil {
		indexReconcileTotal.WithLabelValues("failure").Inc()
		return fmt.Errorf("reconcile game %d: %w", id, err)
	}

	indexReconcileTotal.WithLabelValues("success").Inc()
	s.invalidate(ctx)
	s.logger.InfoContext(ctx, "game reconciled", slog.Int64("game_id", id))
	return nil
}

// ReindexAll projects every canonical record into the index in batches and
// returns the number of documents written.
func (s *IndexSynchronizer) ReindexAll(ctx context.Context) (int, error) {
	games, err := s.repo.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("reindex all: %w", err)
	}

	indexed := 0
	batch := make([]domain.GameDocument, 0, ReindexBatchSize)
	for i := range games {
		batch = append(batch, domain.NewGameDocument(&games[i]))
		if len(batch) == ReindexBatchSize || i == len(games)-1 {
			if err := s.engine.BulkIndex(ctx, batch); err != nil {
				return indexed, fmt.Errorf("reindex all: after %d games: %w", indexed, err)
			}
			indexed += len(batch)
			batch = batch[:0]
		}
	}

	if indexed > 0 {
		s.invalidate(ctx)
	}
	s.logger.InfoContext(ctx, "reindex completed", slog.Int("count", indexed))
	return indexed, nil
}
