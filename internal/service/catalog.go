package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/utafrali/GameCatalog/internal/domain"
	"github.com/utafrali/GameCatalog/internal/repository"
	apperrors "github.com/utafrali/GameCatalog/pkg/errors"
)

// CatalogService implements the write path and record reads of the catalog.
// Every mutation commits to the canonical store first and then re-indexes the
// record. There is no rollback when indexing fails.
type CatalogService struct {
	repo    repository.GameRepository
	indexer *IndexSynchronizer
	logger  *slog.Logger
	now     func() time.Time
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(repo repository.GameRepository, indexer *IndexSynchronizer, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		repo:    repo,
		indexer: indexer,
		logger:  logger,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// CreateGameInput holds the parameters for creating a game.
type CreateGameInput struct {
	Code          int64
	Name          string
	Description   string
	ReleaseDate   time.Time
	PurchaseCount int64
	AverageRating float64
	Genre         string
}

// UpdateGameInput is a full replacement of an existing game.
type UpdateGameInput struct {
	ID            int64
	CreatedAt     time.Time
	Code          int64
	Name          string
	Description   string
	ReleaseDate   time.Time
	PurchaseCount int64
	AverageRating float64
	Genre         string
}

func validateText(name, description, genre string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return apperrors.InvalidInput("game name is required")
	case strings.TrimSpace(description) == "":
		return apperrors.InvalidInput("game description is required")
	case strings.TrimSpace(genre) == "":
		return apperrors.InvalidInput("game genre is required")
	}
	return nil
}

// CreateGame stores a new game and indexes it. When indexing fails the stored
// game is returned together with the indexing error.
func (s *CatalogService) CreateGame(ctx context.Context, input *CreateGameInput) (*domain.Game, error) {
	if err := validateText(input.Name, input.Description, input.Genre); err != nil {
		return nil, err
	}

	game := &domain.Game{
		CreatedAt:     s.now(),
		Code:          input.Code,
		Name:          input.Name,
		Description:   input.Description,
		ReleaseDate:   input.ReleaseDate,
		PurchaseCount: input.PurchaseCount,
		AverageRating: input.AverageRating,
		Genre:         input.Genre,
	}

	if err := s.repo.Create(ctx, game); err != nil {
		return nil, fmt.Errorf("create game: %w", err)
	}

	s.logger.InfoContext(ctx, "game created",
		slog.Int64("game_id", game.ID),
		slog.String("name", game.Name),
	)

	if err := s.indexer.Sync(ctx, game); err != nil {
		return game, err
	}
	return game, nil
}

// UpdateGame replaces an existing game and re-indexes it.
func (s *CatalogService) UpdateGame(ctx context.Context, input *UpdateGameInput) (*domain.Game, error) {
	if input.ID <= 0 {
		return nil, apperrors.InvalidInput("game id must be positive")
	}
	if err := validateText(input.Name, input.Description, input.Genre); err != nil {
		return nil, err
	}

	game := &domain.Game{
		ID:            input.ID,
		CreatedAt:     input.CreatedAt,
		Code:          input.Code,
		Name:          input.Name,
		Description:   input.Description,
		ReleaseDate:   input.ReleaseDate,
		PurchaseCount: input.PurchaseCount,
		AverageRating: input.AverageRating,
		Genre:         input.Genre,
	}

	if err := s.repo.Update(ctx, game); err != nil {
		return nil, fmt.Errorf("update game: %w", err)
	}

	s.logger.InfoContext(ctx, "game updated", slog.Int64("game_id", game.ID))

	if err := s.indexer.Sync(ctx, game); err != nil {
		return game, err
	}
	return game, nil
}

// DeleteGame removes a game from the canonical store. The search document is
// left in place.
func (s *CatalogService) DeleteGame(ctx context.Context, id int64) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return fmt.Errorf("delete game: %w", err)
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete game: %w", err)
	}

	s.logger.InfoContext(ctx, "game deleted", slog.Int64("game_id", id))
	return nil
}

// IncreasePurchaseCount adds one purchase to the game.
func (s *CatalogService) IncreasePurchaseCount(ctx context.Context, id int64) (*domain.Game, error) {
	return s.modify(ctx, "increase purchase count", id, func(g *domain.Game) {
		g.PurchaseCount++
	})
}

// UpdateRating replaces the average rating of the game. The value is stored
// as given.
func (s *CatalogService) UpdateRating(ctx context.Context, id int64, rating float64) (*domain.Game, error) {
	return s.modify(ctx, "update rating", id, func(g *domain.Game) {
		g.AverageRating = rating
	})
}

// modify loads a game, applies change to a copy, then stores and re-indexes
// the copy.
func (s *CatalogService) modify(ctx context.Context, op string, id int64, change func(*domain.Game)) (*domain.Game, error) {
	current, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	updated := *current
	change(&updated)

	if err := s.repo.Update(ctx, &updated); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.logger.InfoContext(ctx, "game modified",
		slog.String("op", op),
		slog.Int64("game_id", id),
	)

	if err := s.indexer.Sync(ctx, &updated); err != nil {
		return &updated, err
	}
	return &updated, nil
}

// GetGame returns a game from the canonical store.
func (s *CatalogService) GetGame(ctx context.Context, id int64) (*domain.Game, error) {
	game, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get game: %w", err)
	}
	return game, nil
}

// ListGames returns every game in the canonical store.
func (s *CatalogService) ListGames(ctx context.Context) ([]domain.Game, error) {
	games, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	if games == nil {
		games = []domain.Game{}
	}
	return games, nil
}

// ReindexAll rebuilds the search index from the canonical store.
func (s *CatalogService) ReindexAll(ctx context.Context) (int, error) {
	return s.indexer.ReindexAll(ctx)
}
