package repository

import (
	"context"

	"github.com/utafrali/GameCatalog/internal/domain"
)

// GameRepository is the canonical store of game records.
type GameRepository interface {
	// Create inserts game and sets its store-assigned ID.
	Create(ctx context.Context, game *domain.Game) error

	// GetByID returns the game with the given ID or a not-found error.
	GetByID(ctx context.Context, id int64) (*domain.Game, error)

	// List returns every game ordered by ID.
	List(ctx context.Context) ([]domain.Game, error)

	// Update replaces every mutable column of the game with game.ID.
	Update(ctx context.Context, game *domain.Game) error

	// Delete removes the game with the given ID.
	Delete(ctx context.Context, id int64) error
}
