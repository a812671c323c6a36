package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/utafrali/GameCatalog/internal/domain"
	apperrors "github.com/utafrali/GameCatalog/pkg/errors"
	"github.com/utafrali/GameCatalog/pkg/database"
)

const gameColumns = `id, created_at, code, name, description, release_date, purchase_count, average_rating, genre`

// GameRepository implements repository.GameRepository using PostgreSQL.
type GameRepository struct {
	db database.DBTX
}

// NewGameRepository creates a PostgreSQL-backed game repository.
func NewGameRepository(db database.DBTX) *GameRepository {
	return &GameRepository{db: db}
}

// Create inserts a new game and stores the generated ID on it.
func (r *GameRepository) Create(ctx context.Context, g *domain.Game) (err error) {
	query := `
		INSERT INTO games (created_at, code, name, description, release_date, purchase_count, average_rating, genre)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	ctx, end := database.TraceQuery(ctx, "CreateGame", query)
	defer func() { end(err) }()

	g.NormalizeTimes()
	err = r.db.QueryRow(ctx, query,
		g.CreatedAt,
		g.Code,
		g.Name,
		g.Description,
		g.ReleaseDate,
		g.PurchaseCount,
		g.AverageRating,
		g.Genre,
	).Scan(&g.ID)
	if err != nil {
		return mapWriteError("insert game", err)
	}
	return nil
}

// GetByID retrieves a game by its ID.
func (r *GameRepository) GetByID(ctx context.Context, id int64) (_ *domain.Game, err error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "GetGame", query)
	defer func() { end(err) }()

	g, err := scanGame(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("game", id)
		}
		return nil, apperrors.Internal(fmt.Errorf("get game %d: %w", id, err))
	}
	return g, nil
}

// List returns all games ordered by ID.
func (r *GameRepository) List(ctx context.Context) (_ []domain.Game, err error) {
	query := `SELECT ` + gameColumns + ` FROM games ORDER BY id`

	ctx, end := database.TraceQuery(ctx, "ListGames", query)
	defer func() { end(err) }()

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, apperrors.Internal(fmt.Errorf("list games: %w", err))
	}
	defer rows.Close()

	games := []domain.Game{}
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, apperrors.Internal(fmt.Errorf("scan game: %w", err))
		}
		games = append(games, *g)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Internal(fmt.Errorf("iterate games: %w", err))
	}
	return games, nil
}

// Update replaces the stored game with g. CreatedAt is written as given.
func (r *GameRepository) Update(ctx context.Context, g *domain.Game) (err error) {
	query := `
		UPDATE games
		SET created_at = $2, code = $3, name = $4, description = $5, release_date = $6,
		    purchase_count = $7, average_rating = $8, genre = $9
		WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "UpdateGame", query)
	defer func() { end(err) }()

	g.NormalizeTimes()
	ct, err := r.db.Exec(ctx, query,
		g.ID,
		g.CreatedAt,
		g.Code,
		g.Name,
		g.Description,
		g.ReleaseDate,
		g.PurchaseCount,
		g.AverageRating,
		g.Genre,
	)
	if err != nil {
		return mapWriteError("update game", err)
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("game", g.ID)
	}
	return nil
}

// Delete removes a game by its ID.
func (r *GameRepository) Delete(ctx context.Context, id int64) (err error) {
	query := `DELETE FROM games WHERE id = $1`

	ctx, end := database.TraceQuery(ctx, "DeleteGame", query)
	defer func() { end(err) }()

	ct, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return apperrors.Internal(fmt.Errorf("delete game %d: %w", id, err))
	}
	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("game", id)
	}
	return nil
}

func scanGame(row pgx.Row) (*domain.Game, error) {
	var g domain.Game
	err := row.Scan(
		&g.ID,
		&g.CreatedAt,
		&g.Code,
		&g.Name,
		&g.Description,
		&g.ReleaseDate,
		&g.PurchaseCount,
		&g.AverageRating,
		&g.Genre,
	)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// SQLSTATE codes surfaced to callers as invalid input.
var inputViolations = map[string]string{
	"22001": "value too long for column",
	"23502": "required column is missing",
	"23514": "value violates a check constraint",
}

// mapWriteError converts column constraint violations into InvalidInput and
// everything else into Internal.
func mapWriteError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if msg, ok := inputViolations[pgErr.Code]; ok {
			if pgErr.ColumnName != "" {
				msg += ": " + pgErr.ColumnName
			}
			return apperrors.InvalidInput(msg)
		}
	}
	return apperrors.Internal(fmt.Errorf("%s: %w", op, err))
}
