// Command seed fills the catalog database with deterministic sample games
// and asks a running catalog service to rebuild its search index.
//
// Run: go run ./cmd/seed
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/utafrali/GameCatalog/internal/config"
	"github.com/utafrali/GameCatalog/internal/domain"
	"github.com/utafrali/GameCatalog/migrations"
	pkgconfig "github.com/utafrali/GameCatalog/pkg/config"
	"github.com/utafrali/GameCatalog/pkg/database"
	"github.com/utafrali/GameCatalog/pkg/logger"
)

const insertColumns = 8

// seedConfig holds the seeder-only settings.
type seedConfig struct {
	Count      int    `env:"SEED_COUNT" envDefault:"10000"`
	BatchSize  int    `env:"SEED_BATCH_SIZE" envDefault:"500"`
	Seed       int64  `env:"SEED_RANDOM_SEED" envDefault:"42"`
	CatalogURL string `env:"SEED_CATALOG_URL" envDefault:"http://localhost:8020"`
	Reindex    bool   `env:"SEED_REINDEX" envDefault:"true"`
}

func (c *seedConfig) Validate() error {
	if c.Count < 0 {
		return fmt.Errorf("SEED_COUNT must be >= 0, got %d", c.Count)
	}
	// PostgreSQL caps a statement at 65535 bind parameters.
	if c.BatchSize < 1 || c.BatchSize*insertColumns > 65535 {
		return fmt.Errorf("SEED_BATCH_SIZE out of range: %d", c.BatchSize)
	}
	return nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	var seedCfg seedConfig
	if err := pkgconfig.Load(&seedCfg); err != nil {
		slog.Error("failed to load seed config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := logger.New("game-catalog-seed", cfg.LogLevel)
	if err := run(context.Background(), cfg, &seedCfg, log); err != nil {
		log.Error("seed failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, seedCfg *seedConfig, log *slog.Logger) error {
	pool, err := database.NewPostgresPool(ctx, cfg.Postgres(), log)
	if err != nil {
		return fmt.Errorf("connect to postgres: %w", err)
	}
	defer pool.Close()

	if err := database.RunMigrations(ctx, pool, migrations.FS, log); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	start := time.Now()
	rng := rand.New(rand.NewSource(seedCfg.Seed)) // #nosec G404 -- reproducible sample data
	games := generateGames(rng, seedCfg.Count, start.UTC().Truncate(time.Microsecond))

	for _, b := range batches(len(games), seedCfg.BatchSize) {
		if err := insertGames(ctx, pool, games[b[0]:b[1]]); err != nil {
			return fmt.Errorf("insert games %d-%d: %w", b[0], b[1], err)
		}
	}
	log.Info("games inserted",
		slog.Int("count", len(games)),
		slog.Duration("elapsed", time.Since(start)),
	)

	if !seedCfg.Reindex {
		return nil
	}
	n, err := requestReindex(ctx, http.DefaultClient, seedCfg.CatalogURL)
	if err != nil {
		return err
	}
	log.Info("search index rebuilt", slog.Int("indexed", n))
	return nil
}

func insertGames(ctx context.Context, pool *pgxpool.Pool, games []domain.Game) error {
	query, args := buildInsert(games)
	_, err := pool.Exec(ctx, query, args...)
	return err
}

// buildInsert renders one multi-row INSERT for games.
func buildInsert(games []domain.Game) (string, []any) {
	var sb strings.Builder
	sb.WriteString(`INSERT INTO games (created_at, code, name, description, release_date, purchase_count, average_rating, genre) VALUES `)

	args := make([]any, 0, len(games)*insertColumns)
	for i, g := range games {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * insertColumns
		fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8)
		args = append(args, g.CreatedAt, g.Code, g.Name, g.Description, g.ReleaseDate, g.PurchaseCount, g.AverageRating, g.Genre)
	}
	return sb.String(), args
}

func requestReindex(ctx context.Context, client *http.Client, baseURL string) (int, error) {
	url := strings.TrimRight(baseURL, "/") + "/api/v1/games/reindex"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("create reindex request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("reindex request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("reindex request: unexpected status %d", resp.StatusCode)
	}

	var body struct {
		Data struct {
			Indexed int `json:"indexed"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0, fmt.Errorf("decode reindex response: %w", err)
	}
	return body.Data.Indexed, nil
}
