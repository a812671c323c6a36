package service

import (
	"context"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/utafrali/GameCatalog/internal/domain"
	"github.com/utafrali/GameCatalog/internal/engine"
	apperrors "github.com/utafrali/GameCatalog/pkg/errors"
)

const (
	// DefaultResultSize applies when a caller passes a size or top of zero
	// or less.
	DefaultResultSize = 10

	// MaxResultSize is the largest size or top a caller may ask for. It
	// matches the default index.max_result_window of Elasticsearch.
	MaxResultSize = 10000

	dashboardTop = 5
	cachePrefix  = "catalog:analytics:"
)

// AnalyticsCache stores computed aggregates as JSON.
type AnalyticsCache interface {
	// Get decodes the cached value for key into dst and reports whether
	// it was present.
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// AnalyticsService answers search, recommendation and aggregate queries from
// the search index. Aggregates are grouped in process over all documents.
type AnalyticsService struct {
	engine engine.SearchEngine
	cache  AnalyticsCache
	logger *slog.Logger
}

// NewAnalyticsService creates an analytics service. cache may be nil.
func NewAnalyticsService(eng engine.SearchEngine, cache AnalyticsCache, logger *slog.Logger) *AnalyticsService {
	return &AnalyticsService{
		engine: eng,
		cache:  cache,
		logger: logger,
	}
}

func orDefault(n int) int {
	if n <= 0 {
		return DefaultResultSize
	}
	return n
}

// SearchGames runs a relevance-ranked text search.
func (s *AnalyticsService) SearchGames(ctx context.Context, term string, size int) ([]domain.GameDocument, error) {
	if strings.TrimSpace(term) == "" {
		return nil, apperrors.InvalidInput("search term is required")
	}

	docs, err := s.engine.Search(ctx, term, orDefault(size))
	if err != nil {
		return nil, apperrors.QueryFailed("search", err)
	}

	s.logger.DebugContext(ctx, "search executed",
		slog.String("term", term),
		slog.Int("hits", len(docs)),
	)
	return docs, nil
}

// RecommendByGenres returns the best rated games in any of genres. An empty
// genre list gives an empty result.
func (s *AnalyticsService) RecommendByGenres(ctx context.Context, genres []string, size int) ([]domain.GameDocument, error) {
	if len(genres) == 0 {
		return []domain.GameDocument{}, nil
	}

	docs, err := s.engine.SearchByGenres(ctx, genres, orDefault(size))
	if err != nil {
		return nil, apperrors.QueryFailed("recommendations", err)
	}
	return docs, nil
}

// MostRecentGames returns the newest releases.
func (s *AnalyticsService) MostRecentGames(ctx context.Context, size int) ([]domain.GameDocument, error) {
	docs, err := s.engine.MostRecent(ctx, orDefault(size))
	if err != nil {
		return nil, apperrors.QueryFailed("most recent", err)
	}
	return docs, nil
}

// TopGenresByCount returns the top genres by number of games, largest first.
func (s *AnalyticsService) TopGenresByCount(ctx context.Context, top int) (domain.GenreStats, error) {
	top = orDefault(top)
	return cached(ctx, s, "top-genres:"+strconv.Itoa(top), func() (domain.GenreStats, error) {
		docs, err := s.fetchAll(ctx, "top genres")
		if err != nil {
			return nil, err
		}
		return topN(groupBy(docs, func(domain.GameDocument) float64 { return 1 }), top), nil
	})
}

// TopGenresBySales returns the top genres by total purchases, largest first.
func (s *AnalyticsService) TopGenresBySales(ctx context.Context, top int) (domain.GenreStats, error) {
	top = orDefault(top)
	return cached(ctx, s, "top-genres-by-sales:"+strconv.Itoa(top), func() (domain.GenreStats, error) {
		docs, err := s.fetchAll(ctx, "top genres by sales")
		if err != nil {
			return nil, err
		}
		return topN(groupBy(docs, func(d domain.GameDocument) float64 { return float64(d.PurchaseCount) }), top), nil
	})
}

// AverageRatingByGenre returns the mean rating of each genre rounded to two
// decimals, in ascending genre order.
func (s *AnalyticsService) AverageRatingByGenre(ctx context.Context) (domain.GenreStats, error) {
	return cached(ctx, s, "average-rating-by-genre:", func() (domain.GenreStats, error) {
		docs, err := s.fetchAll(ctx, "average rating by genre")
		if err != nil {
			return nil, err
		}

		sums := groupBy(docs, func(d domain.GameDocument) float64 { return d.AverageRating })
		counts := make(map[string]float64, len(sums))
		for _, d := range docs {
			counts[d.Genre]++
		}

		out := make(domain.GenreStats, 0, len(sums))
		for _, st := range sums {
			out = append(out, domain.GenreStat{
				Genre: st.Genre,
				Value: domain.RoundRating(st.Value / counts[st.Genre]),
			})
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Genre < out[j].Genre })
		return out, nil
	})
}

// GeneralMetrics summarizes the whole catalog. An empty index yields zeros.
func (s *AnalyticsService) GeneralMetrics(ctx context.Context) (*domain.CatalogMetrics, error) {
	return cached(ctx, s, "general:", func() (*domain.CatalogMetrics, error) {
		docs, err := s.fetchAll(ctx, "general metrics")
		if err != nil {
			return nil, err
		}

		m := &domain.CatalogMetrics{TotalGames: len(docs)}
		if len(docs) == 0 {
			return m, nil
		}

		genres := make(map[string]struct{})
		var ratingSum float64
		for _, d := range docs {
			m.TotalSales += d.PurchaseCount
			ratingSum += d.AverageRating
			genres[d.Genre] = struct{}{}
		}
		m.AverageRating = domain.RoundRating(ratingSum / float64(len(docs)))
		m.TotalGenres = len(genres)
		return m, nil
	})
}

// Dashboard computes the dashboard widgets concurrently. Any failure fails
// the whole dashboard.
func (s *AnalyticsService) Dashboard(ctx context.Context) (*domain.Dashboard, error) {
	return cached(ctx, s, "dashboard:", func() (*domain.Dashboard, error) {
		var d domain.Dashboard
		g, gctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			m, err := s.GeneralMetrics(gctx)
			if err != nil {
				return err
			}
			d.General = *m
			return nil
		})
		g.Go(func() (err error) {
			d.TopGenres, err = s.TopGenresByCount(gctx, dashboardTop)
			return err
		})
		g.Go(func() (err error) {
			d.TopGenresBySales, err = s.TopGenresBySales(gctx, dashboardTop)
			return err
		})
		g.Go(func() (err error) {
			d.AverageRatings, err = s.AverageRatingByGenre(gctx)
			return err
		})
		g.Go(func() (err error) {
			d.RecentGames, err = s.MostRecentGames(gctx, dashboardTop)
			return err
		})

		if err := g.Wait(); err != nil {
			return nil, err
		}
		return &d, nil
	})
}

func (s *AnalyticsService) fetchAll(ctx context.Context, op string) ([]domain.GameDocument, error) {
	docs, err := s.engine.FetchAll(ctx)
	if err != nil {
		return nil, apperrors.QueryFailed(op, err)
	}
	return docs, nil
}

// Invalidate drops every cached aggregate. Failures are logged and the
// entries then age out with their TTL.
func (s *AnalyticsService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeletePrefix(ctx, cachePrefix); err != nil {
		s.logger.WarnContext(ctx, "analytics cache invalidation failed",
			slog.String("error", err.Error()),
		)
	}
}

// cached serves key from the cache when present and stores the computed value
// otherwise. Cache failures are logged and never fail the query.
func cached[T any](ctx context.Context, s *AnalyticsService, key string, compute func() (T, error)) (T, error) {
	if s.cache == nil {
		return compute()
	}

	key = cachePrefix + key
	var hit T
	ok, err := s.cache.Get(ctx, key, &hit)
	if err != nil {
		s.logger.WarnContext(ctx, "analytics cache read failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	} else if ok {
		return hit, nil
	}

	v, err := compute()
	if err != nil {
		return v, err
	}
	if err := s.cache.Set(ctx, key, v); err != nil {
		s.logger.WarnContext(ctx, "analytics cache write failed",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}
	return v, nil
}

// groupBy sums value per genre, keeping first-seen genre order.
func groupBy(docs []domain.GameDocument, value func(domain.GameDocument) float64) domain.GenreStats {
	idx := make(map[string]int)
	out := make(domain.GenreStats, 0)
	for _, d := range docs {
		i, ok := idx[d.Genre]
		if !ok {
			i = len(out)
			idx[d.Genre] = i
			out = append(out, domain.GenreStat{Genre: d.Genre})
		}
		out[i].Value += value(d)
	}
	return out
}

// topN orders stats by value descending, ties by genre, and keeps the first n.
func topN(stats domain.GenreStats, n int) domain.GenreStats {
	sort.SliceStable(stats, func(i, j int) bool {
		if stats[i].Value != stats[j].Value {
			return stats[i].Value > stats[j].Value
		}
		return stats[i].Genre < stats[j].Genre
	})
	if len(stats) > n {
		return stats[:n]
	}
	return stats
}
