package engine

import (
	"context"

	"github.com/utafrali/GameCatalog/internal/domain"
)

// SearchEngine stores game documents and answers the catalog read queries.
// Implementations may use Elasticsearch or in-memory storage.
type SearchEngine interface {
	// Index upserts a single document keyed by its ID.
	Index(ctx context.Context, doc *domain.GameDocument) error

	// BulkIndex upserts many documents in one round trip.
	BulkIndex(ctx context.Context, docs []domain.GameDocument) error

	// Search returns up to size documents matching term, best match first.
	Search(ctx context.Context, term string, size int) ([]domain.GameDocument, error)

	// SearchByGenres returns up to size documents whose genre is one of
	// genres, ordered by average rating then purchase count, both descending.
	SearchByGenres(ctx context.Context, genres []string, size int) ([]domain.GameDocument, error)

	// MostRecent returns up to size documents ordered by release date,
	// newest first.
	MostRecent(ctx context.Context, size int) ([]domain.GameDocument, error)

	// FetchAll returns every document in the index.
	FetchAll(ctx context.Context) ([]domain.GameDocument, error)
}
