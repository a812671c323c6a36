package memory

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/utafrali/GameCatalog/internal/domain"
)

// Engine is an in-memory implementation of engine.SearchEngine. Its text
// scoring approximates the Elasticsearch query: a name token match counts
// double, a description token match counts once, and a case-insensitive name
// substring counts once. Safe for concurrent use.
type Engine struct {
	mu    sync.RWMutex
	games map[int64]domain.GameDocument
}

// New creates an empty in-memory engine.
func New() *Engine {
	return &Engine{games: make(map[int64]domain.GameDocument)}
}

// Index adds or replaces a document.
func (e *Engine) Index(_ context.Context, doc *domain.GameDocument) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.games[doc.ID] = *doc
	return nil
}

// BulkIndex adds or replaces many documents.
func (e *Engine) BulkIndex(_ context.Context, docs []domain.GameDocument) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range docs {
		e.games[docs[i].ID] = docs[i]
	}
	return nil
}

// Search returns up to size documents with a positive score, highest first.
// Ties keep ID order.
func (e *Engine) Search(_ context.Context, term string, size int) ([]domain.GameDocument, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	termLower := strings.ToLower(term)
	termTokens := tokenize(term)

	type scored struct {
		doc   domain.GameDocument
		score int
	}
	matched := make([]scored, 0)
	for _, g := range e.games {
		s := 0
		if anyToken(termTokens, tokenize(g.Name)) {
			s += 2
		}
		if anyToken(termTokens, tokenize(g.Description)) {
			s++
		}
		if termLower != "" && strings.Contains(strings.ToLower(g.Name), termLower) {
			s++
		}
		if s > 0 {
			matched = append(matched, scored{doc: g, score: s})
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].score != matched[j].score {
			return matched[i].score > matched[j].score
		}
		return matched[i].doc.ID < matched[j].doc.ID
	})

	out := make([]domain.GameDocument, 0, len(matched))
	for _, m := range matched {
		out = append(out, m.doc)
	}
	return limit(out, size), nil
}

// SearchByGenres returns documents whose genre equals one of genres exactly.
func (e *Engine) SearchByGenres(_ context.Context, genres []string, size int) ([]domain.GameDocument, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	matched := make([]domain.GameDocument, 0)
	for _, g := range e.games {
		if slices.Contains(genres, g.Genre) {
			matched = append(matched, g)
		}
	}

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if a.AverageRating != b.AverageRating {
			return a.AverageRating > b.AverageRating
		}
		if a.PurchaseCount != b.PurchaseCount {
			return a.PurchaseCount > b.PurchaseCount
		}
		return a.ID < b.ID
	})
	return limit(matched, size), nil
}

// MostRecent returns documents by release date, newest first.
func (e *Engine) MostRecent(_ context.Context, size int) ([]domain.GameDocument, error) {
	all := e.snapshot()
	sort.Slice(all, func(i, j int) bool {
		if !all[i].ReleaseDate.Equal(all[j].ReleaseDate) {
			return all[i].ReleaseDate.After(all[j].ReleaseDate)
		}
		return all[i].ID < all[j].ID
	})
	return limit(all, size), nil
}

// FetchAll returns every document in ID order.
func (e *Engine) FetchAll(_ context.Context) ([]domain.GameDocument, error) {
	return e.snapshot(), nil
}

// Len returns the number of stored documents.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.games)
}

// Ping always succeeds.
func (e *Engine) Ping(_ context.Context) error { return nil }

func (e *Engine) snapshot() []domain.GameDocument {
	e.mu.RLock()
	defer e.mu.RUnlock()

	all := make([]domain.GameDocument, 0, len(e.games))
	for _, g := range e.games {
		all = append(all, g)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	return all
}

func limit(docs []domain.GameDocument, size int) []domain.GameDocument {
	if size >= 0 && len(docs) > size {
		return docs[:size]
	}
	return docs
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func anyToken(needles, haystack []string) bool {
	for _, n := range needles {
		if slices.Contains(haystack, n) {
			return true
		}
	}
	return false
}
