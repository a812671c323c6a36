package domain

import (
	"strconv"
	"time"
)

// Column limits of the canonical games table.
const (
	MaxNameLength        = 255
	MaxDescriptionLength = 1000
	MaxGenreLength       = 250
)

// Game is the canonical catalog record stored in PostgreSQL.
type Game struct {
	ID            int64     `json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	Code          int64     `json:"code"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	ReleaseDate   time.Time `json:"release_date"`
	PurchaseCount int64     `json:"purchase_count"`
	AverageRating float64   `json:"average_rating"`
	Genre         string    `json:"genre"`
}

// NormalizeTimes converts both timestamps to UTC at microsecond precision,
// which is what a PostgreSQL timestamp column stores.
func (g *Game) NormalizeTimes() {
	g.CreatedAt = normalizeTime(g.CreatedAt)
	g.ReleaseDate = normalizeTime(g.ReleaseDate)
}

func normalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// GameDocument is the denormalized copy of a Game held in the search index.
type GameDocument struct {
	ID            int64     `json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	Code          int64     `json:"code"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	ReleaseDate   time.Time `json:"release_date"`
	PurchaseCount int64     `json:"purchase_count"`
	AverageRating float64   `json:"average_rating"`
	Genre         string    `json:"genre"`
}

// NewGameDocument projects a canonical record into its search document. It is
// the only place the two shapes are mapped.
func NewGameDocument(g *Game) GameDocument {
	return GameDocument{
		ID:            g.ID,
		CreatedAt:     g.CreatedAt,
		Code:          g.Code,
		Name:          g.Name,
		Description:   g.Description,
		ReleaseDate:   g.ReleaseDate,
		PurchaseCount: g.PurchaseCount,
		AverageRating: g.AverageRating,
		Genre:         g.Genre,
	}
}

// DocumentID is the index key of the document.
func (d GameDocument) DocumentID() string {
	return strconv.FormatInt(d.ID, 10)
}
