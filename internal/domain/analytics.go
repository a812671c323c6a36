package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// GenreStat is one genre and its aggregated value (a count, a sum or an
// average depending on the query).
type GenreStat struct {
	Genre string
	Value float64
}

// GenreStats is an ordered genre to value mapping. It encodes as a JSON
// object whose keys keep the slice order.
type GenreStats []GenreStat

// MarshalJSON implements json.Marshaler.
func (s GenreStats) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, st := range s {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(st.Genre)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(st.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler, keeping the document key order.
func (s *GenreStats) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("genre stats: expected object, got %v", tok)
	}

	out := GenreStats{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("genre stats: unexpected key %v", keyTok)
		}
		var v float64
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("genre stats: value for %q: %w", key, err)
		}
		out = append(out, GenreStat{Genre: key, Value: v})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*s = out
	return nil
}

// CatalogMetrics summarizes the whole index.
type CatalogMetrics struct {
	TotalGames    int     `json:"total_games"`
	TotalSales    int64   `json:"total_sales"`
	AverageRating float64 `json:"average_rating"`
	TotalGenres   int     `json:"total_genres"`
}

// Dashboard bundles the dashboard widgets computed in one request.
type Dashboard struct {
	General          CatalogMetrics `json:"general"`
	TopGenres        GenreStats     `json:"top_genres"`
	TopGenresBySales GenreStats     `json:"top_genres_by_sales"`
	AverageRatings   GenreStats     `json:"average_ratings"`
	RecentGames      []GameDocument `json:"recent_games"`
}

// RoundRating rounds to two decimals with ties going to the even digit.
func RoundRating(x float64) float64 {
	return math.RoundToEven(x*100) / 100
}
