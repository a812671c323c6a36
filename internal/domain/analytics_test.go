package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenreStats_MarshalKeepsOrder(t *testing.T) {
	stats := GenreStats{{"RPG", 30}, {"FPS", 5}, {"Action", 2.5}}

	raw, err := json.Marshal(stats)
	require.NoError(t, err)
	assert.Equal(t, `{"RPG":30,"FPS":5,"Action":2.5}`, string(raw))
}

func TestGenreStats_MarshalEmpty(t *testing.T) {
	raw, err := json.Marshal(GenreStats{})
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(raw))

	raw, err = json.Marshal(GenreStats(nil))
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(raw))
}

func TestGenreStats_MarshalEscapesKeys(t *testing.T) {
	raw, err := json.Marshal(GenreStats{{`Beat "em" up`, 1}})
	require.NoError(t, err)
	assert.Equal(t, `{"Beat \"em\" up":1}`, string(raw))
}

func TestGenreStats_UnmarshalKeepsOrder(t *testing.T) {
	var stats GenreStats
	require.NoError(t, json.Unmarshal([]byte(`{"Strategy":1,"Adventure":4.25,"RPG":2}`), &stats))

	assert.Equal(t, GenreStats{{"Strategy", 1}, {"Adventure", 4.25}, {"RPG", 2}}, stats)
}

func TestGenreStats_UnmarshalRejectsNonObject(t *testing.T) {
	var stats GenreStats
	assert.Error(t, json.Unmarshal([]byte(`[1,2]`), &stats))
	assert.Error(t, json.Unmarshal([]byte(`{"RPG":"many"}`), &stats))
}

func TestDashboard_RoundTrip(t *testing.T) {
	in := Dashboard{
		General:          CatalogMetrics{TotalGames: 3, TotalSales: 35, AverageRating: 4.12, TotalGenres: 2},
		TopGenres:        GenreStats{{"RPG", 2}, {"FPS", 1}},
		TopGenresBySales: GenreStats{{"RPG", 30}, {"FPS", 5}},
		AverageRatings:   GenreStats{{"FPS", 3}, {"RPG", 4.5}},
		RecentGames:      []GameDocument{{ID: 1, Name: "A"}},
	}

	raw, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"general":{"total_games":3,"total_sales":35,"average_rating":4.12,"total_genres":2}`)

	var out Dashboard
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, in, out)
}

func TestRoundRating_HalfToEven(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{0.125, 0.12},
		{0.375, 0.38},
		{4.5, 4.5},
		{3.3333333, 3.33},
		{2.666666, 2.67},
		{0, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RoundRating(tt.in), "RoundRating(%v)", tt.in)
	}
}
