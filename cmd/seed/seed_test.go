package main

import (
	"context"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/GameCatalog/internal/domain"
)

var seedNow = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func TestGenerateGames_Deterministic(t *testing.T) {
	a := generateGames(rand.New(rand.NewSource(42)), 50, seedNow)
	b := generateGames(rand.New(rand.NewSource(42)), 50, seedNow)

	require.Len(t, a, 50)
	assert.Equal(t, a, b)
}

func TestGenerateGames_WithinColumnLimits(t *testing.T) {
	known := make(map[string]bool, len(genres))
	for _, g := range genres {
		known[g.Name] = true
	}

	for _, g := range generateGames(rand.New(rand.NewSource(7)), 500, seedNow) {
		assert.NotEmpty(t, g.Name)
		assert.LessOrEqual(t, len(g.Name), domain.MaxNameLength)
		assert.LessOrEqual(t, len(g.Description), domain.MaxDescriptionLength)
		assert.True(t, known[g.Genre], g.Genre)
		assert.GreaterOrEqual(t, g.PurchaseCount, int64(0))
		assert.GreaterOrEqual(t, g.AverageRating, 1.0)
		assert.LessOrEqual(t, g.AverageRating, 5.0)
		assert.False(t, g.ReleaseDate.After(seedNow))
	}
}

func TestGenreWeightsSumToOne(t *testing.T) {
	var sum float64
	for _, g := range genres {
		sum += g.Weight
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}

func TestBatches(t *testing.T) {
	assert.Equal(t, [][2]int{{0, 500}, {500, 1000}, {1000, 1200}}, batches(1200, 500))
	assert.Equal(t, [][2]int{{0, 3}}, batches(3, 500))
	assert.Empty(t, batches(0, 500))
}

func TestBuildInsert(t *testing.T) {
	games := generateGames(rand.New(rand.NewSource(1)), 2, seedNow)

	query, args := buildInsert(games)
	assert.Contains(t, query, "INSERT INTO games")
	assert.Contains(t, query, "($1, $2, $3, $4, $5, $6, $7, $8), ($9, $10, $11, $12, $13, $14, $15, $16)")
	require.Len(t, args, 16)
	assert.Equal(t, games[1].Genre, args[15])
}

func TestSeedConfig_Validate(t *testing.T) {
	assert.NoError(t, (&seedConfig{Count: 10, BatchSize: 500}).Validate())
	assert.Error(t, (&seedConfig{Count: -1, BatchSize: 500}).Validate())
	assert.Error(t, (&seedConfig{Count: 10, BatchSize: 0}).Validate())
	assert.Error(t, (&seedConfig{Count: 10, BatchSize: 9000}).Validate())
}

func TestRequestReindex(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/games/reindex", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"indexed":12}}`))
	}))
	defer srv.Close()

	n, err := requestReindex(context.Background(), srv.Client(), srv.URL+"/")
	require.NoError(t, err)
	assert.Equal(t, 12, n)
}

func TestRequestReindex_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := requestReindex(context.Background(), srv.Client(), srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
