package app_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests drive a running catalog service. Set CATALOG_URL to enable them.

func catalogURL(t *testing.T) string {
	t.Helper()
	base := os.Getenv("CATALOG_URL")
	if base == "" {
		t.Skip("CATALOG_URL not set")
	}

	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(base + "/health/live")
	if err != nil {
		t.Skipf("catalog service not reachable at %s: %v", base, err)
	}
	resp.Body.Close()
	return base
}

func call(t *testing.T, method, url string, body any) (int, json.RawMessage) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return resp.StatusCode, nil
	}
	var env struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env.Data
}

type game struct {
	ID            int64   `json:"id"`
	Name          string  `json:"name"`
	Genre         string  `json:"genre"`
	PurchaseCount int64   `json:"purchase_count"`
	AverageRating float64 `json:"average_rating"`
}

func TestGameLifecycle(t *testing.T) {
	base := catalogURL(t)
	unique := fmt.Sprintf("Flowtest%d", time.Now().UnixNano())

	status, data := call(t, http.MethodPost, base+"/api/v1/games/", map[string]any{
		"code":           1,
		"name":           unique + " Odyssey",
		"description":    "Created by the integration suite",
		"release_date":   time.Now().UTC().Format(time.RFC3339),
		"average_rating": 3.5,
		"genre":          unique,
	})
	require.Equal(t, http.StatusCreated, status)

	var created game
	require.NoError(t, json.Unmarshal(data, &created))
	require.Greater(t, created.ID, int64(0))
	gameURL := fmt.Sprintf("%s/api/v1/games/%d", base, created.ID)

	status, _ = call(t, http.MethodPut, gameURL+"/purchases", nil)
	require.Equal(t, http.StatusOK, status)

	status, data = call(t, http.MethodPut, gameURL+"/rating", map[string]float64{"rating": 4.25})
	require.Equal(t, http.StatusOK, status)
	var rated game
	require.NoError(t, json.Unmarshal(data, &rated))
	assert.Equal(t, int64(1), rated.PurchaseCount)
	assert.Equal(t, 4.25, rated.AverageRating)

	// Writes go through the index synchronously, so the game is searchable.
	status, data = call(t, http.MethodGet, base+"/api/v1/games/search?q="+unique, nil)
	require.Equal(t, http.StatusOK, status)
	var hits []game
	require.NoError(t, json.Unmarshal(data, &hits))
	require.NotEmpty(t, hits)
	assert.Equal(t, created.ID, hits[0].ID)

	status, data = call(t, http.MethodPost, base+"/api/v1/games/recommendations", []string{unique})
	require.Equal(t, http.StatusOK, status)
	var recs []game
	require.NoError(t, json.Unmarshal(data, &recs))
	require.Len(t, recs, 1)

	status, _ = call(t, http.MethodDelete, gameURL, nil)
	require.Equal(t, http.StatusNoContent, status)

	status, _ = call(t, http.MethodGet, gameURL, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestMetricsEndpoints(t *testing.T) {
	base := catalogURL(t)

	for _, path := range []string{
		"/api/v1/games/metrics/top-genres",
		"/api/v1/games/metrics/top-genres-by-sales?top=3",
		"/api/v1/games/metrics/average-rating-by-genre",
		"/api/v1/games/metrics/general",
		"/api/v1/games/metrics/dashboard",
	} {
		t.Run(path, func(t *testing.T) {
			status, data := call(t, http.MethodGet, base+path, nil)
			assert.Equal(t, http.StatusOK, status)
			assert.NotEmpty(t, data)
		})
	}
}

func TestReadiness(t *testing.T) {
	base := catalogURL(t)

	resp, err := http.Get(base + "/health/ready")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
