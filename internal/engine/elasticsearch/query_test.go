package elasticsearch

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func toJSON(t *testing.T, q map[string]any) string {
	t.Helper()
	b, err := json.Marshal(q)
	require.NoError(t, err)
	return string(b)
}

func TestSearchQuery(t *testing.T) {
	got := toJSON(t, searchQuery("Zelda", 5))
	assert.JSONEq(t, `{
		"size": 5,
		"query": {"bool": {
			"should": [
				{"match": {"name": {"query": "Zelda", "boost": 2}}},
				{"match": {"description": {"query": "Zelda"}}},
				{"wildcard": {"name.keyword": {"value": "*zelda*", "case_insensitive": true}}}
			],
			"minimum_should_match": 1
		}},
		"sort": [{"_score": "desc"}]
	}`, got)
}

func TestGenresQuery(t *testing.T) {
	got := toJSON(t, genresQuery([]string{"RPG", "FPS"}, 10))
	assert.JSONEq(t, `{
		"size": 10,
		"query": {"bool": {
			"should": [
				{"term": {"genre.keyword": "RPG"}},
				{"term": {"genre.keyword": "FPS"}}
			],
			"minimum_should_match": 1
		}},
		"sort": [{"average_rating": "desc"}, {"purchase_count": "desc"}]
	}`, got)
}

func TestRecentQuery(t *testing.T) {
	assert.JSONEq(t,
		`{"size": 3, "query": {"match_all": {}}, "sort": [{"release_date": "desc"}]}`,
		toJSON(t, recentQuery(3)))
}

func TestPageQuery(t *testing.T) {
	assert.JSONEq(t,
		`{"size": 100, "query": {"match_all": {}}, "sort": [{"id": "asc"}]}`,
		toJSON(t, pageQuery(100, nil)))

	after := int64(77)
	assert.JSONEq(t,
		`{"size": 100, "query": {"match_all": {}}, "sort": [{"id": "asc"}], "search_after": [77]}`,
		toJSON(t, pageQuery(100, &after)))
}
