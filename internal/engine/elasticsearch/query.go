package elasticsearch

import "strings"

type query = map[string]any

// searchQuery matches term against the name (boosted), the description, and
// a case-insensitive substring of the whole name. One clause must match.
func searchQuery(term string, size int) query {
	return query{
		"size": size,
		"query": query{
			"bool": query{
				"should": []any{
					query{"match": query{"name": query{"query": term, "boost": 2}}},
					query{"match": query{"description": query{"query": term}}},
					query{"wildcard": query{"name.keyword": query{
						"value":            "*" + strings.ToLower(term) + "*",
						"case_insensitive": true,
					}}},
				},
				"minimum_should_match": 1,
			},
		},
		"sort": []any{query{"_score": "desc"}},
	}
}

// genresQuery matches any of the exact genres, best rated and best selling
// first.
func genresQuery(genres []string, size int) query {
	should := make([]any, 0, len(genres))
	for _, g := range genres {
		should = append(should, query{"term": query{"genre.keyword": g}})
	}
	return query{
		"size": size,
		"query": query{
			"bool": query{
				"should":               should,
				"minimum_should_match": 1,
			},
		},
		"sort": []any{
			query{"average_rating": "desc"},
			query{"purchase_count": "desc"},
		},
	}
}

func recentQuery(size int) query {
	return query{
		"size":  size,
		"query": query{"match_all": query{}},
		"sort":  []any{query{"release_date": "desc"}},
	}
}

// pageQuery fetches one page of all documents in ID order, starting after
// afterID when it is set.
func pageQuery(size int, afterID *int64) query {
	q := query{
		"size":  size,
		"query": query{"match_all": query{}},
		"sort":  []any{query{"id": "asc"}},
	}
	if afterID != nil {
		q["search_after"] = []any{*afterID}
	}
	return q
}
