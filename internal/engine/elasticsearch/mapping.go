package elasticsearch

// DefaultIndexName is the index holding game documents.
const DefaultIndexName = "games"

// indexMapping is the explicit mapping of the games index. Text fields that
// are also grouped or matched exactly carry a keyword subfield.
const indexMapping = `{
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 0
  },
  "mappings": {
    "properties": {
      "id":             { "type": "long" },
      "created_at":     { "type": "date" },
      "code":           { "type": "long" },
      "name":           { "type": "text", "fields": { "keyword": { "type": "keyword", "ignore_above": 256 } } },
      "description":    { "type": "text" },
      "release_date":   { "type": "date" },
      "purchase_count": { "type": "long" },
      "average_rating": { "type": "double" },
      "genre":          { "type": "text", "fields": { "keyword": { "type": "keyword", "ignore_above": 256 } } }
    }
  }
}`
