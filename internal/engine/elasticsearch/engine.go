package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/utafrali/GameCatalog/internal/domain"
)

const (
	defaultPageSize = 10000
	defaultMaxDocs  = 1_000_000
)

// Config configures the Elasticsearch engine.
type Config struct {
	URL   string
	Index string
	// Refresh forces a refresh after each single-document write. Tests turn
	// it on so that written documents are immediately searchable.
	Refresh bool
	// PageSize is the number of documents fetched per page by FetchAll.
	PageSize int
	// MaxDocs bounds the number of documents FetchAll will accumulate.
	MaxDocs int
	// Transport overrides the HTTP transport, mainly for tests.
	Transport http.RoundTripper
}

// Engine is an Elasticsearch-backed implementation of engine.SearchEngine.
type Engine struct {
	client    *elasticsearch.Client
	indexName string
	refresh   bool
	pageSize  int
	maxDocs   int
	logger    *slog.Logger
}

type esHit struct {
	Source domain.GameDocument `json:"_source"`
}

// esSearchResponse is the part of a search response the engine reads.
type esSearchResponse struct {
	Hits struct {
		Hits []esHit `json:"hits"`
	} `json:"hits"`
}

type esBulkResponse struct {
	Errors bool `json:"errors"`
	Items  []struct {
		Index struct {
			ID     string `json:"_id"`
			Status int    `json:"status"`
			Error  struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"index"`
	} `json:"items"`
}

type esErrorResponse struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
	Status int `json:"status"`
}

// New creates an engine connected to cfg.URL and makes sure the index exists.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (*Engine, error) {
	if cfg.Index == "" {
		cfg.Index = DefaultIndexName
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if cfg.MaxDocs <= 0 {
		cfg.MaxDocs = defaultMaxDocs
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{cfg.URL},
		Transport: cfg.Transport,
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: create client: %w", err)
	}

	e := &Engine{
		client:    client,
		indexName: cfg.Index,
		refresh:   cfg.Refresh,
		pageSize:  cfg.PageSize,
		maxDocs:   cfg.MaxDocs,
		logger:    logger,
	}

	if err := e.ensureIndex(ctx); err != nil {
		return nil, fmt.Errorf("elasticsearch: ensure index: %w", err)
	}
	return e, nil
}

// Ping checks whether the cluster is reachable.
func (e *Engine) Ping(ctx context.Context) error {
	res, err := e.client.Ping(e.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping: unexpected status %s", res.Status())
	}
	return nil
}

func (e *Engine) ensureIndex(ctx context.Context) error {
	res, err := e.client.Indices.Exists([]string{e.indexName}, e.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("check index exists: %w", err)
	}
	_ = res.Body.Close()

	if res.StatusCode == http.StatusOK {
		e.logger.Info("elasticsearch index already exists", slog.String("index", e.indexName))
		return nil
	}

	res, err = e.client.Indices.Create(
		e.indexName,
		e.client.Indices.Create.WithBody(strings.NewReader(indexMapping)),
		e.client.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return responseError("create index", res.Status(), res.Body)
	}

	e.logger.Info("elasticsearch index created", slog.String("index", e.indexName))
	return nil
}

// DeleteIndex drops the whole index. A missing index is not an error.
func (e *Engine) DeleteIndex(ctx context.Context) error {
	res, err := e.client.Indices.Delete([]string{e.indexName}, e.client.Indices.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch delete index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return responseError("elasticsearch delete index", res.Status(), res.Body)
	}
	return nil
}

// Index upserts a single document under its numeric ID.
func (e *Engine) Index(ctx context.Context, doc *domain.GameDocument) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("elasticsearch index: marshal document: %w", err)
	}

	opts := []func(*esapi.IndexRequest){
		e.client.Index.WithDocumentID(doc.DocumentID()),
		e.client.Index.WithContext(ctx),
	}
	if e.refresh {
		opts = append(opts, e.client.Index.WithRefresh("true"))
	}

	res, err := e.client.Index(e.indexName, bytes.NewReader(data), opts...)
	if err != nil {
		return fmt.Errorf("elasticsearch index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return responseError("elasticsearch index", res.Status(), res.Body)
	}

	e.logger.Debug("indexed game", slog.Int64("id", doc.ID), slog.String("name", doc.Name))
	return nil
}

// BulkIndex upserts many documents with the bulk API. Any failed item fails
// the whole call.
func (e *Engine) BulkIndex(ctx context.Context, docs []domain.GameDocument) error {
	if len(docs) == 0 {
		return nil
	}

	var buf bytes.Buffer
	for i := range docs {
		meta := map[string]any{
			"index": map[string]any{
				"_index": e.indexName,
				"_id":    docs[i].DocumentID(),
			},
		}
		if err := json.NewEncoder(&buf).Encode(meta); err != nil {
			return fmt.Errorf("elasticsearch bulk: encode meta: %w", err)
		}
		if err := json.NewEncoder(&buf).Encode(&docs[i]); err != nil {
			return fmt.Errorf("elasticsearch bulk: encode document: %w", err)
		}
	}

	opts := []func(*esapi.BulkRequest){e.client.Bulk.WithContext(ctx)}
	if e.refresh {
		opts = append(opts, e.client.Bulk.WithRefresh("true"))
	}

	res, err := e.client.Bulk(bytes.NewReader(buf.Bytes()), opts...)
	if err != nil {
		return fmt.Errorf("elasticsearch bulk: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return responseError("elasticsearch bulk", res.Status(), res.Body)
	}

	var bulkResp esBulkResponse
	if err := json.NewDecoder(res.Body).Decode(&bulkResp); err != nil {
		return fmt.Errorf("elasticsearch bulk: decode response: %w", err)
	}
	if bulkResp.Errors {
		failed := 0
		first := ""
		for _, item := range bulkResp.Items {
			if item.Index.Status >= 300 {
				if failed == 0 {
					first = fmt.Sprintf("id %s: %s: %s", item.Index.ID, item.Index.Error.Type, item.Index.Error.Reason)
				}
				failed++
			}
		}
		return fmt.Errorf("elasticsearch bulk: %d of %d items failed, first %s", failed, len(docs), first)
	}

	e.logger.Info("bulk indexed games", slog.Int("count", len(docs)))
	return nil
}

// Search runs the full-text name and description query.
func (e *Engine) Search(ctx context.Context, term string, size int) ([]domain.GameDocument, error) {
	return e.search(ctx, "search", searchQuery(term, size))
}

// SearchByGenres runs the genre recommendation query. An empty genre list
// yields no documents without querying.
func (e *Engine) SearchByGenres(ctx context.Context, genres []string, size int) ([]domain.GameDocument, error) {
	if len(genres) == 0 {
		return []domain.GameDocument{}, nil
	}
	return e.search(ctx, "search by genres", genresQuery(genres, size))
}

// MostRecent returns the newest releases.
func (e *Engine) MostRecent(ctx context.Context, size int) ([]domain.GameDocument, error) {
	return e.search(ctx, "most recent", recentQuery(size))
}

// FetchAll pages through the whole index in ID order with search_after. At
// most MaxDocs documents are returned; the last page asks for one extra hit so
// a truncated result can be told apart from an index holding exactly MaxDocs.
func (e *Engine) FetchAll(ctx context.Context) ([]domain.GameDocument, error) {
	all := make([]domain.GameDocument, 0)
	var after *int64

	for {
		remaining := e.maxDocs - len(all)
		size := e.pageSize
		final := remaining <= size
		if final {
			size = remaining + 1
		}

		page, err := e.search(ctx, "fetch all", pageQuery(size, after))
		if err != nil {
			return nil, err
		}
		if final && len(page) > remaining {
			e.logger.WarnContext(ctx, "fetch all truncated at document ceiling",
				slog.Int("max_docs", e.maxDocs),
				slog.String("index", e.indexName),
			)
			return append(all, page[:remaining]...), nil
		}
		all = append(all, page...)
		if len(page) < size {
			return all, nil
		}
		last := page[len(page)-1].ID
		after = &last
	}
}

func (e *Engine) search(ctx context.Context, op string, q map[string]any) ([]domain.GameDocument, error) {
	body, err := json.Marshal(q)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch %s: marshal query: %w", op, err)
	}

	res, err := e.client.Search(
		e.client.Search.WithContext(ctx),
		e.client.Search.WithIndex(e.indexName),
		e.client.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch %s: %w", op, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return nil, responseError("elasticsearch "+op, res.Status(), res.Body)
	}

	var sr esSearchResponse
	if err := json.NewDecoder(res.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("elasticsearch %s: decode response: %w", op, err)
	}

	docs := make([]domain.GameDocument, 0, len(sr.Hits.Hits))
	for _, hit := range sr.Hits.Hits {
		docs = append(docs, hit.Source)
	}
	return docs, nil
}

func responseError(op, status string, body io.Reader) error {
	var errResp esErrorResponse
	if err := json.NewDecoder(body).Decode(&errResp); err == nil && errResp.Error.Type != "" {
		return fmt.Errorf("%s: %s: %s", op, errResp.Error.Type, errResp.Error.Reason)
	}
	return fmt.Errorf("%s: unexpected status %s", op, status)
}
