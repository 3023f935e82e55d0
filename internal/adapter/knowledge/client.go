// Package knowledge provides the HTTP client for the external knowledge
// lookup service.
package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	otelx "github.com/avollmer/deskmux/internal/adapter/otel"
	"github.com/avollmer/deskmux/internal/domain/triage"
	"github.com/avollmer/deskmux/internal/port/cache"
	"github.com/avollmer/deskmux/internal/port/knowledge"
	"github.com/avollmer/deskmux/internal/resilience"
)

// Client talks to the knowledge lookup service. Results are cached in an
// optional read-through cache keyed by partition and normalized query
// text; the store is read-only, so entries only expire by TTL.
type Client struct {
	baseURL    string
	httpClient *http.Client
	policy     *resilience.Policy
	cache      cache.Cache
	cacheTTL   time.Duration
	metrics    *otelx.Metrics
}

var _ knowledge.Searcher = (*Client)(nil)

// NewClient creates a knowledge client. policy carries the shared
// timeout/retry/breaker transport behavior; c may be nil to disable
// caching, metrics may be nil.
func NewClient(baseURL string, policy *resilience.Policy, c cache.Cache, cacheTTL time.Duration, metrics *otelx.Metrics) *Client {
	if metrics == nil {
		// Instruments from the global provider are no-ops until an SDK
		// is installed; creation only fails on invalid instrument names.
		metrics, _ = otelx.NewMetrics()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		policy:   policy,
		cache:    c,
		cacheTTL: cacheTTL,
		metrics:  metrics,
	}
}

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type searchResponse struct {
	Success bool                    `json:"success"`
	Results []triage.KnowledgeEntry `json:"results"`
	Count   int                     `json:"count"`
	Error   string                  `json:"error,omitempty"`
}

// Search returns up to limit candidate entries from the given partition.
func (c *Client) Search(ctx context.Context, partition, query string, limit int) ([]triage.KnowledgeEntry, error) {
	key := cacheKey(partition, query, limit)
	if c.cache != nil {
		if data, ok, err := c.cache.Get(ctx, key); err == nil && ok {
			var entries []triage.KnowledgeEntry
			if err := json.Unmarshal(data, &entries); err == nil {
				c.metrics.KnowledgeCacheHits.Add(ctx, 1)
				return entries, nil
			}
			_ = c.cache.Delete(ctx, key)
		}
	}

	body, err := json.Marshal(searchRequest{Query: query, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("marshal search request: %w", err)
	}

	var result searchResponse
	err = c.policy.Do(ctx, func(ctx context.Context) error {
		data, err := c.doRequest(ctx, http.MethodPost, "/search/"+url.PathEscape(partition), body)
		if err != nil {
			return err
		}
		return json.Unmarshal(data, &result)
	})
	if err != nil {
		return nil, fmt.Errorf("knowledge search %s: %w", partition, err)
	}
	if !result.Success {
		return nil, fmt.Errorf("knowledge search %s: %s", partition, result.Error)
	}

	if c.cache != nil {
		if data, err := json.Marshal(result.Results); err == nil {
			_ = c.cache.Set(ctx, key, data, c.cacheTTL)
		}
	}
	return result.Results, nil
}

type healthResponse struct {
	Status         string   `json:"status"`
	KnowledgeBases []string `json:"knowledge_bases"`
}

// Health reports service liveness and the loaded partition list.
// Health checks bypass the retry budget: a probe should report the
// current state, not mask it.
func (c *Client) Health(ctx context.Context) (knowledge.Status, error) {
	data, err := c.doRequest(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return knowledge.Status{}, err
	}

	var hr healthResponse
	if err := json.Unmarshal(data, &hr); err != nil {
		return knowledge.Status{}, fmt.Errorf("unmarshal health: %w", err)
	}
	return knowledge.Status{
		Healthy:    hr.Status == "healthy",
		Partitions: hr.KnowledgeBases,
	}, nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("knowledge service error %d: %s", resp.StatusCode, string(data))
	}
	return data, nil
}

// cacheKey normalizes the query so trivially different phrasings of the
// same lookup share an entry.
func cacheKey(partition, query string, limit int) string {
	norm := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	return fmt.Sprintf("%s:%d:%s", partition, limit, norm)
}
