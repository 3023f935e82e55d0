// Package agent provides the HTTP client a supervisor uses to consult a
// specialist's process-query surface.
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/avollmer/deskmux/internal/domain/triage"
	"github.com/avollmer/deskmux/internal/port/specialist"
	"github.com/avollmer/deskmux/internal/resilience"
)

// Client consults one specialist process over its uniform surface:
// POST /process and GET /health.
type Client struct {
	domain     string
	baseURL    string
	httpClient *http.Client
	policy     *resilience.Policy
}

var _ specialist.Client = (*Client)(nil)

// NewClient creates a specialist client for one domain. Each domain gets
// its own policy so one failing specialist trips only its own breaker.
func NewClient(domain, baseURL string, policy *resilience.Policy) *Client {
	return &Client{
		domain:  domain,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		policy: policy,
	}
}

type processRequest struct {
	Query triage.Query `json:"query"`
}

// Process sends the query to the specialist and returns its finding.
// A malformed response (wrong domain, missing recommendation) is an
// error; the supervisor treats it like any other dispatch failure.
func (c *Client) Process(ctx context.Context, q triage.Query) (*triage.Finding, error) {
	body, err := json.Marshal(processRequest{Query: q})
	if err != nil {
		return nil, fmt.Errorf("marshal process request: %w", err)
	}

	var f triage.Finding
	err = c.policy.Do(ctx, func(ctx context.Context) error {
		data, err := c.doRequest(ctx, http.MethodPost, "/process", body)
		if err != nil {
			return err
		}
		return json.Unmarshal(data, &f)
	})
	if err != nil {
		return nil, fmt.Errorf("consult %s: %w", c.domain, err)
	}

	if f.Domain != c.domain {
		return nil, fmt.Errorf("consult %s: finding for unexpected domain %q", c.domain, f.Domain)
	}
	if f.Recommendation == "" && f.Resolved {
		return nil, fmt.Errorf("consult %s: malformed finding", c.domain)
	}
	return &f, nil
}

// Health probes the specialist's liveness endpoint.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.doRequest(ctx, http.MethodGet, "/health", nil)
	return err
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
		return nil, fmt.Errorf("specialist %s error %d: %s", c.domain, resp.StatusCode, string(data))
	}
	return data, nil
}
