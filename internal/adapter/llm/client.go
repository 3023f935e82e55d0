// Package llm provides an HTTP client for an OpenAI-compatible
// chat-completions inference backend.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/avollmer/deskmux/internal/port/llm"
	"github.com/avollmer/deskmux/internal/resilience"
)

// Client talks to the inference backend. One client is shared by the
// routing and recommendation roles; the model identifier is supplied
// per call. The API key is looked up per request so a reloaded
// credential takes effect without a restart.
type Client struct {
	baseURL    string
	key        func() string
	httpClient *http.Client
	policy     *resilience.Policy
}

var _ llm.Completer = (*Client)(nil)

// NewClient creates an inference backend client with a static API key.
func NewClient(baseURL, apiKey string, policy *resilience.Policy) *Client {
	return NewClientWithKey(baseURL, func() string { return apiKey }, policy)
}

// NewClientWithKey creates an inference backend client whose API key is
// resolved per request, typically backed by a reloadable secret vault.
func NewClientWithKey(baseURL string, key func() string, policy *resilience.Policy) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		key:     key,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		policy: policy,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete sends a system+user prompt pair to the given model and
// returns the text of the first choice.
func (c *Client) Complete(ctx context.Context, model, system, prompt string) (string, error) {
	msgs := make([]chatMessage, 0, 2)
	if system != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: system})
	}
	msgs = append(msgs, chatMessage{Role: "user", Content: prompt})

	body, err := json.Marshal(chatRequest{Model: model, Messages: msgs})
	if err != nil {
		return "", fmt.Errorf("marshal completion request: %w", err)
	}

	var result chatResponse
	err = c.policy.Do(ctx, func(ctx context.Context) error {
		data, err := c.doRequest(ctx, http.MethodPost, "/v1/chat/completions", body)
		if err != nil {
			return err
		}
		return json.Unmarshal(data, &result)
	})
	if err != nil {
		return "", fmt.Errorf("complete with %s: %w", model, err)
	}
	if result.Error != nil {
		return "", fmt.Errorf("complete with %s: %s", model, result.Error.Message)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("complete with %s: empty choices", model)
	}
	return result.Choices[0].Message.Content, nil
}

// Health checks if the inference backend is reachable. Bypasses the
// retry budget so the probe reports current state.
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
	if key := c.key(); key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}

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
		return nil, fmt.Errorf("inference backend error %d: %s", resp.StatusCode, string(data))
	}
	return data, nil
}
