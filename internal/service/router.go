package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/avollmer/deskmux/internal/config"
	"github.com/avollmer/deskmux/internal/domain"
	"github.com/avollmer/deskmux/internal/domain/triage"
	"github.com/avollmer/deskmux/internal/port/llm"
)

const routingSystemPrompt = `You are the routing component of an IT support triage system.
Given a user query and the list of available support domains, decide which
domains are relevant. Respond with a JSON array only, no prose:
[{"domain": "<name>", "weight": <relevance between 0.0 and 1.0>}]
Include a domain only if it is plausibly relevant to the query.`

// RouterService classifies a query against the closed domain set using
// the inference backend, with a deterministic keyword fallback when the
// backend fails or returns unusable output.
type RouterService struct {
	completer    llm.Completer
	model        string
	domains      []config.Domain
	minRelevance float64
	fallback     *keywordClassifier
}

// NewRouterService creates a RouterService over the configured domains.
func NewRouterService(completer llm.Completer, model string, domains []config.Domain, minRelevance float64) *RouterService {
	return &RouterService{
		completer:    completer,
		model:        model,
		domains:      domains,
		minRelevance: minRelevance,
		fallback:     newKeywordClassifier(domains),
	}
}

// Route produces the classification for a query. The only caller-visible
// failure is ErrInvalidQuery on a blank query; an unreachable backend
// degrades to the keyword fallback, and an empty result is valid (it
// routes the cycle to escalation downstream).
func (s *RouterService) Route(ctx context.Context, q triage.Query) (triage.Classification, error) {
	if strings.TrimSpace(q.Text) == "" {
		return triage.Classification{}, fmt.Errorf("%w: empty query text", domain.ErrInvalidQuery)
	}

	known := make([]string, len(s.domains))
	for i, d := range s.domains {
		known[i] = d.Name
	}

	raw, err := s.classify(ctx, q)
	if err != nil {
		slog.Warn("classification backend failed, using keyword fallback",
			"query_id", q.ID, "error", err)
		raw = s.fallback.classify(q.Text)
	}

	c, dropped := triage.NewClassification(q.ID, raw, known, s.minRelevance)
	for _, d := range dropped {
		slog.Warn("dropped invalid classification entry",
			"query_id", q.ID, "domain", d.Domain, "weight", d.Weight)
	}

	slog.Info("query classified", "query_id", q.ID, "domains", c.Domains())
	return c, nil
}

// classify asks the inference backend for a ranked domain subset.
func (s *RouterService) classify(ctx context.Context, q triage.Query) ([]triage.DomainScore, error) {
	var b strings.Builder
	b.WriteString("Available domains:\n")
	for _, d := range s.domains {
		fmt.Fprintf(&b, "- %s: %s\n", d.Name, d.Description)
	}
	fmt.Fprintf(&b, "\nQuery: %s\n", q.Text)

	out, err := s.completer.Complete(ctx, s.model, routingSystemPrompt, b.String())
	if err != nil {
		return nil, fmt.Errorf("routing completion: %w", err)
	}

	scores, err := parseScores(out)
	if err != nil {
		return nil, fmt.Errorf("routing output: %w", err)
	}
	return scores, nil
}

// parseScores extracts the first JSON array from the backend output.
// Models tend to wrap the array in prose or code fences.
func parseScores(out string) ([]triage.DomainScore, error) {
	start := strings.Index(out, "[")
	end := strings.LastIndex(out, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON array in %q", truncate(out, 80))
	}

	var scores []triage.DomainScore
	if err := json.Unmarshal([]byte(out[start:end+1]), &scores); err != nil {
		return nil, fmt.Errorf("parse scores: %w", err)
	}
	return scores, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
