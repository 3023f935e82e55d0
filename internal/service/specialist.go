package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/avollmer/deskmux/internal/config"
	"github.com/avollmer/deskmux/internal/domain"
	"github.com/avollmer/deskmux/internal/domain/triage"
	"github.com/avollmer/deskmux/internal/port/knowledge"
	"github.com/avollmer/deskmux/internal/port/llm"
)

// maxQuotedEntries bounds how many retrieved solutions are quoted in the
// recommendation prompt; the rest still travel in the finding.
const maxQuotedEntries = 3

// SpecialistService handles queries for a single domain: retrieve
// candidate solutions from the knowledge store, then generate a
// recommendation with the domain's model.
type SpecialistService struct {
	dom       config.Domain
	searcher  knowledge.Searcher
	completer llm.Completer
	topK      int
}

// NewSpecialistService creates the specialist for one domain.
func NewSpecialistService(dom config.Domain, searcher knowledge.Searcher, completer llm.Completer, topK int) *SpecialistService {
	return &SpecialistService{
		dom:       dom,
		searcher:  searcher,
		completer: completer,
		topK:      topK,
	}
}

// Domain returns the domain this specialist serves.
func (s *SpecialistService) Domain() string { return s.dom.Name }

// Handle produces the finding for a query. A failed knowledge lookup
// degrades to a low-confidence recommendation; a failed completion is
// fatal for the finding and surfaces as ErrUpstreamUnavailable.
func (s *SpecialistService) Handle(ctx context.Context, q triage.Query) (*triage.Finding, error) {
	entries, err := s.searcher.Search(ctx, s.dom.Name, q.Text, s.topK)
	if err != nil {
		slog.Warn("knowledge lookup failed, continuing without entries",
			"query_id", q.ID, "domain", s.dom.Name, "error", err)
		entries = nil
	}

	confidence := triage.ConfidenceHigh
	if len(entries) == 0 {
		confidence = triage.ConfidenceLow
	}

	out, err := s.completer.Complete(ctx, s.dom.Model, s.systemPrompt(), buildPrompt(q.Text, entries))
	if err != nil {
		return nil, fmt.Errorf("%w: %s completion: %v", domain.ErrUpstreamUnavailable, s.dom.Name, err)
	}

	recommendation := strings.TrimSpace(out)
	f := &triage.Finding{
		QueryID:        q.ID,
		Domain:         s.dom.Name,
		Recommendation: recommendation,
		Confidence:     confidence,
		Resolved:       recommendation != "",
		Entries:        entries,
	}

	slog.Info("finding produced", "query_id", q.ID, "domain", s.dom.Name,
		"confidence", f.Confidence, "resolved", f.Resolved, "entries", len(entries))
	return f, nil
}

func (s *SpecialistService) systemPrompt() string {
	return fmt.Sprintf(`You are an IT support specialist for this area: %s.
Give the user concrete, numbered troubleshooting steps for their problem.
Prefer solutions from the knowledge base excerpts when they match the
problem; otherwise give your best general guidance for this area.
Answer in plain text, no markdown headings.`, s.dom.Description)
}

// buildPrompt assembles the user prompt: the query plus up to
// maxQuotedEntries knowledge excerpts.
func buildPrompt(text string, entries []triage.KnowledgeEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "User problem: %s\n", text)

	if len(entries) == 0 {
		b.WriteString("\nNo matching knowledge base entries were found.\n")
		return b.String()
	}

	quoted := entries
	if len(quoted) > maxQuotedEntries {
		quoted = quoted[:maxQuotedEntries]
	}
	b.WriteString("\nKnowledge base excerpts:\n")
	for i, e := range quoted {
		fmt.Fprintf(&b, "%d. [%s/%s] %s\n   Solution: %s\n",
			i+1, e.Category, e.Severity, e.Issue, e.Solution)
	}
	return b.String()
}
