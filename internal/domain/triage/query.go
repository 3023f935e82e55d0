// Package triage holds the data model of one request/response cycle:
// the query, its classification, the specialist findings and the final
// synthesized answer. All values are immutable once created.
package triage

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/avollmer/deskmux/internal/domain"
)

// Query identifies one request/response cycle.
type Query struct {
	ID          string    `json:"id"`
	Text        string    `json:"text"`
	SubmittedAt time.Time `json:"submitted_at"`
}

// NewQuery validates the raw text and wraps it in a Query with a fresh
// ID. Text that is empty after trimming fails with ErrInvalidQuery.
func NewQuery(text string) (Query, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return Query{}, fmt.Errorf("%w: empty query text", domain.ErrInvalidQuery)
	}
	return Query{
		ID:          uuid.New().String(),
		Text:        trimmed,
		SubmittedAt: time.Now().UTC(),
	}, nil
}
