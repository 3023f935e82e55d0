// Package knowledge defines the port interface for the external
// knowledge lookup service.
package knowledge

import (
	"context"

	"github.com/avollmer/deskmux/internal/domain/triage"
)

// Status reports the liveness of the knowledge service and which
// domain partitions it has loaded.
type Status struct {
	Healthy    bool     `json:"healthy"`
	Partitions []string `json:"partitions"`
}

// Searcher is the port interface for keyed knowledge search. The store
// is read-only and safe for concurrent callers.
type Searcher interface {
	// Search returns up to limit candidate entries from the given domain
	// partition, ranked by the store's own relevance order.
	Search(ctx context.Context, partition, query string, limit int) ([]triage.KnowledgeEntry, error)
	// Health reports service liveness and the loaded partition list.
	Health(ctx context.Context) (Status, error)
}
