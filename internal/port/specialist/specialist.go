// Package specialist defines the port interface the supervisor uses to
// consult a domain specialist process.
package specialist

import (
	"context"

	"github.com/avollmer/deskmux/internal/domain/triage"
)

// Client is one domain's process-query surface as seen by the
// supervisor. Implementations apply the shared transport policy; a call
// that fails after retries returns an error and yields no finding.
type Client interface {
	Process(ctx context.Context, q triage.Query) (*triage.Finding, error)
	Health(ctx context.Context) error
}

// Registry maps each configured domain name to its client. Built once at
// process start from the closed domain set; read-only afterwards.
type Registry map[string]Client
