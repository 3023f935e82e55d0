// Package llm defines the port interface for the inference backend.
package llm

import "context"

// Completer is the port interface for prompt-in/text-out inference.
// The caller supplies the model identifier per role: routing and domain
// recommendation may use different backend models.
type Completer interface {
	Complete(ctx context.Context, model, system, prompt string) (string, error)
	Health(ctx context.Context) error
}
