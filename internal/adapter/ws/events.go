package ws

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/avollmer/deskmux/internal/domain/triage"
)

// Event type constants for WebSocket messages, one per cycle milestone.
const (
	EventQueryReceived     = "query.received"
	EventQueryClassified   = "query.classified"
	EventFindingReceived   = "finding.received"
	EventAnswerSynthesized = "answer.synthesized"
)

// QueryReceivedEvent is broadcast when a cycle starts.
type QueryReceivedEvent struct {
	QueryID string `json:"query_id"`
	Text    string `json:"text"`
}

// QueryClassifiedEvent is broadcast after routing, before dispatch.
type QueryClassifiedEvent struct {
	QueryID string               `json:"query_id"`
	Scores  []triage.DomainScore `json:"scores"`
}

// FindingReceivedEvent is broadcast as each specialist answers.
type FindingReceivedEvent struct {
	QueryID    string            `json:"query_id"`
	Domain     string            `json:"domain"`
	Confidence triage.Confidence `json:"confidence"`
}

// AnswerSynthesizedEvent is broadcast when the cycle completes.
type AnswerSynthesizedEvent struct {
	QueryID   string   `json:"query_id"`
	Domains   []string `json:"domains"`
	Escalated bool     `json:"escalated"`
}

// BroadcastEvent marshals a typed event and broadcasts it.
func (h *Hub) BroadcastEvent(ctx context.Context, eventType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("marshal ws event payload", "type", eventType, "error", err)
		return
	}

	h.Broadcast(ctx, Message{
		Type:    eventType,
		Payload: json.RawMessage(data),
	})
}
