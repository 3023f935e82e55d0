package ws

import (
	"context"

	"github.com/avollmer/deskmux/internal/domain/triage"
)

// The Hub doubles as the cycle event sink: each milestone becomes one
// typed broadcast. Broadcasts never block the cycle.

func (h *Hub) QueryReceived(ctx context.Context, q triage.Query) {
	h.BroadcastEvent(ctx, EventQueryReceived, QueryReceivedEvent{
		QueryID: q.ID,
		Text:    q.Text,
	})
}

func (h *Hub) QueryClassified(ctx context.Context, c triage.Classification) {
	h.BroadcastEvent(ctx, EventQueryClassified, QueryClassifiedEvent{
		QueryID: c.QueryID,
		Scores:  c.Scores,
	})
}

func (h *Hub) FindingReceived(ctx context.Context, f *triage.Finding) {
	h.BroadcastEvent(ctx, EventFindingReceived, FindingReceivedEvent{
		QueryID:    f.QueryID,
		Domain:     f.Domain,
		Confidence: f.Confidence,
	})
}

func (h *Hub) AnswerSynthesized(ctx context.Context, a triage.SynthesizedAnswer) {
	h.BroadcastEvent(ctx, EventAnswerSynthesized, AnswerSynthesizedEvent{
		QueryID:   a.QueryID,
		Domains:   a.Domains,
		Escalated: a.Escalated,
	})
}
