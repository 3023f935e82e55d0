package service

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	otelx "github.com/avollmer/deskmux/internal/adapter/otel"
	"github.com/avollmer/deskmux/internal/domain/triage"
	"github.com/avollmer/deskmux/internal/port/specialist"
)

// CycleEvents receives progress notifications during a triage cycle,
// typically fanned out to WebSocket observers. Implementations must not
// block: the cycle does not wait for observers.
type CycleEvents interface {
	QueryReceived(ctx context.Context, q triage.Query)
	QueryClassified(ctx context.Context, c triage.Classification)
	FindingReceived(ctx context.Context, f *triage.Finding)
	AnswerSynthesized(ctx context.Context, a triage.SynthesizedAnswer)
}

type nopEvents struct{}

func (nopEvents) QueryReceived(context.Context, triage.Query)                 {}
func (nopEvents) QueryClassified(context.Context, triage.Classification)      {}
func (nopEvents) FindingReceived(context.Context, *triage.Finding)            {}
func (nopEvents) AnswerSynthesized(context.Context, triage.SynthesizedAnswer) {}

// SupervisorService runs the full triage cycle: accept a query, classify
// it, consult the relevant specialists in parallel and synthesize the
// answer. One instance serves all queries; it holds no per-query state.
type SupervisorService struct {
	router       *RouterService
	registry     specialist.Registry
	synth        *Synthesizer
	events       CycleEvents
	metrics      *otelx.Metrics
	totalTimeout time.Duration
}

// NewSupervisorService wires a supervisor. events may be nil when no
// observer surface is exposed.
func NewSupervisorService(router *RouterService, registry specialist.Registry, synth *Synthesizer, events CycleEvents, metrics *otelx.Metrics, totalTimeout time.Duration) *SupervisorService {
	if events == nil {
		events = nopEvents{}
	}
	if metrics == nil {
		// Instruments from the global provider are no-ops until an SDK
		// is installed; creation only fails on invalid instrument names.
		metrics, _ = otelx.NewMetrics()
	}
	return &SupervisorService{
		router:       router,
		registry:     registry,
		synth:        synth,
		events:       events,
		metrics:      metrics,
		totalTimeout: totalTimeout,
	}
}

// ProcessQuery runs one triage cycle. The returned answer is always
// usable: either a synthesized recommendation or the escalation text.
// The only error is a rejected (blank) query.
func (s *SupervisorService) ProcessQuery(ctx context.Context, text string) (triage.SynthesizedAnswer, error) {
	q, err := triage.NewQuery(text)
	if err != nil {
		return triage.SynthesizedAnswer{}, err
	}

	ctx, span := otelx.StartCycleSpan(ctx, q.ID)
	defer span.End()

	start := time.Now()
	s.metrics.QueriesReceived.Add(ctx, 1)
	s.events.QueryReceived(ctx, q)
	slog.Info("query received", "query_id", q.ID)

	c, err := s.router.Route(ctx, q)
	if err != nil {
		return triage.SynthesizedAnswer{}, err
	}
	s.events.QueryClassified(ctx, c)

	findings := s.dispatch(ctx, q, c)

	answer := s.synth.Synthesize(q, c, findings)
	if answer.Escalated {
		s.metrics.QueriesEscalated.Add(ctx, 1)
	}
	s.events.AnswerSynthesized(ctx, answer)
	s.metrics.CycleDuration.Record(ctx, time.Since(start).Seconds())

	slog.Info("cycle complete", "query_id", q.ID,
		"domains", answer.Domains, "escalated", answer.Escalated,
		"duration", time.Since(start))
	return answer, nil
}

// dispatch fans the query out to every classified domain's specialist and
// collects whatever findings arrive before the cycle deadline. A failed
// specialist never aborts its siblings; it just contributes no finding.
// Stragglers past the deadline are abandoned, not awaited.
func (s *SupervisorService) dispatch(ctx context.Context, q triage.Query, c triage.Classification) []*triage.Finding {
	domains := c.Domains()
	if len(domains) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, s.totalTimeout)
	defer cancel()
	ctx, span := otelx.StartDispatchSpan(ctx, q.ID, domains)
	defer span.End()

	results := make(chan *triage.Finding, len(domains))
	g, gctx := errgroup.WithContext(ctx)
	for _, name := range domains {
		client, ok := s.registry[name]
		if !ok {
			slog.Error("classified domain has no registered specialist",
				"query_id", q.ID, "domain", name)
			continue
		}
		g.Go(func() error {
			sctx, sspan := otelx.StartSpecialistSpan(gctx, q.ID, name)
			defer sspan.End()

			s.metrics.SpecialistCalls.Add(sctx, 1)
			f, err := client.Process(sctx, q)
			if err != nil {
				s.metrics.SpecialistFailures.Add(sctx, 1)
				slog.Warn("specialist failed", "query_id", q.ID,
					"domain", name, "error", err)
				return nil
			}
			results <- f
			s.events.FindingReceived(sctx, f)
			return nil
		})
	}

	go func() {
		_ = g.Wait()
		close(results)
	}()

	var findings []*triage.Finding
	for {
		select {
		case f, ok := <-results:
			if !ok {
				return findings
			}
			findings = append(findings, f)
		case <-ctx.Done():
			slog.Warn("dispatch deadline reached, abandoning outstanding specialists",
				"query_id", q.ID, "collected", len(findings), "dispatched", len(domains))
			return findings
		}
	}
}
