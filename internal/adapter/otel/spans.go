package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "deskmux"

// StartCycleSpan starts a span covering one request/response cycle.
func StartCycleSpan(ctx context.Context, queryID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "triage.cycle",
		trace.WithAttributes(
			attribute.String("query.id", queryID),
		),
	)
}

// StartDispatchSpan starts a span for the fan-out to specialists.
func StartDispatchSpan(ctx context.Context, queryID string, domains []string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "triage.dispatch",
		trace.WithAttributes(
			attribute.String("query.id", queryID),
			attribute.StringSlice("dispatch.domains", domains),
		),
	)
}

// StartSpecialistSpan starts a span for one specialist consultation.
func StartSpecialistSpan(ctx context.Context, queryID, domain string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "triage.specialist",
		trace.WithAttributes(
			attribute.String("query.id", queryID),
			attribute.String("specialist.domain", domain),
		),
	)
}
