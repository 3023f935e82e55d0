package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "deskmux"

// Metrics holds all DeskMux metric instruments.
type Metrics struct {
	QueriesReceived    metric.Int64Counter
	QueriesEscalated   metric.Int64Counter
	SpecialistCalls    metric.Int64Counter
	SpecialistFailures metric.Int64Counter
	KnowledgeCacheHits metric.Int64Counter
	CycleDuration      metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.QueriesReceived, err = meter.Int64Counter("deskmux.queries.received",
		metric.WithDescription("Number of queries accepted for triage"))
	if err != nil {
		return nil, err
	}

	m.QueriesEscalated, err = meter.Int64Counter("deskmux.queries.escalated",
		metric.WithDescription("Number of queries that fell back to human escalation"))
	if err != nil {
		return nil, err
	}

	m.SpecialistCalls, err = meter.Int64Counter("deskmux.specialist.calls",
		metric.WithDescription("Number of specialist dispatches"))
	if err != nil {
		return nil, err
	}

	m.SpecialistFailures, err = meter.Int64Counter("deskmux.specialist.failures",
		metric.WithDescription("Number of specialist dispatches that yielded no finding"))
	if err != nil {
		return nil, err
	}

	m.KnowledgeCacheHits, err = meter.Int64Counter("deskmux.knowledge.cache_hits",
		metric.WithDescription("Number of knowledge lookups served from cache"))
	if err != nil {
		return nil, err
	}

	m.CycleDuration, err = meter.Float64Histogram("deskmux.cycle.duration_seconds",
		metric.WithDescription("End-to-end duration of a triage cycle in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
