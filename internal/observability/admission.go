package observability

import (
	"context"
	"fmt"

	"cryptids/internal/ratelimit"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const admissionInstrumentation = "cryptids/ratelimit"

// Outcome attribute values of ratelimit.decisions.
const (
	OutcomeAllowed     = "allowed"
	OutcomeDenied      = "denied"
	OutcomeWhitelisted = "whitelisted"
	OutcomeFailedOpen  = "failed_open"
)

// Sizer reports how many entries a store holds.
type Sizer interface {
	Len() int
}

// AdmissionMetrics records admission decisions as OpenTelemetry metrics and
// reports the size of the limiter stores on every collection.
type AdmissionMetrics struct {
	decisions    metric.Int64Counter
	escalations  metric.Int64Counter
	registration metric.Registration
}

var _ ratelimit.Recorder = (*AdmissionMetrics)(nil)

// NewAdmissionMetrics registers the decision and escalation counters and the
// store size gauges on the configured meter provider. Call Close to stop the
// gauge callback.
func NewAdmissionMetrics(windows, violations Sizer, opts ...Option) (*AdmissionMetrics, error) {
	cfg := newInstrumentConfig(opts)
	meter := cfg.meterProvider.Meter(admissionInstrumentation)

	decisions, err := meter.Int64Counter(
		"ratelimit.decisions",
		metric.WithDescription("Admission decisions by scope and outcome"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create decisions counter: %w", err)
	}

	escalations, err := meter.Int64Counter(
		"ratelimit.escalations",
		metric.WithDescription("Abuse escalations by tier"),
		metric.WithUnit("{violation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create escalations counter: %w", err)
	}

	windowEntries, err := meter.Int64ObservableGauge(
		"ratelimit.window_entries",
		metric.WithDescription("Live fixed-window counters"),
		metric.WithUnit("{entry}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create window gauge: %w", err)
	}

	violationRecords, err := meter.Int64ObservableGauge(
		"ratelimit.violation_records",
		metric.WithDescription("Tracked abuse records including active blocks"),
		metric.WithUnit("{record}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create violation gauge: %w", err)
	}

	reg, err := meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		o.ObserveInt64(windowEntries, int64(windows.Len()))
		o.ObserveInt64(violationRecords, int64(violations.Len()))
		return nil
	}, windowEntries, violationRecords)
	if err != nil {
		return nil, fmt.Errorf("failed to register store gauges: %w", err)
	}

	return &AdmissionMetrics{
		decisions:    decisions,
		escalations:  escalations,
		registration: reg,
	}, nil
}

// RecordDecision counts d by scope and outcome, adding the reason for denials.
// New violations are also counted by escalation tier.
func (m *AdmissionMetrics) RecordDecision(ctx context.Context, d ratelimit.Decision) {
	attrs := []attribute.KeyValue{
		attribute.String("scope", string(d.Policy.Scope)),
		attribute.String("outcome", outcome(d)),
	}
	if !d.Allowed {
		attrs = append(attrs, attribute.String("reason", string(d.Reason)))
	}
	m.decisions.Add(ctx, 1, metric.WithAttributes(attrs...))

	// Requests refused by an existing block carry TierBlock but no new violation.
	if d.Tier != ratelimit.TierNone && d.Violations > 0 {
		m.escalations.Add(ctx, 1, metric.WithAttributes(
			attribute.String("tier", d.Tier.String()),
		))
	}
}

// Close stops reporting the store gauges.
func (m *AdmissionMetrics) Close() error {
	return m.registration.Unregister()
}

func outcome(d ratelimit.Decision) string {
	switch {
	case d.Whitelisted:
		return OutcomeWhitelisted
	case d.FailedOpen:
		return OutcomeFailedOpen
	case d.Allowed:
		return OutcomeAllowed
	default:
		return OutcomeDenied
	}
}
