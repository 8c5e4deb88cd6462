package observability

import (
	"context"
	"errors"
	"time"

	"cryptids/internal/models"
	"cryptids/internal/storage"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const storageInstrumentation = "cryptids/storage"

// Option overrides the global providers an instrumented component reports to.
type Option func(*instrumentConfig)

type instrumentConfig struct {
	tracerProvider trace.TracerProvider
	meterProvider  metric.MeterProvider
}

func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *instrumentConfig) { c.tracerProvider = tp }
}

func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(c *instrumentConfig) { c.meterProvider = mp }
}

func newInstrumentConfig(opts []Option) instrumentConfig {
	cfg := instrumentConfig{
		tracerProvider: otel.GetTracerProvider(),
		meterProvider:  otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// InstrumentedStorage wraps a storage.Storage with a span, a latency
// histogram sample and an error count per call. A not-found lookup is an
// ordinary outcome and is not counted as an error.
type InstrumentedStorage struct {
	inner    storage.Storage
	tracer   trace.Tracer
	duration metric.Float64Histogram
	errors   metric.Int64Counter
}

func NewInstrumentedStorage(inner storage.Storage, opts ...Option) (*InstrumentedStorage, error) {
	cfg := newInstrumentConfig(opts)
	meter := cfg.meterProvider.Meter(storageInstrumentation)

	duration, err := meter.Float64Histogram(
		"storage.operation.duration",
		metric.WithDescription("Duration of catalog storage operations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	errCounter, err := meter.Int64Counter(
		"storage.operation.errors",
		metric.WithDescription("Number of failed catalog storage operations"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	return &InstrumentedStorage{
		inner:    inner,
		tracer:   cfg.tracerProvider.Tracer(storageInstrumentation),
		duration: duration,
		errors:   errCounter,
	}, nil
}

func (s *InstrumentedStorage) startSpan(ctx context.Context, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "storage."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(append([]attribute.KeyValue{
			attribute.String("storage.operation", operation),
		}, attrs...)...),
	)
}

func (s *InstrumentedStorage) record(ctx context.Context, span trace.Span, operation string, start time.Time, err error) {
	defer span.End()

	attrs := metric.WithAttributes(attribute.String("operation", operation))
	s.duration.Record(ctx, time.Since(start).Seconds(), attrs)

	switch {
	case err == nil:
		span.SetStatus(codes.Ok, "")
	case errors.Is(err, storage.ErrNotFound):
		span.SetAttributes(attribute.Bool("storage.not_found", true))
	default:
		s.errors.Add(ctx, 1, attrs)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

func pageAttrs(page storage.Page) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int("page.number", page.Number),
		attribute.Int("page.limit", page.Limit),
	}
}

func queryAttrs(q storage.Query) []attribute.KeyValue {
	attrs := pageAttrs(q.Page)
	if q.Sort != "" {
		attrs = append(attrs, attribute.String("query.sort", string(q.Sort)))
	}
	attrs = append(attrs,
		attribute.Bool("query.descending", q.Descending),
		attribute.Bool("query.filtered", !q.Filter.Empty()))
	return attrs
}

func (s *InstrumentedStorage) ListCryptids(ctx context.Context, q storage.Query) ([]*models.Cryptid, int, error) {
	ctx, span := s.startSpan(ctx, "ListCryptids", queryAttrs(q)...)
	start := time.Now()
	result, total, err := s.inner.ListCryptids(ctx, q)
	s.record(ctx, span, "ListCryptids", start, err)
	return result, total, err
}

func (s *InstrumentedStorage) SearchCryptids(ctx context.Context, text string, q storage.Query) ([]*models.Cryptid, int, error) {
	ctx, span := s.startSpan(ctx, "SearchCryptids",
		append(queryAttrs(q), attribute.Int("search.query_length", len(text)))...)
	start := time.Now()
	result, total, err := s.inner.SearchCryptids(ctx, text, q)
	span.SetAttributes(attribute.Int("search.total", total))
	s.record(ctx, span, "SearchCryptids", start, err)
	return result, total, err
}

func (s *InstrumentedStorage) RelatedCryptids(ctx context.Context, id int64, limit int) ([]*models.Cryptid, error) {
	ctx, span := s.startSpan(ctx, "RelatedCryptids",
		attribute.Int64("cryptid.id", id), attribute.Int("related.limit", limit))
	start := time.Now()
	result, err := s.inner.RelatedCryptids(ctx, id, limit)
	s.record(ctx, span, "RelatedCryptids", start, err)
	return result, err
}

func (s *InstrumentedStorage) GetCryptid(ctx context.Context, id int64) (*models.Cryptid, error) {
	ctx, span := s.startSpan(ctx, "GetCryptid", attribute.Int64("cryptid.id", id))
	start := time.Now()
	result, err := s.inner.GetCryptid(ctx, id)
	s.record(ctx, span, "GetCryptid", start, err)
	return result, err
}

func (s *InstrumentedStorage) ListImages(ctx context.Context, cryptidID int64, page storage.Page) ([]*models.Image, int, error) {
	ctx, span := s.startSpan(ctx, "ListImages",
		append(pageAttrs(page), attribute.Int64("cryptid.id", cryptidID))...)
	start := time.Now()
	result, total, err := s.inner.ListImages(ctx, cryptidID, page)
	s.record(ctx, span, "ListImages", start, err)
	return result, total, err
}

func (s *InstrumentedStorage) Classifications(ctx context.Context) ([]*models.Classification, error) {
	ctx, span := s.startSpan(ctx, "Classifications")
	start := time.Now()
	result, err := s.inner.Classifications(ctx)
	s.record(ctx, span, "Classifications", start, err)
	return result, err
}

func (s *InstrumentedStorage) Ping(ctx context.Context) error {
	ctx, span := s.startSpan(ctx, "Ping")
	start := time.Now()
	err := s.inner.Ping(ctx)
	s.record(ctx, span, "Ping", start, err)
	return err
}

func (s *InstrumentedStorage) Close() error {
	return s.inner.Close()
}
