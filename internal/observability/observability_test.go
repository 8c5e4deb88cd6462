package observability

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"cryptids/internal/models"
	"cryptids/internal/version"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

var testInfo = version.Info{Version: "1.0.0", GitCommit: "abc123", InstanceID: "instance-1", Hostname: "test-host"}

func TestSetup_MetricsOnly(t *testing.T) {
	metrics := models.MetricsConfig{Enabled: true, Path: "/metrics", Port: 9090}
	obs := models.ObservabilityConfig{ServiceName: "cryptids-test"}

	provider, err := Setup(metrics, obs, testInfo)
	require.NoError(t, err)
	require.NotNil(t, provider)
	assert.NotNil(t, provider.PrometheusExporter())
	assert.True(t, provider.MetricsEnabled())
	assert.Nil(t, provider.tracerProvider)

	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestSetup_TracingStdout(t *testing.T) {
	metrics := models.MetricsConfig{Enabled: false}
	obs := models.ObservabilityConfig{
		ServiceName: "cryptids-test",
		Tracing:     models.TracingConfig{Enabled: true, Exporter: "stdout", SampleRate: 1.0},
	}

	provider, err := Setup(metrics, obs, testInfo)
	require.NoError(t, err)
	assert.NotNil(t, provider.tracerProvider)
	assert.Nil(t, provider.PrometheusExporter())
	assert.False(t, provider.MetricsEnabled())

	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestSetup_BothDisabled(t *testing.T) {
	provider, err := Setup(models.MetricsConfig{}, models.ObservabilityConfig{}, testInfo)
	require.NoError(t, err)
	assert.Nil(t, provider.tracerProvider)
	assert.Nil(t, provider.meterProvider)

	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestSetup_InvalidExporter(t *testing.T) {
	obs := models.ObservabilityConfig{
		ServiceName: "cryptids-test",
		Tracing:     models.TracingConfig{Enabled: true, Exporter: "zipkin", SampleRate: 1.0},
	}

	provider, err := Setup(models.MetricsConfig{}, obs, testInfo)
	require.Error(t, err)
	assert.Nil(t, provider)
	assert.Contains(t, err.Error(), "unsupported trace exporter")
}

func TestNewResource(t *testing.T) {
	t.Setenv("CRYPTIDS_ENVIRONMENT", "staging")

	res, err := newResource(models.ObservabilityConfig{ServiceName: "cryptids-test"}, testInfo)
	require.NoError(t, err)

	attrs := map[string]string{}
	for _, kv := range res.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "cryptids-test", attrs["service.name"])
	assert.Equal(t, "1.0.0", attrs["service.version"])
	assert.Equal(t, "instance-1", attrs["service.instance.id"])
	assert.Equal(t, "test-host", attrs["host.name"])
	assert.Equal(t, "abc123", attrs["git.commit"])
	assert.Equal(t, "staging", attrs["deployment.environment"])
}

func TestSampler(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{1.0, "AlwaysOnSampler"},
		{2.0, "AlwaysOnSampler"},
		{0, "AlwaysOffSampler"},
		{-1, "AlwaysOffSampler"},
		{0.5, "TraceIDRatioBased{0.5}"},
	}
	for _, tt := range tests {
		desc := sampler(tt.rate).Description()
		assert.Contains(t, desc, "ParentBased{root:"+tt.want, "rate %v", tt.rate)
	}
}

func TestProviderHandler_ServesRegistry(t *testing.T) {
	metrics := models.MetricsConfig{Enabled: true, Path: "/metrics", Port: 9090}
	provider, err := Setup(metrics, models.ObservabilityConfig{ServiceName: "cryptids-test"}, testInfo)
	require.NoError(t, err)
	defer provider.Shutdown(context.Background())

	counter, err := otel.Meter("cryptids/test").Int64Counter("sample.requests", metric.WithUnit("{request}"))
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	rec := httptest.NewRecorder()
	provider.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Regexp(t, `sample[._]requests`, string(body))
	assert.Contains(t, string(body), "go_goroutines")
}

func TestProviderHandler_MetricsDisabled(t *testing.T) {
	var provider *Provider

	rec := httptest.NewRecorder()
	provider.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.False(t, provider.MetricsEnabled())
}
