package observability

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// MetricsServer serves Prometheus metrics on a port separate from the API so
// scrapes never pass through the admission guard.
type MetricsServer struct {
	server *http.Server
}

// NewMetricsServer serves provider's registry at path on port.
func NewMetricsServer(port int, path string, provider *Provider) *MetricsServer {
	mux := http.NewServeMux()

	if provider.MetricsEnabled() {
		mux.Handle(path, provider.Handler())
	}

	return &MetricsServer{
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start serves until Shutdown, returning http.ErrServerClosed in that case.
func (ms *MetricsServer) Start() error {
	slog.Info("Starting metrics server", "addr", ms.server.Addr)
	return ms.server.ListenAndServe()
}

func (ms *MetricsServer) Shutdown(ctx context.Context) error {
	return ms.server.Shutdown(ctx)
}
