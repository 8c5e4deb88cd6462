package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cryptids/internal/api"
	"cryptids/internal/config"
	"cryptids/internal/logger"
	"cryptids/internal/models"
	"cryptids/internal/observability"
	"cryptids/internal/ratelimit"
	"cryptids/internal/storage"
	"cryptids/internal/version"
)

var (
	configFile    = flag.String("config", "", "Path to configuration file")
	showVersion   = flag.Bool("version", false, "Print version information and exit")
	exampleConfig = flag.String("example-config", "", "Write an example configuration file to the given path and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.GetInfo().String())
		return
	}
	if *exampleConfig != "" {
		if err := config.SaveExample(*exampleConfig); err != nil {
			slog.Error("Failed to write example configuration", "error", err)
			os.Exit(1)
		}
		return
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	ver := version.GetInfo()

	log, closer, err := logger.Setup(cfg.Logging, ver)
	if err != nil {
		slog.Error("Failed to initialize logger", "error", err)
		os.Exit(1)
	}
	if closer != nil {
		defer closer.Close()
	}
	slog.SetDefault(log)

	otelProvider, err := observability.Setup(cfg.Metrics, cfg.Observability, ver)
	if err != nil {
		slog.Error("Failed to initialize observability", "error", err)
		os.Exit(1)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := otelProvider.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to shutdown observability", "error", err)
		}
	}()

	storageInstance, err := storage.NewFactory().Create(cfg.Storage)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err, "type", cfg.Storage.Type)
		os.Exit(1)
	}
	defer storageInstance.Close()

	var activeStorage storage.Storage = storageInstance
	if cfg.Metrics.Enabled {
		instrumented, err := observability.NewInstrumentedStorage(storageInstance)
		if err != nil {
			slog.Error("Failed to create instrumented storage", "error", err)
			os.Exit(1)
		}
		activeStorage = instrumented
	}

	handlers := api.NewHandlers(activeStorage, ver)

	// otelmux must run before the rate limiter so denials land on the request span.
	routeOpts := []api.RouteOption{}
	if cfg.Observability.Tracing.Enabled {
		routeOpts = append(routeOpts, api.WithOTelMiddleware(cfg.Observability.ServiceName))
	}

	appCtx, stopBackground := context.WithCancel(context.Background())
	defer stopBackground()

	if cfg.Security.RateLimit.Enabled {
		adm, err := setupAdmission(cfg, otelProvider)
		if err != nil {
			slog.Error("Failed to initialize rate limiter", "error", err)
			os.Exit(1)
		}
		adm.janitor.Start(appCtx)
		defer func() {
			stopBackground()
			<-adm.janitor.Done()
			// Runs before the provider shutdown deferred above.
			if adm.metrics != nil {
				if err := adm.metrics.Close(); err != nil {
					slog.Warn("Failed to unregister admission metrics", "error", err)
				}
			}
		}()

		routeOpts = append(routeOpts, api.WithRateLimiter(
			ratelimit.Middleware(adm.guard, cfg.Security.ForwardedForHeader, cfg.Security.RealIPHeader),
		))
		slog.Info("Rate limiting enabled",
			"trust_proxy", cfg.Security.TrustProxy,
			"whitelist", len(cfg.Security.RateLimit.Whitelist),
			"cleanup_interval", cfg.Security.RateLimit.CleanupInterval,
		)
	} else {
		slog.Warn("Rate limiting disabled")
	}

	router := api.SetupRoutes(handlers, cfg, routeOpts...)

	var metricsServer *observability.MetricsServer
	if cfg.Metrics.Enabled {
		metricsServer = observability.NewMetricsServer(cfg.Metrics.Port, cfg.Metrics.Path, otelProvider)
		go func() {
			if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("Metrics server failed", "error", err)
			}
		}()
	}

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		slog.Info("Starting server", append([]any{"addr", server.Addr, "tls", cfg.Server.TLSEnabled}, ver.LogAttrs()...)...)

		var err error
		if cfg.Server.TLSEnabled {
			err = server.ListenAndServeTLS(cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile)
		} else {
			err = server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if metricsServer != nil {
		if err := metricsServer.Shutdown(ctx); err != nil {
			slog.Error("Metrics server forced to shutdown", "error", err)
		}
	}

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server shutdown complete")
}

type admission struct {
	guard   *ratelimit.Guard
	janitor *ratelimit.Janitor
	metrics *observability.AdmissionMetrics // nil when metrics are disabled
}

// setupAdmission wires the in-memory admission stores, the guard and the
// janitor that keeps the stores bounded.
func setupAdmission(cfg *models.Config, provider *observability.Provider) (*admission, error) {
	rl := cfg.Security.RateLimit
	adm := &admission{}

	windows := ratelimit.NewWindowStore(nil)
	violations := ratelimit.NewViolationTracker(rl.Abuse.DecayHorizon, rl.Abuse.RetentionHorizon, nil)

	opts := []ratelimit.GuardOption{ratelimit.WithWarningThreshold(rl.WarningThreshold)}
	if provider.MetricsEnabled() {
		recorder, err := observability.NewAdmissionMetrics(windows, violations)
		if err != nil {
			return nil, fmt.Errorf("admission metrics: %w", err)
		}
		adm.metrics = recorder
		opts = append(opts, ratelimit.WithRecorder(recorder))
	}

	adm.guard = ratelimit.NewGuard(
		ratelimit.NewClientIdentifier(cfg.Security.TrustProxy, rl.Whitelist),
		ratelimit.NewPolicyResolver(rl),
		windows,
		violations,
		rl.Abuse,
		opts...,
	)
	adm.janitor = ratelimit.NewJanitor(rl.CleanupInterval, windows, violations)
	return adm, nil
}
