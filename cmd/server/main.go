// Command server runs the Responses-to-Chat-Completions translating proxy.
//
// Configuration can be provided via:
//   - YAML config file (--config flag, RESPPROXY_CONFIG env, ./config.yaml, /etc/respproxy/config.yaml)
//   - Environment variables with RESPPROXY_ prefix (override config file values)
//
// See config.example.yaml for full documentation of available settings.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirouk/responses-proxy/pkg/api"
	"github.com/sirouk/responses-proxy/pkg/auth"
	"github.com/sirouk/responses-proxy/pkg/auth/jwt"
	"github.com/sirouk/responses-proxy/pkg/breaker"
	"github.com/sirouk/responses-proxy/pkg/config"
	"github.com/sirouk/responses-proxy/pkg/debug"
	"github.com/sirouk/responses-proxy/pkg/dumpsink"
	"github.com/sirouk/responses-proxy/pkg/modelcache"
	"github.com/sirouk/responses-proxy/pkg/observability"
	"github.com/sirouk/responses-proxy/pkg/orchestrator"
	"github.com/sirouk/responses-proxy/pkg/transport"
	transporthttp "github.com/sirouk/responses-proxy/pkg/transport/http"
	"github.com/sirouk/responses-proxy/pkg/translate"
	"github.com/sirouk/responses-proxy/pkg/upstream"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	debug.Init("", cfg.LogLevel)

	client := upstream.New(cfg.Upstream.URL, cfg.Upstream.APIKey, cfg.Server.WriteTimeout)
	defer client.Close()

	br := breaker.New(breaker.Config{
		Enabled:          cfg.Breaker.Enabled,
		FailureThreshold: cfg.Breaker.FailureThreshold,
		Cooldown:         cfg.Breaker.Cooldown,
	})

	cache := modelcache.New(client, cfg.ModelCache.TTL, slog.Default())
	bgCtx, cancelBG := context.WithCancel(context.Background())
	defer cancelBG()

	if err := cache.Refresh(bgCtx); err != nil {
		slog.Warn("initial model cache refresh failed, starting with an empty cache", "error", err)
	}
	cache.Start(bgCtx)

	var sink dumpsink.Sink = dumpsink.NoOp()
	if cfg.Dump.Enabled {
		fileSink, err := dumpsink.New(cfg.Dump.Directory, slog.Default())
		if err != nil {
			return fmt.Errorf("creating dump sink: %w", err)
		}
		sink = fileSink
		defer sink.Close()
	}

	creator := buildResponseCreator(cfg, client, br, cache, sink)

	defaultMW := []transport.Middleware{
		transport.Recovery(),
		transport.RequestID(),
		transport.Logging(slog.Default()),
	}
	adapter := transporthttp.NewAdapter(creator, br, transporthttp.DefaultConfig(), defaultMW...)

	mux := http.NewServeMux()
	mux.Handle("/", applyObservability(cfg, wrapAuth(cfg, adapter.Handler())))
	if cfg.Observability.Metrics.Enabled {
		mux.Handle("GET "+cfg.Observability.Metrics.Path, promhttp.Handler())
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	slog.Info("server starting",
		"port", cfg.Server.Port,
		"upstream", cfg.Upstream.URL,
		"auth", cfg.Auth.Type,
	)

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-shutdownCtx.Done():
		slog.Info("shutting down gracefully")
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(stopCtx)
	}
}

// buildResponseCreator wires config, upstream client, breaker, and model
// cache into the handler the HTTP transport dispatches to.
func buildResponseCreator(cfg *config.Config, client *upstream.Client, br *breaker.Breaker, cache *modelcache.Cache, sink dumpsink.Sink) transport.ResponseCreatorFunc {
	return func(ctx context.Context, req *api.CreateResponseRequest, w transport.ResponseWriter) error {
		if alias, ok := cfg.Upstream.ModelAliases[req.Model]; ok {
			req.Model = alias
		}
		if req.Model == "" {
			req.Model = cfg.Upstream.DefaultModel
		}

		chatReq, terr := translate.Translate(req, slog.Default())
		if terr != nil {
			return api.NewInvalidRequestError(terr.Param, terr.Message)
		}

		responseID := api.NewResponseID()
		sink.Record(responseID, "request", chatReq)

		emit := func(event api.StreamEvent) error {
			sink.Record(responseID, "event", event)
			return w.WriteEvent(ctx, event)
		}

		return orchestrator.Serve(ctx, req, responseID, client, chatReq, cache, emit, br, slog.Default())
	}
}

// wrapAuth applies bearer-passthrough identity tagging when auth.type=jwt.
// It never rejects a request: only the upstream authoritatively rejects a
// bad credential.
func wrapAuth(cfg *config.Config, next http.Handler) http.Handler {
	if cfg.Auth.Type != "jwt" {
		return next
	}
	decoder := jwt.New(jwt.Config{
		Issuer:   cfg.Auth.JWT.Issuer,
		Audience: cfg.Auth.JWT.Audience,
		JWKSURL:  cfg.Auth.JWT.JWKSURL,
		CacheTTL: time.Hour,
	})
	return auth.Tag(decoder)(next)
}

func applyObservability(cfg *config.Config, next http.Handler) http.Handler {
	if !cfg.Observability.Metrics.Enabled {
		return next
	}
	return observability.MetricsMiddleware(next)
}
