// cmd/marketplace/main.go
package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/time/rate"

	"github.com/Naveen-Kannan-Periyachi/ECOMART-sub001/internal/activity"
	"github.com/Naveen-Kannan-Periyachi/ECOMART-sub001/internal/api"
	"github.com/Naveen-Kannan-Periyachi/ECOMART-sub001/internal/catalog"
	"github.com/Naveen-Kannan-Periyachi/ECOMART-sub001/internal/config"
	"github.com/Naveen-Kannan-Periyachi/ECOMART-sub001/internal/eventlog"
	"github.com/Naveen-Kannan-Periyachi/ECOMART-sub001/internal/logging"
	"github.com/Naveen-Kannan-Periyachi/ECOMART-sub001/internal/negotiation"
	"github.com/Naveen-Kannan-Periyachi/ECOMART-sub001/internal/notify"
	"github.com/Naveen-Kannan-Periyachi/ECOMART-sub001/internal/recommend"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallback := logging.New(logging.Config{})
		fallback.Fatal().Err(err).Msg("invalid configuration")
	}

	log := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open database")
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatal().Err(err).Msg("failed to reach database")
	}

	if cfg.Tracing.Enabled {
		shutdown, err := initTracing(cfg.Tracing.Endpoint)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize tracing")
		}
		defer shutdown()
	}

	var notifier notify.Publisher
	switch cfg.Notify.Mode {
	case "webhook":
		notifier = notify.NewWebhookPublisher(cfg.Notify.WebhookURL, cfg.Notify.Timeout, log)
	default:
		notifier = notify.NewLogPublisher(log)
	}

	events := eventlog.NewStore(db)

	catalogSvc := catalog.NewService(db, events, log)

	appendLimiter := rate.NewLimiter(rate.Limit(cfg.RateLimit.PerSecond), cfg.RateLimit.Burst)
	activityLog := activity.NewLog(db, catalogSvc, appendLimiter, log)

	recCfg := recommend.DefaultConfig()
	recCfg.HistorySize = cfg.Recommend.HistorySize
	recCfg.NeighborCap = cfg.Recommend.NeighborCap
	recCfg.TrendingWindowDays = cfg.Recommend.TrendingWindowDays

	engine, err := recommend.NewEngine(recCfg, catalogSvc, activityLog, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build recommendation engine")
	}

	negotiationSvc := negotiation.NewService(
		negotiation.NewStore(db),
		catalogSvc,
		notifier,
		events,
		log,
		negotiation.Options{MaxRounds: cfg.Negotiation.MaxRounds, TTL: cfg.Negotiation.TTL},
	)

	catalogHandler := catalog.NewHandler(catalogSvc, activityLog, log)
	activityHandler := activity.NewHandler(activityLog, log)
	recommendHandler := recommend.NewHandler(engine, cfg.Recommend.MaxLimit, log)
	negotiationHandler := negotiation.NewHandler(negotiationSvc, log)

	mutationLimiter := rate.NewLimiter(rate.Limit(cfg.RateLimit.PerSecond), cfg.RateLimit.Burst)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(api.RequestLogger(log))
	router.Use(api.RateLimit(mutationLimiter))

	router.Route("/api/v1", func(r chi.Router) {
		r.Post("/items", catalogHandler.HandleCreateItem)
		r.Get("/items/{id}", catalogHandler.HandleGetItem)
		r.Delete("/items/{id}", catalogHandler.HandleRemoveItem)

		r.Post("/activities", activityHandler.HandleAppend)

		r.Get("/users/{id}/recommendations", recommendHandler.HandleRecommendations)
		r.Get("/users/{id}/negotiations", negotiationHandler.HandleListForUser)

		r.Post("/negotiations", negotiationHandler.HandleOpen)
		r.Get("/negotiations/{id}", negotiationHandler.HandleGet)
		r.Post("/negotiations/{id}/respond", negotiationHandler.HandleRespond)
		r.Post("/negotiations/{id}/cancel", negotiationHandler.HandleCancel)
	})

	router.Post("/admin/negotiations/expire", negotiationHandler.HandleExpireOverdue)

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			api.RespondError(w, http.StatusServiceUnavailable, api.CodeInternalError, "database unreachable")
			return
		}
		api.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("marketplace service listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	log.Info().Msg("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// initTracing wires the OTLP/HTTP exporter as the global tracer provider.
func initTracing(endpoint string) (func(), error) {
	exporter, err := otlptracehttp.New(context.Background(),
		otlptracehttp.WithEndpoint(endpoint),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, err
	}

	provider := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
	otel.SetTracerProvider(provider)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = provider.Shutdown(ctx)
	}, nil
}
