package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/PratikDhanave/iap-event-logger/internal/catalog"
	"github.com/PratikDhanave/iap-event-logger/internal/classifier"
	"github.com/PratikDhanave/iap-event-logger/internal/config"
	"github.com/PratikDhanave/iap-event-logger/internal/dedup"
	"github.com/PratikDhanave/iap-event-logger/internal/httpserver"
	"github.com/PratikDhanave/iap-event-logger/internal/logging"
	"github.com/PratikDhanave/iap-event-logger/internal/metrics"
	"github.com/PratikDhanave/iap-event-logger/internal/sink"
	"github.com/PratikDhanave/iap-event-logger/internal/store"
	"github.com/PratikDhanave/iap-event-logger/internal/txlog"
)

// main boots the service: config → DB → schema → catalog → sink → HTTP server.
func main() {
	// Load runtime config from environment (DB_URL, CATALOG_PATH, API_KEYS, ...).
	cfg, err := config.Load()
	if err != nil {
		boot := logging.New("info")
		boot.Fatal().Err(err).Msg("load config")
	}
	log := logging.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to durable storage (Postgres) using a connection pool.
	db, err := store.NewPostgresStore(ctx, cfg.DBURL, cfg.AppID)
	if err != nil {
		log.Fatal().Err(err).Msg("connect db")
	}
	defer db.Close()

	// Ensure the events table and index exist before serving.
	if err := db.EnsureSchema(ctx); err != nil {
		log.Fatal().Err(err).Msg("ensure schema")
	}

	products, err := catalog.Load(cfg.CatalogPath)
	if err != nil {
		log.Fatal().Err(err).Msg("load catalog")
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	buffered := sink.NewBufferedSink(db, sink.Options{
		Behavior:  cfg.FlushBehavior,
		Interval:  cfg.FlushInterval,
		BatchSize: cfg.FlushBatchSize,
		Metrics:   m,
		Logger:    log.With().Str("component", "sink").Logger(),
	})
	sinks := sink.NewHolder(buffered)
	if _, ok := sinks.Get(); !ok {
		log.Fatal().Msg("analytics sink not configured")
	}

	cache := dedup.New()
	txLogger := txlog.New(
		cache,
		classifier.NewCatalogResolver(products),
		sinks,
		m,
		log.With().Str("component", "txlog").Logger(),
	)

	// Build HTTP router (public health + authenticated APIs).
	router := httpserver.NewRouter(cfg, httpserver.Deps{
		DB:       db,
		Counter:  db,
		Logger:   txLogger,
		Ledger:   cache,
		Flusher:  buffered,
		Gatherer: prometheus.DefaultGatherer,
		Log:      log,
	})
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// The sink outlives the HTTP server so requests drained during shutdown
	// are still flushed.
	sinkCtx, stopSink := context.WithCancel(context.Background())
	defer stopSink()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return buffered.Run(sinkCtx)
	})
	g.Go(func() error {
		log.Info().
			Str("addr", cfg.HTTPAddr).
			Int("products", products.Len()).
			Str("flush_behavior", cfg.FlushBehavior.String()).
			Msg("server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		defer stopSink()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("server stopped")
		os.Exit(1)
	}
	log.Info().Msg("server stopped")
}
