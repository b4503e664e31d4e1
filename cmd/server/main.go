package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"match-relay/internal/platform/config"
	"match-relay/internal/platform/logger"
	"match-relay/internal/platform/metrics"
	"match-relay/internal/relay"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = config.Load()

	port := config.GetEnv("PORT", "8080")
	feedURL := config.GetEnv("FEED_URL", "")
	catalogTTL := config.GetEnvDuration("CATALOG_TTL", relay.DefaultCatalogTTL)
	feedTimeout := config.GetEnvDuration("FEED_TIMEOUT", relay.DefaultFeedTimeout)
	streamTimeout := config.GetEnvDuration("STREAM_TIMEOUT", relay.DefaultStreamTimeout)
	rateLimitRPM := config.GetEnvInt("RATE_LIMIT_RPM", 300)
	logLevel := config.GetEnv("LOG_LEVEL", "info")
	logFormat := config.GetEnv("LOG_FORMAT", "json")

	log := logger.New(logLevel, logFormat)

	if feedURL == "" {
		log.Error("FEED_URL is required")
		os.Exit(1)
	}

	met := metrics.New()
	catalog := relay.NewCatalog(relay.NewHTTPFetcher(feedTimeout), feedURL, catalogTTL)
	catalog.OnRefresh(met.IncCatalogRefreshes)
	sessions := relay.NewInMemorySessionStore()
	svc := relay.NewService(catalog, sessions, relay.NewHTTPFetcher(streamTimeout))
	h := relay.NewHandler(catalog, svc, log, met)

	r := chi.NewRouter()
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met))
	if rateLimitRPM > 0 {
		r.Use(httprate.Limit(rateLimitRPM, time.Minute, httprate.WithKeyFuncs(httprate.KeyByIP)))
	}

	r.Get("/healthz", h.Healthz)
	r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
		met.Handler(func() {
			if snap, ok := catalog.Cached(); ok {
				met.SetLiveMatches(snap.LiveMatches)
			}
			met.SetRelaySessions(sessions.Len())
		}).ServeHTTP(w, req)
	})
	r.Route("/matches", func(r chi.Router) {
		r.Get("/", h.ListMatches)
		r.Get("/{matchID}", h.GetMatch)
		r.Get("/{matchID}/streams", h.ListStreams)
	})
	r.Route("/relay/{matchID}", func(r chi.Router) {
		r.Get("/", h.GetMasterPlaylist)
		r.Get("/*", h.GetSegment)
	})

	addr := ":" + port
	srv := &http.Server{Addr: addr, Handler: r}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	log.Info("server starting",
		"port", port,
		"feed_url", feedURL,
		"catalog_ttl", catalogTTL.String(),
		"log_level", logLevel,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutdown signal received, draining connections")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown error", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
