package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/hlog"

	"github.com/farejai/fareja/internal/analytics"
	"github.com/farejai/fareja/internal/cache"
	"github.com/farejai/fareja/internal/catalog"
	"github.com/farejai/fareja/internal/config"
	"github.com/farejai/fareja/internal/db"
	"github.com/farejai/fareja/internal/fetch"
	"github.com/farejai/fareja/internal/geo"
	"github.com/farejai/fareja/internal/handlers"
	"github.com/farejai/fareja/internal/ipfilter"
	"github.com/farejai/fareja/internal/logger"
	"github.com/farejai/fareja/internal/metrics"
	"github.com/farejai/fareja/internal/pipeline"
	"github.com/farejai/fareja/internal/scraper"
	"github.com/farejai/fareja/internal/storage"
	"github.com/farejai/fareja/internal/web"
)

const (
	cardCacheSize = 500
	cardCacheTTL  = time.Hour
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := logger.New("development", "info")
		boot.Fatal().Err(err).Msg("config")
	}
	log := logger.New(cfg.Env, cfg.LogLevel)

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("database")
	}
	defer database.Close()

	geoReader, err := geo.Open(cfg.GeoIPPath)
	if err != nil {
		log.Warn().Err(err).Msg("geo lookups disabled")
		geoReader, _ = geo.Open("")
	}
	defer geoReader.Close()

	client := fetch.New(cfg.FetchTimeout)

	filter := ipfilter.New(ipfilter.Options{
		Sources: cfg.IPBlocklistSources,
		Static:  cfg.IPBlocklistCIDRs,
		Log:     log.With().Str("component", "ipfilter").Logger(),
	})
	defer filter.Shutdown()

	collector := analytics.NewCollector(database, geoReader, filter, cfg.BufferSize, cfg.FlushInterval,
		log.With().Str("component", "collector").Logger())

	store, err := storage.FromConfig(cfg, client, log.With().Str("component", "storage").Logger())
	if err != nil {
		log.Fatal().Err(err).Msg("image storage")
	}
	images := pipeline.New(scraper.New(client, log.With().Str("component", "scraper").Logger()), store, log)

	promoCache, err := cache.New(cfg.CacheSize)
	if err != nil {
		log.Fatal().Err(err).Msg("cache")
	}
	svc := catalog.New(database, images, promoCache, cfg.Location, log)

	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(hlog.NewHandler(log))
	r.Use(hlog.RequestIDHandler("req_id", "X-Request-Id"))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("request")
	}))
	r.Use(chimiddleware.Recoverer)
	r.Use(metrics.Middleware)

	r.Handle("/metrics", metrics.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if err := database.PingContext(req.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	})

	api := &handlers.API{
		Promotions: &handlers.PromotionHandler{Catalog: svc, Cfg: cfg},
		Analytics:  &handlers.AnalyticsHandler{DB: database, Collector: collector, Cfg: cfg},
		Images:     &handlers.ImageHandler{Catalog: svc, Fetch: client, Cards: cache.NewImageCache(cardCacheSize, cardCacheTTL), Cfg: cfg},
		Secret:     cfg.APISecret,
	}
	api.RegisterRoutes(r)

	if cfg.ImageStorage == config.StorageLocal {
		serveImages(r, cfg.ImageDir)
	}

	adminHandler, err := web.NewAdminHandler(database, cfg, svc)
	if err != nil {
		log.Fatal().Err(err).Msg("admin")
	}
	adminHandler.RegisterRoutes(r)

	site, err := web.NewSite(cfg, svc)
	if err != nil {
		log.Fatal().Err(err).Msg("site")
	}
	site.RegisterRoutes(r)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Info().Str("port", cfg.Port).Str("storage", cfg.ImageStorage).Msg("fareja listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server")
		}
	}()

	<-stop
	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}

	collector.Shutdown()
	if err := db.Optimize(database); err != nil {
		log.Warn().Err(err).Msg("optimize database")
	}
	log.Info().Msg("goodbye")
}

// serveImages exposes the locally stored product images. The maintenance
// commands may rewrite a file in place, so caching stays at a day.
func serveImages(r chi.Router, dir string) {
	files := http.StripPrefix(storage.PublicPrefix+"/", http.FileServer(http.Dir(dir)))
	r.Get(storage.PublicPrefix+"/*", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=86400")
		files.ServeHTTP(w, req)
	})
}
