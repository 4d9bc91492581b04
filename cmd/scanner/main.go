package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/edcshuttle/passgate/internal/authority"
	"github.com/edcshuttle/passgate/internal/domain"
	"github.com/edcshuttle/passgate/internal/handlers"
	"github.com/edcshuttle/passgate/internal/repository"
	"github.com/edcshuttle/passgate/internal/service"
	"github.com/edcshuttle/passgate/pkg/config"
	"github.com/edcshuttle/passgate/pkg/database"
	"github.com/edcshuttle/passgate/pkg/events"
	"github.com/edcshuttle/passgate/pkg/logger"
	mw "github.com/edcshuttle/passgate/pkg/middleware"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var passRepo repository.PassRepository
	var scanRepo repository.ScanRepository

	if cfg.Database.URL != "" {
		pool, err := database.Connect(ctx, cfg.Database.URL)
		if err != nil {
			logger.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		if err := repository.EnsureSchema(ctx, pool); err != nil {
			logger.Error("Failed to ensure schema", "error", err)
			os.Exit(1)
		}

		passRepo = repository.NewPassRepository(pool)
		scanRepo = repository.NewScanRepository(pool)
	} else {
		logger.Warn("DATABASE_URL not set, running on the in-memory pass ledger")
		memPasses := repository.NewMemoryPassRepository()
		seedPasses(ctx, memPasses)
		passRepo = memPasses
		scanRepo = repository.NewMemoryScanRepository()
	}

	rateRepo := repository.NewNopRateLimitRepository()
	if cfg.Redis.URL != "" {
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			logger.Error("Invalid REDIS_URL", "error", err)
			os.Exit(1)
		}
		opts.Password = cfg.Redis.Password
		opts.DB = cfg.Redis.DB
		rateRepo = repository.NewRateLimitRepository(redis.NewClient(opts))
	}

	var eventBus events.EventBus = events.NopEventBus{}
	if cfg.NATS.URL != "" {
		bus, err := events.NewNATSEventBus(cfg.NATS.URL)
		if err != nil {
			logger.Error("Failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer bus.Close()
		eventBus = bus
	}

	var consumer service.Consumer = passRepo
	if cfg.Authority.BaseURL != "" {
		logger.Info("Delegating validation to external authority", "url", cfg.Authority.BaseURL)
		consumer = authority.NewClient(cfg.Authority.BaseURL, cfg.Authority.Timeout)
	}

	scanService := service.NewScanService(consumer, scanRepo, eventBus)
	h := handlers.New(scanService, rateRepo, cfg.Auth.JWTSecret)

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("scanner"))
	r.Use(mw.DeviceID)
	r.Use(mw.Logging)
	r.Use(mw.Health)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Device-ID", "X-Request-ID"},
		MaxAge:         300,
	}))

	r.Post("/api/scan", h.Scan)
	r.Route("/admin", func(r chi.Router) {
		r.Use(h.RequireJWT("admin"))
		r.Get("/scans", h.ListScans)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting scanner service", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down scanner service...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error("Scanner service error", "error", err)
		os.Exit(1)
	}
}

// seedPasses loads comma-separated tokens from SEED_PASSES into the
// in-memory ledger so a dev box has something to scan.
func seedPasses(ctx context.Context, repo repository.PassRepository) {
	seed := os.Getenv("SEED_PASSES")
	if seed == "" {
		return
	}

	for _, token := range strings.Split(seed, ",") {
		token = strings.ToUpper(strings.TrimSpace(token))
		if token == "" {
			continue
		}
		dir, ok := domain.DirectionOf(token)
		if !ok {
			logger.Warn("Skipping seed token with no direction segment", "token", token)
			continue
		}
		if err := repo.Create(ctx, &domain.Pass{Token: token, Direction: dir}); err != nil {
			logger.Error("Failed to seed pass", "error", err, "token", token)
		}
	}
}
