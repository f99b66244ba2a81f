package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"keeply/internal/audit"
	"keeply/internal/frontendmetrics"
	"keeply/internal/identity"
	"keeply/internal/platform/config"
	"keeply/internal/platform/httpserver"
	"keeply/internal/platform/logger"
	platformmetrics "keeply/internal/platform/metrics"
	"keeply/internal/platform/redis"
	"keeply/internal/profilestore"
	"keeply/internal/ratelimit"
	registrationhandler "keeply/internal/registration/handler"
	registrationmetrics "keeply/internal/registration/metrics"
	"keeply/internal/registration/models"
	"keeply/internal/registration/service"
	httptransport "keeply/internal/transport/http"
)

const startupTimeout = 15 * time.Second

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	log := logger.New()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startupCtx, cancel := context.WithTimeout(ctx, startupTimeout)
	defer cancel()

	trail, closeTrail, err := buildTrail(startupCtx, cfg.Audit, log)
	if err != nil {
		log.Error("audit trail startup failed", "error", err)
		os.Exit(1)
	}
	defer closeTrail()

	limiter, err := buildLimiter(startupCtx, cfg.RateLimit, log)
	if err != nil {
		log.Error("rate limiter startup failed", "error", err)
		os.Exit(1)
	}

	idClient := identity.NewClient(cfg.Identity, log)
	profiles := profilestore.NewGateway(cfg.Identity.URL, cfg.Identity.ServiceKey, idClient, log)

	svc := service.NewService(idClient, profiles, trail, registrationmetrics.New(), models.LegalVersions{
		Terms:   cfg.Legal.TermsVersion,
		Privacy: cfg.Legal.PrivacyVersion,
	}, log)

	router := httptransport.NewRouter(httptransport.Deps{
		Logger:          log,
		Metrics:         platformmetrics.New(),
		Registration:    registrationhandler.NewHandler(svc, profiles, log),
		FrontendMetrics: frontendmetrics.NewHandler(frontendmetrics.New()),
		Verifier:        identity.NewTokenVerifier(cfg.Identity.JWTSecret),
		Limiter:         limiter,
	})

	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

// buildTrail assembles the registration outcome trail from whatever backends
// the environment enables. With neither configured, events still flow to the
// in-process store so /healthz deployments keep a recent window for debugging.
func buildTrail(ctx context.Context, cfg config.Audit, log *slog.Logger) (*audit.Trail, func(), error) {
	var (
		store audit.Store
		sink  audit.Sink
		stops []func()
	)

	if cfg.PostgresDSN != "" {
		pg, err := audit.OpenPostgres(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		store = pg
		stops = append(stops, func() { _ = pg.Close() })
	} else {
		store = audit.NewInMemoryStore()
	}

	if len(cfg.KafkaBrokers) > 0 {
		kafka, err := audit.NewKafkaSink(ctx, cfg.KafkaBrokers, cfg.KafkaTopic, log)
		if err != nil {
			return nil, nil, err
		}
		sink = kafka
		stops = append(stops, func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := kafka.Close(flushCtx); err != nil {
				log.Error("kafka sink close failed", "error", err)
			}
		})
	}

	closeAll := func() {
		for _, stop := range stops {
			stop()
		}
	}
	return audit.NewTrail(store, sink, log), closeAll, nil
}

// buildLimiter prefers the shared Redis counter store and falls back to the
// in-process one when no Redis URL is configured.
func buildLimiter(ctx context.Context, cfg config.RateLimit, log *slog.Logger) (*ratelimit.Limiter, error) {
	if cfg.Requests <= 0 {
		return nil, nil
	}

	var store ratelimit.Store
	client, err := redis.New(ctx, cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	if client != nil {
		store = ratelimit.NewRedisStore(client.Client)
	} else {
		store = ratelimit.NewMemoryStore()
	}
	return ratelimit.NewLimiter(store, cfg.Requests, cfg.Window, log), nil
}
