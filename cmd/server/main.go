package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/technosupport/fleetwatch/internal/alerts"
	"github.com/technosupport/fleetwatch/internal/analysis"
	"github.com/technosupport/fleetwatch/internal/api"
	"github.com/technosupport/fleetwatch/internal/audit"
	"github.com/technosupport/fleetwatch/internal/auth"
	"github.com/technosupport/fleetwatch/internal/config"
	"github.com/technosupport/fleetwatch/internal/data"
	"github.com/technosupport/fleetwatch/internal/events"
	"github.com/technosupport/fleetwatch/internal/middleware"
	"github.com/technosupport/fleetwatch/internal/notify"
	"github.com/technosupport/fleetwatch/internal/ratelimit"
	"github.com/technosupport/fleetwatch/internal/sim"
	"github.com/technosupport/fleetwatch/internal/store"
	"github.com/technosupport/fleetwatch/internal/tokens"
	"github.com/technosupport/fleetwatch/internal/users"
)

func main() {
	configPath := flag.String("config", "config/default.yaml", "path to config file")
	migrationsPath := flag.String("migrations", "migrations", "path to migration files")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}
	if cfg.Auth.SigningKey == "" {
		cfg.Auth.SigningKey = "dev-secret-do-not-use-in-prod"
		log.Printf("auth: no signing key configured, using dev key")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Redis: snapshot persistence, token revocation, rate limiting.
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatalf("redis ping error: %v", err)
	}

	// Postgres carries the audit trail only; fleet state lives in the
	// snapshot. The server still runs when Postgres is absent, with audit
	// events spooling to disk.
	var auditService *audit.Service
	if cfg.Postgres.DSN != "" {
		db, err := sql.Open("postgres", cfg.Postgres.DSN)
		if err != nil {
			log.Fatalf("postgres open error: %v", err)
		}
		if err := db.Ping(); err != nil {
			log.Fatalf("postgres ping error: %v", err)
		}
		if err := runMigrations(*migrationsPath, cfg.Postgres.DSN); err != nil {
			log.Fatalf("migrations error: %v", err)
		}
		auditService = audit.NewService(db)
		audit.ConfigureFailover(cfg.Audit.SpoolDir)
		auditService.StartReplayer(ctx)
	} else {
		log.Printf("audit: no postgres DSN configured, audit trail disabled")
	}

	hub := notify.NewHub()
	emitter := alerts.NewEmitter(cfg.Alerts.DedupKeys, cfg.Alerts.DedupTTL)

	opts := store.Options{
		Snapshots: data.NewRedisSnapshotRepository(rdb),
		Notifier:  hub,
		Emitter:   emitter,
	}
	if auditService != nil {
		opts.Auditor = auditService
	}
	st := store.New(opts)
	if err := st.Load(ctx); err != nil {
		log.Fatalf("store load error: %v", err)
	}

	// Optional transition stream.
	var publisher sim.TransitionPublisher
	if cfg.NATS.URL != "" {
		nc, err := nats.Connect(cfg.NATS.URL,
			nats.RetryOnFailedConnect(true),
			nats.MaxReconnects(-1),
		)
		if err != nil {
			log.Printf("nats connect failed, transition stream disabled: %v", err)
		} else {
			defer nc.Close()
			publisher = events.NewNATSPublisher(nc, cfg.NATS.Subject, cfg.NATS.MaxRetries)
		}
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	engine := sim.NewEngine(st, rng, cfg.Sim.Probabilities, nil)
	scheduler := sim.NewScheduler(sim.SchedulerConfig{Interval: cfg.Sim.TickInterval}, engine, publisher)
	scheduler.Start()
	defer scheduler.Stop()

	// Probabilities follow the config file without a restart.
	config.StartWatcher(ctx, *configPath, func(next config.Config) {
		engine.SetProbabilities(next.Sim.Probabilities)
		log.Printf("sim: probabilities reloaded")
	})

	tokenMgr := tokens.NewManager(cfg.Auth.SigningKey)
	blacklist := auth.NewRedisBlacklist(rdb)
	userService := users.NewService(st, tokenMgr)
	limiter := middleware.NewRateLimit(ratelimit.NewLimiter(rdb, ""), cfg.RateLimit)

	router := api.NewRouter(api.Deps{
		Store:     st,
		Users:     userService,
		Analyzer:  analysis.NewClient(cfg.Analysis.BaseURL, cfg.Analysis.APIKey),
		Audit:     auditService,
		Hub:       hub,
		JWT:       middleware.NewJWTAuth(tokenMgr, blacklist),
		Blacklist: blacklist,
		RateLimit: limiter,
		AccessTTL: tokenMgr.AccessTTL(),
	})

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("fleetwatch listening on %s", cfg.Server.Addr)
		errCh <- srv.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Printf("received %s, shutting down", sig)
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

func runMigrations(path, dsn string) error {
	m, err := migrate.New("file://"+path, dsn)
	if err != nil {
		return err
	}
	defer m.Close()
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
