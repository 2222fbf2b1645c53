package main

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/md-rashed-zaman/salonsched/libs/auth"
	"github.com/md-rashed-zaman/salonsched/libs/config"
	"github.com/md-rashed-zaman/salonsched/libs/db"
	"github.com/md-rashed-zaman/salonsched/libs/grpcx"
	"github.com/md-rashed-zaman/salonsched/libs/httpx"
	"github.com/md-rashed-zaman/salonsched/libs/kafkax"
	otelx "github.com/md-rashed-zaman/salonsched/libs/otel"
	"github.com/md-rashed-zaman/salonsched/libs/runtime"
	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/handlers"
	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/lifecycle"
	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/locking"
	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/outbox"
	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/placement"
	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/schedule"
	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/storage"
)

type stores interface {
	storage.AppointmentStore
	storage.ScheduleStore
	storage.CatalogStore
}

func main() {
	_ = config.LoadDotEnv()
	cfg, err := loadSettings()
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(cfg.Service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(cfg.Service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	var (
		store  stores
		checks []runtime.ReadyCheck
	)
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set; using in-memory store")
		store = storage.NewMemory()
	} else {
		pool, err := db.Open(ctx, cfg.DatabaseURL, db.Options{})
		if err != nil {
			logger.Error("db connection failed", "err", err)
			panic(err)
		}
		defer pool.Close()

		outboxRepo := outbox.NewRepository()
		store = storage.NewPostgres(pool, outboxRepo)
		checks = append(checks, runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)})

		if len(cfg.KafkaBrokers) > 0 {
			publisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
				Brokers:   cfg.KafkaBrokers,
				PollEvery: 2 * time.Second,
				BatchSize: 50,
			})
			go publisher.Run(ctx)
			checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(cfg.KafkaBrokers)})
		} else {
			logger.Warn("KAFKA_BROKERS not set; outbox events stay unpublished")
		}
	}

	locker := locking.Chain{locking.NewKeyedMutex()}
	var rateLimit httpx.Middleware
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer func() { _ = rdb.Close() }()

		locker = append(locker, locking.NewRedisLocker(rdb, locking.RedisOptions{Prefix: cfg.Service + ":lock"}))
		rateLimit = httpx.NewRedisRateLimiter(rdb, cfg.RateLimitPerMinute, time.Minute, cfg.Service+":rl").Middleware(logger, cfg.RateLimitFailOpen)
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
		logger.Info("redis enabled", "addr", cfg.RedisAddr, "per_minute", cfg.RateLimitPerMinute)
	} else {
		rateLimit = httpx.NewRateLimiter(cfg.RateLimitPerMinute, time.Minute).Middleware()
		if cfg.DatabaseURL != "" {
			lockPool, err := db.Open(ctx, cfg.DatabaseURL, db.Options{MaxConns: 8})
			if err != nil {
				logger.Error("lock pool connection failed", "err", err)
				panic(err)
			}
			defer lockPool.Close()
			locker = append(locker, locking.NewPostgresLocker(lockPool, cfg.Service+":lock"))
			logger.Info("REDIS_ADDR not set; staff calendars locked with postgres advisory locks")
		}
	}

	business := cfg.BusinessHours
	svc := placement.New(placement.Config{
		Appointments:  store,
		Schedules:     store,
		Catalog:       store,
		Locker:        locker,
		Guard:         lifecycle.NewGuard(cfg.MinNotice, time.Now),
		BusinessHours: func() schedule.Weekly { return business },
		Location:      cfg.Location,
		Granularity:   cfg.Granularity,
		Logger:        logger,
	})

	access := handlers.Access(handlers.Open)
	if cfg.JWTSecret != "" || cfg.JWKSURL != "" {
		var jwks *auth.JWKSClient
		if cfg.JWKSURL != "" {
			jwks = auth.NewJWKSClient(cfg.JWKSURL, cfg.JWKSTTL)
		}
		access = handlers.RequireToken(auth.NewVerifier(cfg.JWTSecret, jwks))
	} else {
		logger.Warn("JWT_SECRET not set; API is unauthenticated")
	}

	mux := runtime.NewBaseMuxWithReady(checks...)
	handlers.New(svc, store, logger).Register(mux, access)

	httpHandler := httpx.Chain(mux,
		httpx.WithCORS(httpx.DefaultCORSPolicy(cfg.CORSOrigins)),
		httpx.WithRequestID,
		httpx.WithRecover(logger),
		httpx.WithAccessLog(logger),
		httpx.WithBodyLimit(cfg.BodyLimit),
		httpx.WithTimeout(cfg.RequestTimeout),
		rateLimit,
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "scheduling")
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcSrv := grpcx.NewServer(logger)
	grpcx.RegisterHealth(grpcSrv, cfg.Service)
	lis, err := net.Listen("tcp", ":"+cfg.GRPCPort)
	if err != nil {
		logger.Error("grpc listen failed", "err", err)
		panic(err)
	}
	grpcx.Serve(ctx, logger, grpcSrv, lis)

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
