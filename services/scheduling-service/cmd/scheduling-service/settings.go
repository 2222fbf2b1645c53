package main

import (
	"fmt"
	"time"

	"github.com/md-rashed-zaman/salonsched/libs/config"
	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/availability"
	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/lifecycle"
	"github.com/md-rashed-zaman/salonsched/services/scheduling-service/internal/schedule"
)

type settings struct {
	Service     string
	Port        string
	GRPCPort    string
	DatabaseURL string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	KafkaBrokers []string

	BusinessHours schedule.Weekly
	Location      *time.Location
	Granularity   int
	MinNotice     time.Duration

	JWTSecret string
	JWKSURL   string
	JWKSTTL   time.Duration

	RateLimitPerMinute int
	RateLimitFailOpen  bool
	CORSOrigins        []string
	BodyLimit          int64
	RequestTimeout     time.Duration
}

func loadSettings() (settings, error) {
	s := settings{
		Service:            config.String("SERVICE_NAME", "scheduling-service"),
		DatabaseURL:        config.String("DATABASE_URL", ""),
		RedisAddr:          config.String("REDIS_ADDR", ""),
		RedisPassword:      config.String("REDIS_PASSWORD", ""),
		RedisDB:            config.Int("REDIS_DB", 0),
		KafkaBrokers:       config.List("KAFKA_BROKERS", ""),
		Granularity:        config.Int("SLOT_GRANULARITY_MINUTES", availability.DefaultGranularity),
		MinNotice:          time.Duration(config.Int("MIN_NOTICE_HOURS", int(lifecycle.DefaultMinNotice/time.Hour))) * time.Hour,
		JWTSecret:          config.String("JWT_SECRET", ""),
		JWKSURL:            config.String("JWKS_URL", ""),
		JWKSTTL:            config.Duration("JWKS_CACHE_TTL", 5*time.Minute),
		RateLimitPerMinute: config.Int("RATE_LIMIT_PER_MINUTE", 120),
		RateLimitFailOpen:  config.Bool("RATE_LIMIT_FAIL_OPEN", true),
		CORSOrigins:        config.List("CORS_ALLOWED_ORIGINS", ""),
		BodyLimit:          int64(config.Int("REQUEST_BODY_LIMIT_BYTES", 1<<20)),
		RequestTimeout:     config.Duration("REQUEST_TIMEOUT", 10*time.Second),
	}

	var err error
	if s.Port, err = config.Port("PORT", "8086"); err != nil {
		return settings{}, err
	}
	if s.GRPCPort, err = config.Port("GRPC_PORT", "9096"); err != nil {
		return settings{}, err
	}
	if s.BusinessHours, err = schedule.ParseWeekly(config.String("BUSINESS_HOURS", "")); err != nil {
		return settings{}, fmt.Errorf("BUSINESS_HOURS: %w", err)
	}
	if s.Location, err = time.LoadLocation(config.String("BUSINESS_TIMEZONE", "UTC")); err != nil {
		return settings{}, fmt.Errorf("BUSINESS_TIMEZONE: %w", err)
	}
	if s.Granularity <= 0 || s.Granularity > 240 {
		return settings{}, fmt.Errorf("SLOT_GRANULARITY_MINUTES must be between 1 and 240, got %d", s.Granularity)
	}
	if s.MinNotice < 0 {
		return settings{}, fmt.Errorf("MIN_NOTICE_HOURS must not be negative")
	}
	return s, nil
}
