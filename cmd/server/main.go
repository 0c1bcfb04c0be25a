package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/dharmasatrya/milesvalue/internal/aggregator"
	"github.com/dharmasatrya/milesvalue/internal/cache"
	"github.com/dharmasatrya/milesvalue/internal/config"
	"github.com/dharmasatrya/milesvalue/internal/handler"
	"github.com/dharmasatrya/milesvalue/internal/logger"
	"github.com/dharmasatrya/milesvalue/internal/providers"
	"github.com/dharmasatrya/milesvalue/internal/ratelimit"
	"github.com/dharmasatrya/milesvalue/internal/reference"
	"github.com/dharmasatrya/milesvalue/internal/transport"
	"github.com/dharmasatrya/milesvalue/internal/valuation"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLog, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = zapLog.Sync() }()

	ref, err := loadReference(cfg.Reference.Path)
	if err != nil {
		zapLog.Fatal("Failed to load reference data", zap.String("path", cfg.Reference.Path), zap.Error(err))
	}

	rateLimiter := ratelimit.NewProviderLimiter(ratelimit.DefaultLimit(), providerLimits(cfg.Providers))
	httpTransport := transport.New(&http.Client{},
		transport.WithLimiter(rateLimiter),
		transport.WithLogger(zapLog),
	)

	providerList := initializeProviders(cfg, providers.Options{
		Policy: transport.Policy{
			Attempts:  cfg.Retry.Attempts,
			Timeout:   cfg.Retry.Timeout,
			BaseDelay: cfg.Retry.BaseDelay,
		},
		Transport: httpTransport,
		Logger:    zapLog,
		Reference: ref,
	})
	zapLog.Info("Initialized flight providers", zap.Int("count", len(providerList)))

	agg := aggregator.NewAggregator(providerList, aggregator.Config{
		RoundTripTimeout: cfg.Aggregator.RoundTripTimeout,
		Reference:        ref,
		Logger:           zapLog,
	})
	engine := valuation.NewEngine(zapLog)

	searchCache := initializeCache(cfg.Cache, zapLog)
	defer func() { _ = searchCache.Close() }()

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(middleware.RequestID())
	e.Use(requestLogger(zapLog))

	searchHandler := handler.NewSearchHandler(agg, searchCache, zapLog)
	mileageHandler := handler.NewMileageHandler(engine, ref)
	healthHandler := handler.NewProviderHealthHandler(agg.Providers(), cfg.Retry.Timeout)

	api := e.Group("/api/v1")
	api.POST("/flights/search", searchHandler.Search)
	api.POST("/mileage/evaluate", mileageHandler.Evaluate)
	api.GET("/providers/health", healthHandler.Check)
	e.GET("/health", handler.HealthHandler)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	go func() {
		zapLog.Info("Starting milesvalue server", zap.String("port", cfg.Server.Port))
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	zapLog.Info("Shutdown signal received, stopping server")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		zapLog.Error("Server shutdown failed", zap.Error(err))
	}
}

func loadReference(path string) (*reference.Data, error) {
	if path == "" {
		return reference.Default(), nil
	}
	return reference.LoadFile(path)
}

func providerLimits(cfg config.ProvidersConfig) map[string]ratelimit.Limit {
	limit := func(c config.ProviderCommon) ratelimit.Limit {
		return ratelimit.Limit{RequestsPerSecond: c.RPS, BurstSize: c.Burst}
	}
	return map[string]ratelimit.Limit{
		"amadeus":    limit(cfg.Amadeus.ProviderCommon),
		"skyscanner": limit(cfg.Skyscanner.ProviderCommon),
		"duffel":     limit(cfg.Duffel.ProviderCommon),
	}
}

// initializeProviders builds every enabled client. Missing credentials do not
// disable a provider; it serves fallback estimates instead.
func initializeProviders(cfg *config.Config, shared providers.Options) []providers.Provider {
	var providerList []providers.Provider

	withCommon := func(c config.ProviderCommon) providers.Options {
		opts := shared
		opts.BaseURL = c.BaseURL
		opts.Fallback = c.Fallback
		return opts
	}

	if p := cfg.Providers.Amadeus; p.Enabled {
		providerList = append(providerList, providers.NewAmadeusProvider(providers.AmadeusConfig{
			ClientID:          p.ClientID,
			ClientSecret:      p.ClientSecret,
			TokenSafetyBuffer: p.TokenSafetyBuffer,
		}, withCommon(p.ProviderCommon)))
	}

	if p := cfg.Providers.Skyscanner; p.Enabled {
		providerList = append(providerList, providers.NewSkyscannerProvider(providers.SkyscannerConfig{
			APIKey: p.APIKey,
			Host:   p.Host,
		}, withCommon(p.ProviderCommon)))
	}

	if p := cfg.Providers.Duffel; p.Enabled {
		providerList = append(providerList, providers.NewDuffelProvider(providers.DuffelConfig{
			AccessToken: p.AccessToken,
			Version:     p.Version,
		}, withCommon(p.ProviderCommon)))
	}

	return providerList
}

func initializeCache(cfg config.CacheConfig, zapLog *zap.Logger) cache.Cache {
	if !cfg.Enabled {
		zapLog.Info("Cache disabled")
		return cache.NewNoOpCache()
	}

	redisCache, err := cache.NewRedisCache(cache.RedisConfig{
		Host:     cfg.RedisHost,
		Port:     cfg.RedisPort,
		Password: cfg.Password,
		DB:       cfg.DB,
		TTL:      cfg.TTL,
	})
	if err != nil {
		zapLog.Fatal("Failed to connect to Redis", zap.String("addr", cfg.Addr()), zap.Error(err))
	}
	zapLog.Info("Redis cache enabled", zap.String("addr", cfg.Addr()), zap.Duration("ttl", cfg.TTL))
	return redisCache
}

func requestLogger(zapLog *zap.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("request_id", v.RequestID),
			}
			if v.Error != nil {
				zapLog.Error("request failed", append(fields, zap.Error(v.Error))...)
				return nil
			}
			zapLog.Info("request", fields...)
			return nil
		},
	})
}
