package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"portal/internal/backend"
	"portal/internal/config"
	"portal/internal/domain"
	"portal/internal/events"
	"portal/internal/logging"
	"portal/internal/metrics"
	"portal/internal/repository"
	"portal/internal/web"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	cfg, logger, closer, err := loadConfigAndLogger()
	if err != nil {
		return err
	}
	if closer != nil {
		defer (func() { _ = closer.Close() })()
	}

	client, err := backend.NewClient(cfg.Backend, logger)
	if err != nil {
		logger.Error().Err(err).Str("base_url", cfg.Backend.BaseURL).Msg("create backend client")
		return err
	}

	checks := map[string]domain.HealthChecker{"backend": client}

	redisClient := initRedis(cfg, logger)
	if redisClient != nil {
		defer (func() { _ = repository.Close(redisClient) })()
	}
	flashes := initFlashes(cfg, redisClient, checks, logger)

	bus := events.NewEventBus()
	events.SubscribeAudit(bus, logger)

	server, err := web.NewServer(web.Deps{
		Config:  cfg,
		Backend: client,
		Flashes: flashes,
		Events:  bus,
		Checks:  checks,
		Logger:  logger,
	})
	if err != nil {
		logger.Error().Err(err).Msg("create web server")
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	startMetrics(ctx, cfg, logger)

	return serve(ctx, server, cfg, logger)
}

func loadConfigAndLogger() (*config.Config, *zerolog.Logger, io.Closer, error) {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	baseLogger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("init logger: %w", err)
	}
	logger := baseLogger.With().Str("component", "portal-main").Logger()

	return cfg, &logger, closer, nil
}

func initRedis(cfg *config.Config, logger *zerolog.Logger) *redis.Client {
	if cfg.Redis.Address == "" {
		return nil
	}

	redisClient := repository.NewRedisClient(cfg.Redis)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := repository.Ping(ctx, redisClient); err != nil {
		logger.Warn().Err(err).Msg("redis connection failed, flashes fall back to memory until it recovers")
	} else {
		logger.Info().Str("addr", cfg.Redis.Address).Msg("redis connected")
	}
	return redisClient
}

// initFlashes prefers redis and keeps an in-process store for when it is down.
func initFlashes(cfg *config.Config, redisClient *redis.Client, checks map[string]domain.HealthChecker, logger *zerolog.Logger) domain.FlashRepository {
	memory := repository.NewMemoryFlashRepository(cfg.Redis.FlashTTL)
	if redisClient == nil {
		logger.Info().Msg("redis not configured, flashes kept in memory")
		return memory
	}

	primary := repository.NewRedisFlashRepository(redisClient, cfg.Redis.FlashTTL)
	checks["redis"] = primary
	return repository.NewFailoverFlashRepository(primary, memory, logger)
}

func startMetrics(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) {
	if !cfg.Monitoring.PrometheusEnabled {
		return
	}

	metrics.Register()
	go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, logger)
}

func serve(ctx context.Context, server *web.Server, cfg *config.Config, logger *zerolog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	logger.Info().
		Int("http_port", cfg.HTTP.Port).
		Str("backend", cfg.Backend.BaseURL).
		Msg("portal started")

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("http server stopped")
			return err
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}

	logger.Info().Msg("portal stopped")
	return nil
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
