// Command ghnotify-server mirrors users' GitHub notifications into a
// database and relays sync, mark-read and webhook events to clients.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/nhle/ghnotify/internal/events"
	"github.com/nhle/ghnotify/internal/logger"
	"github.com/nhle/ghnotify/internal/metrics"
	"github.com/nhle/ghnotify/internal/model"
	"github.com/nhle/ghnotify/internal/server"
	"github.com/nhle/ghnotify/internal/service"
	"github.com/nhle/ghnotify/internal/source/github"
	"github.com/nhle/ghnotify/internal/store"
	"github.com/nhle/ghnotify/internal/store/postgres"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := flag.StringP("config", "c", model.DefaultConfigPath(), "path to the config file")
	flag.Parse()

	logger.InitLogger()
	defer logger.Close()
	log := logger.GetLogger()

	if err := run(*configPath); err != nil {
		log.Errorw("server exited", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	log := logger.Named("server")

	cfg, err := model.LoadConfig(configPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	threads, users, closeDB, err := openStores(ctx, cfg.Server)
	if err != nil {
		return err
	}
	defer closeDB()

	broker, err := openBroker(ctx, cfg.Server, log, m)
	if err != nil {
		return err
	}
	defer broker.Close()

	if os.Getenv("ENVIRONMENT") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.Server.WebhookSecret == "" {
		log.Warn("server.webhook_secret is empty; webhook deliveries will be rejected")
	}

	router := server.NewRouter(server.Config{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		WebhookSecret:  cfg.Server.WebhookSecret,
		Heartbeat:      cfg.HeartbeatInterval(),
	}, server.Deps{
		Notifications: service.NewNotificationService(threads, broker, m, logger.Named("service")),
		Users:         users,
		Sources: github.NewFactory(github.Options{
			Host:     cfg.GitHub.Host,
			BaseURL:  cfg.GitHub.APIURL,
			Timeout:  time.Duration(cfg.GitHub.TimeoutSec) * time.Second,
			PageSize: cfg.GitHub.PageSize,
		}),
		Broker:   broker,
		Registry: reg,
		Logger:   logger.Named("http"),
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting server", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openStores returns the thread and user stores for the configured
// driver along with a close function.
func openStores(ctx context.Context, cfg model.ServerConfig) (store.ThreadStore, store.UserStore, func(), error) {
	switch cfg.DatabaseDriver {
	case "postgres":
		pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, nil, err
		}
		return postgres.NewThreadStore(pool), postgres.NewUserStore(pool), pool.Close, nil

	case "sqlite", "":
		if err := os.MkdirAll(filepath.Dir(cfg.DatabaseURL), 0o755); err != nil {
			return nil, nil, nil, fmt.Errorf("creating database directory: %w", err)
		}
		s, err := store.NewSQLiteStore(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		return s, s, func() { _ = s.Close() }, nil

	default:
		return nil, nil, nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}
}

// openBroker returns a Redis broker when an address is configured and an
// in-process broker otherwise.
func openBroker(ctx context.Context, cfg model.ServerConfig, log *zap.Logger, m *metrics.Metrics) (events.Broker, error) {
	if cfg.RedisAddr == "" {
		return events.NewMemoryBroker(log.Named("events"), m), nil
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", cfg.RedisAddr, err)
	}
	return events.NewRedisBroker(rdb, log.Named("events"), m), nil
}
