package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	// Swagger imports
	_ "socialgraph/backend/docs" // This is important for swag to find the generated docs

	"socialgraph/backend/internal/config"
	"socialgraph/backend/internal/database"
	"socialgraph/backend/internal/handler"
	"socialgraph/backend/internal/hub"
	"socialgraph/backend/internal/logging"
	"socialgraph/backend/internal/memstore"
	"socialgraph/backend/internal/observability"
	"socialgraph/backend/internal/relation"
	"socialgraph/backend/internal/repository"
	"socialgraph/backend/pkg/jwt"
)

// @title           Socialgraph API
// @version         1.0
// @description     Friends, followers, blocks and notifications.
// @host            localhost:8080
// @BasePath        /api/v1
// @securityDefinitions.apiKey BearerAuth
// @in header
// @name Authorization
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "server:", err)
		os.Exit(1)
	}
}

type backend struct {
	store  relation.Store
	users  repository.UserRepository
	events repository.EventRepository
	close  func() error
}

func run() error {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	slog.SetDefault(logger)
	if lvl, _ := logging.ParseLevel(cfg.LogLevel); lvl > slog.LevelDebug {
		gin.SetMode(gin.ReleaseMode)
	}

	b, err := openBackend(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := b.close(); err != nil {
			logger.Error("Failed to close store", "error", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewRelationMetrics(registry)

	events := hub.NewHub(logger.With("component", "hub"), metrics)
	service := relation.NewService(b.store,
		relation.WithNotifier(events),
		relation.WithMetrics(metrics),
		relation.WithLogger(logger.With("component", "relation")),
	)

	h := handler.New(handler.Deps{
		Relations:      service,
		Users:          b.users,
		Events:         b.events,
		Tokens:         jwt.NewIssuer(cfg.JWTSecret, cfg.JWTTTL),
		Hub:            events,
		Logger:         logger,
		AllowedOrigins: cfg.AllowedOrigins(),
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler.NewRouter(h, registry),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server is running", "addr", srv.Addr, "store", cfg.StoreDriver)
		logger.Info("Swagger UI is available", "url", fmt.Sprintf("http://localhost%s/swagger/index.html", srv.Addr))
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

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openBackend(cfg *config.Config, logger *slog.Logger) (*backend, error) {
	if cfg.StoreDriver == config.DriverMemory {
		logger.Warn("Using in-memory store; data is lost on exit")
		mem := memstore.New()
		return &backend{store: mem, users: mem, events: mem, close: func() error { return nil }}, nil
	}

	db, err := database.Connect(cfg.DatabaseURL, database.Options{
		MaxOpenConns:  cfg.DBMaxOpenConns,
		MaxIdleTime:   cfg.DBMaxIdleTime,
		SlowThreshold: cfg.DBSlowThreshold,
	}, logger.With("component", "database"))
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		_ = database.Close(db)
		return nil, err
	}
	return &backend{
		store:  database.NewEdgeStore(db),
		users:  database.NewPostgresUserRepository(db),
		events: database.NewPostgresEventRepository(db),
		close:  func() error { return database.Close(db) },
	}, nil
}
