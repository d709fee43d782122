package app

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

	"fraud-detector/internal/api/handlers"
	"fraud-detector/internal/api/middlew"
	"fraud-detector/internal/broadcast"
	"fraud-detector/internal/config"
	"fraud-detector/internal/db"
	"fraud-detector/internal/kafka"
	"fraud-detector/internal/models"
	"fraud-detector/internal/rules"
	"fraud-detector/internal/scoring"
	"fraud-detector/internal/server"
	"fraud-detector/internal/service"
	"fraud-detector/internal/storage"
	"fraud-detector/internal/storage/postgres"
	"fraud-detector/internal/storage/sqlite"
	"fraud-detector/migrations"
	"fraud-detector/pkg/logger"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
)

const shutdownTimeout = 30 * time.Second

type App struct {
	log     *slog.Logger
	logFile *os.File
	cfg     *config.Config
	store   storage.Store

	fanout      *broadcast.FanOut
	broadcaster broadcast.Broadcaster
	ingestion   *service.IngestionService

	server          *server.Server
	pipelineHandler *handlers.PipelineHandler
	consumer        *kafka.Consumer
	cancelConsumer  context.CancelFunc
}

// NewApp sets up logging and opens the configured store, applying migrations.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	loggerWithFile, err := logger.NewLoggerWithFile(cfg.LogFile, logger.ParseLevel(cfg.LogLevel))
	if err != nil {
		return nil, err
	}
	log := loggerWithFile.Logger
	log.Info("initialising application", slog.String("store", cfg.Store.Driver))

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		_ = loggerWithFile.Close()
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	log.Info("store ready", slog.String("driver", cfg.Store.Driver))

	return &App{
		log:         log,
		logFile:     loggerWithFile.LogFile,
		cfg:         cfg,
		store:       store,
		broadcaster: broadcast.NewNoOp(),
	}, nil
}

func openStore(ctx context.Context, cfg *config.Config, log *slog.Logger) (storage.Store, error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		log.Info("applying postgres migrations")
		if err := db.RunMigrations(migrations.Postgres, "postgres", cfg.DB.MigrationURL()); err != nil {
			return nil, err
		}
		pool, err := db.NewPool(ctx, cfg.DB.DSN(), db.DefaultPoolConfig(), log)
		if err != nil {
			return nil, err
		}
		return postgres.NewStore(pool), nil
	case config.DriverSQLite:
		return sqlite.Open(ctx, cfg.Store.SQLitePath, log)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.Store.Driver)
	}
}

// BuildBroadcastLayer replaces the no-op broadcaster with a fan-out and
// registers every enabled external subscriber.
func (a *App) BuildBroadcastLayer(ctx context.Context) error {
	a.fanout = broadcast.NewFanOut(a.cfg.Observer.QueueSize, a.cfg.Observer.SendTimeout, a.log)
	a.broadcaster = a.fanout

	if a.cfg.Kafka.Enabled {
		producer, err := kafka.NewKafkaProducer(a.cfg.Kafka.Brokers, a.cfg.Kafka.Topic, a.log)
		if err != nil {
			return fmt.Errorf("failed to initialise kafka: %w", err)
		}
		a.fanout.Subscribe(broadcast.NewKafkaSubscriber(producer))
	} else {
		a.log.Info("kafka observer disabled")
	}

	if a.cfg.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     a.cfg.Redis.Addr,
			Password: a.cfg.Redis.Password,
			DB:       a.cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return fmt.Errorf("failed to connect to redis at %s: %w", a.cfg.Redis.Addr, err)
		}
		a.fanout.Subscribe(broadcast.NewRedisSubscriber(client, a.cfg.Redis.Channel))
	} else {
		a.log.Info("redis observer disabled")
	}

	if a.cfg.NSQ.Enabled {
		producer, err := broadcast.NewNSQProducer(a.cfg.NSQ.Addr)
		if err != nil {
			return err
		}
		a.fanout.Subscribe(broadcast.NewNSQSubscriber(producer, a.cfg.NSQ.Topic))
	} else {
		a.log.Info("nsq observer disabled")
	}

	if a.cfg.Mongo.Enabled {
		m := a.cfg.Mongo
		archive, err := broadcast.ConnectMongoSubscriber(ctx, m.URI, m.Database, m.Collection, m.Timeout)
		if err != nil {
			return err
		}
		a.fanout.Subscribe(archive)
	} else {
		a.log.Info("mongo alert archive disabled")
	}

	a.log.Info("broadcast layer built", slog.Int("subscribers", a.fanout.Count()))
	return nil
}

func (a *App) BuildPipelineLayer() {
	a.ingestion = service.NewIngestionService(
		a.store,
		rules.NewEngine(&a.cfg.Rules, a.log),
		scoring.NewScorer(&a.cfg.Rules),
		a.broadcaster,
		a.log,
	)
	a.log.Info("pipeline layer built",
		slog.Int("risk_score_threshold", a.cfg.Rules.RiskScoreThreshold))
}

// BuildConsumerLayer starts streaming ingestion from Kafka when enabled.
func (a *App) BuildConsumerLayer() error {
	if !a.cfg.Kafka.IngestEnabled {
		a.log.Info("kafka ingestion disabled")
		return nil
	}
	if a.ingestion == nil {
		return errors.New("ingestion service not initialised, call BuildPipelineLayer first")
	}

	consumer, err := kafka.NewConsumer(a.cfg.Kafka.Brokers, a.cfg.Kafka.GroupID, a.cfg.Kafka.IngestTopic, a.ingestion, a.log)
	if err != nil {
		return fmt.Errorf("failed to initialise kafka consumer: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	consumer.Start(ctx)
	a.consumer = consumer
	a.cancelConsumer = cancel
	return nil
}

func (a *App) BuildServerLayer() error {
	if a.ingestion == nil {
		return errors.New("ingestion service not initialised, call BuildPipelineLayer first")
	}
	if a.fanout == nil {
		return errors.New("fan-out not initialised, call BuildBroadcastLayer first")
	}

	a.server = server.NewServer(a.cfg.HTTPPort)
	a.server.Router.Use(middleware.RequestID)
	a.server.Router.Use(middlew.WithLogger(a.log))
	a.server.Router.Use(middleware.RealIP)
	a.server.Router.Use(middleware.Recoverer)

	a.pipelineHandler = handlers.NewPipelineHandler(a.ingestion, a.cfg.Pipeline.DataFile, a.cfg.Pipeline.Delay, a.log)
	health := handlers.NewHealthHandler(a.fanout)
	hub := broadcast.NewWebsocketHub(a.fanout, a.log)
	observerAuth := service.NewObserverAuthService(a.cfg.Observer.JWTSecret)
	if !observerAuth.Enabled() {
		a.log.Warn("OBSERVER_JWT_SECRET is empty, alert stream is unauthenticated")
	}

	a.server.Router.Get("/healthz", health.Healthz)

	a.server.Router.Group(func(r chi.Router) {
		r.Use(middlew.AccessLog)
		r.Post("/api/v1/pipeline/ingest", a.pipelineHandler.Ingest)
		r.Post("/api/v1/pipeline/trigger", a.pipelineHandler.Trigger)
	})

	a.server.Router.Group(func(r chi.Router) {
		r.Use(middlew.RequireObserverToken(observerAuth))
		r.Handle("/ws/alerts", hub)
	})

	a.log.Info("server layer built", slog.String("port", a.cfg.HTTPPort))
	return nil
}

// Ingest runs one file through the pipeline, for the CLI.
func (a *App) Ingest(ctx context.Context, path string, delay time.Duration) (*models.BatchSummary, error) {
	if a.ingestion == nil {
		a.BuildPipelineLayer()
	}
	return a.ingestion.IngestFile(ctx, path, delay)
}

func (a *App) Run() error {
	if a.server == nil {
		return errors.New("server not initialised, call BuildServerLayer first")
	}
	a.log.Info("server starting", slog.String("port", a.cfg.HTTPPort))

	serverErr := make(chan error, 1)
	go func() {
		if err := a.server.Run(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- fmt.Errorf("server failed: %w", err)
		}
	}()

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(shutdownChan)

	var runErr error
	select {
	case runErr = <-serverErr:
	case sig := <-shutdownChan:
		a.log.Info("shutdown signal received", slog.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if a.consumer != nil {
		a.cancelConsumer()
		if err := a.consumer.Close(ctx); err != nil {
			a.log.Error("failed to stop kafka consumer", slog.String("error", err.Error()))
		}
	}

	if err := a.server.Shutdown(ctx); err != nil {
		a.log.Error("failed to stop http server", slog.String("error", err.Error()))
	}
	if err := a.pipelineHandler.Shutdown(ctx); err != nil {
		a.log.Error("failed to stop triggered ingestion", slog.String("error", err.Error()))
	}

	a.Close(ctx)
	return runErr
}

// Close drains the broadcaster, then releases the store and the log file.
func (a *App) Close(ctx context.Context) {
	if a.fanout != nil {
		a.log.Info("draining alert broadcaster")
		if err := a.fanout.Close(ctx); err != nil {
			a.log.Error("failed to drain alert broadcaster", slog.String("error", err.Error()))
		}
	}

	if a.ingestion != nil {
		summary := a.ingestion.Summary()
		a.log.Info("pipeline totals",
			slog.Int("total", summary.Total),
			slog.Int("flagged", summary.Flagged),
			slog.Int("skipped", summary.Skipped))
	}

	a.log.Info("closing store")
	if err := a.store.Close(); err != nil {
		a.log.Error("failed to close store", slog.String("error", err.Error()))
	}

	a.log.Info("application stopped")
	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to close log file: %v\n", err)
		}
	}
}
