package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	goredis "github.com/go-redis/redis/v8"
	"github.com/phrazzld/studio-api/internal/api"
	"github.com/phrazzld/studio-api/internal/config"
	"github.com/phrazzld/studio-api/internal/events"
	"github.com/phrazzld/studio-api/internal/generation"
	"github.com/phrazzld/studio-api/internal/platform/redis"
	"github.com/phrazzld/studio-api/internal/service"
	"github.com/phrazzld/studio-api/internal/task"
)

// eventBufferSize is how many events an event stream subscriber may lag
// behind before events are dropped for it.
const eventBufferSize = 64

// application holds the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	// db is nil for the in-memory store
	db          *sql.DB
	redisClient *goredis.Client

	taskStore     task.TaskStore
	scheduler     *task.Scheduler
	broker        *events.Broker
	studioService service.StudioService

	// eventsHandler is set by setupRouter
	eventsHandler *api.EventsHandler
}

// newApplication wires the store, scheduler, event fan-out and service.
// The generator is passed in so the same wiring runs against a fake in tests.
func newApplication(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	generator generation.Generator,
) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
	}

	var err error
	app.taskStore, app.db, err = setupTaskStore(ctx, cfg.Store, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to set up task store: %w", err)
	}

	app.scheduler, err = task.NewScheduler(app.taskStore, generator, task.SchedulerConfig{
		Backoff: task.BackoffPolicy{
			Base:      cfg.Task.BaseDelay(),
			MaxJitter: cfg.Task.MaxJitter(),
		},
		MaxInFlight: int64(cfg.Task.MaxInFlight),
	}, logger)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to create task scheduler: %w", err)
	}

	emitter := events.NewInMemoryEventEmitter(logger)
	app.broker = events.NewBroker(eventBufferSize, logger)
	emitter.RegisterHandler("event_stream", app.broker)

	if cfg.Redis.Addr != "" {
		if err := app.setupRedis(ctx, emitter); err != nil {
			app.cleanup()
			return nil, err
		}
	}
	app.scheduler.SetEventEmitter(emitter)

	location, err := cfg.Feed.Location()
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("invalid feed timezone: %w", err)
	}

	app.studioService, err = service.NewStudioService(
		app.scheduler,
		app.taskStore,
		service.FeedConfig{Location: location},
		logger,
	)
	if err != nil {
		app.cleanup()
		return nil, fmt.Errorf("failed to create studio service: %w", err)
	}

	if cfg.Task.RecoverOnStart {
		if err := app.scheduler.Start(ctx); err != nil {
			app.cleanup()
			return nil, fmt.Errorf("failed to recover pending tasks: %w", err)
		}
	}

	logger.Info("Application initialized successfully")
	return app, nil
}

// setupRedis connects to Redis and registers a publisher for task events.
func (app *application) setupRedis(ctx context.Context, emitter *events.InMemoryEventEmitter) error {
	client, err := redis.NewClient(ctx, app.config.Redis)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	app.redisClient = client

	publisher, err := redis.NewPublisher(client, app.config.Redis.Channel, app.logger)
	if err != nil {
		return fmt.Errorf("failed to create redis publisher: %w", err)
	}
	emitter.RegisterHandler("redis_publisher", publisher)

	app.logger.Info("Publishing task events to redis",
		"addr", app.config.Redis.Addr,
		"channel", app.config.Redis.Channel)
	return nil
}

// Run serves HTTP until ctx is canceled or a termination signal arrives,
// then shuts down.
func (app *application) Run(ctx context.Context) error {
	defer app.cleanup()
	return app.serve(ctx, app.setupRouter())
}

// cleanup stops the scheduler and closes connections. Tasks interrupted by
// the stop stay pending and are resumed on the next start.
func (app *application) cleanup() {
	if app.scheduler != nil {
		app.scheduler.Stop()
	}

	if app.redisClient != nil {
		if err := app.redisClient.Close(); err != nil {
			app.logger.Error("Error closing redis connection", "error", err)
		}
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
