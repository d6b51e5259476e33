package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	h "github.com/gorilla/handlers"
	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
	"github.com/talentloop/talentsync/internal/config"
	"github.com/talentloop/talentsync/internal/connectors"
	"github.com/talentloop/talentsync/internal/connectors/hrflow"
	"github.com/talentloop/talentsync/internal/connectors/warehouse"
	"github.com/talentloop/talentsync/internal/handlers"
	"github.com/talentloop/talentsync/internal/middleware"
	"github.com/talentloop/talentsync/internal/migration"
	"github.com/talentloop/talentsync/internal/models"
	"github.com/talentloop/talentsync/internal/notification"
	"github.com/talentloop/talentsync/internal/repository"
	"github.com/talentloop/talentsync/internal/routes"
	"github.com/talentloop/talentsync/internal/runner"
	"github.com/talentloop/talentsync/internal/sync/engine"
	"github.com/talentloop/talentsync/internal/sync/filter"
	"github.com/talentloop/talentsync/internal/sync/formatter"
	"github.com/talentloop/talentsync/internal/sync/schema"
	"github.com/talentloop/talentsync/internal/temporal"
	"github.com/talentloop/talentsync/internal/temporal/activities"
	"github.com/talentloop/talentsync/internal/temporal/workflows"
	"github.com/talentloop/talentsync/internal/utils"
	syncworker "github.com/talentloop/talentsync/internal/worker"

	_ "github.com/lib/pq" // PostgreSQL driver
	tc "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
)

type application struct {
	config         *config.Config
	db             *sql.DB
	registry       *connectors.Registry
	formatters     *formatter.Registry
	runner         *runner.Runner
	temporalClient tc.Client
	logger         zerolog.Logger
	notifications  notification.Service
	secrets        *utils.SecretBox
}

func main() {
	// Set up structured, level-based logging.
	consoleWriter := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	logger := zerolog.New(consoleWriter).With().Timestamp().Logger()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.SetFlags(0)
	log.SetOutput(logger)

	gooseAdapter := migration.NewGooseAdapter(logger)
	goose.SetLogger(gooseAdapter)

	// Load configuration.
	cfg := config.Load()

	// Initialize database connection.
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to the database")
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to ping database")
	}

	// Run database migrations.
	migration.RunMigrations(cfg.DatabaseURL, logger)

	secrets, err := utils.NewSecretBox(cfg.EncryptionKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid endpoint encryption key")
	}

	// Notification channels.
	notificationRepo := repository.NewNotificationRepository(db)
	var notifiers []notification.Notifier
	if emailNotifier, err := notification.NewEmailNotifier(cfg.Email, logger); err != nil {
		logger.Warn().Err(err).Msg("email notifier disabled")
	} else {
		notifiers = append(notifiers, emailNotifier)
	}
	notifiers = append(notifiers, notification.NewWebhookNotifier(cfg.Webhook, logger))
	notificationService := notification.NewService(notificationRepo, logger, notifiers...)

	app := &application{
		config:        cfg,
		db:            db,
		registry:      buildConnectorRegistry(),
		formatters:    formatter.NewRegistry(),
		logger:        logger,
		notifications: notificationService,
		secrets:       secrets,
	}
	app.loadFormatters()

	app.runner = runner.New(
		repository.NewEndpointRepository(db, secrets),
		repository.NewCursorRepository(db),
		repository.NewRunRepository(db),
		app.registry,
		app.formatters,
		notification.NewRunEvents(notificationService),
		logger,
	)

	// Run execution: either a Temporal worker or the poll worker.
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	defer stopWorkers()

	var temporalWorker worker.Worker
	if cfg.Worker.UseTemporal {
		app.temporalClient, err = temporal.NewClient(cfg.Worker.TemporalHostPort, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("Unable to create Temporal client")
		}
		defer app.temporalClient.Close()
		temporalWorker = app.startTemporalWorker(logger)
	} else {
		app.startPollWorker(workerCtx, logger)
	}

	// HTTP router and middleware.
	router := app.initRouter(logger)
	loggedRouter := middleware.LoggingMiddleware(app.logger)(router)
	corsHandler := h.CORS(
		h.AllowedOrigins([]string{"http://localhost:3000"}),
		h.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		h.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		h.AllowCredentials(),
	)(loggedRouter)

	app.startServer(corsHandler, temporalWorker, stopWorkers, logger)

	logger.Info().Msg("Application terminated.")
}

// buildConnectorRegistry wires the supported connector kinds.
func buildConnectorRegistry() *connectors.Registry {
	registry := connectors.NewRegistry()
	registry.Register(models.ConnectorKindHrflow, func(ep *models.ConnectorEndpoint) (engine.Connector, error) {
		return hrflow.New(ep.Name, ep.BaseURL, ep.Secret)
	})
	registry.Register(models.ConnectorKindWarehouse, func(ep *models.ConnectorEndpoint) (engine.Connector, error) {
		conn, err := warehouse.Open(ep.Name, ep.DSN)
		if err != nil {
			return nil, err
		}
		if err := conn.EnsureSchema(context.Background()); err != nil {
			conn.Close()
			return nil, err
		}
		return conn, nil
	})
	return registry
}

// loadFormatters seeds the in-memory registry from the stored specs.
func (app *application) loadFormatters() {
	specs, err := repository.NewFormatterRepository(app.db).List()
	if err != nil {
		app.logger.Fatal().Err(err).Msg("Failed to load formatter specs")
	}
	for _, spec := range specs {
		if err := app.formatters.Put(spec); err != nil {
			app.logger.Warn().Err(err).Str("formatter_id", spec.ID).Msg("skipping invalid stored formatter")
		}
	}
	app.logger.Info().Int("count", len(specs)).Msg("formatter specs loaded")
}

// initRouter sets up all HTTP handlers and returns the router.
func (app *application) initRouter(logger zerolog.Logger) http.Handler {
	userRepo := repository.NewUserRepository(app.db)
	endpointRepo := repository.NewEndpointRepository(app.db, app.secrets)
	runRepo := repository.NewRunRepository(app.db)
	scheduleRepo := repository.NewScheduleRepository(app.db)
	formatterRepo := repository.NewFormatterRepository(app.db)

	schemas := map[string]handlers.SchemaFn{
		models.ConnectorKindHrflow:    func(r filter.Resource) *schema.RecordType { return hrflow.RecordTypeFor(r) },
		models.ConnectorKindWarehouse: func(r filter.Resource) *schema.RecordType { return warehouse.RecordTypeFor(r) },
	}

	return routes.NewRouter(routes.Handlers{
		Auth:          handlers.NewAuthHandler(app.db, app.config, logger),
		Users:         handlers.NewUserHandler(userRepo, logger),
		Endpoints:     handlers.NewEndpointHandler(endpointRepo, app.registry, logger),
		Schemas:       handlers.NewSchemaHandler(schemas),
		Formatters:    handlers.NewFormatterHandler(formatterRepo, app.formatters, logger),
		Runs:          handlers.NewRunHandler(runRepo, endpointRepo, app.registry, app.runner, app.temporalClient, logger),
		Schedules:     handlers.NewScheduleHandler(scheduleRepo, logger),
		Notifications: handlers.NewNotificationHandler(app.notifications, logger),
	})
}

func (app *application) startTemporalWorker(logger zerolog.Logger) worker.Worker {
	activityImpl := &activities.Activities{
		RunRepo: repository.NewRunRepository(app.db),
		Runner:  app.runner,
	}

	w := worker.New(app.temporalClient, temporal.TaskQueueName, worker.Options{})

	w.RegisterWorkflow(workflows.SyncRunWorkflow)
	w.RegisterActivity(activityImpl)

	go func() {
		logger.Info().Msg("Starting Temporal worker...")
		if err := w.Run(worker.InterruptCh()); err != nil {
			logger.Fatal().Err(err).Msg("Unable to start worker")
		}
	}()

	return w
}

func (app *application) startPollWorker(ctx context.Context, logger zerolog.Logger) {
	pollWorker := syncworker.NewWorker(syncworker.WorkerConfig{
		Runs:         repository.NewRunRepository(app.db),
		Schedules:    repository.NewScheduleRepository(app.db),
		Runner:       app.runner,
		PollInterval: app.config.Worker.PollInterval,
		Logger:       logger,
	})
	go func() {
		if err := pollWorker.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error().Err(err).Msg("poll worker exited")
		}
	}()
}

// startServer launches the HTTP server and handles graceful shutdown.
func (app *application) startServer(handler http.Handler, temporalWorker worker.Worker, stopWorkers context.CancelFunc, logger zerolog.Logger) {
	server := &http.Server{
		Addr:    ":" + app.config.ServerPort,
		Handler: handler,
	}

	serverErrCh := make(chan error, 1)
	go func() {
		logger.Info().Msgf("Server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info().Msgf("Received signal: %s. Shutting down...", sig)
	case err := <-serverErrCh:
		logger.Error().Err(err).Msg("Server error occurred")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("HTTP server shutdown error")
	} else {
		logger.Info().Msg("HTTP server shutdown complete.")
	}

	stopWorkers()
	if temporalWorker != nil {
		logger.Info().Msg("Stopping Temporal worker...")
		temporalWorker.Stop()
		logger.Info().Msg("Temporal worker stopped.")
	}
}
