package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"spexregister/config"
	"spexregister/formats"
	"spexregister/handlers"
	"spexregister/indexing"
	"spexregister/indexing/postgres"
	middleware "spexregister/middlewares"
	"spexregister/search"
	"spexregister/store"

	"github.com/alecthomas/kong"
	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Version is set via ldflags during build
var Version = "dev"

const (
	connectAttempts = 5
	shutdownTimeout = 10 * time.Second
)

var CLI struct {
	Serve   ServeCmd   `cmd:"" help:"Start the spexregister search server" default:"1"`
	Import  ImportCmd  `cmd:"" help:"Add spexare from a file to the search index"`
	Reindex ReindexCmd `cmd:"" help:"Rebuild the search index from the registry database"`
	Version VersionCmd `cmd:"" help:"Show version information"`
}

type ServeCmd struct {
	APIKey   string `help:"API key for authentication (overrides SPEXREGISTER_API_KEY env var)" env:"SPEXREGISTER_API_KEY"`
	DataPath string `help:"Path to data directory (overrides DATA_PATH env var)" env:"DATA_PATH"`
}

func (s *ServeCmd) Run() error {
	cfg, zapLogger, err := setup(s.DataPath)
	if err != nil {
		return err
	}
	defer zapLogger.Sync()

	// Override API key if provided via flag
	if s.APIKey != "" {
		cfg.APIKey = s.APIKey
	}

	zapLogger.Info("Starting spexregister",
		zap.String("version", Version),
		zap.String("port", cfg.Port),
		zap.Bool("auth_enabled", cfg.RequiresAuth()),
		zap.String("data_path", cfg.DataPath),
		zap.Bool("database_enabled", cfg.HasDatabase()),
	)

	indexStore, err := store.Open(cfg.DataPath, store.WithFacetSize(cfg.FacetSize), store.WithLogger(zapLogger))
	if err != nil {
		return fmt.Errorf("failed to open index: %w", err)
	}
	defer indexStore.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var indexer *indexing.Indexer
	var database handlers.DatabaseChecker
	if cfg.HasDatabase() {
		connector, err := connect(ctx, cfg, zapLogger)
		if err != nil {
			return err
		}
		defer connector.Close()
		database = connector

		indexer = newIndexer(cfg, connector, indexStore, zapLogger, prometheus.DefaultRegisterer)
		defer indexer.Stop()

		if cfg.IndexOnStartup {
			if err := indexer.Trigger(false); err != nil {
				zapLogger.Warn("Failed to start initial indexing", zap.Error(err))
			}
		}
		if cfg.FullIndexCron != "" {
			if err := indexer.Schedule(cfg.FullIndexCron); err != nil {
				return err
			}
		}

		if cfg.ListensForChanges() {
			listener, err := listen(ctx, cfg, connector, indexer, zapLogger)
			if err != nil {
				return err
			}
			defer listener.Stop()
		}
	}

	return startServer(ctx, cfg, zapLogger, indexStore, indexer, database)
}

type ImportCmd struct {
	File     string `arg:"" help:"File with spexare documents" type:"existingfile"`
	Format   string `help:"Document format (jsoneachrow or msgpack)" default:"jsoneachrow" enum:"jsoneachrow,msgpack"`
	DataPath string `help:"Path to data directory (overrides DATA_PATH env var)" env:"DATA_PATH"`
}

func (i *ImportCmd) Run() error {
	cfg, zapLogger, err := setup(i.DataPath)
	if err != nil {
		return err
	}
	defer zapLogger.Sync()

	parser, err := formats.GetParser(i.Format)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(i.File)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", i.File, err)
	}

	spexare, err := parser.Parse(data)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", i.File, err)
	}

	indexStore, err := store.Open(cfg.DataPath, store.WithLogger(zapLogger))
	if err != nil {
		return fmt.Errorf("failed to open index: %w", err)
	}
	defer indexStore.Close()

	if err := indexStore.Index(context.Background(), spexare...); err != nil {
		return err
	}

	zapLogger.Info("Import completed",
		zap.String("file", i.File),
		zap.String("format", i.Format),
		zap.Int("indexed", len(spexare)),
	)
	return nil
}

type ReindexCmd struct {
	Force    bool   `help:"Index even if the index already has documents" default:"true" negatable:""`
	DataPath string `help:"Path to data directory (overrides DATA_PATH env var)" env:"DATA_PATH"`
}

func (r *ReindexCmd) Run() error {
	cfg, zapLogger, err := setup(r.DataPath)
	if err != nil {
		return err
	}
	defer zapLogger.Sync()

	if !cfg.HasDatabase() {
		return errors.New("DATABASE_URL is required to reindex")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	indexStore, err := store.Open(cfg.DataPath, store.WithLogger(zapLogger))
	if err != nil {
		return fmt.Errorf("failed to open index: %w", err)
	}
	defer indexStore.Close()

	connector, err := connect(ctx, cfg, zapLogger)
	if err != nil {
		return err
	}
	defer connector.Close()

	indexer := newIndexer(cfg, connector, indexStore, zapLogger, nil)
	defer indexer.Stop()

	result, err := indexer.Run(ctx, r.Force)
	if err != nil {
		return err
	}

	fmt.Printf("indexed %d, deleted %d in %s\n", result.Indexed, result.Deleted, result.Duration.Round(time.Millisecond))
	return nil
}

type VersionCmd struct{}

func (v *VersionCmd) Run() error {
	fmt.Printf("spexregister %s\n", Version)
	return nil
}

// setup loads the configuration and creates the logger
func setup(dataPath string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	// Override data path if provided via flag
	if dataPath != "" {
		cfg.DataPath = dataPath
	}

	var zapLogger *zap.Logger
	if cfg.LogLevel == "debug" {
		zapLogger, err = zap.NewDevelopment()
	} else {
		zapLogger, err = zap.NewProduction()
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return cfg, zapLogger, nil
}

func connect(ctx context.Context, cfg *config.Config, zapLogger *zap.Logger) (*postgres.Connector, error) {
	pgConfig := databaseConfig(cfg)
	if err := pgConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid database configuration: %w", err)
	}

	connector := postgres.NewConnector(pgConfig, zapLogger)
	if err := connector.ConnectWithRetry(ctx, connectAttempts); err != nil {
		return nil, err
	}
	return connector, nil
}

func newIndexer(cfg *config.Config, connector *postgres.Connector, indexStore *store.Store, zapLogger *zap.Logger, reg prometheus.Registerer) *indexing.Indexer {
	source := postgres.NewSource(connector.Pool(), databaseConfig(cfg), zapLogger)
	return indexing.New(source, indexStore,
		indexing.WithBatchSize(cfg.IndexBatchSize),
		indexing.WithLogger(zapLogger),
		indexing.WithRegisterer(reg),
	)
}

// listen keeps the index up to date with changes announced by the database
func listen(ctx context.Context, cfg *config.Config, connector *postgres.Connector, indexer *indexing.Indexer, zapLogger *zap.Logger) (*postgres.Listener, error) {
	pgConfig := databaseConfig(cfg)

	if cfg.DatabaseInstallTrigger {
		if err := postgres.InstallNotifyTrigger(ctx, connector.Pool(), pgConfig); err != nil {
			return nil, err
		}
		zapLogger.Info("Installed notify trigger", zap.String("table", pgConfig.FullTableName()))
	}

	listener := postgres.NewListener(connector.Pool(), pgConfig, zapLogger, func(ctx context.Context, ids []int64) error {
		_, err := indexer.Update(ctx, ids...)
		return err
	})
	if err := listener.Start(ctx); err != nil {
		return nil, err
	}
	return listener, nil
}

func databaseConfig(cfg *config.Config) *postgres.Config {
	return (&postgres.Config{
		DSN:         cfg.DatabaseURL,
		MaxConns:    cfg.DatabaseMaxConns,
		ConnTimeout: cfg.DatabaseConnectTimeout,
		Schema:      cfg.DatabaseSchema,
		Table:       cfg.DatabaseTable,

		NotifyChannel: cfg.DatabaseNotifyChannel,
	}).WithDefaults()
}

func startServer(ctx context.Context, cfg *config.Config, zapLogger *zap.Logger, indexStore *store.Store, indexer *indexing.Indexer, database handlers.DatabaseChecker) error {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          handlers.ErrorHandler(zapLogger),
		JSONEncoder:           sonic.Marshal,
		JSONDecoder:           sonic.Unmarshal,
	})

	// Middleware
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:request_id} ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())

	// Inject handler context middleware
	app.Use(handlers.Inject(&handlers.HandlerContext{
		Store:    indexStore,
		Indexer:  indexer,
		Database: database,
		Config:   cfg,
		Resolver: search.NewPageableResolver(cfg.DefaultPageSize, cfg.MaxPageSize, search.Sort{{Property: store.ScoreProperty, Direction: search.Desc}}),
		Logger:   zapLogger,
	}))

	// Prometheus metrics (before auth to allow scraping without authentication)
	prom := fiberprometheus.New("spexregister")
	prom.RegisterAt(app, "/metrics")
	app.Use(prom.Middleware)

	// Health check route
	app.Get("/health", handlers.Health)

	// API routes require authentication when an API key is configured
	api := app.Group("/api", middleware.Authorization(cfg, zapLogger))
	{
		api.Get("/v1/spexare", handlers.SearchSpexare)
		api.Get("/v1/spexare/:id", handlers.GetSpexare)

		// Administration
		api.Get("/admin/index/:entity", handlers.IndexStatus)
		api.Post("/admin/index/:entity", handlers.TriggerIndex)
		api.Post("/admin/documents", handlers.AddDocuments)
		api.Delete("/admin/documents", handlers.DeleteDocuments)
	}

	go func() {
		<-ctx.Done()
		zapLogger.Info("Shutting down")
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			zapLogger.Error("Failed to shut down server", zap.Error(err))
		}
	}()

	// Start server
	zapLogger.Info("Server starting", zap.String("address", ":"+cfg.Port))
	if err := app.Listen(":" + cfg.Port); err != nil {
		zapLogger.Error("Failed to start server", zap.Error(err))
		return err
	}
	return nil
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("spexregister"),
		kong.Description("Search service for the spexare registry"),
		kong.UsageOnError(),
	)
	err := ctx.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
