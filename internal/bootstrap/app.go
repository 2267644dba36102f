package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"marketsauce-agent/internal/chat"
	"marketsauce-agent/internal/diagnostics"
	"marketsauce-agent/internal/documents"
	"marketsauce-agent/internal/events"
	"marketsauce-agent/internal/llm"
	"marketsauce-agent/internal/llm/anthropic"
	"marketsauce-agent/internal/llm/openai"
	"marketsauce-agent/internal/queue"
	"marketsauce-agent/internal/research"
	"marketsauce-agent/internal/services/health"
	"marketsauce-agent/internal/shared/config"
	"marketsauce-agent/internal/shared/server"
	"marketsauce-agent/internal/shared/storage/db"
	"marketsauce-agent/internal/shared/storage/object"
	localstore "marketsauce-agent/internal/shared/storage/object/local"
	s3store "marketsauce-agent/internal/shared/storage/object/s3"
	"marketsauce-agent/internal/workerproc"
)

const defaultRegion = "us-east-1"

// App holds shared dependencies for every binary.
type App struct {
	Config             config.Config
	Router             *gin.Engine
	DB                 *sql.DB
	Store              object.Store
	Queue              queue.Client
	Events             events.Publisher
	LLM                llm.Client
	Research           *research.Client
	DiagnosticsRepo    diagnostics.Repo
	ChatRepo           chat.Repo
	DocumentsRepo      documents.Repo
	DiagnosticsService *diagnostics.Service
	ChatService        *chat.Service
	DocumentsService   *documents.Service
	DiagnosticsHandler *diagnostics.Handler
	ChatHandler        *chat.Handler
	DocumentsHandler   *documents.Handler
	ResearchHandler    *research.Handler

	// DiagnosticProcessor overrides queue processing, mostly for tests.
	DiagnosticProcessor workerproc.Processor
}

// Build wires storage, providers, services and the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queueClient, err := buildQueue(ctx, cfg)
	if err != nil {
		return nil, err
	}

	publisher, err := events.Connect(cfg.NATSURL)
	if err != nil {
		if !isDevLike(cfg.Env) {
			return nil, err
		}
		log.Printf("bootstrap: nats unavailable; events disabled: %v", err)
		publisher = events.NopPublisher{}
	}

	llmClient, err := buildLLM(cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		Queue:  queueClient,
		Events: publisher,
		LLM:    llmClient,
		Research: research.NewClient(research.Options{
			APIKey:  cfg.FirecrawlAPIKey,
			BaseURL: cfg.FirecrawlBaseURL,
			RPS:     cfg.FirecrawlRPS,
		}),
	}

	if err := buildServices(app); err != nil {
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:            app.Config,
		DiagnosticHandler: app.DiagnosticsHandler,
		ChatHandler:       app.ChatHandler,
		DocumentHandler:   app.DocumentsHandler,
		ResearchHandler:   app.ResearchHandler,
		Health:            health.NewService(pingerOrNil(app.DB), llm.IsConfigured(app.LLM), app.Research.Keyed()),
	})

	return app, nil
}

// pingerOrNil keeps a nil *sql.DB from becoming a non-nil interface.
func pingerOrNil(d *sql.DB) health.Pinger {
	if d == nil {
		return nil
	}
	return d
}

// Processor returns what queue consumers should call for each job.
func (a *App) Processor() workerproc.Processor {
	if a == nil {
		return nil
	}
	if a.DiagnosticProcessor != nil {
		return a.DiagnosticProcessor
	}
	if a.DiagnosticsService == nil {
		return nil
	}
	return a.DiagnosticsService
}

// Close releases connections opened by Build.
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.Events != nil {
		a.Events.Close()
	}
	if a.DB != nil && !db.IsLambdaRuntime() {
		_ = a.DB.Close()
	}
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	sqlDB, err := db.ConnectForRuntime(ctx, cfg.DatabaseURL)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}
	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: migrations failed; using in-memory repositories: %v", err)
			_ = sqlDB.Close()
			return nil, nil
		}
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.Store, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, regionOrDefault(cfg.AWSRegion), cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if strings.TrimSpace(cfg.QueueURL) == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx, cfg.QueueURL, regionOrDefault(cfg.AWSRegion))
}

// buildLLM picks the provider. Missing credentials in dev fall back to
// the placeholder so the research-only report path still works.
func buildLLM(cfg config.Config) (llm.Client, error) {
	var (
		client llm.Client
		err    error
	)
	switch cfg.LLMProvider {
	case "none":
		return llm.PlaceholderClient{}, nil
	case "openai":
		if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
			err = errors.New("OPENAI_API_KEY is required")
			break
		}
		client, err = openai.NewClient(cfg.OpenAIAPIKey, cfg.LLMModel)
	default:
		if strings.TrimSpace(cfg.AnthropicAPIKey) == "" {
			err = errors.New("ANTHROPIC_API_KEY is required")
			break
		}
		client, err = anthropic.NewClient(cfg.AnthropicAPIKey, cfg.LLMModel, cfg.AnthropicBaseURL)
	}
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: llm disabled: %v", err)
			return llm.PlaceholderClient{}, nil
		}
		return nil, err
	}
	return client, nil
}

func buildServices(app *App) error {
	if app.DB != nil {
		app.DiagnosticsRepo = &diagnostics.PGRepo{DB: app.DB}
		app.ChatRepo = &chat.PGRepo{DB: app.DB}
		app.DocumentsRepo = &documents.PGRepo{DB: app.DB}
	} else {
		app.DiagnosticsRepo = diagnostics.NewMemoryRepo()
		app.ChatRepo = chat.NewMemoryRepo()
		app.DocumentsRepo = documents.NewMemoryRepo()
	}

	app.DiagnosticsService = &diagnostics.Service{
		Repo:      app.DiagnosticsRepo,
		Research:  app.Research,
		LLM:       app.LLM,
		Queue:     app.Queue,
		Events:    app.Events,
		MaxTokens: app.Config.LLMMaxTokens,
	}
	app.ChatService = &chat.Service{
		Repo: app.ChatRepo,
		LLM:  app.LLM,
	}
	app.DocumentsService = &documents.Service{
		Store: app.Store,
		Repo:  app.DocumentsRepo,
	}

	app.DiagnosticsHandler = diagnostics.NewHandler(app.DiagnosticsService)
	app.ChatHandler = chat.NewHandler(app.ChatService)
	app.DocumentsHandler = documents.NewHandler(app.DocumentsService)
	app.ResearchHandler = research.NewHandler(app.Research)

	if app.DiagnosticsHandler == nil || app.ChatHandler == nil || app.DocumentsHandler == nil {
		return errors.New("failed to initialize handlers")
	}
	return nil
}

func regionOrDefault(region string) string {
	if trimmed := strings.TrimSpace(region); trimmed != "" {
		return trimmed
	}
	return defaultRegion
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
