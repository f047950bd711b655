package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"tender-backend/internal/documents"
	"tender-backend/internal/jobs"
	"tender-backend/internal/llm"
	openai "tender-backend/internal/llm/openai"
	"tender-backend/internal/matching"
	"tender-backend/internal/ocr"
	"tender-backend/internal/profiles"
	"tender-backend/internal/queue"
	"tender-backend/internal/shared/auth"
	"tender-backend/internal/shared/config"
	"tender-backend/internal/shared/server"
	"tender-backend/internal/shared/storage/db"
	"tender-backend/internal/shared/storage/object"
	localstore "tender-backend/internal/shared/storage/object/local"
	s3store "tender-backend/internal/shared/storage/object/s3"
	"tender-backend/internal/tenders"
)

// App holds shared dependencies for every binary.
type App struct {
	Config    config.Config
	Router    *gin.Engine
	DB        *sql.DB
	Store     object.Store
	Queue     queue.Client
	Signer    *auth.Signer
	Documents *documents.Service
	Jobs      *jobs.Service
	// Runner is set when jobs run in-process rather than through the queue.
	Runner   *jobs.Runner
	Profiles profiles.Repo
	Tenders  tenders.Store
	Engine   *matching.Engine
}

// Options overrides adapters, mainly for tests and local tools.
type Options struct {
	OCR      ocr.Extractor
	Fields   llm.FieldExtractor
	Keywords llm.KeywordGenerator
	// Inline runs jobs on the in-process runner even when a queue is configured.
	Inline bool
	// Role sizes the database pool; it defaults to server.
	Role db.Role
}

// Build prepares dependencies and the router.
func Build(cfg config.Config) (*App, error) {
	return BuildWith(context.Background(), cfg, Options{})
}

// BuildWith is Build with adapter overrides.
func BuildWith(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}

	sqlDB, err := buildDB(ctx, cfg, opts.Role)
	if err != nil {
		return nil, err
	}
	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	signer, err := auth.NewSigner(cfg.JWTSecret, cfg.Env)
	if err != nil {
		return nil, err
	}

	app := &App{Config: cfg, DB: sqlDB, Store: store, Signer: signer}
	if err := buildServices(ctx, app, opts); err != nil {
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:          cfg,
		Verifier:        signer,
		JobsHandler:     jobs.NewHandler(app.Jobs),
		DocumentHandler: documents.NewHandler(app.Documents),
		ProfileHandler:  profiles.NewHandler(app.Profiles),
		MatchHandler:    matching.NewHandler(app.Engine, app.Profiles),
		TenderHandler:   tenders.NewHandler(app.Tenders),
		Ready:           app.ready,
	})
	return app, nil
}

// Close drains the in-process runner and closes the database.
func (a *App) Close(ctx context.Context) error {
	if a.Runner != nil {
		a.Runner.Shutdown(ctx)
	}
	if a.DB != nil && !db.IsLambdaRuntime() {
		return a.DB.Close()
	}
	return nil
}

func (a *App) ready(ctx context.Context) error {
	if a.DB == nil {
		return nil
	}
	return db.Ping(ctx, a.DB, 2*time.Second)
}

func buildDB(ctx context.Context, cfg config.Config, role db.Role) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if config.IsDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if role == "" {
		role = db.RoleServer
	}
	sqlDB, err := db.Open(ctx, cfg.DatabaseURL, db.RuntimeRole(role))
	if err != nil {
		if config.IsDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.Store, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildServices(ctx context.Context, app *App, opts Options) error {
	var (
		docRepo     documents.Repo
		jobRepo     jobs.Repo
		profileRepo profiles.Repo
		tenderStore tenders.Store
	)
	if app.DB != nil {
		docRepo = &documents.PGRepo{DB: app.DB}
		jobRepo = &jobs.PGRepo{DB: app.DB}
		profileRepo = &profiles.PGRepo{DB: app.DB}
		tenderStore = &tenders.PGStore{DB: app.DB}
	} else {
		docRepo = documents.NewMemoryRepo()
		jobRepo = jobs.NewMemoryRepo()
		profileRepo = profiles.NewMemoryRepo()
		tenderStore = tenders.NewMemoryStore()
	}

	extractor, err := buildOCR(app.Config, opts)
	if err != nil {
		return err
	}
	fields, keywords, err := buildLLM(app.Config, opts)
	if err != nil {
		return err
	}

	app.Documents = &documents.Service{
		Store:     app.Store,
		Repo:      docRepo,
		Validator: documents.DefaultValidator(),
	}
	app.Profiles = profileRepo
	app.Tenders = tenderStore
	app.Engine = matching.NewEngine(tenderStore)
	app.Jobs = &jobs.Service{
		Repo:           jobRepo,
		Documents:      app.Documents,
		Profiles:       profileRepo,
		OCR:            extractor,
		Fields:         fields,
		Keywords:       keywords,
		OCRTimeout:     app.Config.OCRTimeout,
		AnalyzeTimeout: app.Config.AnalyzeTimeout,
		SourceLocale:   app.Config.KeywordSourceLocale,
		TargetLocale:   app.Config.KeywordTargetLocale,
	}

	if strings.TrimSpace(app.Config.QueueURL) != "" && !opts.Inline {
		client, err := queue.NewSQSClient(ctx, app.Config.QueueURL, app.Config.AWSRegion)
		if err != nil {
			return err
		}
		app.Queue = client
		app.Jobs.Dispatcher = jobs.QueueDispatcher{Client: client}
	} else {
		app.Runner = jobs.NewRunner(app.Jobs,
			jobs.WithWorkers(app.Config.WorkerConcurrency),
			jobs.WithJobTimeout(app.Config.JobTimeout),
		)
		app.Jobs.Dispatcher = app.Runner
	}

	if app.Jobs.Dispatcher == nil {
		return errors.New("failed to initialize job dispatcher")
	}
	return nil
}

func buildOCR(cfg config.Config, opts Options) (ocr.Extractor, error) {
	if opts.OCR != nil {
		return opts.OCR, nil
	}
	if cfg.OCRProvider == "remote" {
		return ocr.NewRemote(cfg.OCREndpoint, cfg.OCRAPIKey, cfg.OCRPollInterval)
	}
	return ocr.PDFText{}, nil
}

func buildLLM(cfg config.Config, opts Options) (llm.FieldExtractor, llm.KeywordGenerator, error) {
	var (
		fields   llm.FieldExtractor   = llm.PlaceholderClient{}
		keywords llm.KeywordGenerator = llm.PlaceholderClient{}
	)
	if cfg.LLMProvider == "openai" {
		client, err := openai.NewClient(cfg.OpenAIAPIKey, cfg.LLMModel)
		if err != nil {
			return nil, nil, err
		}
		fields, keywords = client, client
	}
	if opts.Fields != nil {
		fields = opts.Fields
	}
	if opts.Keywords != nil {
		keywords = opts.Keywords
	}
	return fields, keywords, nil
}
