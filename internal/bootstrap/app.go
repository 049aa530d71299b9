// Package bootstrap assembles the application: database, object store,
// repositories, services, handlers and finally the router. cmd/api and the
// dev launcher both build through it, and the handler tests do too, so the
// wiring here is the wiring everywhere.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"autofill-backend/internal/admin"
	googleauth "autofill-backend/internal/auth"
	"autofill-backend/internal/chat"
	"autofill-backend/internal/documents"
	"autofill-backend/internal/llm/ollama"
	"autofill-backend/internal/ocr"
	"autofill-backend/internal/shared/config"
	"autofill-backend/internal/shared/server"
	"autofill-backend/internal/shared/storage/db"
	"autofill-backend/internal/shared/storage/object"
	localstore "autofill-backend/internal/shared/storage/object/local"
	s3store "autofill-backend/internal/shared/storage/object/s3"
	"autofill-backend/internal/shared/telemetry"
	"autofill-backend/internal/users"
)

// App holds the assembled dependencies. Commands reach past Router for the
// pieces they need (migrations want DB, the smoke seeder wants the store).
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore
	Ollama *ollama.Client

	DocumentsRepo documents.Repo
	ChatRepo      chat.Repo
	UsersRepo     users.Repo

	DocumentsService *documents.Service
	ChatService      *chat.Service
	UsersService     *users.Service

	DocumentsHandler *documents.Handler
	ChatHandler      *chat.Handler
	UsersHandler     *users.Handler
	AdminHandler     *admin.Handler
	GoogleAuth       *googleauth.GoogleService
}

// Build assembles the application from configuration.
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

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		Ollama: ollama.New(ollama.Config{
			BaseURL:         cfg.OllamaBaseURL,
			Model:           cfg.OllamaModel,
			StatusTimeout:   cfg.OllamaStatusTimeout,
			GenerateTimeout: cfg.OllamaGenerateTimeout,
			PullTimeout:     cfg.OllamaPullTimeout,
		}),
	}

	buildServices(app)

	app.Router = server.NewRouter(cfg, server.RouterDeps{
		Documents:  app.DocumentsHandler,
		Chat:       app.ChatHandler,
		Users:      app.UsersHandler,
		Admin:      app.AdminHandler,
		GoogleAuth: app.GoogleAuth,
		DocRepo:    app.DocumentsRepo,
		ChatSvc:    app.ChatService,
		MediaDir:   mediaDir(cfg, store),
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			telemetry.Info("bootstrap.memory_repos", map[string]any{
				"reason": "DATABASE_URL empty",
			})
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			telemetry.Warn("bootstrap.memory_repos", map[string]any{
				"reason": "database connect failed",
				"error":  err.Error(),
			})
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.AWSRegion) == "" || strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires AWS_REGION and S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildServices(app *App) {
	var (
		docRepo  documents.Repo
		chatRepo chat.Repo
		userRepo users.Repo
	)
	if app.DB != nil {
		docRepo = &documents.SQLRepo{DB: app.DB}
		chatRepo = &chat.SQLRepo{DB: app.DB}
		userRepo = &users.SQLRepo{DB: app.DB}
	} else {
		docRepo = documents.NewMemoryRepo()
		chatRepo = chat.NewMemoryRepo()
		userRepo = users.NewMemoryRepo()
	}

	docSvc := &documents.Service{
		Repo:           docRepo,
		Store:          app.Store,
		Engine:         buildOCR(app.Config),
		Sessions:       chatRepo,
		FontPath:       app.Config.OverlayFont,
		MaxUploadBytes: app.Config.MaxUploadBytes,
	}
	if isDevLike(app.Config.Env) && app.Config.ObjectStoreType == "local" {
		docSvc.MediaBase = "/media"
	}

	chatSvc := &chat.Service{
		Repo:      chatRepo,
		Documents: docRepo,
		LLM:       app.Ollama,
		Models:    app.Ollama,
	}

	userSvc := users.NewService(userRepo)
	googleAuthSvc := googleauth.NewGoogleService(
		app.Config.GoogleClientID,
		app.Config.GoogleClientSecret,
		app.Config.GoogleRedirectURL,
		app.Config.UIRedirectURL,
		userSvc,
	)

	app.DocumentsRepo = docRepo
	app.ChatRepo = chatRepo
	app.UsersRepo = userRepo
	app.DocumentsService = docSvc
	app.ChatService = chatSvc
	app.UsersService = userSvc
	app.DocumentsHandler = documents.NewHandler(docSvc)
	app.ChatHandler = chat.NewHandler(chatSvc)
	app.UsersHandler = users.NewHandler(userSvc)
	app.AdminHandler = admin.NewHandler(docSvc, docRepo, chatRepo)
	app.GoogleAuth = googleAuthSvc
}

// buildOCR picks the recognizer. Tesseract is compiled in; a nil engine
// would degrade to Noop inside the service, but being explicit keeps the
// OCR_DISABLED escape hatch visible.
func buildOCR(cfg config.Config) ocr.Engine {
	if cfg.OCRDisabled {
		return ocr.Noop{}
	}
	return &ocr.Tesseract{}
}

// mediaDir reports the directory to mount at /media, empty when the
// static mount does not apply (production or non-local store).
func mediaDir(cfg config.Config, store object.ObjectStore) string {
	if !isDevLike(cfg.Env) || cfg.ObjectStoreType != "local" {
		return ""
	}
	if local, ok := store.(*localstore.Store); ok {
		return local.BaseDir()
	}
	return ""
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}
