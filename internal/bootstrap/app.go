package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"manuscript-backend/internal/account"
	"manuscript-backend/internal/audits"
	googleauth "manuscript-backend/internal/auth"
	"manuscript-backend/internal/gamification"
	"manuscript-backend/internal/llm"
	openai "manuscript-backend/internal/llm/openai"
	"manuscript-backend/internal/manuscripts"
	"manuscript-backend/internal/queue"
	"manuscript-backend/internal/shared/config"
	"manuscript-backend/internal/shared/server"
	"manuscript-backend/internal/shared/storage/db"
	"manuscript-backend/internal/shared/storage/object"
	localstore "manuscript-backend/internal/shared/storage/object/local"
	s3store "manuscript-backend/internal/shared/storage/object/s3"
	"manuscript-backend/internal/users"
)

// App holds shared dependencies.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore
	Queue  queue.Client

	ManuscriptsRepo manuscripts.Repo
	AuditsRepo      audits.Repo
	UsersRepo       users.Repo

	ManuscriptsService  *manuscripts.Service
	AuditsService       *audits.Service
	GamificationService *gamification.Service
	AccountService      *account.Service
	UsersService        *users.Service

	ManuscriptsHandler  *manuscripts.Handler
	AuditsHandler       *audits.Handler
	GamificationHandler *gamification.Handler
	AccountHandler      *account.Handler
	UsersHandler        *users.Handler
	GoogleAuth          *googleauth.GoogleService
}

// Build prepares shared dependencies and wires the router.
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

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		Queue:  queueClient,
	}

	if err := buildServices(app); err != nil {
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:              app.Config,
		AccountHandler:      app.AccountHandler,
		AuditHandler:        app.AuditsHandler,
		ManuscriptHandler:   app.ManuscriptsHandler,
		GamificationHandler: app.GamificationHandler,
		UserHandler:         app.UsersHandler,
		GoogleAuth:          app.GoogleAuth,
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}

	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if strings.TrimSpace(cfg.AuditQueueURL) == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

func buildServices(app *App) error {
	var msRepo manuscripts.Repo
	var auditRepo audits.Repo
	var userRepo users.Repo

	if app.DB != nil {
		msRepo = &manuscripts.PGRepo{DB: app.DB}
		auditRepo = &audits.PGRepo{DB: app.DB}
		userRepo = &users.PGRepo{DB: app.DB}
	} else {
		msRepo = manuscripts.NewMemoryRepo()
		auditRepo = audits.NewMemoryRepo()
		userRepo = users.NewMemoryRepo()
	}

	msSvc := &manuscripts.Service{
		Store: app.Store,
		Repo:  msRepo,
	}

	var gamificationSvc *gamification.Service
	if app.DB != nil {
		gamificationSvc = gamification.NewPostgresService(gamification.NewPGStore(app.DB))
	} else {
		gamificationSvc = gamification.NewService()
	}

	llmClient := llm.Client(llm.PlaceholderClient{})
	if app.Config.LLMProvider == "openai" {
		openaiClient, err := openai.NewClient(os.Getenv("OPENAI_API_KEY"), app.Config.LLMModel)
		if err != nil {
			return err
		}
		llmClient = openaiClient
	}

	auditSvc := &audits.Service{
		Repo:           auditRepo,
		ManuscriptRepo: msRepo,
		Store:          app.Store,
		LLM:            llmClient,
		Gamification:   gamificationSvc,
		JobQueue:       app.Queue,
		Provider:       app.Config.LLMProvider,
		Model:          app.Config.LLMModel,
		AuditVersion:   app.Config.AuditVersion,
	}

	userSvc := users.NewService(userRepo)
	googleAuthSvc := googleauth.NewGoogleService(
		app.Config.GoogleClientID,
		app.Config.GoogleClientSecret,
		app.Config.GoogleRedirectURL,
		app.Config.UIRedirectURL,
		userSvc,
	)

	app.ManuscriptsRepo = msRepo
	app.AuditsRepo = auditRepo
	app.UsersRepo = userRepo
	app.ManuscriptsService = msSvc
	app.AuditsService = auditSvc
	app.GamificationService = gamificationSvc
	app.AccountService = account.NewService(msRepo, auditRepo, gamificationSvc, userRepo)
	app.UsersService = userSvc
	app.ManuscriptsHandler = manuscripts.NewHandler(msSvc)
	app.AuditsHandler = audits.NewHandler(auditSvc, audits.NewPollLimiter(30, time.Minute))
	app.GamificationHandler = gamification.NewHandler(gamificationSvc)
	app.AccountHandler = account.NewHandler(app.AccountService)
	app.UsersHandler = users.NewHandler(userSvc)
	app.GoogleAuth = googleAuthSvc

	if app.ManuscriptsHandler == nil || app.AuditsHandler == nil || app.GamificationHandler == nil {
		return errors.New("failed to initialize handlers")
	}

	return nil
}
