package server

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"legal-backend/internal/config"
	"legal-backend/internal/documents"
	"legal-backend/internal/frameworks"
	"legal-backend/internal/llm"
	openai "legal-backend/internal/llm/openai"
	"legal-backend/internal/runs"
	"legal-backend/internal/shared/metrics"
	"legal-backend/internal/shared/server/middleware"
	"legal-backend/internal/shared/server/respond"
	"legal-backend/internal/shared/storage/db"
	"legal-backend/internal/shared/storage/object"
	localstore "legal-backend/internal/shared/storage/object/local"
	s3store "legal-backend/internal/shared/storage/object/s3"
)

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(cfg config.Config) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules: map[string]middleware.RateLimitRule{
				"runs":    {Rate: 0.5, Burst: 3},
				"default": {Rate: 10, Burst: 20},
			},
			DefaultGroup: "default",
			GroupFor: func(c *gin.Context) string {
				if c.Request.Method == http.MethodPost && strings.HasPrefix(c.FullPath(), "/api/v1/runs") {
					return "runs"
				}
				return "default"
			},
		}),
	)

	// Dependencies
	store := buildStore(cfg)
	var sqlDB *sql.DB
	if cfg.DatabaseURL != "" {
		opts := db.OptionsFromEnv(db.DefaultServerOptions())
		dbConn, err := db.Connect(context.Background(), cfg.DatabaseURL, opts)
		if err != nil {
			log.Printf("failed to connect database, falling back to memory: %v", err)
		} else {
			if err := db.RunMigrations(context.Background(), dbConn); err != nil {
				log.Printf("failed to run migrations, falling back to memory: %v", err)
				dbConn = nil
			}
		}
		sqlDB = dbConn
	}

	var docRepo documents.Repo
	var runRepo runs.Repo
	if sqlDB != nil {
		docRepo = &documents.PGRepo{DB: sqlDB}
		runRepo = &runs.PGRepo{DB: sqlDB}
	} else {
		docRepo = documents.NewMemoryRepo()
		runRepo = runs.NewMemoryRepo()
	}

	docSvc := &documents.Service{Store: store, Repo: docRepo}
	docHandler := documents.NewHandler(docSvc)

	llmClient := buildLLM(cfg)
	runSvc := runs.NewService(runRepo, llmClient)
	runHandler := runs.NewHandler(runSvc, docSvc)
	runHandler.DefaultTargetLanguage = cfg.TargetLanguage

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	api.GET("/frameworks", func(c *gin.Context) {
		out := []gin.H{}
		for _, f := range frameworks.List() {
			out = append(out, gin.H{"id": string(f), "name": frameworks.DisplayName(f)})
		}
		respond.OK(c, gin.H{"frameworks": out})
	})
	docHandler.RegisterRoutes(api)
	runHandler.RegisterRoutes(api)

	r.GET("/metrics", metrics.Handler())

	return r
}

func buildStore(cfg config.Config) object.ObjectStore {
	if cfg.ObjectStoreType == "s3" {
		store, err := s3store.New(context.Background(), cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, cfg.SSEKMSKeyID)
		if err != nil {
			log.Printf("failed to build s3 store, falling back to local: %v", err)
		} else {
			return store
		}
	}
	return localstore.New(cfg.LocalStoreDir)
}

func buildLLM(cfg config.Config) llm.Client {
	if cfg.LLMProvider == "openai" {
		client, err := openai.NewClient(os.Getenv("OPENAI_API_KEY"), cfg.LLMModel)
		if err != nil {
			log.Printf("openai client unavailable: %v", err)
			return llm.PlaceholderClient{}
		}
		return client
	}
	return llm.PlaceholderClient{}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
