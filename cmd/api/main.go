package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	"github.com/bryanwahyu/synthscreen/internal/application"
	appanalysis "github.com/bryanwahyu/synthscreen/internal/application/analysis"
	appcreds "github.com/bryanwahyu/synthscreen/internal/application/credentials"
	appsession "github.com/bryanwahyu/synthscreen/internal/application/session"
	"github.com/bryanwahyu/synthscreen/internal/config"
	domanalysis "github.com/bryanwahyu/synthscreen/internal/domain/analysis"
	"github.com/bryanwahyu/synthscreen/internal/domain/runs"
	"github.com/bryanwahyu/synthscreen/internal/domain/screenerrors"
	"github.com/bryanwahyu/synthscreen/internal/domain/screening"
	openaiClient "github.com/bryanwahyu/synthscreen/internal/infra/ai/openai"
	"github.com/bryanwahyu/synthscreen/internal/infra/credstore"
	mysqlp "github.com/bryanwahyu/synthscreen/internal/infra/db/mysql"
	postgresp "github.com/bryanwahyu/synthscreen/internal/infra/db/postgres"
	"github.com/bryanwahyu/synthscreen/internal/infra/engine"
	"github.com/bryanwahyu/synthscreen/internal/infra/httpserver"
	minioStore "github.com/bryanwahyu/synthscreen/internal/infra/storage"
	"github.com/bryanwahyu/synthscreen/internal/middleware"
)

func main() {
	// .env is optional, real config lives in config.yaml
	_ = godotenv.Load()

	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	ctx := context.Background()

	// connect database (mysql or postgres)
	var db *sql.DB
	var runRepo runs.Repository
	var errRepo screenerrors.Repository
	var analysisRepo domanalysis.Repository
	switch cfg.Database.Driver {
	case "postgres":
		db, err = postgresp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			log.Fatalf("postgres connect error: %v", err)
		}
		runRepo = postgresp.NewRunRepository(db)
		errRepo = postgresp.NewScreenErrorRepository(db)
		analysisRepo = postgresp.NewAnalysisRepository(db)
	default:
		db, err = mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			log.Fatalf("mysql connect error: %v", err)
		}
		runRepo = mysqlp.NewRunRepository(db)
		errRepo = mysqlp.NewScreenErrorRepository(db)
		analysisRepo = mysqlp.NewAnalysisRepository(db)
	}
	defer db.Close()

	// init minio artifact store
	var artifacts runs.ArtifactStore
	store, err := minioStore.New(ctx,
		cfg.Minio.Endpoint,
		cfg.Minio.Region,
		cfg.Minio.BucketName,
		cfg.Minio.AccessKey,
		cfg.Minio.SecretKey,
		cfg.Minio.UseSSL,
	)
	if err != nil {
		// artifact export degrades, screening itself still works
		log.Printf("minio init error, exports disabled: %v", err)
	} else {
		artifacts = store
	}

	// init screening engine client
	var eng screening.Engine
	engineClient, err := engine.New(cfg.Engine.BaseURL, time.Duration(cfg.Engine.TimeoutSeconds)*time.Second)
	if err != nil {
		log.Printf("engine init error, screening disabled: %v", err)
	} else {
		eng = engineClient
	}

	// credential store file
	credPath := cfg.CredStore.Path
	if credPath == "" {
		credPath = "credentials.json"
	}
	creds := appcreds.NewManager(credstore.NewFile(credPath))

	// init services
	sessionSvc := &appsession.Service{
		Engine:    eng,
		Creds:     creds,
		Repo:      runRepo,
		Artifacts: artifacts,
		Errs:      errRepo,
		Clock:     application.SystemClock{},
	}

	var aiSvc *appanalysis.Service
	if cfg.OpenAI.APIKey != "" {
		aiSvc = appanalysis.NewService(
			openaiClient.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model),
			analysisRepo,
			application.SystemClock{},
		)
	}

	// init router
	mux := chi.NewRouter()
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))
	mux.Use(middleware.LoggingMiddleware)
	mux.Use(middleware.MetricsMiddleware)
	if cfg.RateLimit.Enabled {
		mux.Use(middleware.RateLimitMiddleware(cfg.RateLimit.Capacity, cfg.RateLimit.RefillRate))
	}
	if cfg.Auth.Enabled {
		mux.Use(middleware.APIKeyAuth(cfg.Auth.APIKeys))
		mux.Use(middleware.RequireTenantMatch)
	}

	checkers := map[string]middleware.HealthChecker{
		"database": &middleware.DatabaseHealthChecker{DB: db},
	}
	if cfg.Engine.BaseURL != "" {
		checkers["engine"] = &middleware.HTTPHealthChecker{URL: cfg.Engine.BaseURL}
	}
	mux.Get("/healthz", middleware.HealthHandler(checkers))
	mux.Get("/readyz", middleware.ReadinessHandler)
	mux.Get("/livez", middleware.LivenessHandler)
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Mount("/", httpserver.NewRouter(sessionSvc, aiSvc))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		log.Printf("server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
