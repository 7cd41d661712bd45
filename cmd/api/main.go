package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	_ "github.com/lib/pq"

	"github.com/lintai-dev/lintai-server/internal/application"
	appai "github.com/lintai-dev/lintai-server/internal/application/ai"
	appruns "github.com/lintai-dev/lintai-server/internal/application/runs"
	"github.com/lintai-dev/lintai-server/internal/config"
	domain "github.com/lintai-dev/lintai-server/internal/domain/runs"
	aiclient "github.com/lintai-dev/lintai-server/internal/infra/ai/openai"
	"github.com/lintai-dev/lintai-server/internal/infra/executor/lintai"
	"github.com/lintai-dev/lintai-server/internal/infra/httpserver"
	"github.com/lintai-dev/lintai-server/internal/infra/prefs"
	fileregistry "github.com/lintai-dev/lintai-server/internal/infra/registry/file"
	mysqlregistry "github.com/lintai-dev/lintai-server/internal/infra/registry/mysql"
	pgregistry "github.com/lintai-dev/lintai-server/internal/infra/registry/postgres"
	"github.com/lintai-dev/lintai-server/internal/infra/results"
	"github.com/lintai-dev/lintai-server/internal/infra/storage"
	applog "github.com/lintai-dev/lintai-server/internal/log"
	"github.com/lintai-dev/lintai-server/internal/middleware"
	"github.com/lintai-dev/lintai-server/internal/workspace"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := applog.New(cfg.Log.Level)
	ctx := context.Background()

	if err := os.MkdirAll(cfg.Workspace.DataDir, 0o755); err != nil {
		log.Error("create data dir", "err", err)
		os.Exit(1)
	}

	guard, err := workspace.NewGuard(cfg.Workspace.Root)
	if err != nil {
		log.Error("workspace guard", "err", err)
		os.Exit(1)
	}

	resultStore := results.New(cfg.Workspace.DataDir, log)
	diagStore := results.NewDiagnostics(resultStore)

	prefStore, err := prefs.New(cfg.Workspace.DataDir)
	if err != nil {
		log.Error("preference store", "err", err)
		os.Exit(1)
	}

	healthCheckers := map[string]middleware.HealthChecker{
		"data_dir": &middleware.DataDirHealthChecker{Dir: cfg.Workspace.DataDir},
	}

	registry, db, err := buildRegistry(ctx, cfg, log)
	if err != nil {
		log.Error("registry", "driver", cfg.Registry.Driver, "err", err)
		os.Exit(1)
	}
	if db != nil {
		defer db.Close()
		healthCheckers["database"] = &middleware.DatabaseHealthChecker{DB: db}
	}

	// artifact archive is optional, only when MinIO is configured
	var artifacts domain.ArtifactStore
	if cfg.Minio.Endpoint != "" {
		store, err := storage.New(ctx,
			cfg.Minio.Endpoint, cfg.Minio.Region, cfg.Minio.BucketName,
			cfg.Minio.AccessKey, cfg.Minio.SecretKey, cfg.Minio.UseSSL)
		if err != nil {
			log.Error("minio", "err", err)
			os.Exit(1)
		}
		artifacts = store
		log.Info("report archiving enabled", "bucket", cfg.Minio.BucketName)
	}

	runsSvc := &appruns.Service{
		Registry:   registry,
		Runner:     lintai.NewRunner(cfg.Analyzer.Binary),
		Results:    resultStore,
		Guard:      guard,
		Prefs:      prefStore,
		Diags:      diagStore,
		Artifacts:  artifacts,
		Clock:      application.SystemClock{},
		Log:        log,
		Workers:    int64(cfg.Dispatcher.Workers),
		JobTimeout: time.Duration(cfg.Dispatcher.JobTimeoutSeconds) * time.Second,
		OnRunStarted: func() {
			middleware.IncrementRuns()
			middleware.IncrementRunsActive()
		},
		OnRunFinished: func(failed bool) {
			middleware.DecrementRunsActive()
			if failed {
				middleware.IncrementRunsFailed()
			}
		},
	}

	// AI analysis is optional, only when an OpenAI key is configured
	var aiSvc *appai.Service
	if cfg.OpenAI.APIKey != "" {
		aiSvc = &appai.Service{
			Client:   aiclient.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model),
			Registry: registry,
			Results:  resultStore,
			Store:    resultStore,
			Log:      log,
		}
		log.Info("ai analysis enabled", "model", cfg.OpenAI.Model)
	}

	mux := chi.NewRouter()
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	mux.Use(middleware.Logging(log))
	mux.Use(middleware.MetricsMiddleware)
	mux.Use(middleware.RateLimitMiddleware(100, 10))
	mux.Use(middleware.APIKeyAuth(cfg.Server.APIKey))

	mux.Get("/api/health", middleware.HealthHandler(healthCheckers))
	mux.Get("/healthz", middleware.LivenessHandler)
	mux.Get("/metrics", middleware.MetricsHandler)
	mux.Mount("/", httpserver.NewRouter(runsSvc, aiSvc))

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info("server listening", "addr", srv.Addr, "workspace", guard.Root())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server", "err", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown", "err", err)
	}

	// drain in-flight analyzer jobs so their status lands in the registry
	runsSvc.Wait()
	log.Info("bye")
}

// buildRegistry picks the run registry backend. The returned *sql.DB is nil
// for the file driver.
func buildRegistry(ctx context.Context, cfg *config.Config, log *slog.Logger) (domain.Registry, *sql.DB, error) {
	switch cfg.Registry.Driver {
	case "file", "":
		reg, err := fileregistry.Open(filepath.Join(cfg.Workspace.DataDir, "runs.json"), log)
		return reg, nil, err

	case "postgres":
		db, err := sql.Open("postgres", cfg.PostgresDSN())
		if err != nil {
			return nil, nil, err
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			db.Close()
			return nil, nil, err
		}
		repo := pgregistry.NewRunRepository(db, log)
		if err := repo.Init(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return repo, db, nil

	case "mysql":
		db, err := mysqlregistry.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			return nil, nil, err
		}
		repo := mysqlregistry.NewRunRepository(db, log)
		if err := repo.Init(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		return repo, db, nil
	}
	return nil, nil, fmt.Errorf("unknown registry driver %q", cfg.Registry.Driver)
}
