package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"

	"github.com/gin-gonic/gin"

	"analysis-backend/internal/ai"
	"analysis-backend/internal/ai/claude"
	"analysis-backend/internal/analyses"
	"analysis-backend/internal/engine"
	"analysis-backend/internal/match"
	"analysis-backend/internal/profile"
	"analysis-backend/internal/services/health"
	"analysis-backend/internal/shared/config"
	"analysis-backend/internal/shared/metrics"
	"analysis-backend/internal/shared/server"
	"analysis-backend/internal/shared/storage/db"
)

// App holds the wired application dependencies.
type App struct {
	Config          config.Config
	Router          *gin.Engine
	DB              *sql.DB
	Metrics         *metrics.Metrics
	Matcher         *match.Matcher
	Evaluator       ai.Evaluator
	Engine          *engine.Engine
	AnalysesRepo    analyses.Repo
	AnalysesService *analyses.Service
	AnalysesHandler *analyses.Handler
	Health          *health.Service
}

// Build prepares shared dependencies and wires the router.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	evaluator, err := buildEvaluator(cfg)
	if err != nil {
		return nil, err
	}

	m := metrics.New()
	matcher := match.NewMatcher()
	eng := engine.New(matcher, evaluator, m)

	var repo analyses.Repo
	if sqlDB != nil {
		repo = &analyses.PGRepo{DB: sqlDB}
	} else {
		repo = analyses.NewMemoryRepo()
	}

	svc := &analyses.Service{
		Repo:    repo,
		Engine:  eng,
		Metrics: m,
	}

	app := &App{
		Config:          cfg,
		DB:              sqlDB,
		Metrics:         m,
		Matcher:         matcher,
		Evaluator:       evaluator,
		Engine:          eng,
		AnalysesRepo:    repo,
		AnalysesService: svc,
		AnalysesHandler: analyses.NewHandler(svc),
		Health:          health.NewService(sqlDB),
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:   app.Config,
		Analyses: app.AnalysesHandler,
		Health:   app.Health,
		Metrics:  app.Metrics,
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

	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return sqlDB, nil
}

func buildEvaluator(cfg config.Config) (ai.Evaluator, error) {
	if strings.TrimSpace(cfg.ClaudeAPIKey) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: CLAUDE_API_KEY empty; AI evaluation disabled")
			return disabledEvaluator{}, nil
		}
		return nil, fmt.Errorf("CLAUDE_API_KEY is required")
	}
	return claude.NewClient(cfg.ClaudeAPIURL, cfg.ClaudeAPIKey, cfg.ClaudeModel, cfg.ClaudeTimeout)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

// disabledEvaluator keeps dev environments bootable without provider
// credentials. Every evaluation fails as an invalid-response error so
// callers surface a clear signal instead of fabricated scores.
type disabledEvaluator struct{}

func (disabledEvaluator) Evaluate(ctx context.Context, _ *profile.Profile, _ match.Requirements, _ string) (ai.Evaluation, error) {
	_ = ctx
	return ai.Evaluation{}, fmt.Errorf("%w: evaluator not configured", ai.ErrInvalidResponse)
}
