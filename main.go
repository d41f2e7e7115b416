package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver for database/sql (migrations)
	"go.uber.org/zap"

	"github.com/calpoly-csai/nimbus/pkg/apperrors"
	"github.com/calpoly-csai/nimbus/pkg/config"
	"github.com/calpoly-csai/nimbus/pkg/corpus"
	"github.com/calpoly-csai/nimbus/pkg/database"
	"github.com/calpoly-csai/nimbus/pkg/handlers"
	"github.com/calpoly-csai/nimbus/pkg/logging"
	"github.com/calpoly-csai/nimbus/pkg/middleware"
	"github.com/calpoly-csai/nimbus/pkg/models"
	"github.com/calpoly-csai/nimbus/pkg/nlp"
	"github.com/calpoly-csai/nimbus/pkg/nlp/classifier"
	"github.com/calpoly-csai/nimbus/pkg/repositories"
	"github.com/calpoly-csai/nimbus/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx := context.Background()

	connStr := cfg.Database.ConnectionString()
	logger.Info("Connecting to database",
		zap.String("conn", logging.SanitizeConnectionString(connStr)))

	sqlDB, err := sql.Open("pgx", connStr)
	if err != nil {
		return fmt.Errorf("failed to open migration connection: %w", err)
	}
	if err := database.RunMigrations(sqlDB, cfg.Database.MigrationsPath, logger); err != nil {
		return err
	}
	if err := sqlDB.Close(); err != nil {
		logger.Warn("Failed to close migration connection", zap.Error(err))
	}

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            connStr,
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		return err
	}
	defer db.Close()

	schemas := models.DefaultSchemas()
	entityRepo := repositories.NewEntityRepository(db, schemas, logger)
	templateRepo := repositories.NewTemplateRepository(db)

	extractor, err := nlp.NewFeatureExtractor()
	if err != nil {
		return err
	}

	clf := classifier.New(extractor, cfg.NLP.ClassifierThreshold, logger)
	store := classifier.NewStore(cfg.NLP.ModelsDir, logger)

	templates, err := loadTemplates(ctx, templateRepo, cfg.NLP.CorpusPath, logger)
	if err != nil {
		return err
	}

	model, err := store.LoadLatest()
	switch {
	case errors.Is(err, apperrors.ErrModelMissing):
		// No trained model on disk is fatal unless a fresh training pass
		// succeeds right now.
		logger.Warn("No trained model found, training from template corpus")
		model, err = clf.Train(templates)
		if err != nil {
			return fmt.Errorf("failed to train fallback model: %w", err)
		}
		if _, err := store.Save(model); err != nil {
			return err
		}
	case err != nil:
		return err
	}
	clf.Swap(model)

	matcher := services.NewFuzzyEntityMatcher(entityRepo, cfg.NLP.FuzzyThreshold, logger)
	engine := services.NewTemplateEngine(matcher, schemas, cfg.NLP.LookupTimeout, logger)

	registry, err := services.BuildRegistry(templates, engine)
	if err != nil {
		return fmt.Errorf("failed to build QA registry: %w", err)
	}

	var varExtractor services.VariableExtractor
	if cfg.OpenAI.Enabled() {
		varExtractor = services.NewOpenAIExtractor(cfg.OpenAI.APIKey, cfg.OpenAI.Model, logger)
	} else {
		varExtractor = services.NewLexiconExtractor(entityRepo, logger)
	}

	nimbus := services.NewNimbus(varExtractor, clf, registry, logger)

	if cfg.NLP.RetrainSchedule != "" {
		scheduler, err := services.NewRetrainScheduler(cfg.NLP.RetrainSchedule,
			retrainFunc(templateRepo, clf, store, engine, nimbus), logger)
		if err != nil {
			return err
		}
		scheduler.Start()
		defer scheduler.Stop()
	}

	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(cfg, logger)
	healthHandler.RegisterRoutes(mux)

	askHandler := handlers.NewAskHandler(nimbus, logger)
	askHandler.RegisterRoutes(mux)

	handler := middleware.RequestLogger(logger)(mux)

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("Starting nimbus",
		zap.String("addr", addr),
		zap.String("version", cfg.Version),
		zap.Int("templates", registry.Len()))

	return http.ListenAndServe(addr, handler)
}

// loadTemplates prefers the database corpus and falls back to the YAML
// seed file when no verified templates are stored yet.
func loadTemplates(ctx context.Context, repo repositories.TemplateRepository, corpusPath string, logger *zap.Logger) ([]models.QuestionTemplate, error) {
	templates, err := repo.ListVerified(ctx)
	if err != nil {
		return nil, err
	}
	if len(templates) > 0 {
		return templates, nil
	}

	logger.Info("No verified templates in database, loading seed corpus",
		zap.String("path", corpusPath))
	return corpus.Load(corpusPath)
}

// retrainFunc rebuilds the model and registry from the current template
// store and swaps both references atomically.
func retrainFunc(
	repo repositories.TemplateRepository,
	clf *classifier.Classifier,
	store *classifier.Store,
	engine *services.TemplateEngine,
	nimbus *services.Nimbus,
) services.RetrainFunc {
	return func(ctx context.Context) error {
		templates, err := repo.ListVerified(ctx)
		if err != nil {
			return err
		}
		if len(templates) == 0 {
			return fmt.Errorf("template store is empty, keeping current model")
		}

		model, err := clf.Train(templates)
		if err != nil {
			return err
		}
		if _, err := store.Save(model); err != nil {
			return err
		}

		registry, err := services.BuildRegistry(templates, engine)
		if err != nil {
			return err
		}

		clf.Swap(model)
		nimbus.SwapRegistry(registry)
		return nil
	}
}
