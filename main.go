package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"

	"github.com/finscale/hierarchy-engine/pkg/config"
	"github.com/finscale/hierarchy-engine/pkg/database"
	"github.com/finscale/hierarchy-engine/pkg/handlers"
	"github.com/finscale/hierarchy-engine/pkg/logging"
	"github.com/finscale/hierarchy-engine/pkg/middleware"
	"github.com/finscale/hierarchy-engine/pkg/repositories"
	"github.com/finscale/hierarchy-engine/pkg/services"

	_ "github.com/finscale/hierarchy-engine/pkg/dialect/mysql"
	_ "github.com/finscale/hierarchy-engine/pkg/dialect/postgres"
	_ "github.com/finscale/hierarchy-engine/pkg/dialect/snowflake"
	_ "github.com/finscale/hierarchy-engine/pkg/dialect/sqlserver"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	// Load configuration
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("version", cfg.Version),
		zap.String("database", cfg.Database.Database),
		zap.String("database_host", cfg.Database.Host))

	ctx := context.Background()

	// Run migrations over database/sql; the pool below uses pgx natively.
	migrationDB, err := sql.Open("pgx", cfg.Database.ConnectionString())
	if err != nil {
		logger.Fatal("Failed to open migration connection", zap.Error(err))
	}
	if err := database.RunMigrations(migrationDB, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	if err := migrationDB.Close(); err != nil {
		logger.Warn("Failed to close migration connection", zap.Error(err))
	}

	db, err := database.NewConnection(ctx, &database.Config{
		URL:            cfg.Database.ConnectionString(),
		MaxConnections: cfg.Database.MaxConnections,
	})
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Repositories
	hierarchyRepo := repositories.NewHierarchyRepository(db)
	formulaRepo := repositories.NewFormulaRepository(db)

	// Services
	defaultMapping := services.SourceMapping{
		SourceTable:    cfg.Engine.SourceTable,
		KeyColumn:      cfg.Engine.KeyColumn,
		ValueColumn:    cfg.Engine.ValueColumn,
		ParameterTable: cfg.Engine.ParameterTable,
	}
	hierarchyService := services.NewHierarchyService(hierarchyRepo, formulaRepo, logger)
	formulaService := services.NewFormulaService(hierarchyRepo, formulaRepo, logger)
	engineService := services.NewEngineService(hierarchyRepo, formulaRepo, defaultMapping, logger)

	// Handlers
	mux := http.NewServeMux()

	healthHandler := handlers.NewHealthHandler(cfg, logger)
	healthHandler.RegisterRoutes(mux)

	hierarchyHandler := handlers.NewHierarchyHandler(hierarchyService, logger)
	hierarchyHandler.RegisterRoutes(mux)

	formulaHandler := handlers.NewFormulaHandler(formulaService, logger)
	formulaHandler.RegisterRoutes(mux)

	engineHandler := handlers.NewEngineHandler(engineService, logger)
	engineHandler.RegisterRoutes(mux)

	handler := middleware.RequestLogger(logger)(mux)

	addr := cfg.BindAddr + ":" + cfg.Port
	logger.Info("Starting hierarchy-engine",
		zap.String("addr", addr),
		zap.String("version", cfg.Version))
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}
