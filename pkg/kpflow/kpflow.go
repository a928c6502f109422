package kpflow

import (
	"context"
	"database/sql"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/kpflow/kpflow/internal/config"
	"github.com/kpflow/kpflow/internal/controllers"
	"github.com/kpflow/kpflow/internal/engine"
	"github.com/kpflow/kpflow/internal/migrations"
	"github.com/kpflow/kpflow/internal/repository"
	"github.com/kpflow/kpflow/pkg/kpflow/core"
	"github.com/kpflow/kpflow/pkg/kpflow/domain"

	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/lmittmann/tint"

	_ "github.com/go-sql-driver/mysql"
	migrate "github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// StageDefinitions holds the workflow definitions registered at startup.
// Callers populate it before invoking Start.
var StageDefinitions []domain.StageDefinition

// GateRules holds the gate rules evaluated against sibling entities.
// Rules loaded from KPFLOW_GATE_RULES_FILE are appended to these.
var GateRules []domain.GateRule

// Start boots the workflow engine and HTTP server.
// It expects StageDefinitions to be populated by the caller before invocation.
// This call blocks until the HTTP server stops.
func Start(mux *http.ServeMux) error {

	databaseType := config.GetSystemSettingString(config.DATABASE_TYPE)
	if databaseType == "" || (databaseType != config.DATABASE_TYPE_POSTGRES && databaseType != config.DATABASE_TYPE_MYSQL && databaseType != config.DATABASE_TYPE_SQLLITE) {
		panic("KPFLOW_DATABASE_TYPE must be set to one of the following values: POSTGRES, MYSQL, SQLLITE")
	}

	var db *sql.DB
	if databaseType == config.DATABASE_TYPE_POSTGRES {
		db = setupPostgresDatabase()
		defer db.Close()
	}
	if databaseType == config.DATABASE_TYPE_SQLLITE {
		db = setupSqlLiteDatabase()
		defer db.Close()
	}
	if databaseType == config.DATABASE_TYPE_MYSQL {
		db = setupMysqlDatabase()
		defer db.Close()
	}

	clock := &core.RealClock{}
	entityRepo := repository.NewEntityRepository(db, clock)
	recordRepo := repository.NewTransitionRecordRepository(db, clock)
	actorRepo := repository.NewActorRepository(db, clock)
	definitionRepo := repository.NewStoredDefinitionRepository(db)

	registry := engine.NewStageRegistry()
	for _, def := range StageDefinitions {
		if err := registry.Register(def); err != nil {
			slog.Error("Workflow definition rejected", "workflowType", def.WorkflowType, "error", err)
			os.Exit(1)
		}
	}

	rules := GateRules
	if path := config.GetSystemSettingString(config.GATE_RULES_FILE); path != "" {
		fileRules, err := engine.LoadGateRulesFile(path)
		if err != nil {
			slog.Error("Gate rules file rejected", "path", path, "error", err)
			os.Exit(1)
		}
		rules = append(rules, fileRules...)
	}
	gates, err := engine.NewGateEvaluator(entityRepo, rules)
	if err != nil {
		slog.Error("Gate rule compilation failed", "error", err)
		os.Exit(1)
	}

	transitionEngine := engine.NewTransitionEngine(registry, entityRepo, recordRepo, gates, clock)
	transitionEngine.SyncDefinitions(context.Background(), definitionRepo)

	if mux == nil {
		mux = http.NewServeMux()
	}
	entitiesController := controllers.NewEntitiesController(entityRepo, recordRepo, transitionEngine, actorRepo)
	entitiesController.RegisterRoutes(mux)
	gatesController := controllers.NewGatesController(gates, actorRepo)
	gatesController.RegisterRoutes(mux)
	definitionsController := controllers.NewDefinitionsController(definitionRepo, actorRepo)
	definitionsController.RegisterRoutes(mux)
	actorsController := controllers.NewActorsController(actorRepo, clock)
	actorsController.RegisterRoutes(mux)

	addr := ":" + config.GetSystemSettingString(config.SERVER_WEB_PORT)
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		addr = v
	}
	slog.Info("Starting HTTP server", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("HTTP server failed", "error", err)
		return err
	}
	return nil
}

func setupPostgresDatabase() *sql.DB {
	dbURL := config.GetSystemSettingString(config.DATABASE_URL)
	if dbURL == "" {
		panic("KPFLOW_DATABASE_URL must be set when using the POSTGRES database type")
	}
	slog.Info("Using Postgres database", "url", dbURL)
	slog.Info("Running migrations")
	if err := runMigrationsFromEmbed("postgres", dbURL); err != nil {
		slog.Error("DB migration failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Opening Postgres database")
	dbPostgres, err := sql.Open("postgres", dbURL)
	if err != nil {
		slog.Error("DB connection failed", "error", err)
		os.Exit(1)
	}
	return dbPostgres
}

func setupSqlLiteDatabase() *sql.DB {
	fileName := config.GetSystemSettingString(config.DATABASE_SQLLITE_FILE_NAME)
	if fileName == "" {
		panic("DATABASE_SQLLITE_FILE_NAME must be set")
	}
	dbURL := "sqlite3://" + fileName
	slog.Info("Using SQLite database", "file", fileName)
	slog.Info("Running migrations")
	if err := runMigrationsFromEmbed("sqllite3", dbURL); err != nil {
		slog.Error("DB migration failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Opening SQLite database")
	dbSqlLite, err := sql.Open("sqlite3", fileName)
	if err != nil {
		log.Fatalf("Failed to open SQLite DB: %v", err)
	}
	if err := dbSqlLite.Ping(); err != nil {
		log.Fatalf("Failed to ping SQLite DB: %v", err)
	}
	return dbSqlLite
}

func setupMysqlDatabase() *sql.DB {
	dbURL := config.GetSystemSettingString(config.DATABASE_URL)
	if dbURL == "" {
		panic("KPFLOW_DATABASE_URL must be set when using the MYSQL database type")
	}
	if !strings.Contains(dbURL, "parseTime=true") {
		panic("KPFLOW_DATABASE_URL must contain 'parseTime=true' for MySQL")
	}
	if !strings.HasPrefix(dbURL, "mysql://") {
		panic("KPFLOW_DATABASE_URL must start with 'mysql://' for MySQL")
	}

	slog.Info("Using MySQL database", "url", dbURL)
	slog.Info("Running migrations")
	if err := runMigrationsFromEmbed("mysql", dbURL); err != nil {
		slog.Error("DB migration failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Opening MySQL database")
	dbMysql, err := sql.Open("mysql", strings.Replace(dbURL, "mysql://", "", 1))
	if err != nil {
		slog.Error("DB connection failed", "error", err)
		os.Exit(1)
	}
	return dbMysql
}

func runMigrationsFromEmbed(migrationsPath string, dbURL string) error {
	sub, err := fs.Sub(migrations.FS, migrationsPath)
	if err != nil {
		return err
	}
	source, err := iofs.New(sub, ".")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, dbURL)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func SetupLogger() {
	w := os.Stderr
	slog.SetDefault(slog.New(
		tint.NewHandler(w, &tint.Options{
			Level:      slog.LevelInfo,
			TimeFormat: time.RFC3339Nano,
		}),
	))
}
