// Package di wires the engine's dependencies by hand: database, store,
// transaction manager, event journal, and the workflow engine itself.
package di

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/afero"

	workflowusecase "github.com/tsubakihara/ringi/internal/application/usecase/workflow"
	"github.com/tsubakihara/ringi/internal/domain/repository"
	sqliterepo "github.com/tsubakihara/ringi/internal/infrastructure/persistence/sqlite"
	journalrepo "github.com/tsubakihara/ringi/internal/infrastructure/repository"
	"github.com/tsubakihara/ringi/internal/infrastructure/transaction"
)

// Config holds configuration for the container
type Config struct {
	DBPath      string // Path to SQLite database file
	JournalPath string // Path to NDJSON event journal; empty disables events
	Fs          afero.Fs
	Logger      workflowusecase.Logger
}

// Container is the DI container that holds all dependencies.
// There is no process-wide singleton: every caller gets an explicit
// handle and passes it down by reference.
type Container struct {
	db           *sql.DB
	workflowRepo repository.WorkflowRepository
	txManager    *transaction.SQLiteTransactionManager
	sink         repository.EventSink
	engine       *workflowusecase.Engine
}

// NewContainer creates and initializes the DI container
func NewContainer(config Config) (*Container, error) {
	if config.DBPath == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if config.Fs == nil {
		config.Fs = afero.NewOsFs()
	}

	if dir := filepath.Dir(config.DBPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", config.DBPath+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	migrator := sqliterepo.NewMigrator(db)
	if err := migrator.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	c := &Container{
		db:           db,
		workflowRepo: sqliterepo.NewWorkflowRepository(db),
		txManager:    transaction.NewSQLiteTransactionManager(db),
	}
	if config.JournalPath != "" {
		c.sink = journalrepo.NewEventJournal(config.Fs, config.JournalPath)
	}
	c.engine = workflowusecase.NewEngine(c.workflowRepo, c.txManager, c.sink, config.Logger)

	return c, nil
}

// Engine returns the workflow engine
func (c *Container) Engine() *workflowusecase.Engine {
	return c.engine
}

// WorkflowRepository returns the workflow store
func (c *Container) WorkflowRepository() repository.WorkflowRepository {
	return c.workflowRepo
}

// Close releases the database connection
func (c *Container) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}
