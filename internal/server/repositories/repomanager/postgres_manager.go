package repomanager

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/dmitrijs2005/notescan/internal/dbx"
	"github.com/dmitrijs2005/notescan/internal/server/migrations"
	"github.com/dmitrijs2005/notescan/internal/server/repositories/notes"
)

type PostgresRepositoryManager struct {
	db *sql.DB
}

func (m *PostgresRepositoryManager) Conn() *sql.DB {
	return m.db
}

func (m *PostgresRepositoryManager) Notes(db dbx.DBTX) notes.Repository {
	return notes.NewPostgresRepository(db)
}

func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, m.db, "."); err != nil {
		return err
	}
	return nil
}

var (
	initOnce sync.Once
	shared   RepositoryManager
	initErr  error
)

// Shared returns the memoized process-wide manager, opening the connection
// pool and running migrations on first call. Concurrent callers observe a
// single initialization; a failed init is sticky for the process lifetime
// (recovery is a restart, matching the no-automatic-retry policy).
func Shared(ctx context.Context, dsn string) (RepositoryManager, error) {
	initOnce.Do(func() {
		shared, initErr = newPostgresRepositoryManager(ctx, dsn)
	})
	return shared, initErr
}

func newPostgresRepositoryManager(ctx context.Context, dsn string) (RepositoryManager, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	m := &PostgresRepositoryManager{db: db}

	if err := m.RunMigrations(ctx); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return m, nil
}
