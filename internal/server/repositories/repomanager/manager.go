// Package repomanager exposes the process-wide database handle and the
// repositories built on top of it. The handle is lazily initialized exactly
// once and reused for the life of the process; it is never explicitly torn
// down in normal operation.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/notescan/internal/dbx"
	"github.com/dmitrijs2005/notescan/internal/server/repositories/notes"
)

type RepositoryManager interface {
	RunMigrations(context.Context) error
	Conn() *sql.DB
	Notes(db dbx.DBTX) notes.Repository
}
