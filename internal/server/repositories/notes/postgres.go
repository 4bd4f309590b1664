// Package notes provides the PostgreSQL-backed repository for server-side
// note persistence. All queries are ownership-scoped.
package notes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/notescan/internal/common"
	"github.com/dmitrijs2005/notescan/internal/dbx"
	"github.com/dmitrijs2005/notescan/internal/server/models"
)

// PostgresRepository implements note storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new note row. The caller is responsible for assigning
// the id, owner and timestamps.
func (r *PostgresRepository) Create(ctx context.Context, note *models.Note) error {
	query := `
		INSERT INTO notes (id, owner_id, title, origin, rich_content, transcript,
			attachment_url, attachment_storage_id, attachment_file_name, attachment_mime_type,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12);
	`
	att := note.Attachment
	if att == nil {
		att = &models.Attachment{}
	}
	_, err := r.db.ExecContext(ctx, query,
		note.ID, note.OwnerID, note.Title, string(note.Origin), note.RichContent, note.Transcript,
		att.URL, att.StorageID, att.FileName, att.MimeType,
		note.CreatedAt, note.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// ListByOwner returns all notes owned by ownerID, newest first.
func (r *PostgresRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.Note, error) {
	query := `
		SELECT id, owner_id, title, origin, rich_content, transcript,
			attachment_url, attachment_storage_id, attachment_file_name, attachment_mime_type,
			created_at, updated_at
		FROM notes
		WHERE owner_id = $1
		ORDER BY created_at DESC;
	`
	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to select notes: %w", err)
	}
	defer rows.Close()

	var result []*models.Note
	for rows.Next() {
		item, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// GetByID returns the note with the given id if it is owned by ownerID.
// A missing row and a foreign-owned row both yield common.ErrorNotFound.
func (r *PostgresRepository) GetByID(ctx context.Context, ownerID string, id string) (*models.Note, error) {
	query := `
		SELECT id, owner_id, title, origin, rich_content, transcript,
			attachment_url, attachment_storage_id, attachment_file_name, attachment_mime_type,
			created_at, updated_at
		FROM notes
		WHERE id = $1 AND owner_id = $2;
	`
	row := r.db.QueryRowContext(ctx, query, id, ownerID)
	item, err := scanNote(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return item, nil
}

// Update rewrites the mutable fields of a note, matched by id and owner.
// Returns common.ErrorNotFound when no owned row matches.
func (r *PostgresRepository) Update(ctx context.Context, note *models.Note) error {
	query := `
		UPDATE notes
		SET title = $3, rich_content = $4, transcript = $5, updated_at = $6
		WHERE id = $1 AND owner_id = $2;
	`
	res, err := r.db.ExecContext(ctx, query,
		note.ID, note.OwnerID, note.Title, note.RichContent, note.Transcript, note.UpdatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrorNotFound
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

// Delete removes the note matched by id and owner.
// Returns common.ErrorNotFound when no owned row matches.
func (r *PostgresRepository) Delete(ctx context.Context, ownerID string, id string) error {
	query := `DELETE FROM notes WHERE id = $1 AND owner_id = $2;`
	res, err := r.db.ExecContext(ctx, query, id, ownerID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return common.ErrorNotFound
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanNote(row rowScanner) (*models.Note, error) {
	var (
		item   models.Note
		origin string
		att    models.Attachment
	)
	if err := row.Scan(
		&item.ID, &item.OwnerID, &item.Title, &origin, &item.RichContent, &item.Transcript,
		&att.URL, &att.StorageID, &att.FileName, &att.MimeType,
		&item.CreatedAt, &item.UpdatedAt,
	); err != nil {
		return nil, err
	}
	item.Origin = models.Origin(origin)
	if att.StorageID != "" {
		item.Attachment = &att
	}
	return &item, nil
}
