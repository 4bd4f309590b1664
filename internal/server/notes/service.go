// Package notes implements the ownership-scoped note store: validation,
// origin-gated update rules, and best-effort attachment cleanup. All
// operations take the authenticated owner id resolved by the HTTP layer.
package notes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/notescan/internal/common"
	"github.com/dmitrijs2005/notescan/internal/dbx"
	"github.com/dmitrijs2005/notescan/internal/logging"
	"github.com/dmitrijs2005/notescan/internal/server/models"
	"github.com/dmitrijs2005/notescan/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/notescan/internal/server/uploads"
)

// Draft carries the fields a caller supplies when creating a note. Fields
// not applicable to the draft's origin are zeroed before the write, so a
// manual note can never be created with a transcript and vice versa.
type Draft struct {
	Title       string
	Origin      models.Origin
	RichContent string
	Transcript  string
	Attachment  *models.Attachment
}

// Patch carries a partial update. Title is always applied; the content
// pointers are applied only when they match the note's origin, otherwise
// they are silently ignored.
type Patch struct {
	Title       string
	RichContent *string
	Transcript  *string
}

type Service struct {
	db      *sql.DB
	repos   repomanager.RepositoryManager
	uploads uploads.Adapter
	logger  logging.Logger
}

func NewService(db *sql.DB, repos repomanager.RepositoryManager, up uploads.Adapter, logger logging.Logger) *Service {
	return &Service{
		db:      db,
		repos:   repos,
		uploads: up,
		logger:  logger.With("module", "notes_service"),
	}
}

// List returns all of the owner's notes, newest first.
func (s *Service) List(ctx context.Context, ownerID string) ([]*models.Note, error) {
	if ownerID == "" {
		return nil, common.ErrorUnauthorized
	}
	return s.repos.Notes(s.db).ListByOwner(ctx, ownerID)
}

// Create validates the draft and inserts a new note, returning its id.
func (s *Service) Create(ctx context.Context, ownerID string, draft Draft) (string, error) {
	if ownerID == "" {
		return "", common.ErrorUnauthorized
	}
	if draft.Title == "" {
		return "", fmt.Errorf("%w: title is required", common.ErrorValidation)
	}
	if draft.Origin == "" {
		return "", fmt.Errorf("%w: origin is required", common.ErrorValidation)
	}
	if !draft.Origin.Valid() {
		return "", fmt.Errorf("%w: unknown origin %q", common.ErrorValidation, draft.Origin)
	}

	now := time.Now().UTC()
	note := &models.Note{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Title:     draft.Title,
		Origin:    draft.Origin,
		CreatedAt: now,
		UpdatedAt: now,
	}

	// Only the origin-appropriate content survives the write.
	switch draft.Origin {
	case models.OriginManual:
		note.RichContent = draft.RichContent
	case models.OriginScan:
		note.Transcript = draft.Transcript
		note.Attachment = draft.Attachment
	}

	if err := s.repos.Notes(s.db).Create(ctx, note); err != nil {
		return "", err
	}

	return note.ID, nil
}

// Update applies patch to the note identified by id, provided it exists and
// is owned by ownerID; otherwise common.ErrorNotFound. Content fields that
// do not match the note's origin are ignored. Last writer wins.
func (s *Service) Update(ctx context.Context, ownerID string, id string, patch Patch) error {
	if ownerID == "" {
		return common.ErrorUnauthorized
	}
	if id == "" {
		return fmt.Errorf("%w: id is required", common.ErrorValidation)
	}
	if patch.Title == "" {
		return fmt.Errorf("%w: title is required", common.ErrorValidation)
	}

	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repos.Notes(tx)

		note, err := repo.GetByID(ctx, ownerID, id)
		if err != nil {
			return err
		}

		note.Title = patch.Title
		switch note.Origin {
		case models.OriginManual:
			if patch.RichContent != nil {
				note.RichContent = *patch.RichContent
			}
		case models.OriginScan:
			if patch.Transcript != nil {
				note.Transcript = *patch.Transcript
			}
		}
		note.UpdatedAt = time.Now().UTC()

		return repo.Update(ctx, note)
	})
}

// Delete removes the note and then tries to release its stored attachment.
// The object-storage deletion is best-effort: a failure is logged, never
// surfaced, and does not undo the note deletion.
func (s *Service) Delete(ctx context.Context, ownerID string, id string) error {
	if ownerID == "" {
		return common.ErrorUnauthorized
	}
	if id == "" {
		return fmt.Errorf("%w: id is required", common.ErrorValidation)
	}

	var attachment *models.Attachment

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repos.Notes(tx)

		note, err := repo.GetByID(ctx, ownerID, id)
		if err != nil {
			return err
		}
		attachment = note.Attachment

		return repo.Delete(ctx, ownerID, id)
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return err
	}

	if attachment != nil && attachment.StorageID != "" {
		if err := s.uploads.Delete(ctx, attachment.StorageID); err != nil {
			s.logger.Warn(ctx, "failed to delete attachment object",
				"storage_id", attachment.StorageID, "error", err)
		}
	}

	return nil
}
