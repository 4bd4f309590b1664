package notes

import (
	"context"

	"github.com/dmitrijs2005/notescan/internal/server/models"
)

// Repository persists notes. Every method that targets an existing note
// takes the caller's owner id and matches it in the query itself, so a
// missing row and a row owned by someone else are indistinguishable.
type Repository interface {
	Create(ctx context.Context, note *models.Note) error
	ListByOwner(ctx context.Context, ownerID string) ([]*models.Note, error)
	GetByID(ctx context.Context, ownerID string, id string) (*models.Note, error)
	Update(ctx context.Context, note *models.Note) error
	Delete(ctx context.Context, ownerID string, id string) error
}
