package tiddlers

import (
	"context"

	"github.com/ykanchan/pywebview-tw/internal/models"
)

// Repository describes storage operations for tiddlers.
type Repository interface {
	// Get returns the full record, or common.ErrNotFound.
	Get(ctx context.Context, title string) (*models.Tiddler, error)

	// Revision returns the stored revision for title, 0 when absent.
	Revision(ctx context.Context, title string) (int64, error)

	// Upsert writes the whole record, replacing any previous one.
	Upsert(ctx context.Context, t *models.Tiddler) error

	// Delete removes title and reports whether a row existed.
	Delete(ctx context.Context, title string) (bool, error)

	// List returns all non-system records, with or without text.
	List(ctx context.Context, withText bool) ([]models.Tiddler, error)

	// ModifiedAfter returns non-system titles whose modified stamp sorts
	// strictly after baseline.
	ModifiedAfter(ctx context.Context, baseline string) ([]string, error)

	// Titles returns every non-system title.
	Titles(ctx context.Context) ([]string, error)
}
