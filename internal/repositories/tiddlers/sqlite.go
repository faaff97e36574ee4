package tiddlers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ykanchan/pywebview-tw/internal/common"
	"github.com/ykanchan/pywebview-tw/internal/dbx"
	"github.com/ykanchan/pywebview-tw/internal/models"
)

const nonSystem = `title NOT LIKE '$:/%'`

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Get(ctx context.Context, title string) (*models.Tiddler, error) {
	query := `SELECT revision, text, fields FROM tiddlers WHERE title = ?`

	var (
		t      = &models.Tiddler{Title: title}
		text   sql.NullString
		fields string
	)
	err := r.db.QueryRowContext(ctx, query, title).Scan(&t.Revision, &text, &fields)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tiddler %q: %w", title, err)
	}

	t.Fields, err = models.DecodeFields(fields)
	if err != nil {
		return nil, fmt.Errorf("tiddler %q: %w", title, err)
	}
	if text.Valid {
		t.Fields[models.FieldText] = text.String
	}
	return t, nil
}

func (r *SQLiteRepository) Revision(ctx context.Context, title string) (int64, error) {
	var rev int64
	err := r.db.QueryRowContext(ctx, `SELECT revision FROM tiddlers WHERE title = ?`, title).Scan(&rev)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get revision of %q: %w", title, err)
	}
	return rev, nil
}

// Upsert inserts a record or replaces every column of an existing one.
func (r *SQLiteRepository) Upsert(ctx context.Context, t *models.Tiddler) error {
	fields, err := models.EncodeFields(t.Fields)
	if err != nil {
		return err
	}

	var text sql.NullString
	if s, ok := t.Fields.String(models.FieldText); ok {
		text = sql.NullString{String: s, Valid: true}
	}

	query := `INSERT INTO tiddlers (title, revision, modified, text, fields)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(title) DO UPDATE SET revision = excluded.revision,
				modified = excluded.modified,
				text = excluded.text,
				fields = excluded.fields
	`
	_, err = r.db.ExecContext(ctx, query, t.Title, t.Revision, t.Modified(), text, fields)
	if err != nil {
		return fmt.Errorf("failed to upsert tiddler: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, title string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tiddlers WHERE title = ?`, title)
	if err != nil {
		return false, fmt.Errorf("failed to delete tiddler: %w", err)
	}
	ra, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return ra > 0, nil
}

func (r *SQLiteRepository) List(ctx context.Context, withText bool) ([]models.Tiddler, error) {
	query := `SELECT title, revision, NULL, fields FROM tiddlers WHERE ` + nonSystem + ` ORDER BY title`
	if withText {
		query = `SELECT title, revision, text, fields FROM tiddlers WHERE ` + nonSystem + ` ORDER BY title`
	}

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to select tiddlers: %w", err)
	}
	defer rows.Close()

	result := []models.Tiddler{}
	for rows.Next() {
		var (
			item   models.Tiddler
			text   sql.NullString
			fields string
		)
		if err := rows.Scan(&item.Title, &item.Revision, &text, &fields); err != nil {
			return nil, fmt.Errorf("failed to scan tiddler row: %w", err)
		}
		if item.Fields, err = models.DecodeFields(fields); err != nil {
			return nil, fmt.Errorf("tiddler %q: %w", item.Title, err)
		}
		if text.Valid {
			item.Fields[models.FieldText] = text.String
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tiddler rows: %w", err)
	}
	return result, nil
}

func (r *SQLiteRepository) ModifiedAfter(ctx context.Context, baseline string) ([]string, error) {
	query := `SELECT title FROM tiddlers WHERE modified > ? AND ` + nonSystem + ` ORDER BY title`
	return r.titles(ctx, query, baseline)
}

func (r *SQLiteRepository) Titles(ctx context.Context) ([]string, error) {
	query := `SELECT title FROM tiddlers WHERE ` + nonSystem + ` ORDER BY title`
	return r.titles(ctx, query)
}

func (r *SQLiteRepository) titles(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to select titles: %w", err)
	}
	defer rows.Close()

	titles := []string{}
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, fmt.Errorf("failed to scan title: %w", err)
		}
		titles = append(titles, title)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate titles: %w", err)
	}
	return titles, nil
}
