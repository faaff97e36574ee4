package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/ykanchan/pywebview-tw/internal/common"
	"github.com/ykanchan/pywebview-tw/internal/dbx"
	"github.com/ykanchan/pywebview-tw/internal/logging"
	"github.com/ykanchan/pywebview-tw/internal/models"
	"github.com/ykanchan/pywebview-tw/internal/repositories/metadata"
	"github.com/ykanchan/pywebview-tw/internal/timex"
)

// ErrClosed is wrapped in the StorageError returned by a closed store.
var ErrClosed = errors.New("store is closed")

// Store is the tiddler store of one document.
type Store struct {
	mu     sync.Mutex
	db     *sql.DB
	repos  RepositoryManager
	logger logging.Logger
	now    func() string
	closed bool

	closeOnce sync.Once
	closeErr  error
}

// Option customizes a Store.
type Option func(*Store)

// WithClock replaces the source of default modified stamps.
func WithClock(now func() string) Option {
	return func(s *Store) { s.now = now }
}

// WithRepositories replaces the repository factory.
func WithRepositories(rm RepositoryManager) Option {
	return func(s *Store) { s.repos = rm }
}

// New wraps an open database that already carries the schema. The store
// takes ownership of db.
func New(db *sql.DB, logger logging.Logger, opts ...Option) *Store {
	s := &Store{
		db:     db,
		repos:  SQLiteRepositoryManager{},
		logger: logger.With("module", "store"),
		now:    timex.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Open opens (creating if needed) the store file at path and migrates it.
func Open(ctx context.Context, path string, logger logging.Logger, opts ...Option) (*Store, error) {
	db, err := dbx.OpenSQLite(ctx, path)
	if err != nil {
		return nil, common.NewStorageError("open", err)
	}
	if err := Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, common.NewStorageError("open", err)
	}

	s := New(db, logger, opts...)
	s.logger.Debug(ctx, "store opened", "path", path)
	return s, nil
}

// lock acquires the store mutex and checks that the store is still open.
// On success the caller must unlock.
func (s *Store) lock(op string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return common.NewStorageError(op, ErrClosed)
	}
	return nil
}

// Get returns the stored record for title, or common.ErrNotFound.
func (s *Store) Get(ctx context.Context, title string) (*models.Tiddler, error) {
	if title == "" {
		return nil, common.Validationf("empty title")
	}
	ctx = context.WithoutCancel(ctx)

	if err := s.lock("get"); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	t, err := s.repos.Tiddlers(s.db).Get(ctx, title)
	if errors.Is(err, common.ErrNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, common.NewStorageError("get", err)
	}
	return t, nil
}

// Put replaces the record for title with the normalized fields and returns
// the new revision: the previous one plus one, starting at 1.
func (s *Store) Put(ctx context.Context, title string, fields map[string]any) (int64, error) {
	if title == "" {
		return 0, common.Validationf("empty title")
	}
	normalized, err := models.Normalize(fields, s.now)
	if err != nil {
		return 0, err
	}
	ctx = context.WithoutCancel(ctx)

	if err := s.lock("put"); err != nil {
		return 0, err
	}
	defer s.mu.Unlock()

	var rev int64
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repos.Tiddlers(tx)
		current, err := repo.Revision(ctx, title)
		if err != nil {
			return err
		}
		rev = current + 1
		return repo.Upsert(ctx, &models.Tiddler{Title: title, Revision: rev, Fields: normalized})
	})
	if err != nil {
		return 0, common.NewStorageError("put", err)
	}

	s.logger.Debug(ctx, "tiddler stored", "title", title, "revision", rev)
	return rev, nil
}

// Delete removes title and reports whether it existed. Deleting an absent
// title succeeds.
func (s *Store) Delete(ctx context.Context, title string) (bool, error) {
	if title == "" {
		return false, common.Validationf("empty title")
	}
	ctx = context.WithoutCancel(ctx)

	if err := s.lock("delete"); err != nil {
		return false, err
	}
	defer s.mu.Unlock()

	existed, err := s.repos.Tiddlers(s.db).Delete(ctx, title)
	if err != nil {
		return false, common.NewStorageError("delete", err)
	}
	if existed {
		s.logger.Debug(ctx, "tiddler deleted", "title", title)
	}
	return existed, nil
}

// ListAll returns every non-system record ordered by title, with structured
// fields flattened into the top level. excludeBody drops text.
func (s *Store) ListAll(ctx context.Context, excludeBody bool) ([]models.Tiddler, error) {
	ctx = context.WithoutCancel(ctx)

	if err := s.lock("list"); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	items, err := s.repos.Tiddlers(s.db).List(ctx, !excludeBody)
	if err != nil {
		return nil, common.NewStorageError("list", err)
	}
	for i := range items {
		items[i].Fields = items[i].Fields.Flatten()
		if excludeBody {
			// a lifted member must not bring a body back
			delete(items[i].Fields, models.FieldText)
		}
	}
	return items, nil
}

// RecordExternalSave sets the Save Marker. stamp may be canonical or any
// form timex.ToStamp accepts.
func (s *Store) RecordExternalSave(ctx context.Context, stamp string) error {
	canonical, err := timex.ToStamp(stamp)
	if err != nil {
		return common.Validationf("save marker: %v", err)
	}
	ctx = context.WithoutCancel(ctx)

	if err := s.lock("record save"); err != nil {
		return err
	}
	defer s.mu.Unlock()

	if err := s.repos.Metadata(s.db).Set(ctx, metadata.SaveMarkerKey, canonical); err != nil {
		return common.NewStorageError("record save", err)
	}
	s.logger.Debug(ctx, "save marker recorded", "stamp", canonical)
	return nil
}

// SaveMarker returns the Save Marker and whether one was ever recorded.
func (s *Store) SaveMarker(ctx context.Context) (string, bool, error) {
	ctx = context.WithoutCancel(ctx)

	if err := s.lock("save marker"); err != nil {
		return "", false, err
	}
	defer s.mu.Unlock()

	v, ok, err := s.repos.Metadata(s.db).Get(ctx, metadata.SaveMarkerKey)
	if err != nil {
		return "", false, common.NewStorageError("save marker", err)
	}
	return v, ok, nil
}

// View is a consistent read-only snapshot handed to ReadView callbacks.
type View interface {
	SaveMarker(ctx context.Context) (string, bool, error)
	ModifiedAfter(ctx context.Context, baseline string) ([]string, error)
	Titles(ctx context.Context) ([]string, error)
}

type view struct {
	tx    dbx.DBTX
	repos RepositoryManager
}

func (v view) SaveMarker(ctx context.Context) (string, bool, error) {
	return v.repos.Metadata(v.tx).Get(ctx, metadata.SaveMarkerKey)
}

func (v view) ModifiedAfter(ctx context.Context, baseline string) ([]string, error) {
	return v.repos.Tiddlers(v.tx).ModifiedAfter(ctx, baseline)
}

func (v view) Titles(ctx context.Context) ([]string, error) {
	return v.repos.Tiddlers(v.tx).Titles(ctx)
}

// ReadView runs fn with a View under the store lock, inside one
// transaction. Any error from fn is returned as a StorageError; fn must not
// call other Store methods.
func (s *Store) ReadView(ctx context.Context, fn func(ctx context.Context, v View) error) error {
	ctx = context.WithoutCancel(ctx)

	if err := s.lock("read"); err != nil {
		return err
	}
	defer s.mu.Unlock()

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return fn(ctx, view{tx: tx, repos: s.repos})
	})
	if err != nil {
		return common.NewStorageError("read", err)
	}
	return nil
}

// Close releases the database handle. Only the first call has an effect;
// later calls return the first result.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.closed = true
		if err := s.db.Close(); err != nil {
			s.closeErr = fmt.Errorf("failed to close store: %w", err)
		}
	})
	return s.closeErr
}
