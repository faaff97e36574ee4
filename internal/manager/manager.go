// Package manager owns the lifecycle of open documents: one document
// instance, with its own listener, per open document.
package manager

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/ykanchan/pywebview-tw/internal/document"
	"github.com/ykanchan/pywebview-tw/internal/logging"
)

// Catalog resolves document ids to files.
type Catalog interface {
	Path(ctx context.Context, id string) (string, error)
	StorePath(id string) string
	TouchLastOpened(ctx context.Context, id string) error
}

// Options are applied to every opened document.
type Options struct {
	Host            string
	Backup          document.Mirror
	Watch           bool
	ShutdownTimeout time.Duration
}

type Manager struct {
	catalog Catalog
	ports   *PortAllocator
	opts    Options
	logger  logging.Logger

	mu   sync.Mutex
	docs map[string]*document.Instance
}

func New(cat Catalog, ports *PortAllocator, opts Options, l logging.Logger) *Manager {
	if opts.Host == "" {
		opts.Host = "127.0.0.1"
	}
	return &Manager{
		catalog: cat,
		ports:   ports,
		opts:    opts,
		logger:  l.With("module", "manager"),
		docs:    make(map[string]*document.Instance),
	}
}

// DocumentOpened opens and starts the document, or returns the running
// instance when it is already open.
func (m *Manager) DocumentOpened(ctx context.Context, id string) (*document.Instance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if inst, ok := m.docs[id]; ok {
		return inst, nil
	}

	snapshotPath, err := m.catalog.Path(ctx, id)
	if err != nil {
		return nil, err
	}

	inst, err := document.Open(ctx, document.Options{
		ID:              id,
		SnapshotPath:    snapshotPath,
		StorePath:       m.catalog.StorePath(id),
		Backup:          m.opts.Backup,
		Watch:           m.opts.Watch,
		ShutdownTimeout: m.opts.ShutdownTimeout,
		Logger:          m.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open document %s: %w", id, err)
	}

	ln, err := m.ports.Listen(m.opts.Host)
	if err != nil {
		_ = inst.Close(ctx)
		return nil, fmt.Errorf("failed to listen for document %s: %w", id, err)
	}
	if err := inst.Start(ctx, ln); err != nil {
		_ = ln.Close()
		_ = inst.Close(ctx)
		return nil, err
	}

	if err := m.catalog.TouchLastOpened(ctx, id); err != nil {
		m.logger.Warn(ctx, "failed to update last_opened", "doc", id, "error", err)
	}

	m.docs[id] = inst
	m.logger.Info(ctx, "document opened", "doc", id, "url", inst.URL())
	return inst, nil
}

// DocumentClosing stops the document. Closing a document that is not open
// does nothing.
func (m *Manager) DocumentClosing(ctx context.Context, id string) error {
	m.mu.Lock()
	inst, ok := m.docs[id]
	delete(m.docs, id)
	m.mu.Unlock()

	if !ok {
		m.logger.Debug(ctx, "close of a document that is not open", "doc", id)
		return nil
	}
	return inst.Close(ctx)
}

// CloseAll stops every open document.
func (m *Manager) CloseAll(ctx context.Context) error {
	m.mu.Lock()
	docs := m.docs
	m.docs = make(map[string]*document.Instance)
	m.mu.Unlock()

	var errs []error
	for id, inst := range docs {
		if err := inst.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("document %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

func (m *Manager) Instance(id string) (*document.Instance, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inst, ok := m.docs[id]
	return inst, ok
}

func (m *Manager) URL(id string) (string, bool) {
	inst, ok := m.Instance(id)
	if !ok {
		return "", false
	}
	return inst.URL(), true
}

// Open returns the ids of open documents, sorted.
func (m *Manager) Open() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.docs))
	for id := range m.docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
