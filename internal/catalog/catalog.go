// Package catalog keeps the registry of documents: wikis.json under the
// data directory, with the snapshot files in its wikis/ subdirectory.
package catalog

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/renameio"
	"github.com/google/uuid"

	"github.com/ykanchan/pywebview-tw/internal/common"
	"github.com/ykanchan/pywebview-tw/internal/logging"
)

const (
	registryFile = "wikis.json"
	documentsDir = "wikis"
	timeLayout   = "2006-01-02T15:04:05.000000Z"
)

// Entry describes one document.
type Entry struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Filename    string  `json:"filename"`
	CreatedAt   string  `json:"created_at"`
	LastOpened  *string `json:"last_opened"`
	FileSize    int64   `json:"file_size"`
}

type Settings struct {
	LastWikiID  int     `json:"last_wiki_id"`
	DefaultWiki *string `json:"default_wiki"`
}

type registry struct {
	Wikis    []Entry  `json:"wikis"`
	Settings Settings `json:"settings"`
}

type Catalog struct {
	dataDir      string
	templatePath string
	now          func() time.Time
	logger       logging.Logger

	mu sync.Mutex
}

// New prepares dataDir and creates an empty registry when none exists.
func New(dataDir, templatePath string, l logging.Logger) (*Catalog, error) {
	c := &Catalog{
		dataDir:      dataDir,
		templatePath: templatePath,
		now:          time.Now,
		logger:       l.With("module", "catalog"),
	}
	if err := os.MkdirAll(c.documentsDir(), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	if _, err := os.Stat(c.registryPath()); errors.Is(err, os.ErrNotExist) {
		if err := c.save(&registry{Wikis: []Entry{}}); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat registry: %w", err)
	}
	return c, nil
}

func (c *Catalog) registryPath() string { return filepath.Join(c.dataDir, registryFile) }
func (c *Catalog) documentsDir() string { return filepath.Join(c.dataDir, documentsDir) }

func (c *Catalog) load() (*registry, error) {
	data, err := os.ReadFile(c.registryPath())
	if errors.Is(err, os.ErrNotExist) {
		return &registry{Wikis: []Entry{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read registry: %w", err)
	}

	var r registry
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", c.registryPath(), err)
	}
	if r.Wikis == nil {
		r.Wikis = []Entry{}
	}
	return &r, nil
}

func (c *Catalog) save(r *registry) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode registry: %w", err)
	}
	if err := renameio.WriteFile(c.registryPath(), data, 0o644); err != nil {
		return fmt.Errorf("failed to write registry: %w", err)
	}
	return nil
}

func (c *Catalog) find(r *registry, id string) (int, error) {
	for i := range r.Wikis {
		if r.Wikis[i].ID == id {
			return i, nil
		}
	}
	return -1, fmt.Errorf("document %s: %w", id, common.ErrNotFound)
}

func (c *Catalog) timestamp() string {
	return c.now().UTC().Format(timeLayout)
}

func fileSize(path string) int64 {
	fi, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return fi.Size()
}

func newFilename() string {
	id := uuid.New()
	return "wiki_" + hex.EncodeToString(id[:4]) + ".html"
}

// Create copies the template into a new document and registers it.
func (c *Catalog) Create(ctx context.Context, name, description string) (*Entry, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, common.Validationf("empty document name")
	}

	template, err := os.ReadFile(c.templatePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read template: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e := Entry{
		ID:          uuid.NewString(),
		Name:        name,
		Description: strings.TrimSpace(description),
		Filename:    newFilename(),
		CreatedAt:   c.timestamp(),
	}
	path := filepath.Join(c.documentsDir(), e.Filename)

	if err := renameio.WriteFile(path, template, 0o644); err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}
	e.FileSize = fileSize(path)

	r, err := c.load()
	if err == nil {
		r.Wikis = append(r.Wikis, e)
		r.Settings.LastWikiID++
		err = c.save(r)
	}
	if err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("failed to create document: %w", err)
	}

	c.logger.Info(ctx, "document created", "id", e.ID, "name", e.Name, "file", e.Filename)
	return &e, nil
}

// List returns all documents with refreshed file sizes.
func (c *Catalog) List(ctx context.Context) ([]Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, err := c.load()
	if err != nil {
		return nil, err
	}
	for i := range r.Wikis {
		r.Wikis[i].FileSize = fileSize(filepath.Join(c.documentsDir(), r.Wikis[i].Filename))
	}
	if err := c.save(r); err != nil {
		return nil, err
	}
	return r.Wikis, nil
}

// Get returns one document with a fresh file size.
func (c *Catalog) Get(ctx context.Context, id string) (*Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, err := c.load()
	if err != nil {
		return nil, err
	}
	i, err := c.find(r, id)
	if err != nil {
		return nil, err
	}
	e := r.Wikis[i]
	e.FileSize = fileSize(filepath.Join(c.documentsDir(), e.Filename))
	return &e, nil
}

// Path returns the snapshot file of a document.
func (c *Catalog) Path(ctx context.Context, id string) (string, error) {
	e, err := c.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return filepath.Join(c.documentsDir(), e.Filename), nil
}

// StorePath returns the tiddler store file of a document, next to its
// snapshot. The document does not have to be registered.
func (c *Catalog) StorePath(id string) string {
	return filepath.Join(c.documentsDir(), id+"_tiddlers.db")
}

// Delete removes a document, its snapshot and its store files.
func (c *Catalog) Delete(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, err := c.load()
	if err != nil {
		return err
	}
	i, err := c.find(r, id)
	if err != nil {
		return err
	}

	paths := []string{filepath.Join(c.documentsDir(), r.Wikis[i].Filename)}
	store := c.StorePath(id)
	paths = append(paths, store, store+"-wal", store+"-shm")
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to delete document: %w", err)
		}
	}

	r.Wikis = append(r.Wikis[:i], r.Wikis[i+1:]...)
	if err := c.save(r); err != nil {
		return err
	}
	c.logger.Info(ctx, "document deleted", "id", id)
	return nil
}

// TouchLastOpened stamps the document as opened now.
func (c *Catalog) TouchLastOpened(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, err := c.load()
	if err != nil {
		return err
	}
	i, err := c.find(r, id)
	if err != nil {
		return err
	}
	ts := c.timestamp()
	r.Wikis[i].LastOpened = &ts
	return c.save(r)
}
