// Package document ties together everything that serves one open document:
// its tiddler store, the change-set resolver, the sync facade, the snapshot
// file and the optional snapshot mirror. Instance also carries the local
// call surface used by the host.
package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/ykanchan/pywebview-tw/internal/common"
	"github.com/ykanchan/pywebview-tw/internal/httpapi"
	"github.com/ykanchan/pywebview-tw/internal/logging"
	"github.com/ykanchan/pywebview-tw/internal/models"
	"github.com/ykanchan/pywebview-tw/internal/resolver"
	"github.com/ykanchan/pywebview-tw/internal/snapshot"
	"github.com/ykanchan/pywebview-tw/internal/store"
	"github.com/ykanchan/pywebview-tw/internal/timex"
)

var (
	// ErrStarted is returned by a second Start.
	ErrStarted = errors.New("document already started")
	ErrClosed  = errors.New("document closed")
)

// Mirror receives a copy of every saved snapshot.
type Mirror interface {
	Mirror(ctx context.Context, docID, stamp string, data []byte) error
}

type Options struct {
	ID           string
	SnapshotPath string
	StorePath    string

	// Backup is optional.
	Backup Mirror

	// Watch enables detection of snapshot rewrites by other programs.
	Watch         bool
	WatchDebounce time.Duration

	ShutdownTimeout time.Duration

	// Now returns canonical stamps; timex.Now when nil.
	Now func() string

	Logger logging.Logger
}

// Instance is one open document.
type Instance struct {
	id           string
	snapshotPath string
	store        *store.Store
	resolver     *resolver.Resolver
	server       *httpapi.Server
	watcher      *snapshot.Watcher
	backup       Mirror
	now          func() string
	logger       logging.Logger

	mu      sync.Mutex
	addr    string
	started bool
	closed  bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	closeOnce sync.Once
	closeErr  error
}

// Open opens the document's store. Nothing is served until Start.
func Open(ctx context.Context, opts Options) (*Instance, error) {
	if opts.ID == "" {
		return nil, common.Validationf("empty document id")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	logger = logger.With("doc", opts.ID)
	now := opts.Now
	if now == nil {
		now = timex.Now
	}

	st, err := store.Open(ctx, opts.StorePath, logger, store.WithClock(now))
	if err != nil {
		return nil, err
	}

	inst := &Instance{
		id:           opts.ID,
		snapshotPath: opts.SnapshotPath,
		store:        st,
		resolver:     resolver.New(st, logger),
		server:       httpapi.NewServer(st, opts.SnapshotPath, logger),
		backup:       opts.Backup,
		now:          now,
		logger:       logger.With("module", "document"),
	}
	inst.server.SetShutdownTimeout(opts.ShutdownTimeout)
	if opts.Watch {
		inst.watcher = snapshot.NewWatcher(opts.SnapshotPath, opts.WatchDebounce, inst.externalSave, logger)
	}
	return inst, nil
}

func (i *Instance) ID() string {
	return i.id
}

// Addr is the facade's listen address, empty before Start.
func (i *Instance) Addr() string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.addr
}

// URL is the base URL of the facade, empty before Start.
func (i *Instance) URL() string {
	addr := i.Addr()
	if addr == "" {
		return ""
	}
	return "http://" + addr
}

// Start serves the facade on ln, and starts the snapshot watcher when
// enabled, until Close.
func (i *Instance) Start(ctx context.Context, ln net.Listener) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.closed {
		return ErrClosed
	}
	if i.started {
		return ErrStarted
	}
	i.started = true
	i.addr = ln.Addr().String()

	ctx, i.cancel = context.WithCancel(context.WithoutCancel(ctx))

	i.wg.Add(1)
	go func() {
		defer i.wg.Done()
		if err := i.server.Serve(ctx, ln); err != nil {
			i.logger.Error(ctx, "facade stopped", "error", err)
		}
	}()

	if i.watcher != nil {
		i.wg.Add(1)
		go func() {
			defer i.wg.Done()
			if err := i.watcher.Run(ctx); err != nil {
				i.logger.Error(ctx, "snapshot watcher stopped", "error", err)
			}
		}()
	}

	i.logger.Info(ctx, "document started", "url", "http://"+i.addr)
	return nil
}

// Close stops the facade and the watcher and releases the store. Only the
// first call has an effect.
func (i *Instance) Close(ctx context.Context) error {
	i.closeOnce.Do(func() {
		i.mu.Lock()
		i.closed = true
		cancel := i.cancel
		i.mu.Unlock()
		if cancel != nil {
			cancel()
		}
		i.wg.Wait()

		i.closeErr = i.store.Close()
		i.logger.Info(ctx, "document closed")
	})
	return i.closeErr
}

// Save writes the full document snapshot and records the Save Marker. A
// configured backup receives a copy; its failure is logged only.
func (i *Instance) Save(ctx context.Context, html []byte) error {
	if len(html) == 0 {
		return common.Validationf("empty document")
	}

	mtime, err := snapshot.Write(i.snapshotPath, html)
	if err != nil {
		return common.NewStorageError("save snapshot", err)
	}
	if i.watcher != nil {
		i.watcher.Known(mtime)
	}

	stamp := i.now()
	if err := i.store.RecordExternalSave(ctx, stamp); err != nil {
		return err
	}
	i.logger.Info(ctx, "snapshot saved", "bytes", len(html), "marker", stamp)

	if i.backup != nil {
		if err := i.backup.Mirror(ctx, i.id, stamp, html); err != nil {
			i.logger.Warn(ctx, "snapshot mirror failed", "error", err)
		}
	}
	return nil
}

func (i *Instance) externalSave(ctx context.Context, modTime time.Time) {
	stamp := timex.FormatStamp(modTime)
	if err := i.store.RecordExternalSave(ctx, stamp); err != nil {
		i.logger.Error(ctx, "failed to record external save", "error", err)
	}
}

// GetUpdatedTiddlers resolves the change set. An empty since means "since
// the last save"; a nil titles slice disables deletion detection.
func (i *Instance) GetUpdatedTiddlers(ctx context.Context, since string, titles []string) (resolver.ChangeSet, error) {
	return i.resolver.Resolve(ctx, since, titles)
}

// GetTiddler returns the wire JSON of title. An absent title yields
// found == false and no error.
func (i *Instance) GetTiddler(ctx context.Context, title string) ([]byte, bool, error) {
	t, err := i.store.Get(ctx, title)
	if errors.Is(err, common.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	b, err := json.Marshal(httpapi.WireRecord(t))
	if err != nil {
		return nil, false, fmt.Errorf("failed to encode tiddler: %w", err)
	}
	return b, true, nil
}

// PutTiddler stores the JSON object body under title and returns the new
// revision.
func (i *Instance) PutTiddler(ctx context.Context, title string, body []byte) (int64, error) {
	fields, err := models.DecodeObject(body)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", common.ErrProtocolDecode, err)
	}
	return i.store.Put(ctx, title, fields)
}

// DeleteTiddler removes title and reports whether it existed.
func (i *Instance) DeleteTiddler(ctx context.Context, title string) (bool, error) {
	return i.store.Delete(ctx, title)
}
