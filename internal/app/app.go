// Package app wires configuration, catalog, backup and the document
// manager together and runs the server until it is signalled to stop.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ykanchan/pywebview-tw/internal/backup"
	"github.com/ykanchan/pywebview-tw/internal/catalog"
	"github.com/ykanchan/pywebview-tw/internal/config"
	"github.com/ykanchan/pywebview-tw/internal/logging"
	"github.com/ykanchan/pywebview-tw/internal/manager"
)

type App struct {
	config  *config.Config
	logger  logging.Logger
	catalog *catalog.Catalog
	manager *manager.Manager
}

// NewApp builds the application from c, logging to w.
func NewApp(ctx context.Context, c *config.Config, w io.Writer) (*App, error) {
	logger := logging.New(w, c.LogLevel, c.LogFormat)

	cat, err := catalog.New(c.DataDir, c.TemplatePath, logger)
	if err != nil {
		return nil, fmt.Errorf("catalog init error: %w", err)
	}

	opts := manager.Options{
		Host:            c.ListenHost,
		Watch:           c.WatchSnapshots,
		ShutdownTimeout: c.ShutdownTimeout,
	}
	if c.BackupEnabled() {
		client, err := backup.NewS3Client(ctx, backup.Options{
			Bucket:       c.S3Bucket,
			Region:       c.S3Region,
			BaseEndpoint: c.S3BaseEndpoint,
			AccessKey:    c.S3AccessKey,
			SecretKey:    c.S3SecretKey,
			Prefix:       c.S3Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("backup init error: %w", err)
		}
		opts.Backup = backup.NewS3Backup(client, c.S3Bucket, c.S3Prefix, logger)
	}

	m := manager.New(cat, manager.NewPortAllocator(c.BasePort, c.PortAttempts), opts, logger)
	return &App{config: c, logger: logger, catalog: cat, manager: m}, nil
}

// Manager exposes the document manager to the host.
func (app *App) Manager() *manager.Manager {
	return app.manager
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// documentsToOpen returns the configured ids, or every catalog entry.
func (app *App) documentsToOpen(ctx context.Context) ([]string, error) {
	if len(app.config.OpenDocuments) > 0 {
		return app.config.OpenDocuments, nil
	}
	entries, err := app.catalog.List(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	return ids, nil
}

// Run opens the documents and serves them until ctx is done or the process
// is signalled, then closes every document within the shutdown timeout.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...", "data_dir", app.config.DataDir)
	app.initSignalHandler(cancelFunc)

	ids, err := app.documentsToOpen(ctx)
	if err != nil {
		return err
	}

	var errs []error
	for _, id := range ids {
		inst, err := app.manager.DocumentOpened(ctx, id)
		if err != nil {
			app.logger.Error(ctx, "failed to open document", "doc", id, "error", err)
			errs = append(errs, err)
			continue
		}
		app.logger.Info(ctx, "serving document", "doc", id, "url", inst.URL())
	}
	if len(ids) > 0 && len(errs) == len(ids) {
		return fmt.Errorf("no document could be opened: %w", errors.Join(errs...))
	}
	if len(ids) == 0 {
		app.logger.Warn(ctx, "no documents in catalog, create one with the cli")
	}

	<-ctx.Done()
	app.logger.Info(ctx, "Stopping app...")

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), app.config.ShutdownTimeout)
	defer cancel()
	return app.manager.CloseAll(shutdownCtx)
}
