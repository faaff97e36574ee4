package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"

	"github.com/ykanchan/pywebview-tw/internal/logging"
	"github.com/ykanchan/pywebview-tw/internal/models"
)

// Store is the subset of the tiddler store the facade needs.
type Store interface {
	Get(ctx context.Context, title string) (*models.Tiddler, error)
	Put(ctx context.Context, title string, fields map[string]any) (int64, error)
	Delete(ctx context.Context, title string) (bool, error)
	ListAll(ctx context.Context, excludeBody bool) ([]models.Tiddler, error)
}

const (
	maxBodyBytes           = 64 << 20
	defaultShutdownTimeout = 5 * time.Second
)

type Server struct {
	store           Store
	snapshotPath    string
	logger          logging.Logger
	router          *mux.Router
	shutdownTimeout time.Duration
}

// NewServer builds the facade for one document. snapshotPath is the file
// served at "/".
func NewServer(st Store, snapshotPath string, l logging.Logger) *Server {
	s := &Server{
		store:           st,
		snapshotPath:    snapshotPath,
		logger:          l.With("module", "http_server"),
		shutdownTimeout: defaultShutdownTimeout,
	}
	s.router = s.routes()
	return s
}

// SetShutdownTimeout bounds how long Serve waits for in-flight requests.
func (s *Server) SetShutdownTimeout(d time.Duration) {
	if d > 0 {
		s.shutdownTimeout = d
	}
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter().UseEncodedPath().SkipClean(true)
	r.Use(s.accessLog)

	r.Methods(http.MethodGet).Path("/status").HandlerFunc(s.status)
	r.Methods(http.MethodGet).Path("/recipes/default/tiddlers.json").HandlerFunc(s.list)
	r.Methods(http.MethodGet).Path("/recipes/default/tiddlers/{title:.+}").HandlerFunc(s.getTiddler)
	r.Methods(http.MethodPut).Path("/recipes/default/tiddlers/{title:.+}").HandlerFunc(s.putTiddler)
	r.Methods(http.MethodDelete).Path("/bags/default/tiddlers/{title:.+}").HandlerFunc(s.deleteTiddler)
	r.Methods(http.MethodGet).Path("/").HandlerFunc(s.snapshot)
	return r
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)
		s.logger.Debug(r.Context(), "handled", "method", r.Method, "url", r.URL.String(),
			"status", m.Code, "duration", m.Duration, "bytes", m.Written)
	})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve answers requests on ln until ctx is done, then shuts down
// gracefully. It closes ln.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...", "address", ln.Addr().String())

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn(ctx, "graceful shutdown failed", "error", err)
			_ = srv.Close()
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", ln.Addr().String())

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-done
	return nil
}
