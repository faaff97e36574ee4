package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/ykanchan/pywebview-tw/internal/common"
	"github.com/ykanchan/pywebview-tw/internal/models"
)

// Bag is the only bag and recipe name the protocol uses.
const Bag = "default"

// ETag returns the validator sent after a successful PUT.
func ETag(title string, revision int64) string {
	return `"` + Bag + "/" + url.PathEscape(title) + "/" + strconv.FormatInt(revision, 10) + `:"`
}

// WireRecord renders a tiddler the way the client expects it.
func WireRecord(t *models.Tiddler) map[string]any {
	out := make(map[string]any, len(t.Fields)+3)
	for k, v := range t.Fields {
		out[k] = v
	}
	out[models.FieldTitle] = t.Title
	out[models.FieldRevision] = t.Revision
	out[models.FieldBag] = Bag
	return out
}

// StatusFor maps an error to the HTTP status the facade answers with.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrValidation), errors.Is(err, common.ErrProtocolDecode):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	code := StatusFor(err)
	if code >= http.StatusInternalServerError {
		s.logger.Error(r.Context(), "request failed", "method", r.Method, "url", r.URL.String(), "error", err)
	} else {
		s.logger.Debug(r.Context(), "request rejected", "method", r.Method, "url", r.URL.String(), "error", err)
	}
	w.WriteHeader(code)
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error(r.Context(), "failed to write out", "error", err)
	}
}

func pathTitle(r *http.Request) (string, error) {
	title, err := url.PathUnescape(mux.Vars(r)["title"])
	if err != nil {
		return "", fmt.Errorf("%w: bad title encoding: %v", common.ErrProtocolDecode, err)
	}
	if title == "" {
		return "", common.Validationf("empty title")
	}
	return title, nil
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, r, map[string]any{"space": map[string]any{"recipe": Bag}})
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	items, err := s.store.ListAll(r.Context(), true)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	out := make([]map[string]any, 0, len(items))
	for i := range items {
		out = append(out, WireRecord(&items[i]))
	}
	s.writeJSON(w, r, out)
}

func (s *Server) getTiddler(w http.ResponseWriter, r *http.Request) {
	title, err := pathTitle(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	t, err := s.store.Get(r.Context(), title)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.writeJSON(w, r, WireRecord(t))
}

func (s *Server) putTiddler(w http.ResponseWriter, r *http.Request) {
	title, err := pathTitle(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.fail(w, r, fmt.Errorf("%w: %v", common.ErrProtocolDecode, err))
		return
	}
	fields, err := models.DecodeObject(body)
	if err != nil {
		s.fail(w, r, fmt.Errorf("%w: %v", common.ErrProtocolDecode, err))
		return
	}

	rev, err := s.store.Put(r.Context(), title, fields)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("ETag", ETag(title, rev))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteTiddler(w http.ResponseWriter, r *http.Request) {
	title, err := pathTitle(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if _, err := s.store.Delete(r.Context(), title); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) snapshot(w http.ResponseWriter, r *http.Request) {
	f, err := os.Open(s.snapshotPath)
	if errors.Is(err, os.ErrNotExist) {
		s.fail(w, r, common.ErrNotFound)
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	if _, err := io.Copy(w, f); err != nil {
		s.logger.Error(r.Context(), "failed to write out", "error", err)
	}
}
