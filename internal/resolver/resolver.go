// Package resolver answers "what changed since X" for a client holding a
// possibly stale copy of a document's tiddlers.
package resolver

import (
	"context"
	"sort"

	"github.com/ykanchan/pywebview-tw/internal/logging"
	"github.com/ykanchan/pywebview-tw/internal/models"
	"github.com/ykanchan/pywebview-tw/internal/store"
	"github.com/ykanchan/pywebview-tw/internal/timex"
)

// Source provides consistent read views of a store.
type Source interface {
	ReadView(ctx context.Context, fn func(ctx context.Context, v store.View) error) error
}

// ChangeSet lists titles the client must refetch and titles it must drop.
// Both lists are sorted and never nil.
type ChangeSet struct {
	Modified []string `json:"modifications"`
	Deleted  []string `json:"deletions"`
}

type Resolver struct {
	src    Source
	logger logging.Logger
}

func New(src Source, logger logging.Logger) *Resolver {
	return &Resolver{src: src, logger: logger.With("module", "resolver")}
}

// Resolve computes the change set.
//
// An empty since selects the Save Marker as baseline, and no marker means a
// cold sync reporting every non-system title. since may be canonical or
// ISO-8601; a value that cannot be converted is logged and compared as is.
//
// Deletions are reported only when live is non-nil: titles the client holds
// that the store does not. System titles never appear in either list.
func (r *Resolver) Resolve(ctx context.Context, since string, live []string) (ChangeSet, error) {
	baseline := since
	if since != "" {
		stamp, err := timex.ToStamp(since)
		if err != nil {
			r.logger.Warn(ctx, "unparseable since timestamp, comparing raw", "since", since, "error", err)
		} else {
			baseline = stamp
		}
	}

	cs := ChangeSet{Modified: []string{}, Deleted: []string{}}
	err := r.src.ReadView(ctx, func(ctx context.Context, v store.View) error {
		if since == "" {
			marker, ok, err := v.SaveMarker(ctx)
			if err != nil {
				return err
			}
			if ok {
				baseline = marker
			}
		}

		modified, err := v.ModifiedAfter(ctx, baseline)
		if err != nil {
			return err
		}
		cs.Modified = modified

		if live == nil {
			return nil
		}
		stored, err := v.Titles(ctx)
		if err != nil {
			return err
		}
		cs.Deleted = missing(live, stored)
		return nil
	})
	if err != nil {
		return ChangeSet{}, err
	}

	r.logger.Debug(ctx, "change set resolved", "baseline", baseline,
		"modified", len(cs.Modified), "deleted", len(cs.Deleted))
	return cs, nil
}

// missing returns the non-system titles of live absent from stored.
func missing(live, stored []string) []string {
	have := make(map[string]struct{}, len(stored))
	for _, t := range stored {
		have[t] = struct{}{}
	}

	out := []string{}
	seen := make(map[string]struct{}, len(live))
	for _, t := range live {
		if models.IsSystemTitle(t) {
			continue
		}
		if _, ok := have[t]; ok {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
