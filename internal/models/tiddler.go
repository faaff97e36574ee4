// Package models defines the tiddler record and the codecs that bring its
// fields into canonical form.
package models

import (
	"sort"
	"strings"
)

// SystemPrefix marks internal/configuration tiddlers. They are stored like
// any other tiddler but never reported to the client's live view.
const SystemPrefix = "$:/"

// DefaultType is assigned to tiddlers stored without a content type.
const DefaultType = "text/vnd.tiddlywiki"

// Well-known field names.
const (
	FieldTitle    = "title"
	FieldText     = "text"
	FieldTags     = "tags"
	FieldType     = "type"
	FieldModified = "modified"
	FieldRevision = "revision"
	FieldBag      = "bag"
)

// Fields maps a field name to its value. Plain fields hold strings;
// structured extension fields hold decoded JSON (map[string]any, []any,
// json.Number, bool or nil).
type Fields map[string]any

// Tiddler is one stored record. Revision is assigned by the store.
type Tiddler struct {
	Title    string
	Revision int64
	Fields   Fields
}

// IsSystemTitle reports whether title carries the reserved prefix.
func IsSystemTitle(title string) bool {
	return strings.HasPrefix(title, SystemPrefix)
}

// String returns the named field when it holds a string.
func (f Fields) String(name string) (string, bool) {
	v, ok := f[name].(string)
	return v, ok
}

// Modified returns the canonical modification stamp.
func (t *Tiddler) Modified() string {
	s, _ := t.Fields.String(FieldModified)
	return s
}

// Text returns the body, empty when absent.
func (t *Tiddler) Text() string {
	s, _ := t.Fields.String(FieldText)
	return s
}

// Clone returns a shallow copy of f.
func (f Fields) Clone() Fields {
	out := make(Fields, len(f))
	for k, v := range f {
		out[k] = v
	}
	return out
}

// Flatten lifts the members of object-valued fields into the top-level
// namespace. Top-level fields win over lifted members; among lifted members
// the first object in key order wins.
func (f Fields) Flatten() Fields {
	out := make(Fields, len(f))
	var nested []string
	for k, v := range f {
		if _, ok := v.(map[string]any); ok {
			nested = append(nested, k)
			continue
		}
		out[k] = v
	}
	sort.Strings(nested)

	for _, k := range nested {
		for name, v := range f[k].(map[string]any) {
			if _, taken := out[name]; taken {
				continue
			}
			out[name] = v
		}
	}
	return out
}
