package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/ykanchan/pywebview-tw/internal/common"
	"github.com/ykanchan/pywebview-tw/internal/timex"
)

// Normalize validates incoming fields and returns them in canonical form:
// tags as a list string, modified as a canonical stamp, structured values
// re-decoded from their canonical JSON. title, revision and bag are
// dropped; the caller's title and the store's revision are authoritative.
// Errors match common.ErrValidation.
func Normalize(in map[string]any, now func() string) (Fields, error) {
	out := make(Fields, len(in)+2)

	for name, v := range in {
		switch name {
		case "":
			return nil, common.Validationf("empty field name")
		case FieldTitle, FieldRevision, FieldBag:
			continue
		case FieldTags:
			tags, err := NormalizeTags(v)
			if err != nil {
				return nil, common.Validationf("%v", err)
			}
			if tags != "" {
				out[FieldTags] = tags
			}
		case FieldModified:
			s, ok := v.(string)
			if !ok {
				return nil, common.Validationf("modified must be a string, got %T", v)
			}
			stamp, err := timex.ToStamp(s)
			if err != nil {
				return nil, common.Validationf("modified: %v", err)
			}
			out[FieldModified] = stamp
		case FieldText, FieldType:
			if v == nil {
				continue
			}
			s, ok := v.(string)
			if !ok {
				return nil, common.Validationf("%s must be a string, got %T", name, v)
			}
			out[name] = s
		default:
			if s, ok := v.(string); ok {
				out[name] = s
				continue
			}
			canonical, err := canonicalize(v)
			if err != nil {
				return nil, common.Validationf("field %q: %v", name, err)
			}
			out[name] = canonical
		}
	}

	if _, ok := out[FieldModified]; !ok {
		out[FieldModified] = now()
	}
	if _, ok := out[FieldType]; !ok {
		out[FieldType] = DefaultType
	}
	return out, nil
}

// canonicalize passes v through its canonical JSON encoding so the value
// handed back to callers is exactly what a later read decodes.
func canonicalize(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return decodeValue(b)
}

func decodeValue(b []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after JSON value")
	}
	return v, nil
}

// EncodeFields serializes every field except text. Object keys are sorted,
// which makes the encoding canonical.
func EncodeFields(f Fields) (string, error) {
	rest := make(map[string]any, len(f))
	for k, v := range f {
		if k == FieldText {
			continue
		}
		rest[k] = v
	}
	b, err := json.Marshal(rest)
	if err != nil {
		return "", fmt.Errorf("failed to encode fields: %w", err)
	}
	return string(b), nil
}

// DecodeFields is the inverse of EncodeFields.
func DecodeFields(s string) (Fields, error) {
	v, err := decodeValue([]byte(s))
	if err != nil {
		return nil, fmt.Errorf("failed to decode fields: %w", err)
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("failed to decode fields: not an object")
	}
	return Fields(m), nil
}

// DecodeObject parses a JSON object body, keeping numbers exact.
func DecodeObject(b []byte) (map[string]any, error) {
	v, err := decodeValue(b)
	if err != nil {
		return nil, err
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected a JSON object, got %T", v)
	}
	return m, nil
}
