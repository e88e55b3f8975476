package store

import (
	"strings"
	"time"

	"github.com/c360/memstore/pkg/timestamp"
)

// Reserved field names recognized inside an item's open-shaped field map.
const (
	// FieldID supplies an explicit identifier on create; it is hoisted
	// into Item.ID and never stored among the open fields.
	FieldID = "id"

	// FieldExpiresAt marks an item for removal by the expiry sweeper once
	// the resolved timestamp passes. Accepts time.Time, RFC3339 strings,
	// and Unix seconds/milliseconds.
	FieldExpiresAt = "expiresAt"

	// FieldTemporary flags an item for removal once it is older than the
	// store's configured temporary max age.
	FieldTemporary = "temporary"
)

// Item is a single record held by a Store: an open-ended field map plus the
// system fields the store maintains.
//
// ID is immutable once assigned. Version starts at 1 and increases by
// exactly 1 on every successful update.
type Item struct {
	ID        string         `json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	Version   int64          `json:"version"`
	CreatedBy string         `json:"createdBy,omitempty"`
	UpdatedBy string         `json:"updatedBy,omitempty"`
	Fields    map[string]any `json:"fields"`
}

// Clone returns a deep copy of the item. Stores hand out and accept only
// clones so callers can never alias the primary map's memory.
func (it *Item) Clone() *Item {
	if it == nil {
		return nil
	}
	cp := *it
	cp.Fields = copyFieldMap(it.Fields)
	return &cp
}

// Field resolves a dotted field path against the item. System fields are
// addressable by their JSON names; all other segments resolve through the
// open field map, descending into nested maps. Returns ok=false when any
// path segment is missing.
func (it *Item) Field(path string) (any, bool) {
	switch path {
	case "id":
		return it.ID, true
	case "createdAt":
		return it.CreatedAt, true
	case "updatedAt":
		return it.UpdatedAt, true
	case "version":
		return it.Version, true
	case "createdBy":
		return it.CreatedBy, true
	case "updatedBy":
		return it.UpdatedBy, true
	}
	return resolvePath(it.Fields, path)
}

// expiresAt resolves the item's expiry timestamp, if any.
func (it *Item) expiresAt() (time.Time, bool) {
	value, ok := it.Fields[FieldExpiresAt]
	if !ok {
		return time.Time{}, false
	}
	return timestamp.ParseTime(value)
}

// isTemporary reports whether the item carries a truthy temporary flag.
func (it *Item) isTemporary() bool {
	flag, ok := it.Fields[FieldTemporary]
	if !ok {
		return false
	}
	b, ok := flag.(bool)
	return ok && b
}

// sanitizeFields normalizes string values in place: surrounding whitespace
// trimmed and control characters stripped (newlines and tabs survive).
// Applied to the store's own copy before validation, never to caller memory.
func sanitizeFields(fields map[string]any) {
	for k, v := range fields {
		fields[k] = sanitizeValue(v)
	}
}

func sanitizeValue(value any) any {
	switch v := value.(type) {
	case string:
		return sanitizeString(v)
	case map[string]any:
		sanitizeFields(v)
		return v
	case []any:
		for i, elem := range v {
			v[i] = sanitizeValue(elem)
		}
		return v
	default:
		return v
	}
}

func sanitizeString(s string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(cleaned)
}

// resolvePath walks a dotted path through nested map[string]any values.
func resolvePath(fields map[string]any, path string) (any, bool) {
	if fields == nil {
		return nil, false
	}

	segments := strings.Split(path, ".")
	var current any = fields
	for _, segment := range segments {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = node[segment]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// copyFieldMap deep-copies an open field map, descending into nested maps
// and slices. Scalar values are shared, which is safe because they are
// immutable in Go.
func copyFieldMap(fields map[string]any) map[string]any {
	if fields == nil {
		return nil
	}
	cp := make(map[string]any, len(fields))
	for k, v := range fields {
		cp[k] = copyFieldValue(v)
	}
	return cp
}

func copyFieldValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		return copyFieldMap(v)
	case []any:
		cp := make([]any, len(v))
		for i, elem := range v {
			cp[i] = copyFieldValue(elem)
		}
		return cp
	default:
		return v
	}
}
