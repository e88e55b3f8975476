package store

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/c360/memstore/errors"
)

// Filter maps dotted field paths to match conditions. A condition is either
// a literal (equality), a slice (membership), or an operator object such as
// map[string]any{"$gte": 10}. Multiple fields, and multiple operators on
// one field, are AND-ed.
type Filter map[string]any

// Supported operator keys.
const (
	OpEq    = "$eq"
	OpNe    = "$ne"
	OpGt    = "$gt"
	OpGte   = "$gte"
	OpLt    = "$lt"
	OpLte   = "$lte"
	OpIn    = "$in"
	OpNin   = "$nin"
	OpRegex = "$regex"
)

// SortField orders results by one field path.
type SortField struct {
	Field      string `json:"field"`
	Descending bool   `json:"descending"`
}

// SortSpec applies its fields in order as tie-breakers.
type SortSpec []SortField

// Page describes one slice of a paginated result.
type Page struct {
	Items       []*Item `json:"items"`
	CurrentPage int     `json:"current_page"`
	PageSize    int     `json:"page_size"`
	TotalItems  int     `json:"total_items"`
	TotalPages  int     `json:"total_pages"`
	HasNextPage bool    `json:"has_next_page"`
	HasPrevPage bool    `json:"has_prev_page"`
}

// matchItem evaluates a filter against an item. With strict operators
// enabled, unrecognized $-prefixed keys yield an error; otherwise they fall
// back to literal equality against the operator's value, preserving the
// permissive behavior of the original matcher.
func matchItem(item *Item, filter Filter, strict bool) (bool, error) {
	for path, condition := range filter {
		value, defined := item.Field(path)

		matched, err := matchCondition(value, defined, condition, strict)
		if err != nil {
			return false, errors.Wrap(err, "QueryEngine", "matchItem", fmt.Sprintf("field %q", path))
		}
		if !matched {
			return false, nil
		}
	}
	return true, nil
}

func matchCondition(value any, defined bool, condition any, strict bool) (bool, error) {
	if ops, ok := operatorObject(condition); ok {
		for op, operand := range ops {
			matched, err := applyOperator(value, defined, op, operand, strict)
			if err != nil {
				return false, err
			}
			if !matched {
				return false, nil
			}
		}
		return true, nil
	}

	// A bare slice means membership
	if members, ok := asSlice(condition); ok {
		if !defined {
			return false, nil
		}
		return containsValue(members, value), nil
	}

	// Literal equality
	if !defined {
		return false, nil
	}
	return equalValues(value, condition), nil
}

// applyOperator evaluates one operator against a resolved field value.
// An undefined value fails every operator except $ne and $nin.
func applyOperator(value any, defined bool, op string, operand any, strict bool) (bool, error) {
	switch op {
	case OpEq:
		return defined && equalValues(value, operand), nil

	case OpNe:
		if !defined {
			return true, nil
		}
		return !equalValues(value, operand), nil

	case OpGt, OpGte, OpLt, OpLte:
		if !defined {
			return false, nil
		}
		cmp, comparable := compareValues(value, operand)
		if !comparable {
			return false, nil
		}
		switch op {
		case OpGt:
			return cmp > 0, nil
		case OpGte:
			return cmp >= 0, nil
		case OpLt:
			return cmp < 0, nil
		default:
			return cmp <= 0, nil
		}

	case OpIn:
		members, ok := asSlice(operand)
		if !ok {
			return false, errors.WrapInvalid(errors.ErrInvalidData, "QueryEngine", "applyOperator",
				"$in requires an array operand")
		}
		return defined && containsValue(members, value), nil

	case OpNin:
		members, ok := asSlice(operand)
		if !ok {
			return false, errors.WrapInvalid(errors.ErrInvalidData, "QueryEngine", "applyOperator",
				"$nin requires an array operand")
		}
		if !defined {
			return true, nil
		}
		return !containsValue(members, value), nil

	case OpRegex:
		if !defined {
			return false, nil
		}
		pattern, ok := operand.(string)
		if !ok {
			return false, errors.WrapInvalid(errors.ErrInvalidData, "QueryEngine", "applyOperator",
				"$regex requires a string pattern")
		}
		str, ok := value.(string)
		if !ok {
			return false, nil
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false, errors.WrapInvalid(err, "QueryEngine", "applyOperator", "compile $regex pattern")
		}
		return re.MatchString(str), nil

	default:
		if strict {
			return false, errors.WrapInvalid(errors.ErrUnsupportedOperator, "QueryEngine", "applyOperator",
				fmt.Sprintf("operator %q", op))
		}
		// Permissive fallback: unrecognized operator keys degrade to
		// literal equality against the operator's value.
		return defined && equalValues(value, operand), nil
	}
}

// operatorObject reports whether a condition is an operator object: a map
// whose keys all start with '$'.
func operatorObject(condition any) (map[string]any, bool) {
	m, ok := condition.(map[string]any)
	if !ok || len(m) == 0 {
		return nil, false
	}
	for key := range m {
		if !strings.HasPrefix(key, "$") {
			return nil, false
		}
	}
	return m, true
}

// asSlice converts a []any (or Filter slice literal) into a value slice.
func asSlice(value any) ([]any, bool) {
	switch v := value.(type) {
	case []any:
		return v, true
	case []string:
		out := make([]any, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out, true
	case []int:
		out := make([]any, len(v))
		for i, n := range v {
			out[i] = n
		}
		return out, true
	case []float64:
		out := make([]any, len(v))
		for i, f := range v {
			out[i] = f
		}
		return out, true
	default:
		return nil, false
	}
}

func containsValue(members []any, value any) bool {
	for _, member := range members {
		if equalValues(value, member) {
			return true
		}
	}
	return false
}

// equalValues compares two values for query equality. Numeric values are
// compared by magnitude regardless of Go type; times compare by instant.
func equalValues(a, b any) bool {
	if af, aok := asFloat(a); aok {
		bf, bok := asFloat(b)
		return bok && af == bf
	}
	if at, aok := a.(time.Time); aok {
		bt, bok := b.(time.Time)
		return bok && at.Equal(bt)
	}
	return reflect.DeepEqual(a, b)
}

// compareValues orders two values of compatible types. Returns ok=false
// for incomparable or mixed-type pairs; ordering of mixed types across
// items is documented as undefined behavior.
func compareValues(a, b any) (int, bool) {
	if af, aok := asFloat(a); aok {
		bf, bok := asFloat(b)
		if !bok {
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		default:
			return 0, true
		}
	}

	if as, aok := a.(string); aok {
		bs, bok := b.(string)
		if !bok {
			return 0, false
		}
		return strings.Compare(as, bs), true
	}

	if at, aok := a.(time.Time); aok {
		bt, bok := b.(time.Time)
		if !bok {
			return 0, false
		}
		switch {
		case at.Before(bt):
			return -1, true
		case at.After(bt):
			return 1, true
		default:
			return 0, true
		}
	}

	return 0, false
}

func asFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	default:
		return 0, false
	}
}

// sortItems orders items in place according to the sort spec. Undefined or
// incomparable values are treated as equal under that field and fall
// through to the next tie-breaker.
func sortItems(items []*Item, spec SortSpec) {
	if len(spec) == 0 {
		return
	}

	sort.SliceStable(items, func(i, j int) bool {
		for _, field := range spec {
			av, aok := items[i].Field(field.Field)
			bv, bok := items[j].Field(field.Field)

			// Undefined values sort after defined ones regardless of direction
			if aok != bok {
				return aok
			}
			if !aok {
				continue
			}

			cmp, comparable := compareValues(av, bv)
			if !comparable || cmp == 0 {
				continue
			}
			if field.Descending {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

// paginate slices a fully filtered and sorted result into one page.
// Page numbers are 1-based; an out-of-range page yields an empty slice
// with accurate totals.
func paginate(items []*Item, page, pageSize int) *Page {
	totalItems := len(items)
	totalPages := (totalItems + pageSize - 1) / pageSize
	if totalPages == 0 {
		totalPages = 1
	}

	start := (page - 1) * pageSize
	end := start + pageSize
	if start > totalItems {
		start = totalItems
	}
	if end > totalItems {
		end = totalItems
	}

	return &Page{
		Items:       items[start:end],
		CurrentPage: page,
		PageSize:    pageSize,
		TotalItems:  totalItems,
		TotalPages:  totalPages,
		HasNextPage: page < totalPages,
		HasPrevPage: page > 1 && totalItems > 0,
	}
}
