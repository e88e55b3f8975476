package store

import (
	"fmt"
	"sort"
	"strconv"
)

// indexManager maintains inverted indexes: field path -> value key -> set of
// item IDs. It carries no lock of its own; every method is called with the
// owning store's mutex held.
type indexManager struct {
	indexes map[string]map[string]map[string]struct{}
}

func newIndexManager() *indexManager {
	return &indexManager{
		indexes: make(map[string]map[string]map[string]struct{}),
	}
}

// createIndex registers a new index on a field path and backfills it from the
// current items. Returns false if an index on that field already exists.
func (im *indexManager) createIndex(field string, items map[string]*Item) bool {
	if _, exists := im.indexes[field]; exists {
		return false
	}

	idx := make(map[string]map[string]struct{})
	im.indexes[field] = idx

	for id, item := range items {
		if value, ok := item.Field(field); ok {
			key := valueKey(value)
			bucket := idx[key]
			if bucket == nil {
				bucket = make(map[string]struct{})
				idx[key] = bucket
			}
			bucket[id] = struct{}{}
		}
	}
	return true
}

// dropIndex removes an index. Returns false if no index exists on the field.
func (im *indexManager) dropIndex(field string) bool {
	if _, exists := im.indexes[field]; !exists {
		return false
	}
	delete(im.indexes, field)
	return true
}

// fields returns the indexed field paths in sorted order.
func (im *indexManager) fields() []string {
	out := make([]string, 0, len(im.indexes))
	for field := range im.indexes {
		out = append(out, field)
	}
	sort.Strings(out)
	return out
}

// add records a new item in every index whose field the item defines.
func (im *indexManager) add(item *Item) {
	for field, idx := range im.indexes {
		value, ok := item.Field(field)
		if !ok {
			continue
		}
		key := valueKey(value)
		bucket := idx[key]
		if bucket == nil {
			bucket = make(map[string]struct{})
			idx[key] = bucket
		}
		bucket[item.ID] = struct{}{}
	}
}

// remove erases an item from every index, pruning empty value buckets.
func (im *indexManager) remove(item *Item) {
	for field, idx := range im.indexes {
		value, ok := item.Field(field)
		if !ok {
			continue
		}
		key := valueKey(value)
		if bucket, exists := idx[key]; exists {
			delete(bucket, item.ID)
			if len(bucket) == 0 {
				delete(idx, key)
			}
		}
	}
}

// update moves an item between value buckets. Indexes on fields whose value
// did not change are left untouched.
func (im *indexManager) update(old, updated *Item) {
	for field, idx := range im.indexes {
		oldValue, oldOK := old.Field(field)
		newValue, newOK := updated.Field(field)

		oldKey, newKey := "", ""
		if oldOK {
			oldKey = valueKey(oldValue)
		}
		if newOK {
			newKey = valueKey(newValue)
		}
		if oldOK == newOK && oldKey == newKey {
			continue
		}

		if oldOK {
			if bucket, exists := idx[oldKey]; exists {
				delete(bucket, old.ID)
				if len(bucket) == 0 {
					delete(idx, oldKey)
				}
			}
		}
		if newOK {
			bucket := idx[newKey]
			if bucket == nil {
				bucket = make(map[string]struct{})
				idx[newKey] = bucket
			}
			bucket[updated.ID] = struct{}{}
		}
	}
}

// clear empties every index while keeping the registered fields.
func (im *indexManager) clear() {
	for field := range im.indexes {
		im.indexes[field] = make(map[string]map[string]struct{})
	}
}

// rebuild repopulates every index from scratch.
func (im *indexManager) rebuild(items map[string]*Item) {
	im.clear()
	for _, item := range items {
		im.add(item)
	}
}

// candidates narrows a query to the smallest ID set reachable through the
// indexed equality conditions in the filter. Returns ok=false when no
// indexed condition applies, in which case the caller scans all items.
// The returned set is an over-approximation: the full filter is still
// evaluated against each candidate.
func (im *indexManager) candidates(filter Filter) (map[string]struct{}, bool) {
	var narrowest map[string]struct{}
	found := false

	for field, condition := range filter {
		idx, indexed := im.indexes[field]
		if !indexed {
			continue
		}

		literal, ok := equalityLiteral(condition)
		if !ok {
			continue
		}

		bucket := idx[valueKey(literal)]
		if !found || len(bucket) < len(narrowest) {
			narrowest = bucket
			found = true
		}
	}

	if !found {
		return nil, false
	}
	if narrowest == nil {
		// Indexed field matched no items; the query result is empty.
		return map[string]struct{}{}, true
	}
	return narrowest, true
}

// equalityLiteral extracts the literal from an equality condition: either a
// bare value or a single-operator {"$eq": v} object.
func equalityLiteral(condition any) (any, bool) {
	if ops, ok := operatorObject(condition); ok {
		if len(ops) == 1 {
			if v, present := ops[OpEq]; present {
				return v, true
			}
		}
		return nil, false
	}
	if _, isSlice := asSlice(condition); isSlice {
		return nil, false
	}
	return condition, true
}

// valueKey folds an indexed value into a string bucket key. Numeric types
// collapse onto one representation so an int write and a float query land in
// the same bucket.
func valueKey(value any) string {
	switch v := value.(type) {
	case string:
		return "s:" + v
	case bool:
		return "b:" + strconv.FormatBool(v)
	case int:
		return "n:" + strconv.FormatFloat(float64(v), 'g', -1, 64)
	case int32:
		return "n:" + strconv.FormatFloat(float64(v), 'g', -1, 64)
	case int64:
		return "n:" + strconv.FormatFloat(float64(v), 'g', -1, 64)
	case float32:
		return "n:" + strconv.FormatFloat(float64(v), 'g', -1, 64)
	case float64:
		return "n:" + strconv.FormatFloat(v, 'g', -1, 64)
	default:
		return "v:" + fmt.Sprintf("%v", value)
	}
}
