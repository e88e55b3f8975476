package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestItemFieldResolution(t *testing.T) {
	now := time.Now()
	item := &Item{
		ID:        "i1",
		CreatedAt: now,
		Version:   3,
		Fields: map[string]any{
			"title": "x",
			"details": map[string]any{
				"owner": map[string]any{"name": "dana"},
			},
		},
	}

	cases := []struct {
		path string
		want any
		ok   bool
	}{
		{"id", "i1", true},
		{"createdAt", now, true},
		{"version", int64(3), true},
		{"title", "x", true},
		{"details.owner.name", "dana", true},
		{"details.owner.missing", nil, false},
		{"details.owner.name.deeper", nil, false},
		{"absent", nil, false},
	}

	for _, tc := range cases {
		got, ok := item.Field(tc.path)
		assert.Equal(t, tc.ok, ok, "path %q", tc.path)
		if tc.ok {
			assert.Equal(t, tc.want, got, "path %q", tc.path)
		}
	}
}

func TestItemCloneIsDeep(t *testing.T) {
	item := &Item{
		ID: "i1",
		Fields: map[string]any{
			"nested": map[string]any{"n": 1},
			"list":   []any{map[string]any{"k": "v"}},
		},
	}

	cp := item.Clone()
	cp.Fields["nested"].(map[string]any)["n"] = 2
	cp.Fields["list"].([]any)[0].(map[string]any)["k"] = "changed"

	assert.Equal(t, 1, item.Fields["nested"].(map[string]any)["n"])
	assert.Equal(t, "v", item.Fields["list"].([]any)[0].(map[string]any)["k"])
}

func TestItemCloneNil(t *testing.T) {
	var item *Item
	assert.Nil(t, item.Clone())
}
