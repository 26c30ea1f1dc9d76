package pdf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitPages(t *testing.T) {
	assert.Equal(t, []int{2, 4}, SplitPages([]int{2, 4}, 5))
	assert.Equal(t, []int{1, 2, 3}, SplitPages(nil, 3), "nothing selected falls back to every page")
	assert.Equal(t, []int{1, 2}, SplitPages([]int{}, 2))
}

func TestTransformPages(t *testing.T) {
	pages, discards := TransformPages("", 3)
	assert.Equal(t, []int{1, 2, 3}, pages)
	assert.Empty(t, discards)

	pages, _ = TransformPages("2", 3)
	assert.Equal(t, []int{2}, pages)

	pages, discards = TransformPages("7-9", 3)
	assert.Empty(t, pages, "an expression that selects nothing transforms nothing")
	assert.Len(t, discards, 1)
}

func TestReorderPages(t *testing.T) {
	tests := []struct {
		name     string
		order    []int
		maxPages int
		want     []int
	}{
		{name: "empty is identity", order: nil, maxPages: 3, want: []int{0, 1, 2}},
		{name: "permutation", order: []int{2, 0, 1}, maxPages: 3, want: []int{2, 0, 1}},
		{name: "out of range dropped", order: []int{5, 1, -1, 0}, maxPages: 3, want: []int{1, 0}},
		{name: "identity on four pages", order: []int{}, maxPages: 4, want: []int{0, 1, 2, 3}},
		{name: "drops and repeats", order: []int{2, 0, 0, 99}, maxPages: 4, want: []int{2, 0, 0}},
		{name: "repeats kept", order: []int{0, 0, 1}, maxPages: 2, want: []int{0, 0, 1}},
		{name: "subset", order: []int{1}, maxPages: 4, want: []int{1}},
		{name: "empty document", order: nil, maxPages: 0, want: []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ReorderPages(tt.order, tt.maxPages))
		})
	}
}

func TestRemainingPages(t *testing.T) {
	assert.Equal(t, []int{1, 3, 5}, RemainingPages([]int{2, 4}, 5))
	assert.Empty(t, RemainingPages([]int{1, 2}, 2))
	assert.Equal(t, []int{1, 2}, RemainingPages(nil, 2))
}

func TestParseOrder(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		want     []int
		discards int
	}{
		{name: "empty", raw: "", want: nil},
		{name: "list", raw: "[2, 0, 1]", want: []int{2, 0, 1}},
		{name: "non numbers dropped", raw: `[1, "a", null, 0]`, want: []int{1, 0}, discards: 2},
		{name: "fractions dropped", raw: "[1.5, 2]", want: []int{2}, discards: 1},
		{name: "not an array", raw: `{"a": 1}`, want: nil, discards: 1},
		{name: "not json", raw: "1,2,3", want: nil, discards: 1},
		{name: "negative kept for later bounds check", raw: "[-1, 0]", want: []int{-1, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, discards := ParseOrder(tt.raw)
			assert.Equal(t, tt.want, got)
			assert.Len(t, discards, tt.discards)
		})
	}
}
