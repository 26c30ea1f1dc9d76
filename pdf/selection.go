package pdf

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// SplitPages returns the pages split writes out, one file each. A selection
// that parsed to nothing falls back to every page so split never produces
// zero files.
func SplitPages(selected []int, maxPages int) []int {
	if len(selected) == 0 {
		return AllPages(maxPages)
	}
	return selected
}

// TransformPages returns the pages a per-page transform (rotate, watermark)
// touches. No expression at all means every page; otherwise the parsed set is
// used as-is, even when it is empty.
func TransformPages(expr string, maxPages int) ([]int, []Discard) {
	if strings.TrimSpace(expr) == "" {
		return AllPages(maxPages), nil
	}
	return ParseRanges(expr, maxPages)
}

// ReorderPages resolves an explicit 0-based page order against a document
// with maxPages pages. Out of range indices are dropped, repeats and order are
// kept, and an empty order is the identity.
func ReorderPages(order []int, maxPages int) []int {
	if len(order) == 0 {
		identity := make([]int, 0, max(maxPages, 0))
		for i := 0; i < maxPages; i++ {
			identity = append(identity, i)
		}
		return identity
	}

	selection := make([]int, 0, len(order))
	for _, idx := range order {
		if idx >= 0 && idx < maxPages {
			selection = append(selection, idx)
		}
	}
	return selection
}

// RemainingPages returns the pages of a maxPages document that are not in removed.
func RemainingPages(removed []int, maxPages int) []int {
	drop := make(map[int]bool, len(removed))
	for _, p := range removed {
		drop[p] = true
	}
	var keep []int
	for i := 1; i <= maxPages; i++ {
		if !drop[i] {
			keep = append(keep, i)
		}
	}
	return keep
}

// ParseOrder decodes a JSON list of 0-based page indices. Malformed input is
// never an error: a document that is not a JSON array yields an empty order,
// and entries that are not integers are dropped and reported.
func ParseOrder(raw string) ([]int, []Discard) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()

	var entries []any
	if err := dec.Decode(&entries); err != nil {
		return nil, []Discard{{Token: raw, Reason: "not a JSON array"}}
	}

	var (
		order    []int
		discards []Discard
	)
	for _, entry := range entries {
		num, ok := entry.(json.Number)
		if !ok {
			discards = append(discards, Discard{Token: fmt.Sprint(entry), Reason: "not a number"})
			continue
		}
		idx, err := strconv.Atoi(num.String())
		if err != nil {
			discards = append(discards, Discard{Token: num.String(), Reason: "not an integer"})
			continue
		}
		order = append(order, idx)
	}
	return order, discards
}
