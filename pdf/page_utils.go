package pdf

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Discard records a range token that was dropped while parsing and why.
type Discard struct {
	Token  string
	Reason string
}

func (d Discard) String() string {
	return fmt.Sprintf("%q: %s", d.Token, d.Reason)
}

// ParseRanges parses a page range expression into an ascending, de-duplicated
// list of 1-based page numbers bounded by maxPages.
// Supports formats: "1", "1,3", "1-5", "1,3-5,7"
//
// Parsing is permissive: unparseable tokens and numbers outside [1, maxPages]
// are dropped rather than rejected. Every dropped token is reported in the
// returned discard list so callers can surface it. An empty expression selects
// every page.
func ParseRanges(expr string, maxPages int) ([]int, []Discard) {
	if maxPages < 0 {
		maxPages = 0
	}
	if strings.TrimSpace(expr) == "" {
		return AllPages(maxPages), nil
	}

	seen := make(map[int]bool)
	var discards []Discard

	for _, token := range strings.Split(expr, ",") {
		token = strings.TrimSpace(token)

		if strings.Contains(token, "-") {
			// Range like "1-5", split at the first dash only
			parts := strings.SplitN(token, "-", 2)
			start, err := strconv.Atoi(strings.TrimSpace(parts[0]))
			if err != nil {
				discards = append(discards, Discard{Token: token, Reason: "invalid start page"})
				continue
			}
			end, err := strconv.Atoi(strings.TrimSpace(parts[1]))
			if err != nil {
				discards = append(discards, Discard{Token: token, Reason: "invalid end page"})
				continue
			}
			if start > end {
				discards = append(discards, Discard{Token: token, Reason: "descending range"})
				continue
			}

			// Clip to the document instead of walking the whole span
			lo, hi := max(start, 1), min(end, maxPages)
			if lo > hi {
				discards = append(discards, Discard{Token: token, Reason: fmt.Sprintf("outside 1-%d", maxPages)})
				continue
			}
			for i := lo; i <= hi; i++ {
				seen[i] = true
			}
			continue
		}

		// Single page like "3"
		page, err := strconv.Atoi(token)
		if err != nil {
			discards = append(discards, Discard{Token: token, Reason: "invalid page number"})
			continue
		}
		if page < 1 || page > maxPages {
			discards = append(discards, Discard{Token: token, Reason: fmt.Sprintf("outside 1-%d", maxPages)})
			continue
		}
		seen[page] = true
	}

	pages := make([]int, 0, len(seen))
	for page := range seen {
		pages = append(pages, page)
	}
	sort.Ints(pages)

	return pages, discards
}

// AllPages returns 1..n.
func AllPages(n int) []int {
	pages := make([]int, 0, max(n, 0))
	for i := 1; i <= n; i++ {
		pages = append(pages, i)
	}
	return pages
}
