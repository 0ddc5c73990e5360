package search

import "strings"

// UniqueSet maps URL to the first result seen for it and remembers the
// order in which URLs were first seen.
type UniqueSet struct {
	order []string
	byURL map[string]Result

	// Duplicates counts results dropped because their URL was already present.
	Duplicates int
	// Skipped counts results without a URL.
	Skipped int
}

// Deduplicate flattens batches in batch order, then within-batch order, and
// keeps the first result for each URL stamped with the query of its batch.
// Later duplicates are dropped without merging fields.
func Deduplicate(batches []Batch) *UniqueSet {
	u := &UniqueSet{byURL: make(map[string]Result)}
	for _, b := range batches {
		for _, r := range b.Results {
			if strings.TrimSpace(r.URL) == "" {
				u.Skipped++
				continue
			}
			if _, seen := u.byURL[r.URL]; seen {
				u.Duplicates++
				continue
			}
			if b.Query != "" {
				r.Query = b.Query
			}
			u.byURL[r.URL] = r
			u.order = append(u.order, r.URL)
		}
	}
	return u
}

func (u *UniqueSet) Len() int { return len(u.order) }

func (u *UniqueSet) Get(url string) (Result, bool) {
	r, ok := u.byURL[url]
	return r, ok
}

// URLs returns the URLs in first-seen order.
func (u *UniqueSet) URLs() []string {
	out := make([]string, len(u.order))
	copy(out, u.order)
	return out
}

// Results returns the unique results in first-seen order.
func (u *UniqueSet) Results() []Result {
	out := make([]Result, 0, len(u.order))
	for _, url := range u.order {
		out = append(out, u.byURL[url])
	}
	return out
}
