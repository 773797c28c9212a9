package posts

import "strings"

// Filter computes the visible subset of items for a search term and an
// optional status filter. A post passes when the term is empty or appears as
// a case-insensitive substring of its title or author, and when the status
// filter is nil or matches exactly. Input order is preserved; an empty
// result is a valid outcome, not an error.
func Filter(items []Post, searchTerm string, statusFilter *Status) []Post {
	term := strings.ToLower(searchTerm)

	out := make([]Post, 0, len(items))
	for _, p := range items {
		if term != "" &&
			!strings.Contains(strings.ToLower(p.Title), term) &&
			!strings.Contains(strings.ToLower(p.Author), term) {
			continue
		}
		if statusFilter != nil && p.Status != *statusFilter {
			continue
		}
		out = append(out, p)
	}
	return out
}
