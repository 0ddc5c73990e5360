package summarize

import (
	"fmt"
	"strings"
)

// NoResultsMessage replaces the report when there is nothing to summarize.
const NoResultsMessage = "No valid search results found. Please try different search queries or use a different search API."

var sourceRule = strings.Repeat("-", 80)

// FormatReport renders entries as a numbered report in slice order.
func FormatReport(entries []Entry) string {
	if len(entries) == 0 {
		return NoResultsMessage
	}

	var b strings.Builder
	b.WriteString("Search results: \n\n")
	for i, e := range entries {
		fmt.Fprintf(&b, "\n\n--- SOURCE %d: %s ---\n", i+1, e.Title)
		fmt.Fprintf(&b, "URL: %s\n\n", e.URL)
		fmt.Fprintf(&b, "SUMMARY:\n%s\n\n", e.Summary)
		b.WriteString("\n\n" + sourceRule + "\n")
	}
	return b.String()
}
