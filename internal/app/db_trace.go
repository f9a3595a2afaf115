package app

import (
	"regexp"
	"strings"
)

const maxTracedQueryLength = 512

var (
	queryWhitespaceRegex = regexp.MustCompile(`\s+`)
	// Two or more consecutive positional placeholders, as written by the registry upserts.
	placeholderRunRegex = regexp.MustCompile(`\$(\d+)(?:, \$\d+)*, \$(\d+)`)
)

// formatDBQueryForTrace flattens registry statements for span attributes. Placeholder
// runs collapse to $first..$last so wide VALUES lists stay readable.
func formatDBQueryForTrace(query string) string {
	query = strings.TrimSpace(query)
	if query == "" {
		return query
	}

	normalized := queryWhitespaceRegex.ReplaceAllString(query, " ")
	normalized = placeholderRunRegex.ReplaceAllString(normalized, "$$${1}..$$${2}")
	if len(normalized) <= maxTracedQueryLength {
		return normalized
	}

	return normalized[:maxTracedQueryLength] + "..."
}
