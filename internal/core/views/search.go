package views

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/agenthands/chrono/internal/core/model"
)

// fold applies Unicode case folding. A Caser is stateful, so each call
// gets its own.
func fold(s string) string {
	return cases.Fold().String(s)
}

// MatchesQuery is a case-insensitive substring match over title,
// description and subtitle.
func MatchesQuery(n model.TimelineNode, query string) bool {
	if query == "" {
		return false
	}
	return matchesFolded(n, fold(query))
}

func matchesFolded(n model.TimelineNode, q string) bool {
	if strings.Contains(fold(n.Title), q) || strings.Contains(fold(n.Description), q) {
		return true
	}
	return n.Subtitle != "" && strings.Contains(fold(n.Subtitle), q)
}
