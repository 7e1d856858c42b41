// Package transcript flattens caption fragments into bounded prompt input.
package transcript

import (
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"ConsensusAnalyzer/internal/domain"
)

// DefaultBudget caps the characters forwarded to the model per source item.
const DefaultBudget = 8000

// Marker is appended when a transcript was cut to fit the budget.
const Marker = "..."

// Bound joins segment texts with single spaces and truncates the result to
// budget characters, appending Marker when anything was dropped. A budget
// of zero or less falls back to DefaultBudget.
func Bound(segments []domain.TranscriptSegment, budget int) string {
	if budget <= 0 {
		budget = DefaultBudget
	}
	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		text := plainText(seg.Text)
		if text == "" {
			continue
		}
		parts = append(parts, text)
	}
	return Truncate(strings.Join(parts, " "), budget)
}

// Truncate cuts s to at most budget runes plus Marker.
func Truncate(s string, budget int) string {
	if utf8.RuneCountInString(s) <= budget {
		return s
	}
	count := 0
	for i := range s {
		if count == budget {
			return s[:i] + Marker
		}
		count++
	}
	return s
}

// plainText strips caption markup (<font>, <i>, entities) and collapses whitespace.
func plainText(raw string) string {
	text := raw
	if strings.ContainsAny(raw, "<&") {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
		if err == nil {
			text = doc.Text()
		}
	}
	return strings.Join(strings.Fields(text), " ")
}
