package diary

import (
	"math"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// separator closes every entry in the formatted batch.
var separator = strings.Repeat("-", 40)

// whitespaceRegex matches one or more whitespace characters
var whitespaceRegex = regexp.MustCompile(`\s+`)

// FormatEntries renders the batch as the journal text handed to the prompt:
//
//	[2025-03-01 08:15:00] Work
//	<content>
//
//	----------------------------------------
//
// dateLayout formats the date part; times are always HH:MM:SS in loc.
func FormatEntries(entries []Entry, dateLayout string, loc *time.Location) string {
	var b strings.Builder
	for _, e := range entries {
		if e.CreatedAt > 0 {
			ts := time.Unix(e.CreatedAt, 0).In(loc)
			b.WriteString("[" + ts.Format(dateLayout) + " " + ts.Format("15:04:05") + "] ")
		} else {
			b.WriteString("[No Date] ")
		}
		b.WriteString(e.CategoryName())
		b.WriteString("\n")
		b.WriteString(e.Content)
		b.WriteString("\n\n")
		b.WriteString(separator)
		b.WriteString("\n\n")
	}
	return b.String()
}

// SummaryHeader is the first line of every artifact.
func SummaryHeader(r DateRange, dateLayout string) string {
	return "=== Diary Summary: " + r.Label(dateLayout) + " ==="
}

// NormalizeCategory trims and collapses whitespace; case is preserved since
// categories are shown to the model verbatim.
func NormalizeCategory(s string) string {
	return whitespaceRegex.ReplaceAllString(strings.TrimSpace(s), " ")
}

// CountChars returns the character count as runes (not bytes).
func CountChars(text string) int {
	return utf8.RuneCountInString(text)
}

// EstimateTokens estimates token count using a word-based heuristic (1.3 tokens per word).
func EstimateTokens(text string) int {
	words := strings.Fields(strings.TrimSpace(text))
	return int(math.Ceil(float64(len(words)) * 1.3))
}
