// Package braindump splits free-form captured text into candidate tasks.
package braindump

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"gather/internal/intelligence"
	"gather/internal/model"
)

const MaxTitleRunes = 200

type Item struct {
	Title     string        `json:"title"`
	Urgency   model.Urgency `json:"urgency"`
	Waiting   bool          `json:"waiting"`
	WaitingOn string        `json:"waiting_on,omitempty"`
}

var (
	splitRe  = regexp.MustCompile(`[\n;]+`)
	bulletRe = regexp.MustCompile(`^\s*(?:[-*•]|\d+[.)](?:\s|$)|\[[ xX]?\])\s*`)
	spaceRe  = regexp.MustCompile(`\s+`)
)

// Parse splits text on newlines and semicolons, strips bullet markers and
// drops duplicates. Order of first appearance is kept.
func Parse(text string) []Item {
	seen := make(map[string]struct{})
	var items []Item
	for _, part := range splitRe.Split(text, -1) {
		title := Clean(part)
		if title == "" {
			continue
		}
		key := strings.ToLower(title)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		items = append(items, Annotate(title))
	}
	return items
}

// Clean strips any leading bullets, collapses whitespace and caps length.
func Clean(s string) string {
	for {
		stripped := bulletRe.ReplaceAllString(s, "")
		if stripped == s {
			break
		}
		s = stripped
	}
	s = strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
	if utf8.RuneCountInString(s) > MaxTitleRunes {
		s = strings.TrimSpace(string([]rune(s)[:MaxTitleRunes]))
	}
	return s
}

// Annotate attaches the heuristic urgency and waiting state to a title.
func Annotate(title string) Item {
	waiting, on := intelligence.DetectWaiting(title)
	return Item{
		Title:     title,
		Urgency:   intelligence.DetectUrgency(title),
		Waiting:   waiting,
		WaitingOn: on,
	}
}
