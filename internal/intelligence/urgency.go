package intelligence

import (
	"regexp"
	"strings"

	"gather/internal/model"
)

var (
	urgentPhrases = []string{"urgent", "asap", "emergency", "immediately", "right now", "overdue", "today", "tonight", "by eod"}
	highPhrases   = []string{"tomorrow", "deadline", "due", "soon", "this week", "important"}
	lowPhrases    = []string{"someday", "eventually", "when i can", "maybe", "no rush"}

	urgentRe = phraseRegexp(urgentPhrases)
	highRe   = phraseRegexp(highPhrases)
	lowRe    = phraseRegexp(lowPhrases)
)

// phraseRegexp matches any of the phrases as whole words, case-insensitively.
func phraseRegexp(phrases []string) *regexp.Regexp {
	quoted := make([]string, len(phrases))
	for i, p := range phrases {
		quoted[i] = strings.ReplaceAll(regexp.QuoteMeta(p), " ", `\s+`)
	}
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(quoted, "|") + `)\b`)
}

// DetectUrgency picks the highest urgency whose keywords appear in text.
func DetectUrgency(text string) model.Urgency {
	switch {
	case urgentRe.MatchString(text):
		return model.UrgencyUrgent
	case highRe.MatchString(text):
		return model.UrgencyHigh
	case lowRe.MatchString(text):
		return model.UrgencyLow
	default:
		return model.UrgencyNormal
	}
}
