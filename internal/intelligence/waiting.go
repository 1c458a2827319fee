package intelligence

import (
	"regexp"
	"strings"
)

var waitingPhrases = []string{
	"waiting for", "waiting on", "waiting to hear", "awaiting",
	"pending reply", "blocked by", "follow up with", "hear back from",
}

var waitingRe = regexp.MustCompile(
	`(?i)\b(?:` + strings.ReplaceAll(strings.Join(quoteAll(waitingPhrases), "|"), " ", `\s+`) + `)\b(?:\s+back\b)?(?:\s+from\b)?\s*([^.,;:!?\n]*)`,
)

func quoteAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = regexp.QuoteMeta(s)
	}
	return out
}

// DetectWaiting reports whether text describes something blocked on
// someone else, and on whom. The subject runs up to the first punctuation.
func DetectWaiting(text string) (bool, string) {
	m := waitingRe.FindStringSubmatch(text)
	if m == nil {
		return false, ""
	}
	return true, strings.TrimSpace(m[1])
}
