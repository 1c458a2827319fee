// Package linkify turns raw URLs in assistant replies into labelled links.
package linkify

import (
	"net/url"
	"regexp"
	"strings"
)

type SegmentKind string

const (
	KindText SegmentKind = "text"
	KindLink SegmentKind = "link"
)

type Segment struct {
	Kind  SegmentKind `json:"kind"`
	Text  string      `json:"text"`
	URL   string      `json:"url,omitempty"`
	Label string      `json:"label,omitempty"`
}

var (
	urlRe = regexp.MustCompile(`https?://[^\s<>"'\[\]]+`)
	// trailing characters that end a sentence rather than a URL
	trailingPunct = ".,;:!?)'\""
)

// host suffix -> label; checked in order so more specific entries go first
var knownHosts = []struct {
	match string
	label string
}{
	{"maps.google.", "Google Maps"},
	{"google.com/maps", "Google Maps"},
	{"docs.google.com", "Google Docs"},
	{"drive.google.com", "Google Drive"},
	{"calendar.google.com", "Google Calendar"},
	{"mail.google.com", "Gmail"},
	{"youtube.com", "YouTube"},
	{"youtu.be", "YouTube"},
	{"amazon.", "Amazon"},
	{"github.com", "GitHub"},
	{"wikipedia.org", "Wikipedia"},
	{"reddit.com", "Reddit"},
	{"yelp.com", "Yelp"},
	{"stackoverflow.com", "Stack Overflow"},
	{"notion.so", "Notion"},
	{"canva.com", "Canva"},
	{"etsy.com", "Etsy"},
	{"ikea.com", "IKEA"},
	{"spotify.com", "Spotify"},
	{"khanacademy.org", "Khan Academy"},
}

// Label returns a human-friendly name for a URL.
func Label(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return raw
	}
	host := strings.ToLower(u.Hostname())
	hostPath := host + u.EscapedPath()
	for _, k := range knownHosts {
		if strings.HasPrefix(k.match, ".") || strings.HasSuffix(k.match, ".") {
			if strings.Contains(host, k.match) {
				return k.label
			}
			continue
		}
		if strings.Contains(k.match, "/") {
			if strings.HasPrefix(strings.TrimPrefix(hostPath, "www."), k.match) {
				return k.label
			}
			continue
		}
		if host == k.match || strings.HasSuffix(host, "."+k.match) {
			return k.label
		}
	}
	return strings.TrimPrefix(host, "www.")
}

// Segments splits text into plain and link segments.
func Segments(text string) []Segment {
	var out []Segment
	last := 0
	for _, loc := range urlRe.FindAllStringIndex(text, -1) {
		start, end := loc[0], loc[1]
		raw := trimTrailing(text[start:end])
		end = start + len(raw)
		if start > last {
			out = append(out, Segment{Kind: KindText, Text: text[last:start]})
		}
		out = append(out, Segment{Kind: KindLink, Text: raw, URL: raw, Label: Label(raw)})
		last = end
	}
	if last < len(text) {
		out = append(out, Segment{Kind: KindText, Text: text[last:]})
	}
	return out
}

// trimTrailing drops sentence punctuation from the end of a URL. A closing
// parenthesis is kept when the URL itself opened one.
func trimTrailing(raw string) string {
	for raw != "" {
		c := raw[len(raw)-1]
		if !strings.ContainsRune(trailingPunct, rune(c)) {
			break
		}
		if c == ')' && strings.Count(raw, "(") >= strings.Count(raw, ")") {
			break
		}
		raw = raw[:len(raw)-1]
	}
	return raw
}

// Markdown renders every URL in text as [label](url).
func Markdown(text string) string {
	var b strings.Builder
	for _, s := range Segments(text) {
		if s.Kind == KindLink {
			b.WriteString("[" + s.Label + "](" + s.URL + ")")
			continue
		}
		b.WriteString(s.Text)
	}
	return b.String()
}

// URLs lists the URLs found in text in order of appearance.
func URLs(text string) []string {
	var out []string
	for _, s := range Segments(text) {
		if s.Kind == KindLink {
			out = append(out, s.URL)
		}
	}
	return out
}
