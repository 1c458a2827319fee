package linkify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLabel(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.google.com/maps/place/Library", "Google Maps"},
		{"https://maps.google.com/?q=pharmacy", "Google Maps"},
		{"https://docs.google.com/document/d/abc", "Google Docs"},
		{"https://www.youtube.com/watch?v=x", "YouTube"},
		{"https://youtu.be/x", "YouTube"},
		{"https://www.amazon.co.uk/dp/123", "Amazon"},
		{"https://github.com/golang/go", "GitHub"},
		{"https://en.wikipedia.org/wiki/Go", "Wikipedia"},
		{"https://www.example.org/page", "example.org"},
		{"https://www.google.com/search?q=x", "google.com"},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.want, Label(tt.url))
		})
	}
}

func TestSegmentsTrailingPunctuation(t *testing.T) {
	segs := Segments("Try https://www.yelp.com/biz/cafe. Or (https://github.com/x/y), ok?")
	require.Len(t, segs, 5)
	assert.Equal(t, Segment{Kind: KindText, Text: "Try "}, segs[0])
	assert.Equal(t, "https://www.yelp.com/biz/cafe", segs[1].URL)
	assert.Equal(t, "Yelp", segs[1].Label)
	assert.Equal(t, ". Or (", segs[2].Text)
	assert.Equal(t, "https://github.com/x/y", segs[3].URL)
	assert.Equal(t, "), ok?", segs[4].Text)
}

func TestSegmentsKeepsBalancedParens(t *testing.T) {
	segs := Segments("see https://en.wikipedia.org/wiki/Go_(programming_language)")
	require.Len(t, segs, 2)
	assert.Equal(t, "https://en.wikipedia.org/wiki/Go_(programming_language)", segs[1].URL)
}

func TestSegmentsPlainText(t *testing.T) {
	segs := Segments("no links here")
	require.Len(t, segs, 1)
	assert.Equal(t, KindText, segs[0].Kind)
	assert.Empty(t, Segments(""))
}

func TestMarkdownMultipleURLs(t *testing.T) {
	got := Markdown("Watch https://youtu.be/abc then read https://reddit.com/r/adhd!")
	assert.Equal(t, "Watch [YouTube](https://youtu.be/abc) then read [Reddit](https://reddit.com/r/adhd)!", got)
	assert.Equal(t, []string{"https://youtu.be/abc", "https://reddit.com/r/adhd"}, URLs("Watch https://youtu.be/abc then read https://reddit.com/r/adhd!"))
}
