// Package readtime estimates how long an article takes to read.
package readtime

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// WordsPerMinute is the assumed reading speed.
const WordsPerMinute = 200

// inline elements do not separate words: "read<b>ing</b>" is one word.
var inline = map[string]bool{
	"a": true, "abbr": true, "b": true, "bdi": true, "bdo": true, "cite": true,
	"code": true, "data": true, "dfn": true, "em": true, "i": true, "kbd": true,
	"mark": true, "q": true, "s": true, "samp": true, "small": true, "span": true,
	"strong": true, "sub": true, "sup": true, "time": true, "u": true, "var": true,
}

// Minutes returns the reading time of an HTML body, rounded up, at least 1.
func Minutes(body string) int {
	return ForWords(CountWords(body))
}

// ForWords converts a word count into minutes.
func ForWords(words int) int {
	if words <= 0 {
		return 1
	}
	return (words + WordsPerMinute - 1) / WordsPerMinute
}

// CountWords counts whitespace-separated words after markup is stripped.
func CountWords(body string) int {
	return len(strings.Fields(StripMarkup(body)))
}

// StripMarkup returns the visible text of an HTML fragment. Block boundaries
// become spaces, script and style contents are dropped.
func StripMarkup(body string) string {
	if strings.TrimSpace(body) == "" {
		return ""
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return body
	}
	doc.Find("script, style, noscript, template").Remove()

	var b strings.Builder
	for _, n := range doc.Nodes {
		writeText(&b, n)
	}
	return b.String()
}

func writeText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.CommentNode:
		return
	}

	sep := n.Type == html.ElementNode && !inline[n.Data]
	if sep {
		b.WriteByte(' ')
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}
	if sep {
		b.WriteByte(' ')
	}
}
