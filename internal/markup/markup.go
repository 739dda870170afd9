// Package markup escapes user text and renders Markdown to sanitized HTML.
package markup

import (
	"bytes"
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
)

// markdownSpecials are the ASCII punctuation characters that carry meaning in
// Markdown. CommonMark allows any of them to be backslash-escaped.
const markdownSpecials = "\\`*_{}[]()#+-.!<>|~&"

var (
	mdRenderer    goldmark.Markdown
	plainRenderer goldmark.Markdown
	htmlSanitizer *bluemonday.Policy
)

func init() {
	mdRenderer = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
	)

	plainRenderer = goldmark.New(
		goldmark.WithRendererOptions(gmhtml.WithHardWraps()),
	)

	htmlSanitizer = bluemonday.UGCPolicy()
}

// Escape HTML-escapes s (&, <, >, ' and ").
func Escape(s string) string {
	return html.EscapeString(s)
}

// EscapeMarkdown backslash-escapes every Markdown special character so the
// text renders literally.
func EscapeMarkdown(s string) string {
	var buf strings.Builder
	buf.Grow(len(s) + len(s)/8)

	for _, r := range s {
		if r < 0x80 && strings.ContainsRune(markdownSpecials, r) {
			buf.WriteByte('\\')
		}
		buf.WriteRune(r)
	}

	return buf.String()
}

// RenderMarkdown converts a markdown string to sanitized HTML.
// Returns empty string for empty input.
func RenderMarkdown(src string) string {
	if src == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(src), &buf); err != nil {
		return htmlSanitizer.Sanitize(src)
	}

	return htmlSanitizer.Sanitize(buf.String())
}

// RenderPlainText renders plain text as HTML paragraphs, keeping line breaks
// and showing every character literally.
func RenderPlainText(src string) string {
	if src == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := plainRenderer.Convert([]byte(EscapeMarkdown(src)), &buf); err != nil {
		return "<p>" + Escape(src) + "</p>"
	}

	return htmlSanitizer.Sanitize(buf.String())
}
