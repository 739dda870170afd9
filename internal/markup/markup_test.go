package markup

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscape(t *testing.T) {
	assert.Equal(t, "&lt;b&gt; &amp; &#34;q&#34; &#39;s&#39;", Escape(`<b> & "q" 's'`))
}

func TestEscapeMarkdown(t *testing.T) {
	assert.Equal(t, `\*bold\* \_x\_ \# h`, EscapeMarkdown("*bold* _x_ # h"))
	assert.Equal(t, "plain words", EscapeMarkdown("plain words"))
}

func TestRenderMarkdown_EmptyInput(t *testing.T) {
	assert.Equal(t, "", RenderMarkdown(""))
}

func TestRenderMarkdown_Bold(t *testing.T) {
	result := RenderMarkdown("**bold text**")
	assert.Contains(t, result, "<strong>bold text</strong>")
}

func TestRenderMarkdown_Link(t *testing.T) {
	result := RenderMarkdown("[click](https://example.com)")
	assert.Contains(t, result, `<a href="https://example.com"`)
	assert.Contains(t, result, "click</a>")
}

func TestRenderMarkdown_SanitizesScript(t *testing.T) {
	result := RenderMarkdown(`<script>alert("xss")</script>`)
	assert.NotContains(t, result, "<script>")
}

func TestRenderMarkdown_GFMStrikethrough(t *testing.T) {
	result := RenderMarkdown("~~deleted~~")
	assert.Contains(t, result, "<del>deleted</del>")
}

func TestRenderPlainText_KeepsMarkdownLiteral(t *testing.T) {
	result := RenderPlainText("**not bold**")
	assert.NotContains(t, result, "<strong>")
	assert.Contains(t, result, "**not bold**")
}

func TestRenderPlainText_EscapesHTML(t *testing.T) {
	result := RenderPlainText("<script>alert(1)</script>")
	assert.NotContains(t, result, "<script>")
	assert.Contains(t, result, "&lt;script&gt;")
}

func TestRenderPlainText_HardWraps(t *testing.T) {
	result := RenderPlainText("line one\nline two")
	assert.Contains(t, result, "<br")
}
