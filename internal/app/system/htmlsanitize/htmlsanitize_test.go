package htmlsanitize_test

import (
	"strings"
	"testing"

	"github.com/dalemusser/helphub/internal/app/system/htmlsanitize"
)

func TestSanitizePreservesSafeHTML(t *testing.T) {
	input := "<p><strong>Bold</strong> and <em>italic</em></p>"
	if got := htmlsanitize.Sanitize(input); got != input {
		t.Errorf("safe HTML changed: %q", got)
	}
}

func TestSanitizeRemovesScript(t *testing.T) {
	got := htmlsanitize.Sanitize("<p>Hello</p><script>alert('xss')</script>")
	if got != "<p>Hello</p>" {
		t.Errorf("script not removed: %q", got)
	}
}

func TestSanitizeRemovesEventHandlers(t *testing.T) {
	got := htmlsanitize.Sanitize(`<img src="x" onerror="alert('xss')">`)
	if strings.Contains(got, "onerror") {
		t.Errorf("onerror survived: %q", got)
	}
}

func TestSanitizeAllowsCodeBlocks(t *testing.T) {
	input := "<pre><code>func main() {}</code></pre>"
	if got := htmlsanitize.Sanitize(input); got != input {
		t.Errorf("code block changed: %q", got)
	}
}

func TestSanitizeAllowsTables(t *testing.T) {
	input := "<table><tr><td>Cell</td></tr></table>"
	got := htmlsanitize.Sanitize(input)
	if !strings.Contains(got, "<td>Cell</td>") {
		t.Errorf("table not preserved: %q", got)
	}
}

func TestStripTags(t *testing.T) {
	if got := htmlsanitize.StripTags("<p>Hello <b>there</b></p>"); got != "Hello there" {
		t.Errorf("got %q, want %q", got, "Hello there")
	}
	if got := htmlsanitize.StripTags("plain title"); got != "plain title" {
		t.Errorf("plain text changed: %q", got)
	}
}
