// Package htmlsanitize cleans user-supplied article content before it is
// stored. Bodies may carry rich HTML; titles and descriptions are reduced
// to plain text.
package htmlsanitize

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	richPolicy   = buildRichPolicy()
	strictPolicy = bluemonday.StrictPolicy()
)

func buildRichPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowTables()
	p.AllowImages()
	p.AllowAttrs("style").OnElements("table", "tr", "td", "th")
	return p
}

// Sanitize removes scripts, event handlers, and other unsafe markup while
// keeping formatting, links, tables, images, and code blocks.
func Sanitize(html string) string {
	return richPolicy.Sanitize(html)
}

// StripTags removes all markup, leaving plain text.
func StripTags(s string) string {
	return strings.TrimSpace(strictPolicy.Sanitize(s))
}
