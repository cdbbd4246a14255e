// Package sanitize strips markup from client-supplied text before it is
// stored.
package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// StrictPolicy removes every tag and attribute.
var StrictPolicy = bluemonday.StrictPolicy()

// Text returns input with all HTML removed and surrounding space trimmed.
//
// bluemonday escapes the characters it keeps ("&" becomes "&amp;"). The
// API returns JSON, not HTML, so entities are decoded again; what remains
// is plain text with no live tags.
//
// bluemonday decodes entities before re-escaping, so its output no longer
// tells "&" from a literal "&amp;" typed by the client. Both are stored as
// "&": a client cannot store entity text verbatim.
func Text(input string) string {
	return strings.TrimSpace(html.UnescapeString(StrictPolicy.Sanitize(input)))
}
