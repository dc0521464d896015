package utils

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strictPolicy = bluemonday.StrictPolicy()

// PlainText strips every tag from user input and returns readable text.
// bluemonday escapes what it keeps, so entities are decoded again; the
// result is stored as text and escaped on output.
func PlainText(source string) string {
	stripped := strictPolicy.Sanitize(source)
	return strings.TrimSpace(html.UnescapeString(stripped))
}
