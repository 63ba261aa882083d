package mime

import "strings"

type (
	MIME    = string
	Charset = string
)

const (
	Plain MIME = "text/plain"
	HTML  MIME = "text/html"
	JSON  MIME = "application/json"
)

const UTF8 Charset = "utf-8"

// WithCharset appends the charset parameter.
func WithCharset(mime MIME, charset Charset) string {
	return mime + "; charset=" + charset
}

// Complies tells whether the Content-Type value denotes the MIME, ignoring its parameters.
// An absent Content-Type complies with anything.
func Complies(mime MIME, with string) bool {
	with, _, _ = strings.Cut(with, ";")
	with = strings.TrimSpace(with)
	return len(with) == 0 || strings.EqualFold(with, mime)
}
