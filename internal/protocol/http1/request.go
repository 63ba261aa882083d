package http1

import (
	"net/url"

	"github.com/indigo-web/evhttp/http/method"
	"github.com/indigo-web/evhttp/http/proto"
	"github.com/indigo-web/evhttp/kv"
)

// Request is a parsed request head together with its body, read fully into memory.
// All the strings are owned by the request and stay valid after the connection moves on.
type Request struct {
	Method    method.Method
	RawMethod string
	// URI is the request-target exactly as received.
	URI   string
	URL   *url.URL
	Proto proto.Proto
	// Headers preserve the keys in the case they were received in.
	Headers *kv.Storage
	// Host is the authority of an absolute-form request-target, otherwise the Host
	// header value. May include a port.
	Host      string
	Body      []byte
	Chunked   bool
	KeepAlive bool
}

// Scheme returns the scheme of an absolute-form request-target.
func (r *Request) Scheme() (string, bool) {
	if r.URL == nil || len(r.URL.Scheme) == 0 {
		return "", false
	}

	return r.URL.Scheme, true
}

// Path returns the path, escaped the same way as it was received.
func (r *Request) Path() (string, bool) {
	if r.URL == nil {
		return "", false
	}

	path := r.URL.EscapedPath()
	if len(path) == 0 {
		if r.URL.Opaque != "" {
			return r.URL.Opaque, true
		}

		return "", false
	}

	return path, true
}

// Query returns the raw query string without the leading question mark.
func (r *Request) Query() (string, bool) {
	if r.URL == nil || (len(r.URL.RawQuery) == 0 && !r.URL.ForceQuery) {
		return "", false
	}

	return r.URL.RawQuery, true
}
