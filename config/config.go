package config

import (
	"time"
)

// Limit is a pair of boundaries: Default is what is pre-allocated, Maximal is the point
// where growth stops and the request is refused.
type Limit struct {
	Default, Maximal int
}

type (
	URI struct {
		// RequestLineSize limits the request line: method, URI and protocol together. Requests
		// exceeding the maximal boundary are answered with 414 Request URI Too Long.
		RequestLineSize Limit
	}

	Headers struct {
		// Number is the count of request headers. Requests carrying more than Maximal are
		// answered with 431.
		Number Limit
		// Space limits the memory occupied by the request head, request line excluded.
		Space Limit
		// OutputPrealloc is the initial capacity of the reply headers of every exchange.
		OutputPrealloc int
	}

	Body struct {
		// MaxSize is the largest request body accepted, either plain or chunked. Bigger
		// ones are refused with 413 Request Entity Too Large.
		MaxSize uint64
	}

	NET struct {
		// ReadBufferSize is the size of the buffer used to read from the socket.
		ReadBufferSize int
		// ReadTimeout is the default idle timeout of connections and the deadline of every
		// write. Services override it with Service.SetTimeout.
		ReadTimeout time.Duration
		// WriteBufferSize bounds the staging buffer of an exchange, where a chunk is framed
		// before being written. Bigger chunks take several syscalls.
		WriteBufferSize Limit
	}
)

// Config holds the limits and pre-allocations shared by the services of a loop.
//
// Always start from Default() and modify it. A Config built by hand has zero limits, which
// refuse every request.
type Config struct {
	URI     URI
	Headers Headers
	Body    Body
	NET     NET
}

// Default returns the default config. Maximal boundaries are rather permissive.
func Default() *Config {
	return &Config{
		URI: URI{
			RequestLineSize: Limit{
				Default: 2 * 1024,
				// usual limits are 4-8kb
				Maximal: 16 * 1024,
			},
		},
		Headers: Headers{
			Number: Limit{
				Default: 10,
				Maximal: 50,
			},
			Space: Limit{
				Default: 1 * 1024,
				Maximal: 16 * 1024, // long cookies
			},
			OutputPrealloc: 8,
		},
		Body: Body{
			MaxSize: 512 * 1024 * 1024,
		},
		NET: NET{
			ReadBufferSize: 4 * 1024,
			ReadTimeout:    50 * time.Second,
			WriteBufferSize: Limit{
				Default: 2 * 1024,
				Maximal: 64 * 1024,
			},
		},
	}
}
