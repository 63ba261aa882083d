package dummy

import (
	"io"
	"net"

	"github.com/indigo-web/evhttp/transport"
)

var _ transport.Client = new(Client)

// Client returns the pieces of data it was initialised with one by one, and io.EOF
// afterwards. It also tracks all the written data, making it thereby a universal mock
// suitable for most of the tests.
type Client struct {
	closed  bool
	pointer int
	tmp     []byte
	written []byte
	data    [][]byte
	remote  net.Addr
	// WriteErr, if set, is returned by every Write call.
	WriteErr error
}

func NewMockClient(data ...[]byte) *Client {
	return &Client{
		data:   data,
		remote: &net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 50000},
	}
}

// NewNopClient returns a client which has nothing to read.
func NewNopClient() *Client {
	return NewMockClient()
}

func (c *Client) Read() (data []byte, err error) {
	if c.closed {
		return nil, io.EOF
	}

	if len(c.tmp) > 0 {
		data, c.tmp = c.tmp, nil

		return data, nil
	}

	if c.pointer >= len(c.data) {
		return nil, io.EOF
	}

	piece := c.data[c.pointer]
	c.pointer++

	return piece, nil
}

func (c *Client) Pushback(takeback []byte) {
	c.tmp = takeback
}

func (c *Client) Write(p []byte) (int, error) {
	if c.WriteErr != nil {
		return 0, c.WriteErr
	}

	c.written = append(c.written, p...)
	return len(p), nil
}

// Written returns everything written so far.
func (c *Client) Written() string {
	return string(c.written)
}

// Flush returns everything written so far and forgets it.
func (c *Client) Flush() string {
	written := string(c.written)
	c.written = c.written[:0]

	return written
}

func (c *Client) Remote() net.Addr {
	return c.remote
}

// WithRemote overrides the remote address.
func (c *Client) WithRemote(addr net.Addr) *Client {
	c.remote = addr
	return c
}

func (c *Client) Close() error {
	c.closed = true
	return nil
}

// Closed tells whether the Close was called.
func (c *Client) Closed() bool {
	return c.closed
}
