package transport

import (
	"net"
	"time"
)

// Client is a connection as the protocol layer sees it: reads come in pieces of the
// internal buffer, and the unconsumed tail of a piece can be pushed back for the next read.
type Client interface {
	Read() ([]byte, error)
	Pushback([]byte)
	Write([]byte) (int, error)
	Remote() net.Addr
	Close() error
}

// Timeout returns the currently effective idle timeout. It's a function because services
// are free to change their timeout while connections are alive.
type Timeout func() time.Duration

type client struct {
	conn    net.Conn
	buff    []byte
	pending []byte
	timeout Timeout
}

func NewClient(conn net.Conn, timeout Timeout, buff []byte) Client {
	return &client{conn: conn, buff: buff, timeout: timeout}
}

// Read returns the pushed back data if any, otherwise reads from the socket. The returned
// slice is valid till the next Read. The idle timeout is armed before every read.
func (c *client) Read() ([]byte, error) {
	if len(c.pending) > 0 {
		pending := c.pending
		c.pending = nil

		return pending, nil
	}

	if err := c.conn.SetReadDeadline(c.deadline()); err != nil {
		return nil, err
	}

	n, err := c.conn.Read(c.buff)
	return c.buff[:n], err
}

// Pushback makes the next Read return b. Only one piece is held at a time.
func (c *client) Pushback(b []byte) {
	c.pending = b
}

// Write writes data into the underlying connection. The idle timeout bounds the
// write as well, so a peer which stopped reading can't hang the writer forever.
func (c *client) Write(b []byte) (int, error) {
	if err := c.conn.SetWriteDeadline(c.deadline()); err != nil {
		return 0, err
	}

	return c.conn.Write(b)
}

func (c *client) Remote() net.Addr {
	return c.conn.RemoteAddr()
}

func (c *client) Close() error {
	return c.conn.Close()
}

func (c *client) deadline() time.Time {
	if c.timeout == nil {
		return time.Time{}
	}

	timeout := c.timeout()
	if timeout <= 0 {
		return time.Time{}
	}

	return time.Now().Add(timeout)
}
