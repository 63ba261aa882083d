package transport

import (
	"errors"
	"net"
	"sync/atomic"
	"time"
)

// Listener is a bound TCP socket. Accepted connections are handed over to the callback,
// passed into Serve.
type Listener struct {
	l      *net.TCPListener
	closed *atomic.Bool
}

func bindTCP(addr string) (*net.TCPListener, error) {
	tcpaddr, err := net.ResolveTCPAddr("tcp", addr)
	if err != nil {
		return nil, err
	}

	return net.ListenTCP("tcp", tcpaddr)
}

// Bind binds a listening socket on the address.
func Bind(addr string) (*Listener, error) {
	l, err := bindTCP(addr)
	if err != nil {
		return nil, err
	}

	return &Listener{
		l:      l,
		closed: new(atomic.Bool),
	}, nil
}

// Addr returns the actually bound address. Useful when binding onto the port 0.
func (l *Listener) Addr() net.Addr {
	return l.l.Addr()
}

// Serve accepts connections until the listener is closed. Temporary accept failures
// (e.g. running out of file descriptors) are retried with a growing delay.
func (l *Listener) Serve(cb func(conn net.Conn)) {
	var delay time.Duration

	for {
		conn, err := l.l.Accept()
		if err != nil {
			if l.closed.Load() || errors.Is(err, net.ErrClosed) {
				return
			}

			if delay == 0 {
				delay = 5 * time.Millisecond
			} else if delay *= 2; delay > time.Second {
				delay = time.Second
			}

			time.Sleep(delay)
			continue
		}

		delay = 0
		cb(conn)
	}
}

// Close closes the socket, so Serve returns. Returns false if it was already closed.
func (l *Listener) Close() bool {
	if l.closed.Swap(true) {
		return false
	}

	_ = l.l.Close()
	return true
}
