package http

import (
	"errors"
	"io"
	"net"
	"os"
	"sync"

	"github.com/dchest/uniuri"
	"github.com/indigo-web/evhttp/http/proto"
	"github.com/indigo-web/evhttp/http/status"
	"github.com/indigo-web/evhttp/internal/protocol/http1"
	"github.com/indigo-web/evhttp/kv"
	"github.com/indigo-web/evhttp/loop"
	"github.com/indigo-web/evhttp/transport"
)

const continueResponse = "HTTP/1.1 100 Continue\r\n\r\n"

// conn serves a single connection. Requests are read and parsed on its own goroutine, while
// everything else happens on the loop goroutine. The next request isn't read until the
// current exchange is finalized.
type conn struct {
	id        string
	service   *Service
	client    transport.Client
	parser    *http1.Parser
	source    *loop.Source
	finished  chan bool
	done      chan struct{}
	closeOnce sync.Once
}

func newConn(service *Service, netconn net.Conn) *conn {
	cfg := service.cfg
	client := transport.NewClient(netconn, service.Timeout, make([]byte, cfg.NET.ReadBufferSize))
	c := &conn{
		id:       uniuri.New(),
		service:  service,
		client:   client,
		parser:   http1.NewParser(cfg, client),
		source:   service.loop.Register(),
		finished: make(chan bool, 1),
		done:     make(chan struct{}),
	}

	c.parser.Continue = func() error {
		_, err := client.Write([]byte(continueResponse))
		return err
	}

	return c
}

func (c *conn) serve() {
	defer c.release()

	for {
		request, err := c.parser.Next()
		if err != nil {
			c.reject(err)
			return
		}

		if !c.source.Post(func() { c.service.dispatch(c, request) }) {
			return
		}

		select {
		case keepAlive := <-c.finished:
			if !keepAlive {
				return
			}
		case <-c.done:
			return
		}
	}
}

// reject answers malformed requests with the corresponding error. Errors of any other
// kind mean the connection is gone.
func (c *conn) reject(err error) {
	var httpErr status.HTTPError
	if !errors.As(err, &httpErr) {
		if !isQuiet(err) {
			c.service.logger.Printf("evhttp: connection %s: %s", c.id, err)
		}

		return
	}

	c.service.logger.Printf("evhttp: connection %s: malformed request: %s", c.id, err)

	posted := c.source.Post(func() {
		ex, _ := newExchange(c.service.cfg, &http1.Request{
			Proto:   proto.HTTP11,
			Headers: kv.New(),
		}, c.client, c.finish)
		_ = ex.SendError(httpErr.Code, "")
	})
	if !posted {
		return
	}

	select {
	case <-c.finished:
	case <-c.done:
	}
}

func isQuiet(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, os.ErrDeadlineExceeded)
}

// finish is called by the exchange once the reply is finalized.
func (c *conn) finish(keepAlive bool) {
	select {
	case c.finished <- keepAlive:
	default:
	}
}

// Close closes the socket. The serving goroutine notices it and releases the rest.
func (c *conn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.client.Close()
	})
}

func (c *conn) release() {
	c.Close()
	c.service.forget(c)
	c.source.Close()
}
