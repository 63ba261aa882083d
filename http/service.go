package http

import (
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/indigo-web/evhttp/config"
	"github.com/indigo-web/evhttp/http/status"
	"github.com/indigo-web/evhttp/internal/protocol/http1"
	"github.com/indigo-web/evhttp/internal/vhost"
	"github.com/indigo-web/evhttp/loop"
	"github.com/indigo-web/evhttp/transport"
)

// Handler is called on the loop goroutine for every request. It must eventually finalize
// the reply, otherwise the connection hangs until the service is closed.
type Handler func(*Exchange)

// Service accepts connections on its sockets and dispatches the requests to the handler.
// Services may be nested as virtual hosts: requests are then dispatched to the most
// specific child, whose pattern matches the requested host.
//
// All the methods, except Close, must be called either before the loop runs, or on the
// loop goroutine.
type Service struct {
	loop    *loop.Loop
	cfg     *config.Config
	logger  Logger
	timeout atomic.Int64
	handler Handler

	parent   *Service
	pattern  vhost.Pattern
	vhosts   []*Service
	patterns []vhost.Pattern

	mu        sync.Mutex
	closed    bool
	listeners []*transport.Listener
	conns     map[*conn]struct{}
}

// NewService creates a service on the loop. Nil config means config.Default().
func NewService(l *loop.Loop, cfg *config.Config) *Service {
	if cfg == nil {
		cfg = config.Default()
	}

	s := &Service{
		loop:   l,
		cfg:    cfg,
		logger: defaultLogger,
		conns:  make(map[*conn]struct{}),
	}
	s.timeout.Store(int64(cfg.NET.ReadTimeout))

	return s
}

// BindSocket starts listening on the address and port. It may be called multiple times in
// order to listen on several sockets. Port 0 picks a random port, see Addrs. Returns false
// if the socket can't be bound, or if the service is a virtual host.
func (s *Service) BindSocket(address string, port int) bool {
	if s.parent != nil {
		return false
	}

	addr := net.JoinHostPort(address, strconv.Itoa(port))
	listener, err := transport.Bind(addr)
	if err != nil {
		s.logger.Printf("evhttp: cannot bind %s: %s", addr, err)
		return false
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		listener.Close()
		return false
	}

	s.listeners = append(s.listeners, listener)
	s.mu.Unlock()

	source := s.loop.Register()
	go func() {
		listener.Serve(func(netconn net.Conn) {
			if !source.Post(func() { s.accept(netconn) }) {
				_ = netconn.Close()
			}
		})
		source.Close()
	}()

	return true
}

// Addrs returns the addresses of all the bound sockets.
func (s *Service) Addrs() []net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()

	addrs := make([]net.Addr, len(s.listeners))
	for i, listener := range s.listeners {
		addrs[i] = listener.Addr()
	}

	return addrs
}

// SetRequestHandler installs the handler for all the requests dispatched to the service.
func (s *Service) SetRequestHandler(handler Handler) error {
	if handler == nil {
		return ErrNilHandler
	}

	s.handler = handler
	return nil
}

// SetTimeout sets the idle timeout of connections in seconds. It's also the deadline of
// every write. Zero or negative disables timeouts. Takes effect on already open
// connections starting from their next read or write.
func (s *Service) SetTimeout(seconds int) {
	s.timeout.Store(int64(time.Duration(seconds) * time.Second))
}

// Timeout returns the current idle timeout.
func (s *Service) Timeout() time.Duration {
	return time.Duration(s.timeout.Load())
}

// SetLogger replaces the logger, which is log.Default() by default.
func (s *Service) SetLogger(logger Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// AddVirtualHost attaches the child to serve requests to hosts matching the pattern. The
// pattern is a case-insensitive shell glob, e.g. *.example.com. Returns false if the
// pattern is malformed, or the child can't be attached: it's nil, the service itself or
// one of its parents, belongs to another loop, is already attached or has bound sockets.
func (s *Service) AddVirtualHost(pattern string, child *Service) bool {
	if child == nil || child.loop != s.loop || child.parent != nil {
		return false
	}

	for ancestor := s; ancestor != nil; ancestor = ancestor.parent {
		if ancestor == child {
			return false
		}
	}

	if len(child.Addrs()) > 0 {
		return false
	}

	compiled, err := vhost.Compile(pattern)
	if err != nil {
		return false
	}

	child.parent = s
	child.pattern = compiled
	s.vhosts = append(s.vhosts, child)
	s.patterns = append(s.patterns, compiled)

	return true
}

// RemoveVirtualHost detaches the child. Returns false if it isn't attached to the service.
func (s *Service) RemoveVirtualHost(child *Service) bool {
	for i, vh := range s.vhosts {
		if vh == child {
			s.vhosts = append(s.vhosts[:i], s.vhosts[i+1:]...)
			s.patterns = append(s.patterns[:i], s.patterns[i+1:]...)
			child.parent = nil
			child.pattern = vhost.Pattern{}

			return true
		}
	}

	return false
}

// VHost creates a virtual host sharing the loop and the config, passes it to setup and
// attaches it. Nil is returned if the pattern is malformed.
func (s *Service) VHost(pattern string, setup func(*Service)) *Service {
	child := NewService(s.loop, s.cfg)
	child.logger = s.logger
	if !s.AddVirtualHost(pattern, child) {
		return nil
	}

	if setup != nil {
		setup(child)
	}

	return child
}

// Parent returns the service the virtual host is attached to, nil for the root.
func (s *Service) Parent() *Service {
	return s.parent
}

// Pattern returns the host pattern the virtual host is attached with.
func (s *Service) Pattern() string {
	return s.pattern.String()
}

// Close stops listening and closes all the connections. Closing a virtual host has no
// effect, as it owns neither sockets nor connections.
func (s *Service) Close() error {
	if s.parent != nil {
		return nil
	}

	s.mu.Lock()
	s.closed = true
	listeners, conns := s.listeners, s.conns
	s.listeners, s.conns = nil, make(map[*conn]struct{})
	s.mu.Unlock()

	for _, listener := range listeners {
		listener.Close()
	}

	for c := range conns {
		c.Close()
	}

	return nil
}

func (s *Service) accept(netconn net.Conn) {
	c := newConn(s, netconn)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		c.release()
		return
	}

	s.conns[c] = struct{}{}
	s.mu.Unlock()

	go c.serve()
}

func (s *Service) forget(c *conn) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
}

func (s *Service) dispatch(c *conn, request *http1.Request) {
	ex, err := newExchange(s.cfg, request, c.client, c.finish)
	if err != nil {
		c.finish(false)
		return
	}

	target := s.resolve(request.Host)
	if target.handler == nil {
		_ = ex.SendError(status.NotFound, "")
		return
	}

	target.handler(ex)
}

// resolve picks the most specific virtual host for the host, descending as deep as
// possible.
func (s *Service) resolve(host string) *Service {
	if len(host) == 0 {
		return s
	}

	if i := vhost.Best(host, s.patterns); i != -1 {
		return s.vhosts[i].resolve(host)
	}

	return s
}
