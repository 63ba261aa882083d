// Package gateway runs applications written against a CGI-like contract: the application
// receives the request as a set of environment variables together with the body, and
// returns the status code, headers and a lazily produced body.
package gateway

import (
	"bytes"
	"errors"
	"iter"
	"net"
	"strconv"
	"strings"

	"github.com/indigo-web/evhttp/config"
	"github.com/indigo-web/evhttp/http"
	"github.com/indigo-web/evhttp/http/status"
	"github.com/indigo-web/evhttp/kv"
	"github.com/indigo-web/evhttp/loop"
	"github.com/indigo-web/utils/strcomp"
)

const Software = "evhttp"

// Env describes a single request.
type Env struct {
	Vars  map[string]string
	Input *bytes.Reader
}

// Response is what the application replies with. Header values containing newlines are
// sent as several headers with the same key.
type Response struct {
	Code    status.Code
	Headers *kv.Storage
	Body    iter.Seq[[]byte]
	// Close, if set, is called once the body is sent, even if sending failed.
	Close func()
}

type App func(env *Env) Response

// Server is the address the application is served on, as reported in SERVER_NAME and
// SERVER_PORT.
type Server struct {
	Name string
	Port int
}

// Environ builds the environment of the request.
func Environ(ex *http.Exchange, server Server) *Env {
	vars := map[string]string{
		"REQUEST_METHOD":  ex.RawMethod(),
		"SCRIPT_NAME":     "",
		"REQUEST_PATH":    "/",
		"PATH_INFO":       "/",
		"QUERY_STRING":    "",
		"SERVER_NAME":     server.Name,
		"SERVER_PORT":     strconv.Itoa(server.Port),
		"SERVER_SOFTWARE": Software,
		"SERVER_PROTOCOL": "HTTP/1.1",
		"REMOTE_ADDR":     ex.RemoteHost(),
		"HTTP_VERSION":    ex.HTTPVersion(),
		"URL_SCHEME":      "http",
	}

	if path, found := ex.Path(); found {
		vars["PATH_INFO"] = path
	}

	if query, found := ex.Query(); found {
		vars["QUERY_STRING"] = query
	}

	if host := ex.Host(); len(host) > 0 {
		vars["SERVER_NAME"] = host
	}

	if scheme, found := ex.Scheme(); found {
		vars["URL_SCHEME"] = scheme
	}

	for key, value := range ex.InputHeaders() {
		vars[envKey(key)] = value
	}

	return &Env{
		Vars:  vars,
		Input: bytes.NewReader(ex.Body()),
	}
}

func envKey(header string) string {
	key := strings.ToUpper(strings.ReplaceAll(header, "-", "_"))
	if strcomp.EqualFold(header, "Content-Type") || strcomp.EqualFold(header, "Content-Length") {
		return key
	}

	return "HTTP_" + key
}

// Handler adapts the application to a request handler. The reply is always streamed.
func Handler(app App, server Server) http.Handler {
	return func(ex *http.Exchange) {
		response := app(Environ(ex, server))
		if response.Close != nil {
			defer response.Close()
		}

		if response.Headers != nil {
			for key, value := range response.Headers.Pairs() {
				for _, line := range strings.Split(value, "\n") {
					ex.AddOutputHeader(key, line)
				}
			}
		}

		_ = ex.SendReply(response.Code, nil, response.Body)
	}
}

var ErrBind = errors.New("cannot bind the socket")

// Options of Run.
type Options struct {
	Host string
	Port int
	// Timeout is the idle timeout of connections in seconds. Zero keeps the default.
	Timeout int
	Config  *config.Config
	Logger  http.Logger
}

// Run serves the application until SIGINT or SIGTERM is received.
func Run(app App, opts Options) (loop.Status, error) {
	l := loop.New()
	service := http.NewService(l, opts.Config)
	if opts.Logger != nil {
		service.SetLogger(opts.Logger)
	}

	if opts.Timeout != 0 {
		service.SetTimeout(opts.Timeout)
	}

	if !service.BindSocket(opts.Host, opts.Port) {
		return loop.Failed, ErrBind
	}

	defer service.Close()

	server := Server{Name: opts.Host, Port: opts.Port}
	if addr, ok := service.Addrs()[0].(*net.TCPAddr); ok {
		server.Port = addr.Port
	}

	if err := service.SetRequestHandler(Handler(app, server)); err != nil {
		return loop.Failed, err
	}

	for _, name := range []string{"INT", "TERM"} {
		watch, err := l.Trap(name, func() { l.Stop() })
		if err != nil {
			return loop.Failed, err
		}

		defer watch.Destroy()
	}

	return l.Run()
}
