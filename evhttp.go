package evhttp

import (
	"fmt"

	"github.com/indigo-web/evhttp/config"
	"github.com/indigo-web/evhttp/http"
	"github.com/indigo-web/evhttp/loop"
)

type hooks struct {
	OnStart, OnStop func()
}

// Builder puts a loop, the servers on it and the trapped signals together.
type Builder struct {
	loop     *loop.Loop
	cfg      *config.Config
	logger   http.Logger
	hooks    hooks
	services []*http.Service
	watches  []*loop.SignalWatch
}

// New returns a new Builder with its own loop.
func New() *Builder {
	return &Builder{
		loop: loop.New(),
		cfg:  config.Default(),
	}
}

// Tune replaces the default config for all the servers created afterwards.
func (b *Builder) Tune(cfg *config.Config) *Builder {
	if cfg != nil {
		b.cfg = cfg
	}

	return b
}

// Logger replaces the logger of all the servers created afterwards.
func (b *Builder) Logger(logger http.Logger) *Builder {
	b.logger = logger
	return b
}

// NotifyOnStart calls the callback on the loop goroutine once Dispatch starts the loop.
func (b *Builder) NotifyOnStart(cb func()) *Builder {
	b.hooks.OnStart = cb
	return b
}

// NotifyOnStop calls the callback once the loop returned. At that moment no callback is
// running anymore, however connections may still be open until Close.
func (b *Builder) NotifyOnStop(cb func()) *Builder {
	b.hooks.OnStop = cb
	return b
}

// Server creates a service listening on the host and port and passes it to setup, if
// it isn't nil.
func (b *Builder) Server(host string, port int, setup func(*http.Service)) (*http.Service, error) {
	service := http.NewService(b.loop, b.cfg)
	if b.logger != nil {
		service.SetLogger(b.logger)
	}

	if !service.BindSocket(host, port) {
		return nil, fmt.Errorf("evhttp: can't bind socket %s:%d", host, port)
	}

	if setup != nil {
		setup(service)
	}

	b.services = append(b.services, service)
	return service, nil
}

// Signal traps the signal by its name, e.g. INT or SIGTERM.
func (b *Builder) Signal(name string, handler loop.SignalHandler) (*loop.SignalWatch, error) {
	watch, err := b.loop.Trap(name, handler)
	if err != nil {
		return nil, err
	}

	b.watches = append(b.watches, watch)
	return watch, nil
}

// Loop returns the underlying loop, e.g. to stop it from a handler.
func (b *Builder) Loop() *loop.Loop {
	return b.loop
}

// Dispatch runs the loop. It blocks until the loop is stopped or has nothing left to wait
// for.
func (b *Builder) Dispatch() (loop.Status, error) {
	if b.loop.Running() {
		return loop.Failed, loop.ErrAlreadyRunning
	}

	if b.hooks.OnStart != nil {
		b.loop.Post(b.hooks.OnStart)
	}

	status, err := b.loop.Run()

	if b.hooks.OnStop != nil {
		b.hooks.OnStop()
	}

	return status, err
}

// Close closes all the servers and destroys the trapped signals.
func (b *Builder) Close() error {
	for _, service := range b.services {
		if err := service.Close(); err != nil {
			return err
		}
	}

	b.services = nil

	for _, watch := range b.watches {
		watch.Destroy()
	}

	b.watches = nil

	return nil
}
