package loop

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/eapache/queue"
)

// Status describes why Run returned.
type Status uint8

const (
	// Drained means there was nothing left to wait for: no open sources and no pending events.
	Drained Status = iota
	// Stopped means the loop was asked to exit via Stop or Break.
	Stopped
	// Failed means the loop couldn't run at all.
	Failed
)

func (s Status) String() string {
	switch s {
	case Drained:
		return "drained"
	case Stopped:
		return "stopped"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

var ErrAlreadyRunning = errors.New("loop is already running")

// Loop is a single-goroutine event loop. Callbacks are posted from any goroutine and are
// executed one by one, in the order they were posted, by the goroutine calling Run.
type Loop struct {
	mu      sync.Mutex
	pending *queue.Queue
	sources int
	traps   []*SignalWatch
	wake    chan struct{}

	running  atomic.Bool
	stopping atomic.Bool
	breaking atomic.Bool
}

func New() *Loop {
	return &Loop{
		pending: queue.New(),
		wake:    make(chan struct{}, 1),
	}
}

// Run blocks, executing callbacks until there's nothing left to wait for or the loop
// is stopped.
func (l *Loop) Run() (Status, error) {
	if !l.running.CompareAndSwap(false, true) {
		return Failed, ErrAlreadyRunning
	}

	defer l.running.Store(false)
	l.stopping.Store(false)
	l.breaking.Store(false)

	for {
		if l.stopping.Load() || l.breaking.Load() {
			return Stopped, nil
		}

		l.mu.Lock()
		due, sources := l.pending.Length(), l.sources
		l.mu.Unlock()

		if due == 0 {
			if sources == 0 {
				return Drained, nil
			}

			<-l.wake
			continue
		}

		// events posted by the callbacks of this cycle are left for the next one
		for range due {
			l.pop()()

			if l.breaking.Load() {
				return Stopped, nil
			}
		}
	}
}

// Stop makes the loop exit once the events which were due at the beginning of the current
// cycle are processed. Returns false if the loop isn't running.
func (l *Loop) Stop() bool {
	if !l.running.Load() {
		return false
	}

	l.stopping.Store(true)
	l.notify()

	return true
}

// Break makes the loop exit right after the currently running callback. Pending events are
// kept till the next Run. Returns false if the loop isn't running.
func (l *Loop) Break() bool {
	if !l.running.Load() {
		return false
	}

	l.breaking.Store(true)
	l.notify()

	return true
}

func (l *Loop) Running() bool {
	return l.running.Load()
}

// Post enqueues the callback. It's safe to call from any goroutine.
func (l *Loop) Post(cb func()) {
	l.mu.Lock()
	l.pending.Add(cb)
	l.mu.Unlock()
	l.notify()
}

// Register opens a new event source. The loop doesn't drain while it's open.
func (l *Loop) Register() *Source {
	l.mu.Lock()
	l.sources++
	l.mu.Unlock()

	return &Source{loop: l}
}

// Trap watches the signal for the whole lifetime of the loop, or until the watch is
// destroyed.
func (l *Loop) Trap(name string, handler SignalHandler) (*SignalWatch, error) {
	watch, err := Watch(l, name, handler)
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.traps = append(l.traps, watch)
	l.mu.Unlock()

	return watch, nil
}

// Signals returns the names of currently trapped signals in the order they were trapped.
func (l *Loop) Signals() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	names := make([]string, 0, len(l.traps))
	for _, trap := range l.traps {
		names = append(names, trap.Name())
	}

	return names
}

func (l *Loop) untrap(watch *SignalWatch) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i, trap := range l.traps {
		if trap == watch {
			l.traps = append(l.traps[:i], l.traps[i+1:]...)
			return
		}
	}
}

func (l *Loop) pop() func() {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.pending.Remove().(func())
}

func (l *Loop) unregister() {
	l.mu.Lock()
	l.sources--
	l.mu.Unlock()
	l.notify()
}

func (l *Loop) notify() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Source is anything that may still produce events: a listener, a connection, a signal
// watch.
type Source struct {
	loop   *Loop
	closed atomic.Bool
}

// Post enqueues the callback unless the source is closed.
func (s *Source) Post(cb func()) bool {
	if s.closed.Load() {
		return false
	}

	s.loop.Post(cb)
	return true
}

// Close unregisters the source. Only the first call has an effect.
func (s *Source) Close() bool {
	if !s.closed.CompareAndSwap(false, true) {
		return false
	}

	s.loop.unregister()
	return true
}
