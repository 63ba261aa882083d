package loop

import (
	"errors"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
)

var (
	ErrUnknownSignal = errors.New("unknown signal")
	ErrNilHandler    = errors.New("signal handler must not be nil")
)

// SignalHandler is called on the loop goroutine, so it must not block.
type SignalHandler func()

// SignalWatch delivers a signal into the loop for as long as it isn't destroyed. Signals
// arriving faster than the loop handles them are coalesced.
type SignalWatch struct {
	loop      *Loop
	name      string
	sig       os.Signal
	handler   SignalHandler
	source    *Source
	ch        chan os.Signal
	done      chan struct{}
	destroyed atomic.Bool
}

// Watch starts watching the signal. The name is case-insensitive and may carry the SIG
// prefix, e.g. INT, SIGINT and sigint are all the same signal.
func Watch(l *Loop, name string, handler SignalHandler) (*SignalWatch, error) {
	if handler == nil {
		return nil, ErrNilHandler
	}

	canonical := strings.TrimPrefix(strings.ToUpper(name), "SIG")
	sig, found := lookupSignal(canonical)
	if !found {
		return nil, ErrUnknownSignal
	}

	w := &SignalWatch{
		loop:    l,
		name:    canonical,
		sig:     sig,
		handler: handler,
		source:  l.Register(),
		ch:      make(chan os.Signal, 1),
		done:    make(chan struct{}),
	}

	signal.Notify(w.ch, sig)
	go w.watch()

	return w, nil
}

func (w *SignalWatch) watch() {
	for {
		select {
		case <-w.ch:
			w.source.Post(w.deliver)
		case <-w.done:
			return
		}
	}
}

func (w *SignalWatch) deliver() {
	// the signal might have been queued right before the watch was destroyed
	if !w.destroyed.Load() {
		w.handler()
	}
}

// Name returns the signal name without the SIG prefix, in upper case.
func (w *SignalWatch) Name() string {
	return w.name
}

func (w *SignalWatch) Signal() os.Signal {
	return w.sig
}

// Destroy stops watching the signal. Returns true only on the first call.
func (w *SignalWatch) Destroy() bool {
	if !w.destroyed.CompareAndSwap(false, true) {
		return false
	}

	signal.Stop(w.ch)
	close(w.done)
	w.source.Close()
	w.loop.untrap(w)

	return true
}
