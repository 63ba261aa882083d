//go:build unix

package loop

import (
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestWatch(t *testing.T) {
	t.Run("names", func(t *testing.T) {
		l := New()
		for _, name := range []string{"INT", "SIGINT", "sigint", "int", "Term"} {
			watch, err := Watch(l, name, func() {})
			require.NoError(t, err, name)
			require.True(t, watch.Destroy())
		}
	})

	t.Run("unknown signal", func(t *testing.T) {
		l := New()
		for _, name := range []string{"", "SIG", "NOPE", "SIGSIGINT"} {
			_, err := Watch(l, name, func() {})
			require.ErrorIs(t, err, ErrUnknownSignal, name)
		}

		status, err := l.Run()
		require.NoError(t, err)
		require.Equal(t, Drained, status, "failed watches must not be registered")
	})

	t.Run("nil handler", func(t *testing.T) {
		_, err := Watch(New(), "INT", nil)
		require.ErrorIs(t, err, ErrNilHandler)
	})

	t.Run("destroy is idempotent", func(t *testing.T) {
		l := New()
		watch, err := Watch(l, "HUP", func() {})
		require.NoError(t, err)
		require.Equal(t, "HUP", watch.Name())
		require.Equal(t, syscall.SIGHUP, watch.Signal())
		require.True(t, watch.Destroy())
		require.False(t, watch.Destroy())

		status, err := l.Run()
		require.NoError(t, err)
		require.Equal(t, Drained, status)
	})

	t.Run("delivery", func(t *testing.T) {
		l := New()
		var delivered int
		var watch *SignalWatch
		watch, err := l.Trap("usr1", func() {
			delivered++
			require.True(t, l.Running())
			watch.Destroy()
		})
		require.NoError(t, err)
		require.Equal(t, []string{"USR1"}, l.Signals())

		require.NoError(t, unix.Kill(os.Getpid(), unix.SIGUSR1))
		status, err := l.Run()
		require.NoError(t, err)
		require.Equal(t, Drained, status)
		require.Equal(t, 1, delivered)
		require.Empty(t, l.Signals())
	})
}
