package loop

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoop(t *testing.T) {
	t.Run("nothing registered", func(t *testing.T) {
		status, err := New().Run()
		require.NoError(t, err)
		require.Equal(t, Drained, status)
	})

	t.Run("fifo", func(t *testing.T) {
		l := New()
		var order []int
		for i := range 5 {
			l.Post(func() {
				order = append(order, i)
			})
		}

		status, err := l.Run()
		require.NoError(t, err)
		require.Equal(t, Drained, status)
		require.Equal(t, []int{0, 1, 2, 3, 4}, order)
	})

	t.Run("stop finishes the cycle", func(t *testing.T) {
		l := New()
		var order []string
		l.Post(func() {
			order = append(order, "a")
			require.True(t, l.Stop())
			l.Post(func() {
				order = append(order, "c")
			})
		})
		l.Post(func() {
			order = append(order, "b")
		})

		status, err := l.Run()
		require.NoError(t, err)
		require.Equal(t, Stopped, status)
		require.Equal(t, []string{"a", "b"}, order)

		status, err = l.Run()
		require.NoError(t, err)
		require.Equal(t, Drained, status)
		require.Equal(t, []string{"a", "b", "c"}, order)
	})

	t.Run("break leaves the rest queued", func(t *testing.T) {
		l := New()
		var order []string
		l.Post(func() {
			order = append(order, "a")
			require.True(t, l.Break())
		})
		l.Post(func() {
			order = append(order, "b")
		})

		status, err := l.Run()
		require.NoError(t, err)
		require.Equal(t, Stopped, status)
		require.Equal(t, []string{"a"}, order)

		status, err = l.Run()
		require.NoError(t, err)
		require.Equal(t, Drained, status)
		require.Equal(t, []string{"a", "b"}, order)
	})

	t.Run("not running", func(t *testing.T) {
		l := New()
		require.False(t, l.Stop())
		require.False(t, l.Break())
		require.False(t, l.Running())
	})

	t.Run("recursive run", func(t *testing.T) {
		l := New()
		var (
			status Status
			err    error
		)
		l.Post(func() {
			require.True(t, l.Running())
			status, err = l.Run()
		})

		outer, outerErr := l.Run()
		require.NoError(t, outerErr)
		require.Equal(t, Drained, outer)
		require.Equal(t, Failed, status)
		require.ErrorIs(t, err, ErrAlreadyRunning)
	})

	t.Run("source keeps the loop alive", func(t *testing.T) {
		l := New()
		source := l.Register()
		var delivered bool

		go func() {
			time.Sleep(20 * time.Millisecond)
			require.True(t, source.Post(func() {
				delivered = true
			}))
			require.True(t, source.Close())
			require.False(t, source.Close())
			require.False(t, source.Post(func() {}))
		}()

		status, err := l.Run()
		require.NoError(t, err)
		require.Equal(t, Drained, status)
		require.True(t, delivered)
	})

	t.Run("stop from another goroutine", func(t *testing.T) {
		l := New()
		source := l.Register()
		defer source.Close()

		go func() {
			for !l.Running() {
				time.Sleep(time.Millisecond)
			}

			l.Stop()
		}()

		status, err := l.Run()
		require.NoError(t, err)
		require.Equal(t, Stopped, status)
	})
}

func TestStatus(t *testing.T) {
	require.Equal(t, "drained", Drained.String())
	require.Equal(t, "stopped", Stopped.String())
	require.Equal(t, "failed", Failed.String())
}
