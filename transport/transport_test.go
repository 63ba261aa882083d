package transport

import (
	"net"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestListener(t *testing.T) {
	l, err := Bind("127.0.0.1:0")
	require.NoError(t, err)

	accepted := make(chan net.Conn, 1)
	served := make(chan struct{})
	go func() {
		l.Serve(func(conn net.Conn) {
			accepted <- conn
		})
		close(served)
	}()

	conn, err := net.Dial("tcp", l.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	select {
	case c := <-accepted:
		require.NoError(t, c.Close())
	case <-time.After(time.Second):
		require.Fail(t, "connection wasn't accepted")
	}

	require.True(t, l.Close())
	require.False(t, l.Close())

	select {
	case <-served:
	case <-time.After(time.Second):
		require.Fail(t, "Serve didn't return after Close")
	}
}

func TestBindFailure(t *testing.T) {
	l, err := Bind("127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()

	_, err = Bind(l.Addr().String())
	require.Error(t, err)
}

func TestClient(t *testing.T) {
	t.Run("read and pushback", func(t *testing.T) {
		server, peer := net.Pipe()
		defer peer.Close()
		client := NewClient(server, func() time.Duration { return time.Second }, make([]byte, 64))

		go func() {
			_, _ = peer.Write([]byte("Hello, world!"))
		}()

		data, err := client.Read()
		require.NoError(t, err)
		require.Equal(t, "Hello, world!", string(data))

		client.Pushback(data[7:])
		data, err = client.Read()
		require.NoError(t, err)
		require.Equal(t, "world!", string(data))
	})

	t.Run("idle timeout", func(t *testing.T) {
		server, peer := net.Pipe()
		defer peer.Close()
		client := NewClient(server, func() time.Duration { return 20 * time.Millisecond }, make([]byte, 64))

		_, err := client.Read()
		require.ErrorIs(t, err, os.ErrDeadlineExceeded)
	})
}
