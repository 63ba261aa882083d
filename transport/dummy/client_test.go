package dummy

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMockClient(t *testing.T) {
	t.Run("read once", func(t *testing.T) {
		slices := [][]byte{
			[]byte("Hello"), []byte("world!"),
		}
		client := NewMockClient(slices...)

		for _, slice := range slices {
			got, err := client.Read()
			require.NoError(t, err)
			require.Equal(t, string(slice), string(got))
		}

		_, err := client.Read()
		require.ErrorIs(t, err, io.EOF)
	})

	t.Run("pushback", func(t *testing.T) {
		client := NewMockClient([]byte("Hello"))
		data, err := client.Read()
		require.NoError(t, err)
		client.Pushback(data[2:])
		data, err = client.Read()
		require.NoError(t, err)
		require.Equal(t, "llo", string(data))
	})

	t.Run("journal", func(t *testing.T) {
		client := NewNopClient()
		_, err := client.Write([]byte("Hello, "))
		require.NoError(t, err)
		_, err = client.Write([]byte("world!"))
		require.NoError(t, err)
		require.Equal(t, "Hello, world!", client.Flush())
		require.Empty(t, client.Written())
	})
}
