package proto

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFromBytes(t *testing.T) {
	tcs := []struct {
		Token string
		Want  Proto
	}{
		{"HTTP/1.0", HTTP10},
		{"HTTP/1.1", HTTP11},
		{"HTTP/2.0", HTTP2},
		{"HTTP/3.0", Unknown},
		{"HTTP/1.1 ", Unknown},
		{"http/1.1", Unknown},
		{"HTTP/1", Unknown},
	}

	for _, tc := range tcs {
		require.Equal(t, tc.Want, FromBytes([]byte(tc.Token)), tc.Token)
	}

	require.True(t, Wellformed([]byte("HTTP/3.0")))
	require.False(t, Wellformed([]byte("HTTP/a.b")))
}

func TestString(t *testing.T) {
	require.Equal(t, "HTTP/1.1", HTTP11.String())
	require.Equal(t, "HTTP/1.0", HTTP10.String())
	require.Empty(t, Unknown.String())
	require.True(t, HTTP11.Persistent())
	require.False(t, HTTP10.Chunked())
	require.True(t, HTTP11.Chunked())
}
