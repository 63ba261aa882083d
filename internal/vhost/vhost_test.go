package vhost

import (
	"path"
	"testing"

	"github.com/stretchr/testify/require"
)

func mustCompile(t *testing.T, patterns ...string) []Pattern {
	compiled := make([]Pattern, len(patterns))
	for i, pattern := range patterns {
		var err error
		compiled[i], err = Compile(pattern)
		require.NoError(t, err, pattern)
	}

	return compiled
}

func TestCompile(t *testing.T) {
	t.Run("malformed", func(t *testing.T) {
		for _, pattern := range []string{"", "[a-", "foo[", "\\"} {
			_, err := Compile(pattern)
			require.ErrorIs(t, err, path.ErrBadPattern, pattern)
		}
	})

	t.Run("keeps the case", func(t *testing.T) {
		pattern := mustCompile(t, "*.Example.COM")[0]
		require.Equal(t, "*.Example.COM", pattern.String())
	})
}

func TestMatch(t *testing.T) {
	for _, tc := range []struct {
		pattern, host string
		want          bool
	}{
		{"*.example.com", "api.example.com", true},
		{"*.example.com", "API.Example.com:8080", true},
		{"*.example.com", "example.com", false},
		{"api.example.com", "api.example.com.", true},
		{"host?", "host1", true},
		{"host?", "host12", false},
		{"[ab].local", "b.local", true},
		{"[ab].local", "c.local", false},
		{"::1", "[::1]:80", true},
	} {
		pattern := mustCompile(t, tc.pattern)[0]
		require.Equal(t, tc.want, pattern.Match(tc.host), "%s ~ %s", tc.pattern, tc.host)
	}
}

func TestBest(t *testing.T) {
	t.Run("literal beats wildcard", func(t *testing.T) {
		patterns := mustCompile(t, "*.example.com", "api.example.com", "*")
		require.Equal(t, 1, Best("api.example.com", patterns))
		require.Equal(t, 0, Best("www.example.com", patterns))
		require.Equal(t, 2, Best("localhost", patterns))
	})

	t.Run("fewer stars", func(t *testing.T) {
		patterns := mustCompile(t, "a*b*c", "a*bc")
		require.Equal(t, 1, Best("abc", patterns))
	})

	t.Run("registration order breaks ties", func(t *testing.T) {
		patterns := mustCompile(t, "a?c", "ab?")
		require.Equal(t, 0, Best("abc", patterns))
	})

	t.Run("nothing matches", func(t *testing.T) {
		require.Equal(t, -1, Best("localhost", mustCompile(t, "*.example.com")))
		require.Equal(t, -1, Best("localhost", nil))
	})
}

func TestTrimPort(t *testing.T) {
	require.Equal(t, "localhost", TrimPort("localhost:8080"))
	require.Equal(t, "localhost", TrimPort("localhost"))
	require.Equal(t, "::1", TrimPort("[::1]:8080"))
	require.Equal(t, "::1", TrimPort("[::1]"))
	require.Equal(t, "fe80::1", TrimPort("fe80::1"))
}
