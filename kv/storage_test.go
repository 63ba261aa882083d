package kv

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStorage(t *testing.T) {
	getHeaders := func() *Storage {
		return New().
			Add("Foo", "bar").
			Add("Hello", "World").
			Add("Lorem", "ipsum").
			Add("hello", "Pavlo")
	}

	t.Run("lookup is case-insensitive", func(t *testing.T) {
		kv := getHeaders()
		value, found := kv.Get("FOO")
		require.True(t, found)
		require.Equal(t, "bar", value)
		require.Equal(t, "World", kv.Value("hello"))
		require.True(t, kv.Has("lorem"))
		require.False(t, kv.Has("ipsum"))
	})

	t.Run("values", func(t *testing.T) {
		kv := getHeaders()
		require.Equal(t, []string{"World", "Pavlo"}, slices.Collect(kv.Values("HELLO")))
		require.Empty(t, slices.Collect(kv.Values("nothing")))
	})

	t.Run("keys keep their case", func(t *testing.T) {
		var keys []string
		for key := range getHeaders().Pairs() {
			keys = append(keys, key)
		}

		require.Equal(t, []string{"Foo", "Hello", "Lorem", "hello"}, keys)
	})

	t.Run("clear", func(t *testing.T) {
		kv := getHeaders().Clear()
		require.True(t, kv.Empty())
		kv.Add("a", "b")
		require.Equal(t, []Pair{{Key: "a", Value: "b"}}, kv.Expose())
	})
}
