package bundler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreStripsKeys(t *testing.T) {
	store := NewFileStore(map[string]string{
		"./a.ts":     "a",
		"/lib/b.ts":  "b",
		"c.ts":       "c",
		"./dir/d.ts": "d",
	})

	require.Equal(t, 4, store.Len())
	for key, want := range map[string]string{
		"a.ts":     "a",
		"lib/b.ts": "b",
		"c.ts":     "c",
		"dir/d.ts": "d",
	} {
		got, ok := store.Lookup(key)
		require.True(t, ok, key)
		assert.Equal(t, want, got)
	}
}

func TestFileStoreExactMatchOnly(t *testing.T) {
	store := NewFileStore(map[string]string{"index.ts": "x"})

	assert.True(t, store.Has("index.ts"))
	assert.False(t, store.Has("./index.ts"))
	assert.False(t, store.Has("index"))
	assert.False(t, store.Has("INDEX.TS"))
}

func TestFileStoreCollisionIsDeterministic(t *testing.T) {
	// "./a.ts", "/a.ts" and "a.ts" all strip to the same key; the
	// lexicographically last input key wins regardless of map order.
	store := NewFileStore(map[string]string{
		"./a.ts": "dot",
		"/a.ts":  "slash",
		"a.ts":   "bare",
	})

	require.Equal(t, 1, store.Len())
	got, ok := store.Lookup("a.ts")
	require.True(t, ok)
	assert.Equal(t, "bare", got)
}
