package cache

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUCache_Basic(t *testing.T) {
	c := New(Options{MaxSize: 3})

	c.Set("a", "value_a")
	c.Set("b", "value_b")
	c.Set("c", "value_c")

	assert.Equal(t, 3, c.Len())

	val, found := c.Get("a")
	require.True(t, found)
	assert.Equal(t, "value_a", val)

	c.Set("a", "value_a2")
	val, _ = c.Get("a")
	assert.Equal(t, "value_a2", val)
	assert.Equal(t, 3, c.Len())
}

func TestLRUCache_LRU_Eviction(t *testing.T) {
	var evicted []string
	c := New(Options{MaxSize: 3, OnEvict: func(key string, _ any) { evicted = append(evicted, key) }})

	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	// a becomes most recently used
	c.Get("a")
	c.Set("d", 4)

	assert.Equal(t, 3, c.Len())
	assert.Equal(t, []string{"b"}, evicted)

	_, found := c.Get("b")
	assert.False(t, found)
	for _, k := range []string{"a", "c", "d"} {
		_, found := c.Get(k)
		assert.True(t, found, k)
	}
}

func TestLRUCache_DeleteAndClear(t *testing.T) {
	c := New(Options{})
	for i, k := range []string{"a", "b", "c"} {
		c.Set(k, i)
	}
	c.Delete("b")
	c.Delete("missing")
	assert.Equal(t, 2, c.Len())
	_, found := c.Get("b")
	assert.False(t, found)

	c.Clear()
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, Stats{}, c.Stats())

	// still usable after Clear
	c.Set("x", 1)
	assert.Equal(t, 1, c.Len())
}

func TestLRUCache_Stats(t *testing.T) {
	c := New(Options{MaxSize: 2})
	assert.Zero(t, c.Stats().HitRate())

	c.Set("a", 1)
	c.Get("a")
	c.Get("a")
	c.Get("a")
	c.Get("b")

	s := c.Stats()
	assert.Equal(t, 1, s.Length)
	assert.Equal(t, int64(3), s.Hits)
	assert.Equal(t, int64(1), s.Misses)
	assert.InDelta(t, 0.75, s.HitRate(), 1e-9)
}

func TestLRUCache_Concurrent(t *testing.T) {
	c := New(Options{MaxSize: 50})
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				k := string(rune('a' + (g*i)%26))
				c.Set(k, i)
				c.Get(k)
			}
		}(g)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Len(), 50)
}

func TestPrecStore_RoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "precs")
	s := NewPrecStore(dir, 8)

	_, ok, err := s.Get("abc", "expl")
	require.NoError(t, err)
	assert.False(t, ok)

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, s.Put(PrecEntry{ModelHash: "abc", Domain: "expl", Vars: []string{"y", "x"}, UpdatedAt: at}))
	_, err = os.Stat(filepath.Join(dir, "abc.expl.msgpack"))
	require.NoError(t, err)

	// a fresh store reads it back from disk
	e, ok, err := NewPrecStore(dir, 8).Get("abc", "expl")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"x", "y"}, e.Vars)
	assert.True(t, at.Equal(e.UpdatedAt))

	_, ok, err = s.Get("abc", "pred")
	require.NoError(t, err)
	assert.False(t, ok, "domains are stored separately")
}

func TestPrecStore_PutMerges(t *testing.T) {
	s := NewPrecStore(t.TempDir(), 8)
	require.NoError(t, s.Put(PrecEntry{ModelHash: "h", Domain: "pred", Preds: []string{"x < 3"}}))
	require.NoError(t, s.Put(PrecEntry{ModelHash: "h", Domain: "pred", Preds: []string{"x == 0", "x < 3"}}))

	e, ok, err := s.Get("h", "pred")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []string{"x < 3", "x == 0"}, e.Preds)
	assert.False(t, e.UpdatedAt.IsZero())
}

func TestPrecStore_Errors(t *testing.T) {
	s := NewPrecStore("", 1)
	assert.ErrorIs(t, s.Put(PrecEntry{ModelHash: "h", Domain: "expl"}), ErrNoStoreDir)
	_, ok, err := s.Get("h", "expl")
	require.NoError(t, err)
	assert.False(t, ok)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "h.expl.msgpack"), []byte{0xc1}, 0o644))
	_, _, err = NewPrecStore(dir, 1).Get("h", "expl")
	assert.Error(t, err)

	s = NewPrecStore(dir, 1)
	require.NoError(t, s.Put(PrecEntry{ModelHash: "g", Domain: "expl", Vars: []string{"x"}}))
	require.NoError(t, s.Delete("g", "expl"))
	_, ok, err = s.Get("g", "expl")
	require.NoError(t, err)
	assert.False(t, ok)
	require.NoError(t, s.Delete("g", "expl"))
}
