package cache

import (
	"sync"
	"testing"
	"time"
)

// =============================================================================
// Construction and Keys
// =============================================================================

func TestNew(t *testing.T) {
	c := New[string](100, 5*time.Minute)
	if c.maxSize != 100 {
		t.Errorf("maxSize = %d, want 100", c.maxSize)
	}
	if !c.enabled {
		t.Error("cache should be enabled by default")
	}

	for _, size := range []int{0, -10} {
		if got := New[string](size, time.Minute).maxSize; got != 1000 {
			t.Errorf("New(%d).maxSize = %d, want 1000 (default)", size, got)
		}
	}
}

func TestKey(t *testing.T) {
	a := Key("/similarity", []byte(`{"pairs":[]}`))
	if a != Key("/similarity", []byte(`{"pairs":[]}`)) {
		t.Error("same input should give the same key")
	}
	if a == Key("/enrichment", []byte(`{"pairs":[]}`)) {
		t.Error("operation should be part of the key")
	}
	if Key("ab", []byte("c")) == Key("a", []byte("bc")) {
		t.Error("operation and payload must be separated")
	}
}

// =============================================================================
// Get/Put, TTL and Eviction
// =============================================================================

func TestGetPut(t *testing.T) {
	c := New[string](10, 0)
	if _, ok := c.Get(1); ok {
		t.Error("empty cache should miss")
	}
	c.Put(1, "one")
	if v, ok := c.Get(1); !ok || v != "one" {
		t.Errorf("Get(1) = %q, %v", v, ok)
	}
	c.Put(1, "uno")
	if v, _ := c.Get(1); v != "uno" {
		t.Errorf("updated value = %q, want uno", v)
	}
	if c.Len() != 1 {
		t.Errorf("Len = %d, want 1", c.Len())
	}

	c.Remove(1)
	if _, ok := c.Get(1); ok {
		t.Error("removed entry should miss")
	}
}

func TestTTL(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c := New[int](10, time.Minute)
	c.now = func() time.Time { return now }

	c.Put(1, 1)
	now = now.Add(30 * time.Second)
	if _, ok := c.Get(1); !ok {
		t.Error("entry should exist before TTL")
	}

	c.Put(1, 2) // refreshes TTL
	now = now.Add(45 * time.Second)
	if _, ok := c.Get(1); !ok {
		t.Error("entry should exist after TTL refresh")
	}

	now = now.Add(time.Minute)
	if _, ok := c.Get(1); ok {
		t.Error("entry should be expired after TTL")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry should be dropped, Len = %d", c.Len())
	}
}

func TestLRUEviction(t *testing.T) {
	c := New[int](3, 0)
	c.Put(1, 1)
	c.Put(2, 2)
	c.Put(3, 3)

	c.Get(1) // 2 is now the oldest
	c.Put(4, 4)

	if _, ok := c.Get(2); ok {
		t.Error("least recently used entry should be evicted")
	}
	for _, k := range []uint64{1, 3, 4} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("key %d should still be cached", k)
		}
	}
}

func TestClearAndDisable(t *testing.T) {
	c := New[int](10, 0)
	c.Put(1, 1)
	c.Put(2, 2)
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len after Clear = %d", c.Len())
	}

	c.Put(1, 1)
	c.SetEnabled(false)
	if c.Len() != 0 {
		t.Error("disabling should drop entries")
	}
	c.Put(2, 2)
	if _, ok := c.Get(2); ok {
		t.Error("disabled cache should not store")
	}
	c.SetEnabled(true)
	c.Put(2, 2)
	if _, ok := c.Get(2); !ok {
		t.Error("re-enabled cache should store")
	}
}

func TestStats(t *testing.T) {
	c := New[int](10, 0)
	if c.Stats().HitRate != 0 {
		t.Error("hit rate with no lookups should be 0")
	}
	c.Put(1, 1)
	c.Get(1)
	c.Get(1)
	c.Get(1)
	c.Get(2)

	s := c.Stats()
	if s.Hits != 3 || s.Misses != 1 {
		t.Errorf("hits/misses = %d/%d, want 3/1", s.Hits, s.Misses)
	}
	if s.HitRate != 75 {
		t.Errorf("HitRate = %v, want 75", s.HitRate)
	}
	if s.Size != 1 || s.MaxSize != 10 {
		t.Errorf("Size/MaxSize = %d/%d", s.Size, s.MaxSize)
	}
}

// =============================================================================
// Concurrency
// =============================================================================

func TestConcurrentAccess(t *testing.T) {
	c := New[int](50, time.Hour)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				k := uint64((g*500 + i) % 120)
				c.Put(k, i)
				c.Get(k)
			}
		}(g)
	}
	wg.Wait()

	if c.Len() > 50 {
		t.Errorf("Len = %d exceeds max size", c.Len())
	}
}

func BenchmarkKey(b *testing.B) {
	payload := []byte(`{"pairs":[{"a":["HP:0001263","HP:0001250"],"b":["HP:0001270"]}],"method":"lin"}`)
	for i := 0; i < b.N; i++ {
		Key("/similarity", payload)
	}
}
