package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

// =============================================================================
// Configuration Tests
// =============================================================================

func TestConfigure(t *testing.T) {
	// Save original config
	origConfig := globalConfig
	defer func() {
		Configure(origConfig)
	}()

	t.Run("enable pooling", func(t *testing.T) {
		Configure(PoolConfig{Enabled: true, MaxSize: 500})

		if !IsEnabled() {
			t.Error("IsEnabled() = false, want true")
		}
		if globalConfig.MaxSize != 500 {
			t.Errorf("MaxSize = %d, want 500", globalConfig.MaxSize)
		}
	})

	t.Run("disable pooling", func(t *testing.T) {
		Configure(PoolConfig{Enabled: false, MaxSize: 1000})

		if IsEnabled() {
			t.Error("IsEnabled() = true, want false")
		}
	})
}

// =============================================================================
// Float64 Slice Pool Tests
// =============================================================================

func TestFloat64SlicePool(t *testing.T) {
	origConfig := globalConfig
	defer Configure(origConfig)
	Configure(PoolConfig{Enabled: true, MaxSize: 1000})

	t.Run("get returns zeroed slice of requested length", func(t *testing.T) {
		s := GetFloat64Slice(12)
		if len(s) != 12 {
			t.Fatalf("len = %d, want 12", len(s))
		}
		for i, v := range s {
			if v != 0 {
				t.Fatalf("s[%d] = %v, want 0", i, v)
			}
		}
		PutFloat64Slice(s)
	})

	t.Run("put and reuse clears values", func(t *testing.T) {
		s := GetFloat64Slice(8)
		for i := range s {
			s[i] = 0.5
		}
		PutFloat64Slice(s)

		s2 := GetFloat64Slice(8)
		for i, v := range s2 {
			if v != 0 {
				t.Fatalf("reused s[%d] = %v, want 0", i, v)
			}
		}
		PutFloat64Slice(s2)
	})

	t.Run("oversized slices bypass the pool", func(t *testing.T) {
		s := GetFloat64Slice(5000)
		if len(s) != 5000 {
			t.Fatalf("len = %d, want 5000", len(s))
		}
		PutFloat64Slice(s) // Should not panic, just not pool it
	})

	t.Run("disabled pooling allocates", func(t *testing.T) {
		Configure(PoolConfig{Enabled: false, MaxSize: 1000})
		defer Configure(PoolConfig{Enabled: true, MaxSize: 1000})

		s := GetFloat64Slice(4)
		if len(s) != 4 {
			t.Errorf("len = %d, want 4", len(s))
		}
		PutFloat64Slice(s)
	})
}

// =============================================================================
// String Builder Pool Tests
// =============================================================================

func TestStringBuilderPool(t *testing.T) {
	Configure(PoolConfig{Enabled: true, MaxSize: 1000})

	t.Run("basic operations", func(t *testing.T) {
		sb := GetStringBuilder()
		sb.AppendUint(7)
		_ = sb.WriteByte('+')
		sb.AppendUint(118)
		sb.WriteString("!")

		if sb.String() != "7+118!" {
			t.Errorf("String() = %q, want %q", sb.String(), "7+118!")
		}
		if sb.Len() != 6 {
			t.Errorf("Len() = %d, want 6", sb.Len())
		}
		PutStringBuilder(sb)
	})

	t.Run("reuse starts empty", func(t *testing.T) {
		sb := GetStringBuilder()
		sb.WriteString("leftover")
		PutStringBuilder(sb)

		sb2 := GetStringBuilder()
		if sb2.Len() != 0 {
			t.Errorf("reused builder Len() = %d, want 0", sb2.Len())
		}
		PutStringBuilder(sb2)
	})

	t.Run("nil is ignored", func(t *testing.T) {
		PutStringBuilder(nil)
	})
}

// =============================================================================
// Map Tests
// =============================================================================

func TestMap(t *testing.T) {
	ctx := context.Background()

	t.Run("preserves input order", func(t *testing.T) {
		items := make([]int, 1000)
		for i := range items {
			items[i] = i
		}
		for _, workers := range []int{0, 1, 3, 16} {
			out, err := Map(ctx, "square", items, workers, func(v int) int { return v * v })
			if err != nil {
				t.Fatalf("workers=%d: %v", workers, err)
			}
			for i, v := range out {
				if v != i*i {
					t.Fatalf("workers=%d: out[%d] = %d, want %d", workers, i, v, i*i)
				}
			}
		}
	})

	t.Run("empty input", func(t *testing.T) {
		out, err := Map(ctx, "noop", []string(nil), 4, func(s string) int { return len(s) })
		if err != nil {
			t.Fatal(err)
		}
		if len(out) != 0 {
			t.Errorf("len = %d, want 0", len(out))
		}
	})

	t.Run("every item processed exactly once", func(t *testing.T) {
		var calls atomic.Int64
		items := make([]int, 257)
		if _, err := Map(ctx, "count", items, 8, func(int) struct{} {
			calls.Add(1)
			return struct{}{}
		}); err != nil {
			t.Fatal(err)
		}
		if calls.Load() != 257 {
			t.Errorf("calls = %d, want 257", calls.Load())
		}
	})

	t.Run("cancelled context", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := Map(cctx, "cancelled", []int{1, 2, 3}, 2, func(v int) int { return v })
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	})

	t.Run("workers default", func(t *testing.T) {
		if Workers(0) < 1 {
			t.Error("Workers(0) should resolve to at least one worker")
		}
		if Workers(5) != 5 {
			t.Errorf("Workers(5) = %d, want 5", Workers(5))
		}
	})
}

// =============================================================================
// Concurrency Tests
// =============================================================================

func TestConcurrentPoolAccess(t *testing.T) {
	Configure(PoolConfig{Enabled: true, MaxSize: 1000})

	var wg sync.WaitGroup
	for g := 0; g < 32; g++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				s := GetFloat64Slice(n + 1)
				s[0] = float64(i)
				PutFloat64Slice(s)

				sb := GetStringBuilder()
				sb.AppendUint(uint64(i))
				PutStringBuilder(sb)
			}
		}(g)
	}
	wg.Wait()
}

// =============================================================================
// Benchmarks
// =============================================================================

func BenchmarkFloat64SlicePool(b *testing.B) {
	Configure(PoolConfig{Enabled: true, MaxSize: 1 << 16})
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		s := GetFloat64Slice(400)
		s[399] = 1
		PutFloat64Slice(s)
	}
}

func BenchmarkMap(b *testing.B) {
	items := make([]int, 4096)
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = Map(ctx, "bench", items, 0, func(v int) int { return v + 1 })
	}
}
