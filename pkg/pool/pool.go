// Package pool provides scratch buffer pooling and the worker pool used by
// every batch operation.
//
// Similarity matrices are filled and discarded once per set comparison, and
// batch scoring performs thousands of comparisons, so their backing arrays
// are recycled instead of reallocated.
//
// Pooled objects:
// - float64 matrices (set similarity, linkage distances)
// - string builders (term set serialization)
//
// Usage:
//
//	m := pool.GetFloat64Slice(rows * cols)
//	defer pool.PutFloat64Slice(m)
package pool

import (
	"strconv"
	"sync"
)

// PoolConfig configures object pooling behavior.
type PoolConfig struct {
	// Enabled controls whether pooling is active
	Enabled bool

	// MaxSize limits the capacity (in elements) of pooled slices
	MaxSize int
}

var globalConfig = PoolConfig{
	Enabled: true,
	MaxSize: 1 << 16,
}

// Configure sets global pool configuration.
// Should be called early during initialization.
func Configure(config PoolConfig) {
	globalConfig = config

	// Reinitialize pools to ensure New functions are set correctly
	initPools()
}

func initPools() {
	float64SlicePool = sync.Pool{
		New: func() any {
			s := make([]float64, 0, 256)
			return &s
		},
	}
	stringBuilderPool = sync.Pool{
		New: func() any {
			return &PooledStringBuilder{buf: make([]byte, 0, 256)}
		},
	}
}

// IsEnabled returns whether pooling is enabled.
func IsEnabled() bool {
	return globalConfig.Enabled
}

// =============================================================================
// Float64 Slice Pool (similarity matrices)
// =============================================================================

var float64SlicePool = sync.Pool{
	New: func() any {
		s := make([]float64, 0, 256)
		return &s
	},
}

// GetFloat64Slice returns a zeroed slice of length n.
// Call PutFloat64Slice when done.
func GetFloat64Slice(n int) []float64 {
	if !globalConfig.Enabled || n > globalConfig.MaxSize {
		return make([]float64, n)
	}
	p := float64SlicePool.Get().(*[]float64)
	s := *p
	if cap(s) < n {
		s = make([]float64, n)
	} else {
		s = s[:n]
		clear(s)
	}
	return s
}

// PutFloat64Slice returns a slice to the pool.
func PutFloat64Slice(s []float64) {
	if !globalConfig.Enabled || s == nil {
		return
	}
	// Don't pool very large slices (memory leak prevention)
	if cap(s) > globalConfig.MaxSize {
		return
	}
	s = s[:0]
	float64SlicePool.Put(&s)
}

// =============================================================================
// String Builder Pool
// =============================================================================

var stringBuilderPool = sync.Pool{
	New: func() any {
		return &PooledStringBuilder{buf: make([]byte, 0, 256)}
	},
}

// PooledStringBuilder is a poolable string builder.
type PooledStringBuilder struct {
	buf []byte
}

// WriteString appends a string to the builder.
func (b *PooledStringBuilder) WriteString(s string) {
	b.buf = append(b.buf, s...)
}

// WriteByte appends a byte to the builder.
func (b *PooledStringBuilder) WriteByte(c byte) error {
	b.buf = append(b.buf, c)
	return nil
}

// AppendUint appends the decimal form of v.
func (b *PooledStringBuilder) AppendUint(v uint64) {
	b.buf = strconv.AppendUint(b.buf, v, 10)
}

// String returns the built string.
func (b *PooledStringBuilder) String() string {
	return string(b.buf)
}

// Len returns current length.
func (b *PooledStringBuilder) Len() int {
	return len(b.buf)
}

// Reset clears the builder for reuse.
func (b *PooledStringBuilder) Reset() {
	b.buf = b.buf[:0]
}

// GetStringBuilder returns a string builder from the pool.
func GetStringBuilder() *PooledStringBuilder {
	if !globalConfig.Enabled {
		return &PooledStringBuilder{buf: make([]byte, 0, 256)}
	}
	b := stringBuilderPool.Get().(*PooledStringBuilder)
	b.Reset()
	return b
}

// PutStringBuilder returns a string builder to the pool.
func PutStringBuilder(b *PooledStringBuilder) {
	if !globalConfig.Enabled || b == nil {
		return
	}
	if cap(b.buf) > 64*1024 { // Don't pool huge buffers
		return
	}
	b.Reset()
	stringBuilderPool.Put(b)
}
