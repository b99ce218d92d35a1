package shield

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewSource_Reproducible(t *testing.T) {
	a, b := NewSource(77), NewSource(77)
	for range 10 {
		assert.Equal(t, a.Uint64(), b.Uint64())
	}
	assert.NotEqual(t, NewSource(1).Uint64(), NewSource(2).Uint64())
}

func TestNewCryptoSource_Differs(t *testing.T) {
	assert.NotEqual(t, NewCryptoSource().Uint64(), NewCryptoSource().Uint64())
}

func TestBetween_Inclusive(t *testing.T) {
	src := NewSource(3)
	seen := map[int]bool{}
	for range 500 {
		v := intBetween(src, 2, 4)
		assert.GreaterOrEqual(t, v, 2)
		assert.LessOrEqual(t, v, 4)
		seen[v] = true
	}
	assert.Len(t, seen, 3)

	assert.Equal(t, 5, intBetween(src, 5, 5))
	assert.Equal(t, time.Second, durationBetween(src, time.Second, time.Second))

	for range 100 {
		d := durationBetween(src, time.Millisecond, 3*time.Millisecond)
		assert.GreaterOrEqual(t, d, time.Millisecond)
		assert.LessOrEqual(t, d, 3*time.Millisecond)
	}
}

func TestLockedSource_Shared(t *testing.T) {
	src := LockedSource(NewSource(1))
	done := make(chan struct{})
	for range 4 {
		go func() {
			defer func() { done <- struct{}{} }()
			for range 1000 {
				_ = src.IntN(10)
				_ = src.Int64N(10)
				_ = src.Uint64()
			}
		}()
	}
	for range 4 {
		<-done
	}
}

func TestLockedSource_WrapsOnce(t *testing.T) {
	src := LockedSource(NewSource(1))
	assert.Same(t, src, LockedSource(src))
}
