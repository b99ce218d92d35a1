package shield

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
	"sync"
	"time"
)

// Source is the planner's only source of randomness. *rand.Rand satisfies it.
type Source interface {
	IntN(n int) int
	Int64N(n int64) int64
	Uint64() uint64
}

// NewSource returns a reproducible source. Equal seeds yield equal plans.
// The source is not safe for concurrent use; see LockedSource.
func NewSource(seed uint64) Source {
	var key [32]byte
	binary.LittleEndian.PutUint64(key[:8], seed)
	binary.LittleEndian.PutUint64(key[8:16], ^seed)
	return rand.New(rand.NewChaCha8(key))
}

// NewCryptoSource returns a source seeded from the operating system.
func NewCryptoSource() Source {
	var key [32]byte
	if _, err := crand.Read(key[:]); err != nil {
		// crypto/rand.Read never fails on supported platforms.
		panic(err)
	}
	return rand.New(rand.NewChaCha8(key))
}

// LockedSource wraps src so planners running concurrently can share it.
// A Shield always wraps its source this way.
func LockedSource(src Source) Source {
	if l, ok := src.(*lockedSource); ok {
		return l
	}
	return &lockedSource{src: src}
}

// lockedSource makes a Source safe to share between concurrent planners.
type lockedSource struct {
	mu  sync.Mutex
	src Source
}

func (l *lockedSource) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.IntN(n)
}

func (l *lockedSource) Int64N(n int64) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.Int64N(n)
}

func (l *lockedSource) Uint64() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src.Uint64()
}

// intBetween draws uniformly from the inclusive range [lo, hi].
func intBetween(src Source, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + src.IntN(hi-lo+1)
}

// durationBetween draws uniformly from the inclusive range [lo, hi].
func durationBetween(src Source, lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(src.Int64N(int64(hi-lo)+1))
}
