// Package entropy provides the random sources behind event rolls.
// Seeded sources make runs reproducible; the crypto source is the default for
// live servers.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	mrand "math/rand/v2"
	"sync"
)

// Source yields uniform random numbers.
type Source interface {
	Float64() float64 // [0, 1)
	IntN(n int) int   // [0, n)
}

// Seeded is a deterministic PCG-backed source. Safe for concurrent use.
type Seeded struct {
	mu  sync.Mutex
	rng *mrand.Rand
}

// NewSeeded returns a deterministic source for seed.
func NewSeeded(seed int64) *Seeded {
	// Non-cryptographic PRNG is intentional for reproducible simulation runs.
	// #nosec G404
	return &Seeded{rng: mrand.New(mrand.NewPCG(seedWord(seed, "a"), seedWord(seed, "b")))}
}

// Derive returns an independent seeded source for a named stream, so each
// session gets its own reproducible sequence.
func Derive(seed int64, stream string) *Seeded {
	h := fnv.New64a()
	_, _ = fmt.Fprintf(h, "%d:%s", seed, stream)
	return NewSeeded(int64(h.Sum64()))
}

func (s *Seeded) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}

func (s *Seeded) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

func seedWord(seed int64, salt string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(fmt.Sprintf("%d:%s", seed, salt)))
	return h.Sum64()
}

// Crypto draws from crypto/rand.
type Crypto struct{}

func (Crypto) Float64() float64 {
	return cryptoRandFloat()
}

func (Crypto) IntN(n int) int {
	if n <= 0 {
		return 0
	}
	return int(cryptoRandFloat() * float64(n))
}

// cryptoRandFloat generates a random float64 in [0, 1) using crypto/rand.
func cryptoRandFloat() float64 {
	var buf [8]byte
	_, err := rand.Read(buf[:])
	if err != nil {
		// This should never happen but return 0.5 as a safe default.
		return 0.5
	}
	// Use only 53 bits for a uniform float64 in [0, 1).
	n := binary.LittleEndian.Uint64(buf[:]) >> 11
	return float64(n) / float64(1<<53)
}

// Fixed replays a scripted sequence, then repeats its last value. Test helper
// for forcing or preventing event rolls.
type Fixed struct {
	mu     sync.Mutex
	floats []float64
	ints   []int
}

// NewFixed returns a source that yields floats and ints in order.
func NewFixed(floats []float64, ints []int) *Fixed {
	return &Fixed{floats: floats, ints: ints}
}

func (f *Fixed) Float64() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.floats) == 0 {
		return 0.999
	}
	v := f.floats[0]
	if len(f.floats) > 1 {
		f.floats = f.floats[1:]
	}
	return v
}

func (f *Fixed) IntN(n int) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.ints) == 0 || n <= 0 {
		return 0
	}
	v := f.ints[0]
	if len(f.ints) > 1 {
		f.ints = f.ints[1:]
	}
	return v % n
}
