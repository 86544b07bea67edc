// Package entropy isolates every random draw the simulation makes so that runs
// are reproducible from a seed. Nothing outside this package touches the global
// math/rand state.
package entropy

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	mrand "math/rand"

	"github.com/google/uuid"
)

// Source is the random stream consumed by strategies, pairing and the Arbiter.
// *math/rand.Rand satisfies it.
type Source interface {
	// Float64 returns a value in [0, 1).
	Float64() float64
	// Intn returns a value in [0, n). It panics if n <= 0.
	Intn(n int) int
}

// NewSource returns a deterministic source for the given seed.
func NewSource(seed int64) *mrand.Rand {
	return mrand.New(mrand.NewSource(seed))
}

// NewSeed reads a fresh seed from crypto/rand for runs that were not given one.
func NewSeed() (int64, error) {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	// Drop the sign bit so seeds print cleanly and round-trip through config.
	return int64(binary.LittleEndian.Uint64(buf[:]) >> 1), nil
}

// Chance reports whether a single draw from src lands under p.
func Chance(src Source, p float64) bool {
	return src.Float64() < p
}

// IDFunc issues identifiers for matches, events and revenue records.
type IDFunc func() string

// UUIDs issues random v4 UUID strings.
func UUIDs() IDFunc {
	return uuid.NewString
}

// Sequential issues prefix-1, prefix-2, ... and is meant for tests and replays
// where identifiers must line up between runs.
func Sequential(prefix string) IDFunc {
	var n uint64
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}
