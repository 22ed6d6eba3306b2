package viz

import (
	"hash/fnv"
	"math"
)

// HashString returns the 32-bit FNV-1a hash of s.
func HashString(s string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return h.Sum32()
}

// Seeded is a small deterministic generator (mulberry32) seeded from a string id.
type Seeded struct {
	state uint32
}

// NewSeeded returns a generator seeded from id and an optional salt.
func NewSeeded(id string, salt ...string) *Seeded {
	key := id
	for _, s := range salt {
		key += "\x00" + s
	}
	return &Seeded{state: HashString(key)}
}

// Uint32 returns the next value.
func (s *Seeded) Uint32() uint32 {
	s.state += 0x6D2B79F5
	z := s.state
	z = (z ^ (z >> 15)) * (z | 1)
	z ^= z + (z^(z>>7))*(z|61)
	return z ^ (z >> 14)
}

// Float64 returns the next value in [0,1).
func (s *Seeded) Float64() float64 {
	return float64(s.Uint32()) / 4294967296.0
}

// Signed returns the next value in [-1,1).
func (s *Seeded) Signed() float64 {
	return s.Float64()*2 - 1
}

// Angle returns the next value in [0,2π).
func (s *Seeded) Angle() float64 {
	return s.Float64() * 2 * math.Pi
}
