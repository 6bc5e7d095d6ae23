// internal/interpreter/random.go
package interpreter

import (
	"math/rand/v2"
	"sync"
)

// RandomSource yields uniform values in [0, 1).
type RandomSource interface {
	Float64() float64
}

// NewSeededSource returns a deterministic source, safe for concurrent use.
func NewSeededSource(seed uint64) RandomSource {
	return &lockedSource{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// DefaultSource draws from the process-wide generator.
func DefaultSource() RandomSource {
	return globalSource{}
}

type globalSource struct{}

func (globalSource) Float64() float64 { return rand.Float64() }

type lockedSource struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (s *lockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Float64()
}

// FixedSource replays values in order and wraps around; useful for tests and
// reproducible exports.
type FixedSource struct {
	mu     sync.Mutex
	Values []float64
	next   int
}

// Float64 returns the next value, or 0 when no values are configured.
func (s *FixedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.Values) == 0 {
		return 0
	}
	v := s.Values[s.next%len(s.Values)]
	s.next++
	return v
}

const idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// NewID returns a 9 character base36 identifier drawn from rnd.
func NewID(rnd RandomSource) string {
	b := make([]byte, 9)
	for i := range b {
		idx := int(rnd.Float64() * float64(len(idAlphabet)))
		if idx >= len(idAlphabet) {
			idx = len(idAlphabet) - 1
		}
		b[i] = idAlphabet[idx]
	}
	return string(b)
}
