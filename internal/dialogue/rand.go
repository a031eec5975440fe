package dialogue

import (
	"math/rand/v2"
	"sync"
)

// Rand is the source of every random choice the service makes.
// *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	// IntN returns a uniform integer in [0, n).
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// lockedRand makes an injected Rand safe for concurrent handlers.
type lockedRand struct {
	mu  sync.Mutex
	src Rand
}

func (r *lockedRand) IntN(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.src.IntN(n)
}

func (r *lockedRand) pick(pool []string) string {
	return pool[r.IntN(len(pool))]
}

// between returns a uniform integer in [lo, hi].
func (r *lockedRand) between(lo, hi int) int {
	return lo + r.IntN(hi-lo+1)
}
