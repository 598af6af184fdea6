package pool

import (
	"math/rand/v2"
	"strings"
	"sync"
)

// Sampler draws random subsets of a pool. It is safe for concurrent use.
type Sampler struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewSampler returns a sampler. A non-zero seed makes every draw
// reproducible; zero seeds from the runtime's random source.
func NewSampler(seed uint64) *Sampler {
	if seed == 0 {
		return &Sampler{rnd: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
	}
	return &Sampler{rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Sample picks briefs for one run.
//
// Manual names win: each becomes a Brief with only Name set, in the given
// order. Otherwise max(1, min(n, len(eligible))) entries are drawn from the
// briefs matching difficulty, or from the whole pool when none match.
// A difficulty of 0 disables filtering.
func (s *Sampler) Sample(kind Kind, briefs []Brief, n, difficulty int, manual []string) ([]Brief, error) {
	if len(manual) > 0 {
		out := make([]Brief, len(manual))
		for i, name := range manual {
			out[i] = Brief{Name: name}
		}
		return out, nil
	}
	if len(briefs) == 0 {
		return nil, &PoolEmptyError{Kind: kind}
	}

	eligible := briefs
	if difficulty > 0 {
		var matched []Brief
		for _, b := range briefs {
			if b.Matches(difficulty) {
				matched = append(matched, b)
			}
		}
		if len(matched) > 0 {
			eligible = matched
		}
	}

	size := max(1, min(n, len(eligible)))

	s.mu.Lock()
	perm := s.rnd.Perm(len(eligible))
	s.mu.Unlock()

	out := make([]Brief, size)
	for i := range size {
		out[i] = eligible[perm[i]]
	}
	return out, nil
}

// SplitManual parses a comma-separated override list, dropping blanks.
func SplitManual(csv string) []string {
	var out []string
	for _, tok := range strings.Split(csv, ",") {
		if tok = strings.TrimSpace(tok); tok != "" {
			out = append(out, tok)
		}
	}
	return out
}
