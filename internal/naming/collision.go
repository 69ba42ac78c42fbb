package naming

import (
	"fmt"
	"path"
	"strings"
)

// CollisionResolver hands out unique archive entry names. The first claimant
// of a name keeps it; later claimants receive "_2", "_3", ... before the
// extension. Claims must be made in input order for the numbering to be
// stable. Not safe for concurrent use.
type CollisionResolver struct {
	claimed  map[string]struct{}
	counters map[string]int // requested name → next suffix to try
}

// NewCollisionResolver creates a ready-to-use resolver.
func NewCollisionResolver() *CollisionResolver {
	return &CollisionResolver{
		claimed:  make(map[string]struct{}),
		counters: make(map[string]int),
	}
}

// Resolve claims requested, or the first free numbered variant of it.
func (cr *CollisionResolver) Resolve(requested string) string {
	if _, taken := cr.claimed[requested]; !taken {
		cr.claimed[requested] = struct{}{}
		return requested
	}

	ext := path.Ext(requested)
	stem := strings.TrimSuffix(requested, ext)

	counter := cr.counters[requested]
	if counter == 0 {
		counter = 2
	}

	for {
		candidate := fmt.Sprintf("%s_%d%s", stem, counter, ext)
		counter++
		if _, taken := cr.claimed[candidate]; !taken {
			cr.counters[requested] = counter
			cr.claimed[candidate] = struct{}{}
			return candidate
		}
	}
}
