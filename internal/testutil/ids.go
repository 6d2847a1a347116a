package testutil

import (
	"fmt"
	"sync"
)

// SequenceGenerator generates "<prefix>-1", "<prefix>-2", ...
//
// Unlike engine.FixedGenerator it never runs out, which suits tests that
// issue an unknown number of double record keys.
//
// Thread-safety: SequenceGenerator is safe for concurrent use.
type SequenceGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceGenerator creates a generator. An empty prefix means "id".
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	if prefix == "" {
		prefix = "id"
	}
	return &SequenceGenerator{prefix: prefix}
}

// Generate returns the next id.
func (g *SequenceGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s-%d", g.prefix, g.n)
}

// Count returns how many ids were generated.
func (g *SequenceGenerator) Count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.n
}
