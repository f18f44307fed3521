package testfixtures

import (
	"fmt"
	"sync"
)

// IDGenerator yields predictable correlation tokens and event ids.
type IDGenerator struct {
	mu      sync.Mutex
	prefix  string
	counter uint64
}

// NewIDGenerator returns a generator producing "prefix-N". An empty prefix
// becomes "token".
func NewIDGenerator(prefix string) *IDGenerator {
	if prefix == "" {
		prefix = "token"
	}
	return &IDGenerator{prefix: prefix}
}

// Next returns the next identifier.
func (g *IDGenerator) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.counter++
	return fmt.Sprintf("%s-%d", g.prefix, g.counter)
}

// NextFunc returns Next for injection.
func (g *IDGenerator) NextFunc() func() string {
	if g == nil {
		return func() string { return "" }
	}
	return g.Next
}

// Last returns the most recently issued identifier, or "" before the first.
func (g *IDGenerator) Last() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.counter == 0 {
		return ""
	}
	return fmt.Sprintf("%s-%d", g.prefix, g.counter)
}
