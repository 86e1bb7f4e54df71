package graph

import (
	"crypto/sha256"
	"fmt"
)

// IDGenerator produces node identifiers of the form <kind>_<8 hex chars>.
// The hash covers the node kind, its name and a monotonic creation
// counter, so ids are unique within one generator and two builds that
// create nodes in the same order produce the same ids. Each playbook
// build owns its own generator; there is no global state.
//
// Not safe for concurrent use. A build is sequential by design: index
// assignment depends on sibling order, so sharing a generator across
// goroutines would be a bug before it ever raced.
type IDGenerator struct {
	counter uint64
}

// NewIDGenerator returns a generator starting at zero.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{}
}

// Next returns the identifier for the next created node of the given kind.
func (g *IDGenerator) Next(kind Kind, name string) string {
	g.counter++
	sum := sha256.Sum256(fmt.Appendf(nil, "%s\x00%s\x00%d", kind, name, g.counter))
	return fmt.Sprintf("%s_%x", kind, sum[:4])
}
