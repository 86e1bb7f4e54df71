package graph

// Visit is one step of a depth-first walk.
type Visit struct {
	Node Node
	// Parent is the composite that owns Node, nil for the root.
	Parent Node
	// Group names the composition group Node sits in under Parent.
	Group string
	// Depth is 0 for the root and grows by one per composition level.
	Depth int
}

// Walk traverses the tree under root in pre-order: the node itself, then
// each composition group in declared order, children in index order,
// recursing into a composite child before moving to its next sibling.
// This is the one ordering every renderer sees, so rendered output always
// matches declaration order. Returning false from fn stops the walk.
//
// Walk has no side effects and can be re-invoked on the same root any
// number of times.
func Walk(root Node, fn func(Visit) bool) {
	walk(root, nil, "", 0, fn)
}

// Flatten returns the complete visit sequence for root.
func Flatten(root Node) []Visit {
	var visits []Visit
	Walk(root, func(v Visit) bool {
		visits = append(visits, v)
		return true
	})
	return visits
}

func walk(n Node, parent Node, group string, depth int, fn func(Visit) bool) bool {
	if !fn(Visit{Node: n, Parent: parent, Group: group, Depth: depth}) {
		return false
	}
	c, ok := n.(Composite)
	if !ok {
		return true
	}
	for _, g := range c.Compositions() {
		for _, child := range g.Nodes {
			if !walk(child, n, g.Name, depth+1, fn) {
				return false
			}
		}
	}
	return true
}
