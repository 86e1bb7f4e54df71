package graph

// The pruning passes below run once after a build, in a fixed order:
// role grouping, empty-role/empty-block elision, empty-play removal,
// roleless-play removal. Each pass reindexes the groups it touched, so
// sibling indices are always contiguous from 1 and no parent holds a
// reference to a removed node.

// GroupRolesByName merges every role sharing a name into one canonical
// node, the first instance in traversal order. Later usage sites keep
// their edge but point at the canonical node, turning the tree into a
// DAG; the duplicates' subtrees are dropped with them. The canonical
// node keeps its own id, conditional and position, whatever the other
// usage sites declared.
func (p *PlaybookNode) GroupRolesByName() {
	canonical := make(map[string]*RoleNode)

	var mergeRole func(r *RoleNode) *RoleNode
	var mergeList func(nodes []Node)

	mergeRole = func(r *RoleNode) *RoleNode {
		if first, ok := canonical[r.name]; ok {
			return first
		}
		canonical[r.name] = r
		mergeList(r.Tasks)
		return r
	}
	mergeList = func(nodes []Node) {
		for i, n := range nodes {
			switch t := n.(type) {
			case *RoleNode:
				nodes[i] = mergeRole(t)
			case *BlockNode:
				mergeList(t.Tasks)
			}
		}
	}

	for _, play := range p.Plays {
		mergeList(play.PreTasks)
		for i, r := range play.Roles {
			play.Roles[i] = mergeRole(r)
		}
		mergeList(play.Tasks)
		mergeList(play.PostTasks)
	}
	p.Reindex()
}

// RemoveEmptyRolesAndBlocks drops roles and blocks left with no children,
// bottom-up, so a block emptied by tag filtering takes any block that only
// contained it down too. Roles are only dropped when rolesExpanded is
// true: an unexpanded role has no children by construction, not because
// filtering emptied it. Returns the number of removed nodes.
func (p *PlaybookNode) RemoveEmptyRolesAndBlocks(rolesExpanded bool) int {
	removed := 0
	pruned := make(map[*RoleNode]bool)

	var pruneList func(nodes []Node) []Node
	pruneRole := func(r *RoleNode) bool {
		if !pruned[r] {
			pruned[r] = true
			r.Tasks = pruneList(r.Tasks)
		}
		return rolesExpanded && r.Empty()
	}
	pruneList = func(nodes []Node) []Node {
		kept := nodes[:0]
		for _, n := range nodes {
			switch t := n.(type) {
			case *BlockNode:
				t.Tasks = pruneList(t.Tasks)
				if t.Empty() {
					removed++
					continue
				}
			case *RoleNode:
				if pruneRole(t) {
					removed++
					continue
				}
			}
			kept = append(kept, n)
		}
		return kept
	}

	for _, play := range p.Plays {
		play.PreTasks = pruneList(play.PreTasks)
		keptRoles := play.Roles[:0]
		for _, r := range play.Roles {
			if pruneRole(r) {
				removed++
				continue
			}
			keptRoles = append(keptRoles, r)
		}
		play.Roles = keptRoles
		play.Tasks = pruneList(play.Tasks)
		play.PostTasks = pruneList(play.PostTasks)
	}
	p.Reindex()
	return removed
}

// RemoveEmptyPlays drops plays with no children in any group and returns
// how many were dropped. Applying it to a playbook with no empty plays
// changes nothing.
func (p *PlaybookNode) RemoveEmptyPlays() int {
	kept := p.Plays[:0]
	removed := 0
	for _, play := range p.Plays {
		if play.Empty() {
			removed++
			continue
		}
		kept = append(kept, play)
	}
	p.Plays = kept
	for i, play := range p.Plays {
		play.setIndex(i + 1)
	}
	return removed
}

// RemovePlaysWithoutRoles drops plays that use no roles. Only play-level
// roles and include_role usages count: an import_role is statically
// inlined by the engine and indistinguishable from inline tasks here.
func (p *PlaybookNode) RemovePlaysWithoutRoles() int {
	var usesInclude func(nodes []Node) bool
	usesInclude = func(nodes []Node) bool {
		for _, n := range nodes {
			switch t := n.(type) {
			case *RoleNode:
				if t.IncludeRole {
					return true
				}
			case *BlockNode:
				if usesInclude(t.Tasks) {
					return true
				}
			}
		}
		return false
	}

	kept := p.Plays[:0]
	removed := 0
	for _, play := range p.Plays {
		hasRoles := len(play.Roles) > 0 ||
			usesInclude(play.PreTasks) || usesInclude(play.Tasks) || usesInclude(play.PostTasks)
		if !hasRoles {
			removed++
			continue
		}
		kept = append(kept, play)
	}
	p.Plays = kept
	for i, play := range p.Plays {
		play.setIndex(i + 1)
	}
	return removed
}

// Reindex rewrites every sibling index in the tree to its 1-based
// position. Roles shared between several parents after grouping end up
// with the index from the last parent visited; renderers order edges by
// their own emission counters, not by a shared node's index.
func (p *PlaybookNode) Reindex() {
	reindexComposite(p)
}

func reindexComposite(c Composite) {
	for _, g := range c.Compositions() {
		for i, n := range g.Nodes {
			n.setIndex(i + 1)
			if child, ok := n.(Composite); ok {
				reindexComposite(child)
			}
		}
	}
}
