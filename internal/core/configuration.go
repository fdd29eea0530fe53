package core

import (
	"sort"

	"github.com/comalice/scxmlrun/internal/graph"
	"github.com/comalice/scxmlrun/internal/primitives"
)

// Configuration is the ordered set of currently active state nodes. History
// records, per history node id, the set of states active under its parent
// the last time the parent was exited.
type Configuration struct {
	set     *primitives.OrderedSet[*graph.Node]
	History map[string][]*graph.Node
}

func NewConfiguration() *Configuration {
	return &Configuration{
		set:     primitives.NewOrderedSet[*graph.Node](),
		History: make(map[string][]*graph.Node),
	}
}

func (c *Configuration) Add(n *graph.Node)      { c.set.Add(n) }
func (c *Configuration) Remove(n *graph.Node)   { c.set.Delete(n) }
func (c *Configuration) Contains(n *graph.Node) bool { return c.set.Contains(n) }
func (c *Configuration) Size() int              { return c.set.Size() }

// Snapshot returns the active nodes in insertion order.
func (c *Configuration) Snapshot() []*graph.Node { return c.set.Items() }

// SortedByDocumentOrder returns the active nodes ordered by document index.
func (c *Configuration) SortedByDocumentOrder() []*graph.Node {
	out := c.set.Items()
	sort.Slice(out, func(i, j int) bool { return out[i].N < out[j].N })
	return out
}

// EnterOrder sorts states for entry: ancestors before descendants, then by
// document order.
func EnterOrder(states []*graph.Node) []*graph.Node {
	out := append([]*graph.Node(nil), states...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Depth() != out[j].Depth() {
			return out[i].Depth() < out[j].Depth()
		}
		return out[i].N < out[j].N
	})
	return out
}

// ExitOrder sorts states for exit: descendants before ancestors, then by
// ascending document order within the same depth.
func ExitOrder(states []*graph.Node) []*graph.Node {
	out := append([]*graph.Node(nil), states...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Depth() != out[j].Depth() {
			return out[i].Depth() > out[j].Depth()
		}
		return out[i].N < out[j].N
	})
	return out
}

// IsInFinalState reports whether s's own completion condition holds: for an
// atomic Final node, always true; for Compound, true if its active child is
// a Final state; for Parallel, true if every region IsInFinalState.
func (c *Configuration) IsInFinalState(s *graph.Node) bool {
	switch s.Kind {
	case graph.Final:
		return true
	case graph.Compound, graph.Root:
		for _, child := range s.Children {
			if child.Kind.IsHistory() {
				continue
			}
			if c.Contains(child) && c.IsInFinalState(child) {
				return true
			}
		}
		return false
	case graph.Parallel:
		for _, child := range s.Children {
			if child.Kind.IsHistory() {
				continue
			}
			if !c.IsInFinalState(child) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
