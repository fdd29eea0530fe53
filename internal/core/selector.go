package core

import (
	"strings"

	"github.com/comalice/scxmlrun/internal/datamodel"
	"github.com/comalice/scxmlrun/internal/graph"
	"github.com/comalice/scxmlrun/internal/primitives"
)

// nameMatch reports whether any of the transition's event descriptors match
// the given event name by the SCXML prefix-and-wildcard rule: "error"
// matches "error.send.target", "*" matches everything.
func nameMatch(descriptors []string, eventName string) bool {
	if len(descriptors) == 0 {
		return false
	}
	tokens := primitives.SplitEventName(eventName)
	for _, d := range descriptors {
		if d == "*" {
			return true
		}
		dTokens := strings.Split(d, ".")
		if len(dTokens) > len(tokens) {
			continue
		}
		match := true
		for i, dt := range dTokens {
			if dt == "*" {
				break
			}
			if dt != tokens[i] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// getProperAncestors returns s1's ancestors, nearest first, stopping before
// s2 (or to the root if s2 is nil).
func getProperAncestors(s1, s2 *graph.Node) []*graph.Node {
	return s1.ProperAncestors(s2)
}

// findLCA returns the least common compound/parallel ancestor of a
// transition's source and all of its targets, generalized to multi-target
// transitions (parallel entry).
func findLCA(t *graph.Transition) *graph.Node {
	states := append([]*graph.Node{t.Source}, t.Targets...)
	return findLCAOf(states)
}

func findLCAOf(states []*graph.Node) *graph.Node {
	if len(states) == 0 {
		return nil
	}
	candidate := states[0].Parent
	for candidate != nil && !candidate.Kind.IsCompoundOrParallel() {
		candidate = candidate.Parent
	}
	for candidate != nil {
		ok := true
		for _, s := range states {
			if s != candidate && !s.IsDescendant(candidate) {
				ok = false
				break
			}
		}
		if ok {
			return candidate
		}
		candidate = candidate.Parent
	}
	return nil
}

// isPreempted reports whether state is preempted by any already-selected
// transition: state (still atomic and in the current configuration) will be
// exited anyway because it lies at or below the LCA of one of the
// transitions already chosen this round.
func isPreempted(state *graph.Node, selected []*graph.Transition) bool {
	for _, t := range selected {
		lca := findLCA(t)
		if lca == nil {
			continue
		}
		if state == lca || state.IsDescendant(lca) {
			return true
		}
	}
	return false
}

// SelectEventlessTransitions returns the eventless transitions to take this
// round: for each atomic state in the configuration (in document order),
// walk up to the first ancestor (inclusive) carrying an enabled eventless
// transition whose guard holds, and take the first document-order match.
// Later, lower-down states' selections that are preempted by an earlier,
// outer one are dropped.
func SelectEventlessTransitions(cfg *Configuration, root *graph.Node, eval datamodel.Evaluator) []*graph.Transition {
	return selectTransitionsImpl(cfg, eval, func(t *graph.Transition) bool {
		return t.IsEventless()
	})
}

// SelectTransitions selects the enabled transitions for a concrete event.
func SelectTransitions(cfg *Configuration, root *graph.Node, eval datamodel.Evaluator, evt primitives.Event) []*graph.Transition {
	name := evt.FullName()
	return selectTransitionsImpl(cfg, eval, func(t *graph.Transition) bool {
		return !t.IsEventless() && nameMatch(t.Events, name)
	})
}

func selectTransitionsImpl(cfg *Configuration, eval datamodel.Evaluator, matches func(*graph.Transition) bool) []*graph.Transition {
	var selected []*graph.Transition
	atomics := cfg.SortedByDocumentOrder()
	for _, state := range atomics {
		if !state.Kind.IsAtomic() {
			continue
		}
		if isPreempted(state, selected) {
			continue
		}
		if t := firstEnabled(state, eval, matches); t != nil {
			selected = append(selected, t)
		}
	}
	return selected
}

func firstEnabled(state *graph.Node, eval datamodel.Evaluator, matches func(*graph.Transition) bool) *graph.Transition {
	for s := state; s != nil; s = s.Parent {
		for _, t := range s.Transitions {
			if !matches(t) {
				continue
			}
			if t.Cond == "" {
				return t
			}
			ok, err := eval.Eval(t.Cond)
			if err == nil {
				if b, isBool := ok.(bool); isBool && b {
					return t
				}
			}
		}
	}
	return nil
}
