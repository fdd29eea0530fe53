package core

import (
	"github.com/comalice/scxmlrun/internal/graph"
	"github.com/comalice/scxmlrun/internal/primitives"
)

// Microstep runs one set of (already selected, non-preempted) transitions to
// completion: compute exit set, run exit handlers (recording history),
// execute transition content, compute entry set, run entry handlers, and
// raise done.state events for entered final states (see raiseDoneState).
func (interp *Interpreter) Microstep(transitions []*graph.Transition) {
	exitSet := interp.computeExitSet(transitions)
	interp.exitStates(exitSet)
	for _, t := range transitions {
		for _, c := range t.Content {
			_ = Execute(interp.execCtx(), c)
		}
	}
	interp.enterStates(transitions)
}

// computeExitSet unions, over every selected transition, the states that lie
// strictly inside the transition's LCA and are currently active.
func (interp *Interpreter) computeExitSet(transitions []*graph.Transition) []*graph.Node {
	set := primitives.NewOrderedSet[*graph.Node]()
	for _, t := range transitions {
		if t.IsTargetless() {
			continue
		}
		lca := findLCA(t)
		for _, s := range interp.Config.Snapshot() {
			if lca == nil || s.IsDescendant(lca) {
				set.Add(s)
			}
		}
	}
	return set.Items()
}

// exitStates first records history memory for the history children of every
// exited state (before any state is removed), then in exit order runs onexit
// handlers, cancels invokes owned by the exited state, and removes the state
// from the configuration.
func (interp *Interpreter) exitStates(states []*graph.Node) {
	ordered := ExitOrder(states)
	for _, s := range ordered {
		if interp.Config.Contains(s) {
			interp.recordHistory(s)
		}
	}
	for _, s := range ordered {
		if !interp.Config.Contains(s) {
			continue
		}
		for _, c := range s.OnExit {
			_ = Execute(interp.execCtx(), c)
		}
		interp.CancelInvokes(s)
		interp.Config.Remove(s)
	}
}

// recordHistory snapshots, for every history child of parent, the states
// that were active under parent just before it was exited.
func (interp *Interpreter) recordHistory(parent *graph.Node) {
	for _, sib := range parent.Children {
		if !sib.Kind.IsHistory() {
			continue
		}
		var recorded []*graph.Node
		if sib.Kind == graph.HistoryDeep {
			for _, active := range interp.Config.Snapshot() {
				if active.Kind.IsAtomic() && active.IsDescendant(parent) {
					recorded = append(recorded, active)
				}
			}
		} else {
			recorded = intersectActive(interp.Config, parent.Children)
		}
		interp.Config.History[sib.ID] = recorded
	}
}

func intersectActive(cfg *Configuration, candidates []*graph.Node) []*graph.Node {
	var out []*graph.Node
	for _, c := range candidates {
		if cfg.Contains(c) {
			out = append(out, c)
		}
	}
	return out
}

// enterStates computes the entry set for transitions and runs onentry
// handlers in enter order, recursing through addDescendantStatesToEnter and
// addAncestorStatesToEnter for compound/parallel/history targets, starts the
// invokes of each entered state, and calls raiseDoneState for every entered
// Final state.
func (interp *Interpreter) enterStates(transitions []*graph.Transition) {
	entrySet := primitives.NewOrderedSet[*graph.Node]()
	for _, t := range transitions {
		lca := findLCA(t)
		for _, target := range t.Targets {
			interp.addDescendantStatesToEnter(target, entrySet)
			interp.addAncestorStatesToEnter(target, lca, entrySet)
		}
	}
	for _, s := range EnterOrder(entrySet.Items()) {
		interp.Config.Add(s)
		for _, c := range s.OnEntry {
			_ = Execute(interp.execCtx(), c)
		}
		for _, inv := range s.Invokes {
			interp.SpawnInvoke(s, inv)
		}
		if s.Kind == graph.Final {
			interp.raiseDoneState(s)
		}
	}
}

// addDescendantStatesToEnter computes the states a target's own entry pulls
// in: entering a Compound state also enters its initial child (recorded
// history is used only when a History node is the target); entering a
// Parallel state enters every region not already
// covered by an already-enqueued descendant; entering a History node enters
// its recorded memory (or its default transition the first time).
func (interp *Interpreter) addDescendantStatesToEnter(s *graph.Node, entrySet *primitives.OrderedSet[*graph.Node]) {
	if s.Kind.IsHistory() {
		targets := interp.Config.History[s.ID]
		if targets == nil && s.HistoryDefault != nil {
			targets = s.HistoryDefault.Targets
		}
		for _, r := range targets {
			interp.addDescendantStatesToEnter(r, entrySet)
		}
		for _, r := range targets {
			interp.addAncestorStatesToEnter(r, s.Parent, entrySet)
		}
		return
	}

	entrySet.Add(s)

	switch s.Kind {
	case graph.Compound, graph.Root:
		if s.Initial != nil {
			for _, t := range s.Initial.Targets {
				interp.addDescendantStatesToEnter(t, entrySet)
			}
			for _, t := range s.Initial.Targets {
				interp.addAncestorStatesToEnter(t, s, entrySet)
			}
		}
	case graph.Parallel:
		for _, child := range s.Children {
			if child.Kind.IsHistory() {
				continue
			}
			covered := false
			for _, already := range entrySet.Items() {
				if already.IsDescendant(child) || already == child {
					covered = true
					break
				}
			}
			if !covered {
				interp.addDescendantStatesToEnter(child, entrySet)
			}
		}
	}
}

// addAncestorStatesToEnter adds s's proper ancestors up to (excluding)
// boundary, and for any Parallel ancestor, pulls in its other regions too.
func (interp *Interpreter) addAncestorStatesToEnter(s, boundary *graph.Node, entrySet *primitives.OrderedSet[*graph.Node]) {
	for _, anc := range getProperAncestors(s, boundary) {
		entrySet.Add(anc)
		if anc.Kind == graph.Parallel {
			for _, child := range anc.Children {
				if child.Kind.IsHistory() {
					continue
				}
				covered := false
				for _, already := range entrySet.Items() {
					if already.IsDescendant(child) || already == child {
						covered = true
						break
					}
				}
				if !covered {
					interp.addDescendantStatesToEnter(child, entrySet)
				}
			}
		}
	}
}

// raiseDoneState raises done.state.<parent.id> for s's entry into a Final
// state, then checks exactly one level further: if the grandparent is a
// Parallel state and every one of its regions is now in a final state
// (i.e. this was the last region to finish), also raise
// done.state.<grandparent.id>. No further recursion.
func (interp *Interpreter) raiseDoneState(s *graph.Node) {
	parent := s.Parent
	if parent == nil {
		return
	}
	data, _ := doneData(s, interp.Evaluator)
	interp.InternalQ.Push(primitives.NewInternalEvent("done.state."+parent.ID, data))

	grandparent := parent.Parent
	if grandparent != nil && grandparent.Kind == graph.Parallel && interp.Config.IsInFinalState(grandparent) {
		interp.InternalQ.Push(primitives.NewInternalEvent("done.state."+grandparent.ID, nil))
	}
}

func doneData(final *graph.Node, eval interface {
	Eval(string) (any, error)
}) (map[string]any, error) {
	if final.DoneData == nil {
		return nil, nil
	}
	return final.DoneData(eval)
}
