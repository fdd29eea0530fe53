// Package graph defines the static state-graph model an Interpreter walks.
//
// A graph is built once, by a Builder (the compiler boundary — an XML or
// programmatic front end is out of scope here), and frozen before any
// Interpreter touches it. Nodes never mutate after Freeze; concurrent
// sessions share one *Node tree safely because the tree is read-only.
package graph

// NodeKind is the SCXML state kind, per the node algebra in SPEC_FULL.md C1.
type NodeKind int

const (
	Root NodeKind = iota
	Compound
	Parallel
	Atomic
	Final
	HistoryShallow
	HistoryDeep
)

func (k NodeKind) String() string {
	switch k {
	case Root:
		return "root"
	case Compound:
		return "compound"
	case Parallel:
		return "parallel"
	case Atomic:
		return "atomic"
	case Final:
		return "final"
	case HistoryShallow:
		return "history(shallow)"
	case HistoryDeep:
		return "history(deep)"
	default:
		return "unknown"
	}
}

func (k NodeKind) IsHistory() bool {
	return k == HistoryShallow || k == HistoryDeep
}

func (k NodeKind) IsAtomic() bool {
	return k == Atomic || k == Final
}

func (k NodeKind) IsCompoundOrParallel() bool {
	return k == Compound || k == Parallel || k == Root
}

// DoneDataFunc produces the <donedata> payload for a final state, evaluated
// against the data model in scope when the final state is entered.
type DoneDataFunc func(eval Evaluator) (map[string]any, error)

// Evaluator is the minimal surface graph.DoneDataFunc needs; it is satisfied
// by datamodel.Evaluator without graph depending on that package (keeps the
// dependency direction core -> datamodel, not graph -> datamodel).
type Evaluator interface {
	Eval(expr string) (any, error)
}

// Node is one vertex of the static state graph.
type Node struct {
	ID       string
	Kind     NodeKind
	N        int // document order, assigned by Builder.Freeze
	Parent   *Node
	Children []*Node

	// Initial is the default child transition target for Compound nodes
	// (a Transition with no Event/Cond, Target pointing at the initial child).
	Initial *Transition

	Transitions []*Transition
	OnEntry     []ExecutableContent
	OnExit      []ExecutableContent
	Invokes     []*InvokeSpec

	// History-node-only fields.
	HistoryDefault *Transition

	// Final-node-only field.
	DoneData DoneDataFunc
}

// InvokeSpec is the static description of an <invoke>; the InvokeManager
// (package invoke) turns this into a running child session.
type InvokeSpec struct {
	ID         string
	IDLocation string
	Type       string
	Src        string
	SrcExpr    string
	AutoForward bool
	Content    string // inline document, opaque to graph
	Finalize   []ExecutableContent
	Namelist   []string
	Params     map[string]string
}

// ExecutableContent is implemented by every executable-content element kind;
// the concrete types live in package core (content.go) since executing them
// requires the interpreter's runtime context. graph only needs to hold them.
// The marker method is exported so that types in package core can implement it.
type ExecutableContent interface {
	IsExecutableContent()
}

// IsDescendant reports whether n is a (possibly indirect) descendant of anc.
func (n *Node) IsDescendant(anc *Node) bool {
	for p := n.Parent; p != nil; p = p.Parent {
		if p == anc {
			return true
		}
	}
	return false
}

// ProperAncestors returns n's ancestors, nearest first, stopping at (and
// excluding) stop when stop is non-nil.
func (n *Node) ProperAncestors(stop *Node) []*Node {
	var out []*Node
	for p := n.Parent; p != nil && p != stop; p = p.Parent {
		out = append(out, p)
	}
	return out
}

// Depth returns the distance from the root (root itself is 0).
func (n *Node) Depth() int {
	d := 0
	for p := n.Parent; p != nil; p = p.Parent {
		d++
	}
	return d
}
