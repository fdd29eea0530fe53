package graph

import "fmt"

// Builder assembles a Node tree programmatically. It plays the role an XML
// compiler would play in a full SCXML toolchain (out of scope here); callers
// — typically testutil or a future document loader — construct the graph
// directly with this fluent API.
type Builder struct {
	root *Node
	byID map[string]*Node
	errs []error
}

// NewBuilder starts a new graph rooted at a synthetic scxml root node with
// the given document id (the `name` of the top-level <scxml> element).
func NewBuilder(id string) *Builder {
	root := &Node{ID: id, Kind: Root}
	return &Builder{root: root, byID: map[string]*Node{id: root}}
}

// Root returns the root node under construction.
func (b *Builder) Root() *Node { return b.root }

// AddState adds a child node of the given kind under parentID, returning it
// for further configuration (transitions, onentry/onexit, invokes).
func (b *Builder) AddState(parentID, id string, kind NodeKind) *Node {
	parent, ok := b.byID[parentID]
	if !ok {
		b.errs = append(b.errs, fmt.Errorf("graph: unknown parent state %q", parentID))
		return nil
	}
	if _, dup := b.byID[id]; dup {
		b.errs = append(b.errs, fmt.Errorf("graph: duplicate state id %q", id))
		return nil
	}
	n := &Node{ID: id, Kind: kind, Parent: parent}
	parent.Children = append(parent.Children, n)
	b.byID[id] = n
	return n
}

// SetInitial records the default-entry transition for a Compound/Parallel/Root node.
func (b *Builder) SetInitial(parentID string, targetIDs ...string) {
	parent, ok := b.byID[parentID]
	if !ok {
		b.errs = append(b.errs, fmt.Errorf("graph: unknown parent state %q", parentID))
		return
	}
	targets, err := b.resolve(targetIDs)
	if err != nil {
		b.errs = append(b.errs, err)
		return
	}
	parent.Initial = &Transition{Source: parent, Targets: targets}
}

// AddTransition attaches a transition to source, for the given event
// descriptors (nil/empty = eventless), guard expression, and targets
// (nil/empty = targetless).
func (b *Builder) AddTransition(sourceID string, events []string, cond string, targetIDs []string, content ...ExecutableContent) *Transition {
	source, ok := b.byID[sourceID]
	if !ok {
		b.errs = append(b.errs, fmt.Errorf("graph: unknown source state %q", sourceID))
		return nil
	}
	targets, err := b.resolve(targetIDs)
	if err != nil {
		b.errs = append(b.errs, err)
		return nil
	}
	t := &Transition{
		Source:   source,
		Targets:  targets,
		Events:   events,
		Cond:     cond,
		Content:  content,
		Document: len(source.Transitions),
	}
	source.Transitions = append(source.Transitions, t)
	return t
}

// SetHistoryDefault records the transition a history node takes the first
// time its parent is entered (no recorded memory yet).
func (b *Builder) SetHistoryDefault(historyID string, targetIDs ...string) {
	h, ok := b.byID[historyID]
	if !ok {
		b.errs = append(b.errs, fmt.Errorf("graph: unknown history state %q", historyID))
		return
	}
	targets, err := b.resolve(targetIDs)
	if err != nil {
		b.errs = append(b.errs, err)
		return
	}
	h.HistoryDefault = &Transition{Source: h, Targets: targets}
}

// AddOnEntry/AddOnExit append executable content run on entry/exit of a state.
func (b *Builder) AddOnEntry(stateID string, c ExecutableContent) {
	if n, ok := b.byID[stateID]; ok {
		n.OnEntry = append(n.OnEntry, c)
	} else {
		b.errs = append(b.errs, fmt.Errorf("graph: unknown state %q", stateID))
	}
}

func (b *Builder) AddOnExit(stateID string, c ExecutableContent) {
	if n, ok := b.byID[stateID]; ok {
		n.OnExit = append(n.OnExit, c)
	} else {
		b.errs = append(b.errs, fmt.Errorf("graph: unknown state %q", stateID))
	}
}

// AddInvoke attaches an invoke descriptor to a state.
func (b *Builder) AddInvoke(stateID string, inv *InvokeSpec) {
	if n, ok := b.byID[stateID]; ok {
		n.Invokes = append(n.Invokes, inv)
	} else {
		b.errs = append(b.errs, fmt.Errorf("graph: unknown state %q", stateID))
	}
}

// SetDoneData attaches a <donedata> producer to a Final node.
func (b *Builder) SetDoneData(stateID string, fn DoneDataFunc) {
	if n, ok := b.byID[stateID]; ok {
		n.DoneData = fn
	} else {
		b.errs = append(b.errs, fmt.Errorf("graph: unknown state %q", stateID))
	}
}

func (b *Builder) resolve(ids []string) ([]*Node, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	out := make([]*Node, 0, len(ids))
	for _, id := range ids {
		n, ok := b.byID[id]
		if !ok {
			return nil, fmt.Errorf("graph: unknown target state %q", id)
		}
		out = append(out, n)
	}
	return out, nil
}

// Freeze validates the graph (every Parallel node must have >=2 children;
// every Compound/Root with more than one child must have an Initial, and one
// with exactly one child gets that child as its Initial; history nodes are
// not checked), assigns document order, and returns the root. The Builder
// must not be used afterward.
func (b *Builder) Freeze() (*Node, error) {
	if len(b.errs) > 0 {
		return nil, fmt.Errorf("graph: %d error(s) building graph, first: %w", len(b.errs), b.errs[0])
	}
	n := 0
	var assign func(*Node)
	assign = func(node *Node) {
		node.N = n
		n++
		for _, c := range node.Children {
			assign(c)
		}
	}
	assign(b.root)

	var validate func(*Node) error
	validate = func(node *Node) error {
		switch node.Kind {
		case Parallel:
			if len(node.Children) < 2 {
				return fmt.Errorf("graph: parallel state %q must have >=2 children", node.ID)
			}
		case Compound, Root:
			if node.Initial == nil {
				if len(node.Children) == 1 {
					node.Initial = &Transition{Source: node, Targets: []*Node{node.Children[0]}}
				} else if len(node.Children) > 1 {
					return fmt.Errorf("graph: compound state %q has multiple children but no initial", node.ID)
				}
			}
		}
		for _, c := range node.Children {
			if err := validate(c); err != nil {
				return err
			}
		}
		return nil
	}
	if err := validate(b.root); err != nil {
		return nil, err
	}
	return b.root, nil
}

// ByID looks up a node by id on a frozen (or in-progress) graph rooted at root.
func ByID(root *Node, id string) *Node {
	if root.ID == id {
		return root
	}
	for _, c := range root.Children {
		if found := ByID(c, id); found != nil {
			return found
		}
	}
	return nil
}
