// Package invoke implements invocation lifecycle management: spawning,
// autoforwarding, finalizing, and cancelling child sessions started by
// <invoke>.
package invoke

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/comalice/scxmlrun/internal/core"
	"github.com/comalice/scxmlrun/internal/datamodel"
	"github.com/comalice/scxmlrun/internal/graph"
	"github.com/comalice/scxmlrun/internal/logging"
	"github.com/comalice/scxmlrun/internal/primitives"
	"github.com/comalice/scxmlrun/internal/session"
)

// ContentResolver turns an invoke's Src/SrcExpr/Content into a graph root,
// playing the role the out-of-scope XML/document compiler would play.
type ContentResolver func(spec *graph.InvokeSpec) (*graph.Node, error)

// Handle is a running invocation.
type Handle struct {
	ID      string
	ChildID string
	Owner   *graph.Node
	Interp  *core.Interpreter
	cancel  context.CancelFunc
	OnDone  func(invokeID string, doneData any)
}

// Manager spawns and tracks invocations for every session sharing one
// Registry, installed into each Interpreter via the InvokeSpawnHook /
// InvokeCancelHook fields.
type Manager struct {
	Registry *session.Registry
	Resolve  ContentResolver

	// NewEvaluator constructs a fresh data-model evaluator for each spawned
	// child session (each session owns its own, never shared).
	NewEvaluator func() datamodel.Evaluator

	// WireHooks installs SendHook/CancelHook/InvokeSpawnHook/StartSessionHook
	// onto a freshly constructed child Interpreter before Start; supplied by
	// the facade that owns the Dispatcher/Manager wiring, so invoke need not
	// import send directly.
	WireHooks func(interp *core.Interpreter)

	mu      sync.Mutex
	byOwner map[*graph.Node][]*Handle
}

func NewManager(reg *session.Registry, resolve ContentResolver, newEval func() datamodel.Evaluator) *Manager {
	return &Manager{
		Registry:     reg,
		Resolve:      resolve,
		NewEvaluator: newEval,
		byOwner:      make(map[*graph.Node][]*Handle),
	}
}

// Spawn starts spec as a child of parent's interpreter, owned by state owner
// (so it is cancelled if owner is exited). Completion runs spec's <finalize>
// content against parent's data model, then pushes done.invoke.<id> onto
// parent's external queue.
func (m *Manager) Spawn(owner *graph.Node, spec *graph.InvokeSpec, parent *core.Interpreter) error {
	root, err := m.Resolve(spec)
	if err != nil {
		return fmt.Errorf("invoke: resolve %s: %w", spec.Src, err)
	}
	invokeID := spec.ID
	if invokeID == "" {
		invokeID = uuid.NewString()
	}
	childID := parent.SessionID + "." + invokeID

	eval := m.NewEvaluator()
	child := core.NewInterpreter(childID, root, eval)
	_ = eval.BindGlobal("_parent", parent.SessionID)
	if m.WireHooks != nil {
		m.WireHooks(child)
	}

	m.Registry.Register(childID, child.ExternalQ)
	m.Registry.RegisterParent(childID, parent.SessionID)
	m.Registry.RegisterInvoke(parent.SessionID, invokeID, child.ExternalQ)

	ctx, cancel := context.WithCancel(context.Background())
	h := &Handle{ID: invokeID, ChildID: childID, Owner: owner, Interp: child, cancel: cancel}

	m.mu.Lock()
	m.byOwner[owner] = append(m.byOwner[owner], h)
	m.mu.Unlock()

	log := logging.WithInvoke(invokeID)
	go func() {
		if err := child.Start(ctx); err != nil {
			log.WithField("error", err.Error()).Warn("invoked session ended with error")
		}
		m.Registry.Unregister(childID)
		m.Registry.UnregisterInvoke(parent.SessionID, invokeID)
		if len(spec.Finalize) > 0 {
			parent.RunContent(spec.Finalize)
		}
		parent.ExternalQ.Push(primitives.NewInternalEvent("done.invoke."+invokeID, nil))
	}()

	if spec.AutoForward {
		go m.autoforward(ctx, parent.ExternalQ, child)
	}

	return nil
}

// autoforward relays every event the parent session receives to the child for
// as long as the invocation is alive, via a tap on the parent's external
// queue so the parent's own event loop is undisturbed.
func (m *Manager) autoforward(ctx context.Context, parentExternal *core.ExternalQueue, child *core.Interpreter) {
	tap := parentExternal.AddTap(16)
	defer parentExternal.RemoveTap(tap)
	for {
		select {
		case evt := <-tap:
			child.ExternalQ.Push(evt)
		case <-ctx.Done():
			return
		}
	}
}

// Cancel stops every invocation owned by owner (a state that has been
// exited).
func (m *Manager) Cancel(owner *graph.Node) {
	m.mu.Lock()
	handles := m.byOwner[owner]
	delete(m.byOwner, owner)
	m.mu.Unlock()
	for _, h := range handles {
		h.cancel()
	}
}
