// Package scxmlrun is the top-level facade: construct a graph, wrap it in an
// Interpreter and an Evaluator, and expose Start/Send/IsFinished.
package scxmlrun

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/comalice/scxmlrun/internal/core"
	"github.com/comalice/scxmlrun/internal/datamodel"
	"github.com/comalice/scxmlrun/internal/graph"
	"github.com/comalice/scxmlrun/internal/invoke"
	"github.com/comalice/scxmlrun/internal/primitives"
	"github.com/comalice/scxmlrun/internal/send"
	"github.com/comalice/scxmlrun/internal/session"
)

// StateMachine is one running interpretation of a state graph.
type StateMachine struct {
	ID     string
	interp *core.Interpreter
	cancel context.CancelFunc
}

// MultiSession owns the shared registry, send dispatcher, and invoke manager
// that let many StateMachine instances address each other by session id or
// invoke id.
type MultiSession struct {
	Registry   *session.Registry
	Dispatcher *send.Dispatcher
	Invokes    *invoke.Manager
	Strict     bool

	// NewEvaluator builds a fresh Evaluator for each new session/invoke;
	// defaults to datamodel.NewGojaEvaluator when nil.
	NewEvaluator func() datamodel.Evaluator
	// Resolve turns an <invoke> spec into a child graph; callers supply this
	// since the document compiler is out of scope.
	Resolve invoke.ContentResolver
}

// NewMultiSession wires a Registry, Dispatcher, and Manager together.
func NewMultiSession(resolve invoke.ContentResolver) *MultiSession {
	reg := session.NewRegistry()
	ms := &MultiSession{
		Registry:   reg,
		Dispatcher: send.NewDispatcher(reg),
		NewEvaluator: func() datamodel.Evaluator {
			return datamodel.NewGojaEvaluator()
		},
		Resolve: resolve,
	}
	ms.Invokes = invoke.NewManager(reg, resolve, ms.NewEvaluator)
	ms.Invokes.WireHooks = ms.wireHooks
	return ms
}

func (ms *MultiSession) wireHooks(interp *core.Interpreter) {
	interp.Strict = ms.Strict
	interp.SendHook = ms.Dispatcher.Send
	interp.CancelHook = ms.Dispatcher.Cancel
	interp.InvokeSpawnHook = ms.Invokes.Spawn
	interp.InvokeCancelHook = ms.Invokes.Cancel
	interp.StartSessionHook = ms.startSession
}

func (ms *MultiSession) startSession(sessionID string, s core.StartSession) error {
	if ms.Resolve == nil {
		return fmt.Errorf("scxmlrun: no content resolver configured for start_session")
	}
	root, err := ms.Resolve(&graph.InvokeSpec{Src: s.Src, SrcExpr: s.SrcExpr, Content: s.Content})
	if err != nil {
		return err
	}
	sm, err := ms.NewSession(context.Background(), root)
	if err != nil {
		return err
	}
	go func() { _ = sm.Start(context.Background()) }()
	return nil
}

// NewSession constructs and registers a StateMachine for root, but does not
// start it; callers start it explicitly via StateMachine.Start so they can
// observe the session id first (e.g. to register with transport).
func (ms *MultiSession) NewSession(ctx context.Context, root *graph.Node) (*StateMachine, error) {
	id := uuid.NewString()
	newEval := ms.NewEvaluator
	if newEval == nil {
		newEval = func() datamodel.Evaluator { return datamodel.NewGojaEvaluator() }
	}
	eval := newEval()
	interp := core.NewInterpreter(id, root, eval)
	ms.wireHooks(interp)
	ms.Registry.Register(id, interp.ExternalQ)
	return &StateMachine{ID: id, interp: interp}, nil
}

// Start runs the interpreter to completion (or until ctx is cancelled) in
// the calling goroutine; callers that want an async session should call this
// in their own goroutine.
func (sm *StateMachine) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	sm.cancel = cancel
	return sm.interp.Start(runCtx)
}

// Send enqueues an external event by name with optional data.
func (sm *StateMachine) Send(name string, data any) {
	sm.interp.ExternalQ.Push(primitives.NewEvent(name, data))
}

// In reports whether stateID is in the current configuration.
func (sm *StateMachine) In(stateID string) bool {
	n := graph.ByID(sm.interp.Root, stateID)
	return n != nil && sm.interp.Config.Contains(n)
}

// IsFinished reports whether the top-level final state has been reached.
func (sm *StateMachine) IsFinished() bool {
	return sm.interp.IsFinished()
}

// Stop cancels a running session.
func (sm *StateMachine) Stop() {
	if sm.cancel != nil {
		sm.cancel()
	}
}
