package core

import (
	"context"
	"fmt"

	"github.com/comalice/scxmlrun/internal/datamodel"
	"github.com/comalice/scxmlrun/internal/graph"
	"github.com/comalice/scxmlrun/internal/logging"
	"github.com/comalice/scxmlrun/internal/primitives"
)

// SendFunc and friends let core stay independent of the send/invoke
// packages (which would otherwise import core, causing a cycle); the
// Interpreter's owner wires concrete implementations in via these fields.
type SendFunc func(sessionID string, s Send) error
type CancelFunc func(sessionID string, c Cancel) error
type InvokeSpawnFunc func(owner *graph.Node, spec *graph.InvokeSpec, parent *Interpreter) error
type InvokeCancelFunc func(owner *graph.Node)
type StartSessionFunc func(sessionID string, s StartSession) error

// Interpreter runs the statechart interpretation algorithm for one session
// over a frozen graph.Node tree.
type Interpreter struct {
	SessionID string
	Root      *graph.Node
	Config    *Configuration
	InternalQ *InternalQueue
	ExternalQ *ExternalQueue
	Evaluator datamodel.Evaluator
	Strict    bool

	SendHook         SendFunc
	CancelHook       CancelFunc
	InvokeSpawnHook  InvokeSpawnFunc
	InvokeCancelHook InvokeCancelFunc
	StartSessionHook StartSessionFunc

	finished bool
	log      *logging.Entry
}

// NewInterpreter builds an Interpreter for root, owned by sessionID, using
// eval as its data-model evaluator. Hooks may be nil rather than panic, so a
// minimal embedding (no transport, no invoke) still runs: a <send> then
// raises error.communication.error, a <cancel> or <start_session> raises
// error.execution.error, and invokes are not started.
func NewInterpreter(sessionID string, root *graph.Node, eval datamodel.Evaluator) *Interpreter {
	interp := &Interpreter{
		SessionID: sessionID,
		Root:      root,
		Config:    NewConfiguration(),
		InternalQ: NewInternalQueue(),
		ExternalQ: NewExternalQueue(0),
		Evaluator: eval,
		log:       logging.WithSession(sessionID),
	}
	eval.BindIn(func(stateID string) bool {
		n := graph.ByID(root, stateID)
		return n != nil && interp.Config.Contains(n)
	})
	_ = eval.BindGlobal("_sessionid", sessionID)
	_ = eval.BindGlobal("_name", root.ID)
	return interp
}

func (interp *Interpreter) execCtx() *ExecContext {
	return &ExecContext{
		Eval:   interp.Evaluator,
		Strict: interp.Strict,
		Raise: func(e primitives.Event) {
			interp.InternalQ.Push(e)
		},
		Send: func(s Send) error {
			if interp.SendHook == nil {
				return fmt.Errorf("core: no send hook installed")
			}
			return interp.SendHook(interp.SessionID, s)
		},
		Cancel: func(c Cancel) error {
			if interp.CancelHook == nil {
				return fmt.Errorf("core: no cancel hook installed")
			}
			return interp.CancelHook(interp.SessionID, c)
		},
		StartSession: func(s StartSession) error {
			if interp.StartSessionHook == nil {
				return fmt.Errorf("core: no start-session hook installed")
			}
			return interp.StartSessionHook(interp.SessionID, s)
		},
		Log: func(label string, value any) {
			interp.log.WithField("label", label).Info(fmt.Sprint(value))
		},
	}
}

func (interp *Interpreter) CancelInvokes(owner *graph.Node) {
	if interp.InvokeCancelHook != nil {
		interp.InvokeCancelHook(owner)
	}
}

func (interp *Interpreter) SpawnInvoke(owner *graph.Node, spec *graph.InvokeSpec) {
	if interp.InvokeSpawnHook == nil {
		return
	}
	if err := interp.InvokeSpawnHook(owner, spec, interp); err != nil {
		interp.InternalQ.Push(primitives.NewPlatformEvent("error.execution.invoke", err.Error()))
	}
}

// RunContent executes a standalone list of executable content (such as an
// <invoke>'s <finalize> block) against this interpreter's data model and
// hooks, outside of a transition's own content list.
func (interp *Interpreter) RunContent(content []graph.ExecutableContent) {
	for _, c := range content {
		_ = Execute(interp.execCtx(), c)
	}
}

// Start runs the initial entry (synthetic transition into root.Initial),
// drains the eventless closure, and then runs the main event loop until ctx
// is cancelled or the top-level final state is reached.
func (interp *Interpreter) Start(ctx context.Context) error {
	init := &graph.Transition{Source: interp.Root, Targets: []*graph.Node{interp.Root}}
	if interp.Root.Initial != nil {
		init = interp.Root.Initial
	}
	interp.Microstep([]*graph.Transition{init})
	interp.drainEventlessClosure()
	if interp.Config.IsInFinalState(interp.Root) {
		interp.finished = true
		return nil
	}
	return interp.mainEventLoop(ctx)
}

func (interp *Interpreter) drainEventlessClosure() {
	for {
		if ts := SelectEventlessTransitions(interp.Config, interp.Root, interp.Evaluator); len(ts) > 0 {
			interp.Microstep(ts)
			continue
		}
		if interp.InternalQ.IsEmpty() {
			return
		}
		evt, ok := interp.InternalQ.TryPop()
		if !ok {
			return
		}
		interp.Evaluator.BindEvent(evt.FullName(), evt.Data, evt.Kind.String(), evt.SendID, evt.Origin, evt.OriginType, evt.InvokeID)
		if ts := SelectTransitions(interp.Config, interp.Root, interp.Evaluator, evt); len(ts) > 0 {
			interp.Microstep(ts)
		}
	}
}

func (interp *Interpreter) mainEventLoop(ctx context.Context) error {
	for {
		evt, ok := interp.ExternalQ.Pop(ctx)
		if !ok {
			return ctx.Err()
		}
		interp.log.Infof("dequeued external event %s", evt.FullName())
		interp.Evaluator.BindEvent(evt.FullName(), evt.Data, evt.Kind.String(), evt.SendID, evt.Origin, evt.OriginType, evt.InvokeID)
		if ts := SelectTransitions(interp.Config, interp.Root, interp.Evaluator, evt); len(ts) > 0 {
			interp.Microstep(ts)
			interp.drainEventlessClosure()
		}
		if interp.Config.IsInFinalState(interp.Root) {
			interp.finished = true
			return nil
		}
	}
}

// IsFinished reports whether the top-level final state has been reached.
func (interp *Interpreter) IsFinished() bool { return interp.finished }
