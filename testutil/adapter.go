// Package testutil provides helpers for tests that run an Interpreter over a
// graph built with graph.Builder (the XML front end is out of scope) and poll
// its configuration.
package testutil

import (
	"context"
	"time"

	"github.com/comalice/scxmlrun/internal/core"
	"github.com/comalice/scxmlrun/internal/datamodel"
	"github.com/comalice/scxmlrun/internal/graph"
)

// RunInterpreter builds an Interpreter for root with a fresh goja evaluator
// and no send/invoke hooks wired (suitable for single-session unit tests that
// don't exercise <send>/<invoke>), runs it in a goroutine, and returns it
// along with a cancel func.
func RunInterpreter(sessionID string, root *graph.Node) (*core.Interpreter, context.CancelFunc, <-chan error) {
	eval := datamodel.NewGojaEvaluator()
	interp := core.NewInterpreter(sessionID, root, eval)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- interp.Start(ctx) }()
	return interp, cancel, done
}

// AwaitConfiguration polls until fn(interp.Config) returns true or timeout
// elapses, returning whether it converged. Useful since Interpreter.Start
// runs in its own goroutine in these tests.
func AwaitConfiguration(interp *core.Interpreter, timeout time.Duration, fn func(*core.Configuration) bool) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn(interp.Config) {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return fn(interp.Config)
}

// InState reports whether stateID is active.
func InState(interp *core.Interpreter, stateID string) bool {
	n := graph.ByID(interp.Root, stateID)
	return n != nil && interp.Config.Contains(n)
}
