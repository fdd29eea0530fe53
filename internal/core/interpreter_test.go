package core_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comalice/scxmlrun/internal/core"
	"github.com/comalice/scxmlrun/internal/datamodel"
	"github.com/comalice/scxmlrun/internal/graph"
	"github.com/comalice/scxmlrun/internal/primitives"
)

func run(t *testing.T, root *graph.Node) *core.Interpreter {
	t.Helper()
	eval := datamodel.NewGojaEvaluator()
	interp := core.NewInterpreter("test-session", root, eval)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	done := make(chan error, 1)
	go func() { done <- interp.Start(ctx) }()
	time.Sleep(10 * time.Millisecond)
	return interp
}

func inState(interp *core.Interpreter, id string) bool {
	n := graph.ByID(interp.Root, id)
	return n != nil && interp.Config.Contains(n)
}

func TestSimpleTransition(t *testing.T) {
	b := graph.NewBuilder("doc")
	b.AddState("doc", "a", graph.Atomic)
	b.AddState("doc", "b", graph.Atomic)
	b.SetInitial("doc", "a")
	b.AddTransition("a", []string{"go"}, "", []string{"b"})
	root, err := b.Freeze()
	require.NoError(t, err)

	interp := run(t, root)
	assert.True(t, inState(interp, "a"))

	interp.ExternalQ.Push(primitives.NewEvent("go", nil))
	require.Eventually(t, func() bool { return inState(interp, "b") }, time.Second, time.Millisecond)
}

func TestParallelEntersAllRegions(t *testing.T) {
	b := graph.NewBuilder("doc")
	b.AddState("doc", "p", graph.Parallel)
	b.AddState("p", "r1", graph.Compound)
	b.AddState("p", "r2", graph.Compound)
	b.AddState("r1", "r1a", graph.Atomic)
	b.AddState("r2", "r2a", graph.Atomic)
	b.SetInitial("doc", "p")
	b.SetInitial("r1", "r1a")
	b.SetInitial("r2", "r2a")
	root, err := b.Freeze()
	require.NoError(t, err)

	interp := run(t, root)
	assert.True(t, inState(interp, "r1a"))
	assert.True(t, inState(interp, "r2a"))
	assert.True(t, inState(interp, "p"))
}

func TestShallowHistoryRestoresLastActiveChild(t *testing.T) {
	b := graph.NewBuilder("doc")
	b.AddState("doc", "group", graph.Compound)
	b.AddState("group", "a", graph.Atomic)
	b.AddState("group", "b", graph.Atomic)
	b.AddState("group", "hist", graph.HistoryShallow)
	b.AddState("doc", "out", graph.Atomic)
	b.SetInitial("doc", "group")
	b.SetInitial("group", "a")
	b.SetHistoryDefault("hist", "a")
	b.AddTransition("a", []string{"next"}, "", []string{"b"})
	b.AddTransition("group", []string{"leave"}, "", []string{"out"})
	b.AddTransition("out", []string{"back"}, "", []string{"hist"})
	root, err := b.Freeze()
	require.NoError(t, err)

	interp := run(t, root)
	interp.ExternalQ.Push(primitives.NewEvent("next", nil))
	require.Eventually(t, func() bool { return inState(interp, "b") }, time.Second, time.Millisecond)

	interp.ExternalQ.Push(primitives.NewEvent("leave", nil))
	require.Eventually(t, func() bool { return inState(interp, "out") }, time.Second, time.Millisecond)

	interp.ExternalQ.Push(primitives.NewEvent("back", nil))
	require.Eventually(t, func() bool { return inState(interp, "b") }, time.Second, time.Millisecond)
}

func TestDoneStatePropagatesFromCompoundFinal(t *testing.T) {
	b := graph.NewBuilder("doc")
	b.AddState("doc", "work", graph.Compound)
	b.AddState("work", "busy", graph.Atomic)
	b.AddState("work", "done", graph.Final)
	b.AddState("doc", "after", graph.Atomic)
	b.SetInitial("doc", "work")
	b.SetInitial("work", "busy")
	b.AddTransition("busy", []string{"finish"}, "", []string{"done"})
	b.AddTransition("work", []string{"done.state.work"}, "", []string{"after"})
	root, err := b.Freeze()
	require.NoError(t, err)

	interp := run(t, root)
	interp.ExternalQ.Push(primitives.NewEvent("finish", nil))
	require.Eventually(t, func() bool { return inState(interp, "after") }, time.Second, time.Millisecond)
}
