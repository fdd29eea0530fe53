package invoke_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comalice/scxmlrun/internal/core"
	"github.com/comalice/scxmlrun/internal/datamodel"
	"github.com/comalice/scxmlrun/internal/graph"
	"github.com/comalice/scxmlrun/internal/invoke"
	"github.com/comalice/scxmlrun/internal/primitives"
	"github.com/comalice/scxmlrun/internal/session"
)

func popWithTimeout(t *testing.T, q *core.ExternalQueue, d time.Duration) (string, bool) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	evt, ok := q.Pop(ctx)
	if !ok {
		return "", false
	}
	return evt.FullName(), true
}

func longRunningRoot() *graph.Node {
	b := graph.NewBuilder("child")
	b.AddState("child", "running", graph.Atomic)
	b.SetInitial("child", "running")
	root, err := b.Freeze()
	if err != nil {
		panic(err)
	}
	return root
}

func immediatelyDoneRoot() *graph.Node {
	b := graph.NewBuilder("child")
	b.AddState("child", "done", graph.Final)
	b.SetInitial("child", "done")
	root, err := b.Freeze()
	if err != nil {
		panic(err)
	}
	return root
}

func newParentInterpreter() *core.Interpreter {
	eval := datamodel.NewGojaEvaluator()
	return core.NewInterpreter("parent", longRunningRoot(), eval)
}

func TestSpawnPushesDoneInvokeWhenChildFinishes(t *testing.T) {
	reg := session.NewRegistry()
	resolve := func(spec *graph.InvokeSpec) (*graph.Node, error) { return immediatelyDoneRoot(), nil }
	m := invoke.NewManager(reg, resolve, func() datamodel.Evaluator { return datamodel.NewGojaEvaluator() })

	parent := newParentInterpreter()
	owner := parent.Root.Children[0]

	require.NoError(t, m.Spawn(owner, &graph.InvokeSpec{ID: "inv1"}, parent))

	name, ok := popWithTimeout(t, parent.ExternalQ, time.Second)
	require.True(t, ok)
	assert.Equal(t, "done.invoke.inv1", name)
}

func TestSpawnRunsFinalizeAgainstParentDataModel(t *testing.T) {
	reg := session.NewRegistry()
	resolve := func(spec *graph.InvokeSpec) (*graph.Node, error) { return immediatelyDoneRoot(), nil }
	m := invoke.NewManager(reg, resolve, func() datamodel.Evaluator { return datamodel.NewGojaEvaluator() })

	parent := newParentInterpreter()
	owner := parent.Root.Children[0]
	finalize := []graph.ExecutableContent{core.Assign{Location: "result", Expr: "42"}}
	require.NoError(t, parent.Evaluator.Exec("var result = 0;"))

	require.NoError(t, m.Spawn(owner, &graph.InvokeSpec{ID: "inv1", Finalize: finalize}, parent))

	_, ok := popWithTimeout(t, parent.ExternalQ, time.Second)
	require.True(t, ok)

	v, err := parent.Evaluator.Eval("result")
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)
}

func TestCancelStopsInvocationAndStillSignalsDone(t *testing.T) {
	reg := session.NewRegistry()
	resolve := func(spec *graph.InvokeSpec) (*graph.Node, error) { return longRunningRoot(), nil }
	m := invoke.NewManager(reg, resolve, func() datamodel.Evaluator { return datamodel.NewGojaEvaluator() })

	parent := newParentInterpreter()
	owner := parent.Root.Children[0]

	require.NoError(t, m.Spawn(owner, &graph.InvokeSpec{ID: "inv1"}, parent))
	time.Sleep(20 * time.Millisecond)

	m.Cancel(owner)

	name, ok := popWithTimeout(t, parent.ExternalQ, time.Second)
	require.True(t, ok)
	assert.Equal(t, "done.invoke.inv1", name)
}

func TestAutoForwardRelaysParentEventsToChild(t *testing.T) {
	reg := session.NewRegistry()
	resolve := func(spec *graph.InvokeSpec) (*graph.Node, error) { return longRunningRoot(), nil }
	m := invoke.NewManager(reg, resolve, func() datamodel.Evaluator { return datamodel.NewGojaEvaluator() })

	parent := newParentInterpreter()
	owner := parent.Root.Children[0]

	require.NoError(t, m.Spawn(owner, &graph.InvokeSpec{ID: "inv1", AutoForward: true}, parent))
	time.Sleep(20 * time.Millisecond)

	childQ, ok := reg.LookupInvoke("parent", "inv1")
	require.True(t, ok)

	// The running child's own event loop consumes childQ, so observe the
	// forwarded event through a tap instead of competing for it with Pop.
	childTap := childQ.AddTap(4)
	defer childQ.RemoveTap(childTap)

	parent.ExternalQ.Push(primitives.NewEvent("relay.me", nil))

	var name string
	select {
	case evt := <-childTap:
		name, ok = evt.FullName(), true
	case <-time.After(time.Second):
		ok = false
	}
	require.True(t, ok)
	assert.Equal(t, "relay.me", name)
}
