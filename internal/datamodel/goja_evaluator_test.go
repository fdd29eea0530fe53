package datamodel_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comalice/scxmlrun/internal/datamodel"
)

func TestEvalAndSet(t *testing.T) {
	g := datamodel.NewGojaEvaluator()
	require.NoError(t, g.Exec("var counter = 0;"))
	require.NoError(t, g.Set("counter", 5))
	v, err := g.Eval("counter + 1")
	require.NoError(t, err)
	assert.Equal(t, int64(6), v)
}

func TestHasReflectsDeclaredVars(t *testing.T) {
	g := datamodel.NewGojaEvaluator()
	assert.False(t, g.Has("missing"))
	require.NoError(t, g.Exec("var present = 1;"))
	assert.True(t, g.Has("present"))
}

func TestBindEventExposesFields(t *testing.T) {
	g := datamodel.NewGojaEvaluator()
	g.BindEvent("go", map[string]any{"x": 1}, "external", "s1", "o1", "ot", "i1")
	v, err := g.Eval("_event.name")
	require.NoError(t, err)
	assert.Equal(t, "go", v)
}

func TestBindInDelegatesToPredicate(t *testing.T) {
	g := datamodel.NewGojaEvaluator()
	g.BindIn(func(id string) bool { return id == "foo" })
	v, err := g.Eval(`In("foo")`)
	require.NoError(t, err)
	assert.Equal(t, true, v)
	v, err = g.Eval(`In("bar")`)
	require.NoError(t, err)
	assert.Equal(t, false, v)
}

func TestEvalSyntaxErrorClassified(t *testing.T) {
	g := datamodel.NewGojaEvaluator()
	_, err := g.Eval("this is not valid js (((")
	require.Error(t, err)
	ee, ok := err.(*datamodel.EvalError)
	require.True(t, ok)
	assert.Equal(t, datamodel.KindSyntax, ee.Kind)
}

func TestEvalUndeclaredVariableIsEvalError(t *testing.T) {
	g := datamodel.NewGojaEvaluator()
	_, err := g.Eval("undeclaredVariable")
	require.Error(t, err)
	_, ok := err.(*datamodel.EvalError)
	assert.True(t, ok)
}
