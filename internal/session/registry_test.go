package session_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/comalice/scxmlrun/internal/core"
	"github.com/comalice/scxmlrun/internal/session"
)

func TestRegisterAndLookup(t *testing.T) {
	r := session.NewRegistry()
	q := core.NewExternalQueue(0)
	r.Register("s1", q)

	got, ok := r.Lookup("s1")
	assert.True(t, ok)
	assert.Same(t, q, got)

	_, ok = r.Lookup("missing")
	assert.False(t, ok)
}

func TestUnregisterClearsParentAndInvokeBookkeeping(t *testing.T) {
	r := session.NewRegistry()
	parentQ := core.NewExternalQueue(0)
	childQ := core.NewExternalQueue(0)
	r.Register("parent", parentQ)
	r.Register("parent.inv1", childQ)
	r.RegisterParent("parent.inv1", "parent")
	r.RegisterInvoke("parent", "inv1", childQ)

	r.Unregister("parent.inv1")

	_, ok := r.Lookup("parent.inv1")
	assert.False(t, ok)
	_, ok = r.ParentOf("parent.inv1")
	assert.False(t, ok)
	_, ok = r.LookupInvoke("parent", "inv1")
	assert.False(t, ok)
}

func TestParentAndInvokeLookup(t *testing.T) {
	r := session.NewRegistry()
	childQ := core.NewExternalQueue(0)
	r.RegisterParent("child", "parent")
	r.RegisterInvoke("parent", "inv1", childQ)

	parent, ok := r.ParentOf("child")
	assert.True(t, ok)
	assert.Equal(t, "parent", parent)

	got, ok := r.LookupInvoke("parent", "inv1")
	assert.True(t, ok)
	assert.Same(t, childQ, got)

	r.UnregisterInvoke("parent", "inv1")
	_, ok = r.LookupInvoke("parent", "inv1")
	assert.False(t, ok)
}

func TestListReturnsRegisteredSessions(t *testing.T) {
	r := session.NewRegistry()
	r.Register("a", core.NewExternalQueue(0))
	r.Register("b", core.NewExternalQueue(0))
	ids := r.List()
	assert.ElementsMatch(t, []string{"a", "b"}, ids)
}
