package primitives

import "testing"

func TestNewEvent(t *testing.T) {
	e := NewEvent("test.sub", 42)
	if e.FullName() != "test.sub" {
		t.Errorf("got FullName=%q want test.sub", e.FullName())
	}
	if v, ok := e.Data.(int); !ok || v != 42 {
		t.Errorf("got Data=%v (%T) want 42", e.Data, e.Data)
	}
	if e.Kind != EventExternal {
		t.Errorf("got Kind=%v want external", e.Kind)
	}
}

func TestEventImmutability(t *testing.T) {
	e := NewEvent("test", 42)
	eCopy := e
	eCopy.Name = []string{"modified"}
	eCopy.Data = "changed"
	if e.FullName() != "test" {
		t.Error("original Name was mutated")
	}
	if v, ok := e.Data.(int); !ok || v != 42 {
		t.Error("original Data was mutated")
	}
}

func TestSplitJoinEventName(t *testing.T) {
	cases := []string{"error.execution.typeerror", "done.state.foo", "click", ""}
	for _, c := range cases {
		got := JoinEventName(SplitEventName(c))
		if got != c {
			t.Errorf("roundtrip(%q) = %q", c, got)
		}
	}
}

func TestNameKinds(t *testing.T) {
	if NewInternalEvent("x", nil).Kind != EventInternal {
		t.Error("expected internal kind")
	}
	if NewPlatformEvent("error.execution.foo", nil).Kind != EventPlatform {
		t.Error("expected platform kind")
	}
}
