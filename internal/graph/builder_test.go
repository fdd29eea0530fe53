package graph

import "testing"

func TestBuilderSimpleFreeze(t *testing.T) {
	b := NewBuilder("doc")
	b.AddState("doc", "a", Atomic)
	b.AddState("doc", "b", Atomic)
	b.SetInitial("doc", "a")
	b.AddTransition("a", []string{"go"}, "", []string{"b"})

	root, err := b.Freeze()
	if err != nil {
		t.Fatalf("Freeze: %v", err)
	}
	if root.Initial == nil || root.Initial.Targets[0].ID != "a" {
		t.Fatalf("expected initial target a")
	}
	a := ByID(root, "a")
	if a == nil || len(a.Transitions) != 1 {
		t.Fatalf("expected one transition on a")
	}
}

func TestBuilderRejectsUnknownParent(t *testing.T) {
	b := NewBuilder("doc")
	b.AddState("missing", "a", Atomic)
	if _, err := b.Freeze(); err == nil {
		t.Fatal("expected error for unknown parent")
	}
}

func TestParallelRequiresTwoChildren(t *testing.T) {
	b := NewBuilder("doc")
	b.AddState("doc", "p", Parallel)
	b.AddState("p", "only", Atomic)
	b.SetInitial("doc", "p")
	if _, err := b.Freeze(); err == nil {
		t.Fatal("expected error for parallel with <2 children")
	}
}

func TestDescendantAndAncestors(t *testing.T) {
	b := NewBuilder("doc")
	b.AddState("doc", "outer", Compound)
	b.AddState("outer", "inner", Atomic)
	b.SetInitial("doc", "outer")
	b.SetInitial("outer", "inner")
	root, err := b.Freeze()
	if err != nil {
		t.Fatal(err)
	}
	inner := ByID(root, "inner")
	outer := ByID(root, "outer")
	if !inner.IsDescendant(outer) {
		t.Fatal("inner should be descendant of outer")
	}
	if !inner.IsDescendant(root) {
		t.Fatal("inner should be descendant of root")
	}
	anc := inner.ProperAncestors(nil)
	if len(anc) != 2 || anc[0] != outer || anc[1] != root {
		t.Fatalf("unexpected ancestors: %v", anc)
	}
}
