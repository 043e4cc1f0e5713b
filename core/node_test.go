package core

import "testing"

func TestUnifyConflictingBindingFails(t *testing.T) {
	f1 := &Fact{id: 1, typ: "Person"}
	f2 := &Fact{id: 2, typ: "Person"}

	a := PartialMatch{Facts: []*Fact{f1}, Bindings: Bindings{"p": f1}}
	b := PartialMatch{Facts: []*Fact{f2}, Bindings: Bindings{"p": f2}}

	if _, ok := unify(a, b); ok {
		t.Fatal("expected unify to fail when a variable maps to two distinct facts")
	}
}

func TestUnifyAgreeingBindingSucceeds(t *testing.T) {
	f1 := &Fact{id: 1, typ: "Person"}
	f2 := &Fact{id: 2, typ: "Event"}

	a := PartialMatch{Facts: []*Fact{f1}, Bindings: Bindings{"p": f1}}
	b := PartialMatch{Facts: []*Fact{f2}, Bindings: Bindings{"p": f1, "e": f2}}

	joined, ok := unify(a, b)
	if !ok {
		t.Fatal("expected unify to succeed")
	}
	if len(joined.Facts) != 2 {
		t.Fatalf("expected 2 facts, got %d", len(joined.Facts))
	}
	if joined.Bindings["p"] != f1 || joined.Bindings["e"] != f2 {
		t.Fatalf("unexpected bindings: %v", joined.Bindings)
	}
}

func TestLogicalNotEmptyChildYieldsOneEmptyMatch(t *testing.T) {
	wm := NewWorkingMemory()
	child := &node{kind: nodeAlpha, typ: "Expired"}
	child.inject(wm)
	n := &node{kind: nodeLogicalNot, child: child}

	ms, err := n.evaluate()
	if err != nil {
		t.Fatal(err)
	}
	if len(ms) != 1 || len(ms[0].Facts) != 0 {
		t.Fatalf("expected one empty match, got %v", ms)
	}
}

func TestLogicalNotNonEmptyChildYieldsNoMatch(t *testing.T) {
	wm := NewWorkingMemory()
	wm.insert("Expired", map[string]interface{}{})
	child := &node{kind: nodeAlpha, typ: "Expired"}
	child.inject(wm)
	n := &node{kind: nodeLogicalNot, child: child}

	ms, err := n.evaluate()
	if err != nil {
		t.Fatal(err)
	}
	if len(ms) != 0 {
		t.Fatalf("expected no matches, got %v", ms)
	}
}

func TestLogicalExistsMirrorsNot(t *testing.T) {
	wm := NewWorkingMemory()
	wm.insert("Active", map[string]interface{}{})
	child := &node{kind: nodeAlpha, typ: "Active"}
	child.inject(wm)
	n := &node{kind: nodeLogicalExists, child: child}

	ms, err := n.evaluate()
	if err != nil {
		t.Fatal(err)
	}
	if len(ms) != 1 || len(ms[0].Facts) != 0 {
		t.Fatalf("expected one empty match, got %v", ms)
	}
}

func TestAlphaCacheReusedWhenClean(t *testing.T) {
	wm := NewWorkingMemory()
	wm.insert("Person", map[string]interface{}{"age": 30.0})
	wm.promoteNextDirty()
	wm.clearCurrentDirty()
	n := &node{kind: nodeAlpha, typ: "Person"}
	n.inject(wm)

	ms1, err := n.evaluate()
	if err != nil {
		t.Fatal(err)
	}
	if !n.cachedValid {
		t.Fatal("expected cache to be populated")
	}

	ms2, err := n.evaluate()
	if err != nil {
		t.Fatal(err)
	}
	if len(ms1) != len(ms2) {
		t.Fatalf("expected cached results to match, got %d vs %d", len(ms1), len(ms2))
	}
}

func TestAlphaCacheInvalidatedWhenDirty(t *testing.T) {
	wm := NewWorkingMemory()
	n := &node{kind: nodeAlpha, typ: "Person"}
	n.inject(wm)

	ms, err := n.evaluate()
	if err != nil {
		t.Fatal(err)
	}
	if len(ms) != 0 {
		t.Fatalf("expected no matches before insert, got %v", ms)
	}

	wm.insert("Person", map[string]interface{}{})
	ms, err = n.evaluate()
	if err != nil {
		t.Fatal(err)
	}
	if len(ms) != 1 {
		t.Fatalf("expected the cache to be bypassed while Person is dirty, got %v", ms)
	}
}
