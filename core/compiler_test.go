package core

import "testing"

func TestCompileRejectsTypeWithComposite(t *testing.T) {
	c := &Condition{Type: "Person", All: []*Condition{TypeCond("Event", "", nil)}}
	if _, err := compile(c); err == nil {
		t.Fatal("expected InvalidDSL")
	} else if _, ok := err.(*InvalidDSL); !ok {
		t.Fatalf("expected InvalidDSL, got %T: %v", err, err)
	}
}

func TestCompileRejectsTestWithComposite(t *testing.T) {
	c := &Condition{
		BetaTest: func(facts []*Fact, bs Bindings) bool { return true },
		All:      []*Condition{TypeCond("Event", "", nil)},
	}
	if _, err := compile(c); err == nil {
		t.Fatal("expected InvalidDSL")
	}
}

func TestCompileRejectsMultipleComposites(t *testing.T) {
	leaf := TypeCond("Event", "", nil)
	c := &Condition{All: []*Condition{leaf}, Any: []*Condition{leaf}}
	if _, err := compile(c); err == nil {
		t.Fatal("expected InvalidDSL")
	}
}

func TestCompileCollectsReferencedTypesAndNegation(t *testing.T) {
	c := AllOf(
		TypeCond("Person", "p", nil),
		NotOf(TypeCond("Ban", "", nil)),
	)
	cr, err := compile(c)
	if err != nil {
		t.Fatal(err)
	}
	if !cr.hasNegation {
		t.Fatal("expected hasNegation")
	}
	if _, have := cr.referencedTypes["Person"]; !have {
		t.Fatal("expected Person in referencedTypes")
	}
	if _, have := cr.referencedTypes["Ban"]; !have {
		t.Fatal("expected Ban in referencedTypes")
	}
}

func TestCompileSingleAllChildPassesThrough(t *testing.T) {
	leaf := TypeCond("Person", "p", nil)
	c := AllOf(leaf)
	cr, err := compile(c)
	if err != nil {
		t.Fatal(err)
	}
	if cr.root.kind != nodeAlpha {
		t.Fatalf("expected a single All child to pass through as Alpha, got kind %v", cr.root.kind)
	}
}

func TestCompileBareTopLevelBetaTest(t *testing.T) {
	c := Beta(func(facts []*Fact, bs Bindings) bool { return true })
	cr, err := compile(c)
	if err != nil {
		t.Fatal(err)
	}
	if cr.root.kind != nodeBetaTest {
		t.Fatalf("expected BetaTest root, got %v", cr.root.kind)
	}
	if cr.root.child.kind != nodeUnit {
		t.Fatalf("expected Unit child, got %v", cr.root.child.kind)
	}
}
