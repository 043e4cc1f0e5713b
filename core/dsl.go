package core

// PayloadTest tests an atomic condition's matched fact payload.
type PayloadTest func(payload map[string]interface{}) bool

// BetaTest tests an already-joined partial match: the facts
// contributing to it, in traversal order, and the bindings collected
// so far.
type BetaTest func(facts []*Fact, bindings Bindings) bool

// Accumulate configures an Accumulator node, wrapping an atomic
// Condition's matched facts into a single reduced value.
//
// Exactly one of two shapes is valid, selected by which fields are
// set:
//
// Simple form: Aggregator and Test are set. Each evaluation collects
// all of the child's matched facts, calls Aggregator once, and tests
// the result.
//
// Incremental form: Initial, Reduce, and Test are set (Retract and
// Convert are optional). State persists across evaluations, keyed by
// the set of fact ids already reduced into it; see core's Accumulator
// node semantics for the add/remove-set bookkeeping.
type Accumulate struct {
	// Simple form.
	Aggregator func(facts []*Fact) interface{}

	// Incremental form.
	Initial func() interface{}
	Reduce  func(state interface{}, f *Fact) interface{}
	Retract func(state interface{}, f *Fact) interface{}
	Convert func(state interface{}) interface{}

	// Test applies to both forms' resulting value.
	Test func(value interface{}) bool
}

func (a *Accumulate) isSimple() bool {
	return a.Aggregator != nil
}

func (a *Accumulate) isIncremental() bool {
	return a.Initial != nil && a.Reduce != nil
}

// Condition is a node in a rule's condition tree.
//
// A Condition is exactly one of:
//
//   - atomic: Type is set. Test and Var are optional; Accumulate is
//     optional and, if set, makes this an accumulator over facts of
//     Type.
//   - a bare beta test: BetaTest is set and Type is empty.
//   - composite: exactly one of All, Any, Not, Exists is set, and
//     Type, Test, BetaTest, Accumulate are all unset.
//
// Mixing a composite field with Type, Test, or BetaTest is rejected
// at compile time with InvalidDSL. Condition trees are normally built
// with the constructors below (TypeCond, AccumulateCond, Beta, AllOf,
// AnyOf, NotOf, ExistsOf)
// rather than by populating the struct directly, but the struct is
// exported so rule sets can be assembled or inspected programmatically.
type Condition struct {
	Type       string
	Test       PayloadTest
	Var        string
	Accumulate *Accumulate

	BetaTest BetaTest

	All    []*Condition
	Any    []*Condition
	Not    *Condition
	Exists *Condition
}

// TypeCond makes an atomic Condition matching facts of the given
// type. test may be nil (defaults to always-true); varName may be
// empty (no binding).
func TypeCond(typ string, varName string, test PayloadTest) *Condition {
	return &Condition{Type: typ, Var: varName, Test: test}
}

// AccumulateCond makes an atomic Condition over facts of the given
// type wrapped in an Accumulate; the accumulator, not the Condition,
// owns the variable binding.
func AccumulateCond(typ string, test PayloadTest, varName string, acc *Accumulate) *Condition {
	return &Condition{Type: typ, Test: test, Var: varName, Accumulate: acc}
}

// Beta makes a bare beta-test Condition.
func Beta(test BetaTest) *Condition {
	return &Condition{BetaTest: test}
}

// AllOf makes a conjunctive composite Condition.
func AllOf(children ...*Condition) *Condition {
	return &Condition{All: children}
}

// AnyOf makes a disjunctive composite Condition.
func AnyOf(children ...*Condition) *Condition {
	return &Condition{Any: children}
}

// NotOf makes a negated composite Condition.
func NotOf(child *Condition) *Condition {
	return &Condition{Not: child}
}

// ExistsOf makes an existence composite Condition.
func ExistsOf(child *Condition) *Condition {
	return &Condition{Exists: child}
}
