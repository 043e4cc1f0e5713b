package core

import "reflect"

// Bindings maps a variable name to the Fact it is bound to, or, for a
// variable bound by an Accumulate, to the accumulated value itself.
//
// Grounded on the teacher's core.Bindings (a plain
// map[string]interface{} with a Copy method); here the values are
// almost always *Fact, so equality during unification is identity
// based for facts and falls back to reflect.DeepEqual for anything
// else (accumulator results).
type Bindings map[string]interface{}

// NewBindings makes an empty Bindings.
func NewBindings() Bindings {
	return make(Bindings, 4)
}

// Copy makes a shallow copy of the Bindings.
func (bs Bindings) Copy() Bindings {
	acc := make(Bindings, len(bs))
	for k, v := range bs {
		acc[k] = v
	}
	return acc
}

func sameBinding(a, b interface{}) bool {
	if af, ok := a.(*Fact); ok {
		bf, ok2 := b.(*Fact)
		return ok2 && af == bf
	}
	return reflect.DeepEqual(a, b)
}

// PartialMatch is a candidate (facts, bindings) pair flowing through
// the node network.
type PartialMatch struct {
	// Facts is the ordered sequence of facts contributing to this
	// match, in the network's left-to-right traversal order.
	Facts []*Fact

	// Bindings maps variable names bound along the way to the
	// facts (or accumulated values) they're bound to.
	Bindings Bindings

	// AccumulatorResult carries the converted value produced by an
	// Accumulator node, when this match was produced by one.
	AccumulatorResult interface{}
}

func emptyMatch() PartialMatch {
	return PartialMatch{Bindings: Bindings{}}
}

// unify attempts to merge two partial matches' bindings. A key bound
// in both to unequal values fails the unification; otherwise the
// union of bindings and the concatenation of facts (a's then b's) is
// returned.
func unify(a, b PartialMatch) (PartialMatch, bool) {
	bs := a.Bindings.Copy()
	for k, v := range b.Bindings {
		if existing, have := bs[k]; have {
			if !sameBinding(existing, v) {
				return PartialMatch{}, false
			}
			continue
		}
		bs[k] = v
	}

	facts := make([]*Fact, 0, len(a.Facts)+len(b.Facts))
	facts = append(facts, a.Facts...)
	facts = append(facts, b.Facts...)

	return PartialMatch{Facts: facts, Bindings: bs}, true
}
