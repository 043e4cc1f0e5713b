package core

import "sort"

// nodeKind tags the variant of a compiled node. Cf. the Design Notes'
// "tagged sum type with dispatch on variant": a node owns its static
// configuration for its kind and, for Alpha and Accumulator nodes,
// transient evaluation state (a cache or accumulator state).
type nodeKind int

const (
	nodeAlpha nodeKind = iota
	nodeBetaTest
	nodeLogicalAll
	nodeLogicalAny
	nodeLogicalNot
	nodeLogicalExists
	nodeSimpleAccumulator
	nodeIncrementalAccumulator
	nodeUnit
)

// node is the compiled, evaluable form of a Condition. Child pointers
// are exclusively owned by their parent and form a tree.
type node struct {
	kind nodeKind

	wm *WorkingMemory

	// Alpha
	typ     string
	test    PayloadTest
	varName string

	cached      []PartialMatch
	cachedValid bool

	// BetaTest, LogicalNot, LogicalExists, accumulators: single child.
	child *node

	// LogicalAll, LogicalAny: multiple children.
	children []*node

	// BetaTest
	betaTest BetaTest

	// Accumulators
	acc   *Accumulate
	state *accumulatorState
}

type accumulatorState struct {
	initialized  bool
	value        interface{}
	reducedFacts map[FactID]*Fact
}

// inject attaches wm to this node and every node beneath it. Called
// once, in pre-order, when a Rule is compiled.
func (n *node) inject(wm *WorkingMemory) {
	n.wm = wm
	if n.child != nil {
		n.child.inject(wm)
	}
	for _, c := range n.children {
		c.inject(wm)
	}
}

// evaluate dispatches on the node's kind and returns the sequence of
// partial matches it currently produces.
func (n *node) evaluate() ([]PartialMatch, error) {
	switch n.kind {
	case nodeAlpha:
		return n.evalAlpha()
	case nodeBetaTest:
		return n.evalBetaTest()
	case nodeLogicalAll:
		return n.evalAll()
	case nodeLogicalAny:
		return n.evalAny()
	case nodeLogicalNot:
		return n.evalNot()
	case nodeLogicalExists:
		return n.evalExists()
	case nodeSimpleAccumulator:
		return n.evalSimpleAccumulator()
	case nodeIncrementalAccumulator:
		return n.evalIncrementalAccumulator()
	case nodeUnit:
		return []PartialMatch{emptyMatch()}, nil
	default:
		return nil, &NetworkUninitialized{}
	}
}

func (n *node) evalAlpha() ([]PartialMatch, error) {
	if n.wm == nil {
		return nil, &NetworkUninitialized{}
	}

	if n.cachedValid && !n.wm.isTypeDirty(n.typ) {
		return n.cached, nil
	}

	facts := n.wm.byTypeFacts(n.typ)
	sort.Slice(facts, func(i, j int) bool { return facts[i].id < facts[j].id })

	acc := make([]PartialMatch, 0, len(facts))
	for _, f := range facts {
		if n.test != nil && !n.test(f.Payload()) {
			continue
		}
		bs := Bindings{}
		if n.varName != "" {
			bs[n.varName] = f
		}
		acc = append(acc, PartialMatch{Facts: []*Fact{f}, Bindings: bs})
	}

	n.cached = acc
	n.cachedValid = true

	return acc, nil
}

func (n *node) evalBetaTest() ([]PartialMatch, error) {
	matches, err := n.child.evaluate()
	if err != nil {
		return nil, err
	}
	acc := make([]PartialMatch, 0, len(matches))
	for _, m := range matches {
		if n.betaTest(m.Facts, m.Bindings) {
			acc = append(acc, m)
		}
	}
	return acc, nil
}

// evalAll computes the cartesian join of its children's results,
// unifying bindings pairwise and dropping any combination whose
// bindings conflict. An empty result from any child yields an empty
// result overall.
func (n *node) evalAll() ([]PartialMatch, error) {
	if len(n.children) == 0 {
		return []PartialMatch{emptyMatch()}, nil
	}

	perChild := make([][]PartialMatch, len(n.children))
	for i, c := range n.children {
		ms, err := c.evaluate()
		if err != nil {
			return nil, err
		}
		if len(ms) == 0 {
			return nil, nil
		}
		perChild[i] = ms
	}

	results := perChild[0]
	for _, ms := range perChild[1:] {
		var next []PartialMatch
		for _, a := range results {
			for _, b := range ms {
				if joined, ok := unify(a, b); ok {
					next = append(next, joined)
				}
			}
		}
		results = next
		if len(results) == 0 {
			return nil, nil
		}
	}

	return results, nil
}

func (n *node) evalAny() ([]PartialMatch, error) {
	var acc []PartialMatch
	for _, c := range n.children {
		ms, err := c.evaluate()
		if err != nil {
			return nil, err
		}
		acc = append(acc, ms...)
	}
	return acc, nil
}

func (n *node) evalNot() ([]PartialMatch, error) {
	ms, err := n.child.evaluate()
	if err != nil {
		return nil, err
	}
	if len(ms) == 0 {
		return []PartialMatch{emptyMatch()}, nil
	}
	return nil, nil
}

func (n *node) evalExists() ([]PartialMatch, error) {
	ms, err := n.child.evaluate()
	if err != nil {
		return nil, err
	}
	if len(ms) > 0 {
		return []PartialMatch{emptyMatch()}, nil
	}
	return nil, nil
}

func (n *node) childFacts() ([]*Fact, error) {
	ms, err := n.child.evaluate()
	if err != nil {
		return nil, err
	}
	facts := make([]*Fact, 0, len(ms))
	for _, m := range ms {
		facts = append(facts, m.Facts...)
	}
	sort.Slice(facts, func(i, j int) bool { return facts[i].id < facts[j].id })
	return facts, nil
}

func (n *node) evalSimpleAccumulator() ([]PartialMatch, error) {
	facts, err := n.childFacts()
	if err != nil {
		return nil, err
	}

	value := n.acc.Aggregator(facts)
	if !n.acc.Test(value) {
		return nil, nil
	}

	bs := Bindings{}
	if n.varName != "" {
		bs[n.varName] = value
	}
	return []PartialMatch{{Facts: facts, Bindings: bs, AccumulatorResult: value}}, nil
}

func (n *node) evalIncrementalAccumulator() ([]PartialMatch, error) {
	facts, err := n.childFacts()
	if err != nil {
		return nil, err
	}

	st := n.state
	if !st.initialized {
		st.value = n.acc.Initial()
		st.reducedFacts = make(map[FactID]*Fact)
		st.initialized = true
	}

	current := make(map[FactID]*Fact, len(facts))
	for _, f := range facts {
		current[f.id] = f
	}

	var removed []FactID
	for id := range st.reducedFacts {
		if _, still := current[id]; !still {
			removed = append(removed, id)
		}
	}

	addSet := facts
	if len(removed) > 0 {
		if n.acc.Retract != nil {
			sort.Slice(removed, func(i, j int) bool { return removed[i] < removed[j] })
			for _, id := range removed {
				st.value = n.acc.Retract(st.value, st.reducedFacts[id])
				delete(st.reducedFacts, id)
			}
			addSet = nil
			for _, f := range facts {
				if _, already := st.reducedFacts[f.id]; !already {
					addSet = append(addSet, f)
				}
			}
		} else {
			st.value = n.acc.Initial()
			st.reducedFacts = make(map[FactID]*Fact)
			addSet = facts
		}
	} else {
		addSet = nil
		for _, f := range facts {
			if _, already := st.reducedFacts[f.id]; !already {
				addSet = append(addSet, f)
			}
		}
	}

	for _, f := range addSet {
		st.value = n.acc.Reduce(st.value, f)
		st.reducedFacts[f.id] = f
	}

	value := st.value
	if n.acc.Convert != nil {
		value = n.acc.Convert(st.value)
	}

	if !n.acc.Test(value) {
		return nil, nil
	}

	bs := Bindings{}
	if n.varName != "" {
		bs[n.varName] = value
	}
	return []PartialMatch{{Facts: facts, Bindings: bs, AccumulatorResult: value}}, nil
}
