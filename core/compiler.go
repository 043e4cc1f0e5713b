package core

// compileResult carries a compiled node plus the scheduling
// bookkeeping collected while walking the Condition tree: every type
// string seen at an Alpha position, and whether any Not subtree was
// found.
type compileResult struct {
	root            *node
	referencedTypes map[string]struct{}
	hasNegation     bool
}

// compile validates and compiles a Condition tree into a node
// network, per spec.md §4.3.
func compile(c *Condition) (*compileResult, error) {
	types := make(map[string]struct{})
	root, negation, err := compileCond(c, types)
	if err != nil {
		return nil, err
	}
	return &compileResult{root: root, referencedTypes: types, hasNegation: negation}, nil
}

func compileCond(c *Condition, types map[string]struct{}) (*node, bool, error) {
	if c == nil {
		return &node{kind: nodeUnit}, false, nil
	}

	composites := 0
	if len(c.All) > 0 {
		composites++
	}
	if len(c.Any) > 0 {
		composites++
	}
	if c.Not != nil {
		composites++
	}
	if c.Exists != nil {
		composites++
	}

	hasType := c.Type != ""
	hasTest := c.Test != nil || c.BetaTest != nil

	if hasType && composites > 0 {
		return nil, false, &InvalidDSL{Reason: "type given together with a composite key"}
	}
	if hasTest && composites > 0 {
		return nil, false, &InvalidDSL{Reason: "test given together with a composite key"}
	}
	if composites > 1 {
		return nil, false, &InvalidDSL{Reason: "more than one of all/any/not/exists given"}
	}
	if c.BetaTest != nil && hasType {
		return nil, false, &InvalidDSL{Reason: "beta test given together with a type"}
	}
	if c.Test != nil && !hasType {
		return nil, false, &InvalidDSL{Reason: "payload test given without a type"}
	}
	if c.Accumulate != nil && !hasType {
		return nil, false, &InvalidDSL{Reason: "accumulate given without a type"}
	}

	switch {
	case len(c.All) > 0:
		return compileAll(c.All, types)
	case len(c.Any) > 0:
		return compileAny(c.Any, types)
	case c.Not != nil:
		child, _, err := compileCond(c.Not, types)
		if err != nil {
			return nil, false, err
		}
		return &node{kind: nodeLogicalNot, child: child}, true, nil
	case c.Exists != nil:
		child, neg, err := compileCond(c.Exists, types)
		if err != nil {
			return nil, false, err
		}
		return &node{kind: nodeLogicalExists, child: child}, neg, nil
	case c.BetaTest != nil:
		return &node{kind: nodeBetaTest, child: &node{kind: nodeUnit}, betaTest: c.BetaTest}, false, nil
	case hasType:
		types[c.Type] = struct{}{}
		if c.Accumulate != nil {
			return compileAccumulate(c, types)
		}
		return &node{kind: nodeAlpha, typ: c.Type, test: c.Test, varName: c.Var}, false, nil
	default:
		return &node{kind: nodeUnit}, false, nil
	}
}

// compileAccumulate builds an Accumulator node wrapping an Alpha node
// with no variable binding; the accumulator owns the binding.
func compileAccumulate(c *Condition, types map[string]struct{}) (*node, bool, error) {
	acc := c.Accumulate
	child := &node{kind: nodeAlpha, typ: c.Type, test: c.Test}

	switch {
	case acc.isSimple():
		if acc.Test == nil {
			return nil, false, &InvalidDSL{Reason: "simple accumulate missing test"}
		}
		return &node{kind: nodeSimpleAccumulator, child: child, acc: acc, varName: c.Var}, false, nil
	case acc.isIncremental():
		if acc.Test == nil {
			return nil, false, &InvalidDSL{Reason: "incremental accumulate missing test"}
		}
		return &node{
			kind:    nodeIncrementalAccumulator,
			child:   child,
			acc:     acc,
			varName: c.Var,
			state:   &accumulatorState{},
		}, false, nil
	default:
		return nil, false, &InvalidDSL{Reason: "accumulate is neither simple nor incremental shape"}
	}
}

// compileAll partitions children into alpha/composite children, which
// form a LogicalAll (or pass through if there's exactly one), and
// bare beta-test children, which stack as BetaTest nodes wrapping the
// result in the order given.
func compileAll(children []*Condition, types map[string]struct{}) (*node, bool, error) {
	var nonBeta, betas []*Condition
	for _, c := range children {
		if isBareBeta(c) {
			betas = append(betas, c)
		} else {
			nonBeta = append(nonBeta, c)
		}
	}

	base, hasNeg, err := compileChildGroup(nodeLogicalAll, nonBeta, types)
	if err != nil {
		return nil, false, err
	}

	return wrapBetas(base, betas, hasNeg)
}

func compileAny(children []*Condition, types map[string]struct{}) (*node, bool, error) {
	var nonBeta, betas []*Condition
	for _, c := range children {
		if isBareBeta(c) {
			betas = append(betas, c)
		} else {
			nonBeta = append(nonBeta, c)
		}
	}

	base, hasNeg, err := compileChildGroup(nodeLogicalAny, nonBeta, types)
	if err != nil {
		return nil, false, err
	}

	return wrapBetas(base, betas, hasNeg)
}

func compileChildGroup(kind nodeKind, children []*Condition, types map[string]struct{}) (*node, bool, error) {
	if len(children) == 0 {
		return &node{kind: nodeUnit}, false, nil
	}

	nodes := make([]*node, 0, len(children))
	hasNeg := false
	for _, c := range children {
		n, neg, err := compileCond(c, types)
		if err != nil {
			return nil, false, err
		}
		nodes = append(nodes, n)
		hasNeg = hasNeg || neg
	}

	if len(nodes) == 1 {
		return nodes[0], hasNeg, nil
	}

	return &node{kind: kind, children: nodes}, hasNeg, nil
}

func wrapBetas(base *node, betas []*Condition, hasNeg bool) (*node, bool, error) {
	result := base
	for _, b := range betas {
		result = &node{kind: nodeBetaTest, child: result, betaTest: b.BetaTest}
	}
	return result, hasNeg, nil
}

func isBareBeta(c *Condition) bool {
	return c != nil && c.BetaTest != nil && c.Type == "" &&
		len(c.All) == 0 && len(c.Any) == 0 && c.Not == nil && c.Exists == nil
}
