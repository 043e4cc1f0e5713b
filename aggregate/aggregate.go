// Package aggregate provides ready-made core.Accumulate values for
// the common aggregations described in spec §4.8: count, sum of an
// attribute, max/min of an attribute, and collect-all.
//
// Count, SumOf, and AverageOf use the incremental form so a rule that
// accumulates over a type that's frequently inserted/retracted avoids
// rescanning every fact each cycle. MaxOf and MinOf use the
// incremental form without Retract, since the maximum can't be
// cheaply un-reduced; losing a candidate just means a full rebuild,
// which core's incremental accumulator node already does when Retract
// is nil.
package aggregate

import "github.com/arrowhead-labs/ruleflow/core"

// Count accumulates the number of matched facts and tests it with
// the given predicate.
func Count(test func(n int) bool) *core.Accumulate {
	return &core.Accumulate{
		Initial: func() interface{} { return 0 },
		Reduce: func(state interface{}, f *core.Fact) interface{} {
			return state.(int) + 1
		},
		Retract: func(state interface{}, f *core.Fact) interface{} {
			return state.(int) - 1
		},
		Test: func(v interface{}) bool { return test(v.(int)) },
	}
}

// SumOf accumulates the sum of a numeric attribute across matched
// facts. attr is read as a float64; facts missing it or holding a
// non-numeric value contribute zero.
func SumOf(attr string, test func(sum float64) bool) *core.Accumulate {
	value := func(f *core.Fact) float64 {
		v, ok := f.Payload()[attr].(float64)
		if !ok {
			return 0
		}
		return v
	}
	return &core.Accumulate{
		Initial: func() interface{} { return 0.0 },
		Reduce: func(state interface{}, f *core.Fact) interface{} {
			return state.(float64) + value(f)
		},
		Retract: func(state interface{}, f *core.Fact) interface{} {
			return state.(float64) - value(f)
		},
		Test: func(v interface{}) bool { return test(v.(float64)) },
	}
}

// averageState tracks a running sum and count so AverageOf can
// retract without rescanning.
type averageState struct {
	sum   float64
	count int
}

// AverageOf accumulates the mean of a numeric attribute across
// matched facts. The average of zero facts is 0.
func AverageOf(attr string, test func(avg float64) bool) *core.Accumulate {
	value := func(f *core.Fact) float64 {
		v, ok := f.Payload()[attr].(float64)
		if !ok {
			return 0
		}
		return v
	}
	return &core.Accumulate{
		Initial: func() interface{} { return averageState{} },
		Reduce: func(state interface{}, f *core.Fact) interface{} {
			s := state.(averageState)
			s.sum += value(f)
			s.count++
			return s
		},
		Retract: func(state interface{}, f *core.Fact) interface{} {
			s := state.(averageState)
			s.sum -= value(f)
			s.count--
			return s
		},
		Convert: func(state interface{}) interface{} {
			s := state.(averageState)
			if s.count == 0 {
				return 0.0
			}
			return s.sum / float64(s.count)
		},
		Test: func(v interface{}) bool { return test(v.(float64)) },
	}
}

// MaxOf accumulates the maximum of a numeric attribute and binds it as
// a float64. When no matched fact holds a numeric attr, the bound value
// is nil and test is called with ok false. No Retract is given: losing any
// contributing fact forces a full rebuild, since the new maximum
// can't be derived from the old one alone.
func MaxOf(attr string, test func(max float64, ok bool) bool) *core.Accumulate {
	type maxState struct {
		max float64
		ok  bool
	}
	return &core.Accumulate{
		Initial: func() interface{} { return maxState{} },
		Reduce: func(state interface{}, f *core.Fact) interface{} {
			s := state.(maxState)
			v, numeric := f.Payload()[attr].(float64)
			if !numeric {
				return s
			}
			if !s.ok || v > s.max {
				return maxState{max: v, ok: true}
			}
			return s
		},
		Convert: func(state interface{}) interface{} {
			s := state.(maxState)
			if !s.ok {
				return nil
			}
			return s.max
		},
		Test: func(v interface{}) bool {
			max, ok := v.(float64)
			return test(max, ok)
		},
	}
}

// MinOf is MaxOf's mirror image.
func MinOf(attr string, test func(min float64, ok bool) bool) *core.Accumulate {
	type minState struct {
		min float64
		ok  bool
	}
	return &core.Accumulate{
		Initial: func() interface{} { return minState{} },
		Reduce: func(state interface{}, f *core.Fact) interface{} {
			s := state.(minState)
			v, numeric := f.Payload()[attr].(float64)
			if !numeric {
				return s
			}
			if !s.ok || v < s.min {
				return minState{min: v, ok: true}
			}
			return s
		},
		Convert: func(state interface{}) interface{} {
			s := state.(minState)
			if !s.ok {
				return nil
			}
			return s.min
		},
		Test: func(v interface{}) bool {
			min, ok := v.(float64)
			return test(min, ok)
		},
	}
}

// CollectAll binds the underlying fact sequence itself as the
// accumulated value, using the simple form so no state is kept
// across evaluations. test defaults to always-true if omitted.
func CollectAll(test ...func(facts []*core.Fact) bool) *core.Accumulate {
	t := func(facts []*core.Fact) bool { return true }
	if len(test) > 0 {
		t = test[0]
	}
	return &core.Accumulate{
		Aggregator: func(facts []*core.Fact) interface{} { return facts },
		Test:       func(v interface{}) bool { return t(v.([]*core.Fact)) },
	}
}
