package core

import "testing"

func TestAccumulatorEmptySetContract(t *testing.T) {
	e := NewEngine(EngineOptions{})

	fired := false
	e.AddRule(RuleDef{
		Name: "count-zero-ok",
		Condition: AccumulateCond("Widget", nil, "n", &Accumulate{
			Initial: func() interface{} { return 0 },
			Reduce:  func(s interface{}, f *Fact) interface{} { return s.(int) + 1 },
			Test:    func(v interface{}) bool { return v.(int) == 0 },
		}),
		Action: func(facts []*Fact, h *EngineHandle, bs Bindings) error {
			fired = true
			if bs["n"].(int) != 0 {
				t.Fatalf("expected n == 0, got %v", bs["n"])
			}
			return nil
		},
	})

	if err := e.Run(); err != nil {
		t.Fatal(err)
	}
	if !fired {
		t.Fatal("expected the accumulator to fire for the empty fact set")
	}
}

func TestAccumulatorSimpleForm(t *testing.T) {
	e := NewEngine(EngineOptions{})
	e.AddFact(map[string]interface{}{"type": "Item", "v": 1.0})
	e.AddFact(map[string]interface{}{"type": "Item", "v": 2.0})
	e.AddFact(map[string]interface{}{"type": "Item", "v": 3.0})

	var total float64
	e.AddRule(RuleDef{
		Name: "simple-sum",
		Condition: AccumulateCond("Item", nil, "total", &Accumulate{
			Aggregator: func(facts []*Fact) interface{} {
				var sum float64
				for _, f := range facts {
					sum += f.Payload()["v"].(float64)
				}
				return sum
			},
			Test: func(v interface{}) bool { return true },
		}),
		Action: func(facts []*Fact, h *EngineHandle, bs Bindings) error {
			total = bs["total"].(float64)
			return nil
		},
	})

	if err := e.Run(); err != nil {
		t.Fatal(err)
	}
	if total != 6 {
		t.Fatalf("expected total 6, got %v", total)
	}
}

// Property 8: an incremental accumulator with Retract yields the same
// convert(state) as a fresh simple aggregator over the current fact
// set, for any sequence of insertions and retractions.
func TestIncrementalAccumulatorEquivalence(t *testing.T) {
	e := NewEngine(EngineOptions{})

	f1, _ := e.AddFact(map[string]interface{}{"type": "Item", "v": 5.0})
	f2, _ := e.AddFact(map[string]interface{}{"type": "Item", "v": 7.0})

	incChild := &node{kind: nodeAlpha, typ: "Item"}
	incChild.inject(e.wm)
	inc := &node{
		kind:  nodeIncrementalAccumulator,
		child: incChild,
		acc: &Accumulate{
			Initial: func() interface{} { return 0.0 },
			Reduce: func(s interface{}, f *Fact) interface{} {
				return s.(float64) + f.Payload()["v"].(float64)
			},
			Retract: func(s interface{}, f *Fact) interface{} {
				return s.(float64) - f.Payload()["v"].(float64)
			},
			Test: func(v interface{}) bool { return true },
		},
		state: &accumulatorState{},
	}

	simpleSum := func() float64 {
		var sum float64
		for _, f := range e.wm.byTypeFacts("Item") {
			sum += f.Payload()["v"].(float64)
		}
		return sum
	}

	check := func(label string) {
		ms, err := inc.evaluate()
		if err != nil {
			t.Fatal(err)
		}
		got := ms[0].AccumulatorResult.(float64)
		want := simpleSum()
		if got != want {
			t.Fatalf("%s: incremental=%v simple=%v", label, got, want)
		}
	}

	check("initial")

	f3, _ := e.AddFact(map[string]interface{}{"type": "Item", "v": 11.0})
	check("after insert")

	e.RemoveFact(f1.ID())
	check("after retract")

	e.RemoveFact(f2.ID())
	e.RemoveFact(f3.ID())
	check("after draining to empty")
}
