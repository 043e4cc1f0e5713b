package aggregate

import (
	"testing"

	"github.com/arrowhead-labs/ruleflow/core"
)

func TestCountAndSum(t *testing.T) {
	e := core.NewEngine(core.EngineOptions{})
	e.AddFact(map[string]interface{}{"type": "Order", "total": 10.0})
	e.AddFact(map[string]interface{}{"type": "Order", "total": 20.0})

	var gotCount int
	var gotSum float64

	e.AddRule(core.RuleDef{
		Name:      "count-orders",
		Condition: core.AccumulateCond("Order", nil, "n", Count(func(n int) bool { return true })),
		Action: func(facts []*core.Fact, h *core.EngineHandle, bs core.Bindings) error {
			gotCount = bs["n"].(int)
			return nil
		},
	})
	e.AddRule(core.RuleDef{
		Name:      "sum-orders",
		Condition: core.AccumulateCond("Order", nil, "sum", SumOf("total", func(sum float64) bool { return true })),
		Action: func(facts []*core.Fact, h *core.EngineHandle, bs core.Bindings) error {
			gotSum = bs["sum"].(float64)
			return nil
		},
	})

	if err := e.Run(); err != nil {
		t.Fatal(err)
	}
	if gotCount != 2 {
		t.Fatalf("expected count 2, got %d", gotCount)
	}
	if gotSum != 30 {
		t.Fatalf("expected sum 30, got %v", gotSum)
	}
}

func TestMaxOf(t *testing.T) {
	e := core.NewEngine(core.EngineOptions{})
	e.AddFact(map[string]interface{}{"type": "Bid", "amount": 5.0})
	e.AddFact(map[string]interface{}{"type": "Bid", "amount": 9.0})
	e.AddFact(map[string]interface{}{"type": "Bid", "amount": 3.0})

	var gotMax float64
	e.AddRule(core.RuleDef{
		Name:      "highest-bid",
		Condition: core.AccumulateCond("Bid", nil, "max", MaxOf("amount", func(max float64, ok bool) bool { return ok })),
		Action: func(facts []*core.Fact, h *core.EngineHandle, bs core.Bindings) error {
			gotMax = bs["max"].(float64)
			return nil
		},
	})

	if err := e.Run(); err != nil {
		t.Fatal(err)
	}
	if gotMax != 9 {
		t.Fatalf("expected max 9, got %v", gotMax)
	}
}

func TestCollectAll(t *testing.T) {
	e := core.NewEngine(core.EngineOptions{})
	e.AddFact(map[string]interface{}{"type": "Tag", "name": "a"})
	e.AddFact(map[string]interface{}{"type": "Tag", "name": "b"})

	var got []*core.Fact
	e.AddRule(core.RuleDef{
		Name:      "collect-tags",
		Condition: core.AccumulateCond("Tag", nil, "tags", CollectAll()),
		Action: func(facts []*core.Fact, h *core.EngineHandle, bs core.Bindings) error {
			got = bs["tags"].([]*core.Fact)
			return nil
		},
	})

	if err := e.Run(); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 collected facts, got %d", len(got))
	}
}
