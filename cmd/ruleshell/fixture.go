package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/arrowhead-labs/ruleflow/core"
	"github.com/arrowhead-labs/ruleflow/script"
)

// ruleFixture is one entry of a rule-set fixture file: a single atomic
// condition over one fact type, its guard and action written as
// ECMAScript source rather than Go closures, so a fixture can be
// edited without recompiling this binary. Composite conditions
// (All/Any/Not/Exists) aren't representable in this format; rule sets
// needing them are built with the Go DSL directly instead of through
// ruleshell.
type ruleFixture struct {
	Name     string `yaml:"name"`
	Doc      string `yaml:"doc,omitempty"`
	Salience int    `yaml:"salience,omitempty"`
	Type     string `yaml:"type"`
	Var      string `yaml:"var,omitempty"`
	Test     string `yaml:"test,omitempty"`
	Action   string `yaml:"action"`
}

// factFixture is one fact to seed working memory with before Run.
type factFixture struct {
	Type    string                 `yaml:"type"`
	Payload map[string]interface{} `yaml:",inline"`
}

// setFixture is the top-level shape of a rule-set fixture file.
type setFixture struct {
	MaxCycles int           `yaml:"maxCycles,omitempty"`
	Trace     bool          `yaml:"trace,omitempty"`
	Facts     []factFixture `yaml:"facts,omitempty"`
	Rules     []ruleFixture `yaml:"rules"`
}

func loadFixture(path string) (*setFixture, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f setFixture
	if err := yaml.Unmarshal(bs, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	return &f, nil
}

// build compiles a fixture into an engine with its facts already
// inserted and its rules already added.
func (f *setFixture) build(interp *script.Interpreter) (*core.Engine, error) {
	opts := core.EngineOptions{MaxCycles: f.MaxCycles, Trace: f.Trace}
	e := core.NewEngine(opts)

	for _, ff := range f.Facts {
		payload := make(map[string]interface{}, len(ff.Payload)+1)
		for k, v := range ff.Payload {
			payload[k] = v
		}
		payload["type"] = ff.Type
		if _, err := e.AddFact(payload); err != nil {
			return nil, fmt.Errorf("fact %s: %w", ff.Type, err)
		}
	}

	for _, rf := range f.Rules {
		var test core.PayloadTest
		if rf.Test != "" {
			var err error
			if test, err = interp.CompilePayloadTest(rf.Test); err != nil {
				return nil, fmt.Errorf("rule %s: test: %w", rf.Name, err)
			}
		}

		action, err := interp.CompileAction(rf.Action)
		if err != nil {
			return nil, fmt.Errorf("rule %s: action: %w", rf.Name, err)
		}

		if _, err := e.AddRule(core.RuleDef{
			Name:      rf.Name,
			Doc:       rf.Doc,
			Salience:  rf.Salience,
			Condition: core.TypeCond(rf.Type, rf.Var, test),
			Action:    action,
		}); err != nil {
			return nil, fmt.Errorf("rule %s: %w", rf.Name, err)
		}
	}

	return e, nil
}
