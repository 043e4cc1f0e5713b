// Package script compiles rule logic written as ECMAScript source into
// the core.PayloadTest, core.BetaTest, and core.Action closures the
// engine already accepts, so rule authors can store logic as data
// (a file, a database row, an admin UI field) instead of recompiling
// the binary.
//
// It never touches a WorkingMemory itself; every compiled closure is
// just another value satisfying core's function types.
package script

import (
	"fmt"
	"time"

	"github.com/dop251/goja"
	"github.com/gorhill/cronexpr"

	"github.com/arrowhead-labs/ruleflow/core"
)

// Interpreter wraps a goja.Runtime factory. Each Compile* call gets a
// fresh *goja.Runtime per invocation rather than a shared one, since
// core's Condition/Action closures may be called concurrently with
// themselves across separate Engine instances and goja.Runtime is not
// safe for concurrent use.
type Interpreter struct {
	// Timeout bounds a single script execution. Zero means no bound.
	Timeout time.Duration
}

// NewInterpreter makes an Interpreter with no execution timeout.
func NewInterpreter() *Interpreter {
	return &Interpreter{}
}

func (i *Interpreter) run(name, src string, env map[string]interface{}) (goja.Value, error) {
	vm := goja.New()
	for k, v := range env {
		if err := vm.Set(k, v); err != nil {
			return nil, fmt.Errorf("script: set %s: %w", k, err)
		}
	}

	if i.Timeout > 0 {
		done := make(chan struct{})
		timer := time.AfterFunc(i.Timeout, func() {
			vm.Interrupt("script: timeout")
		})
		defer func() {
			close(done)
			timer.Stop()
		}()
	}

	prog, err := goja.Compile(name, wrap(src), true)
	if err != nil {
		return nil, fmt.Errorf("script: compile %s: %w", name, err)
	}
	return vm.RunProgram(prog)
}

func wrap(src string) string {
	return "(function() {\n" + src + "\n}());\n"
}

// CompilePayloadTest compiles src into a core.PayloadTest. The script
// sees a `payload` object and must evaluate to a boolean.
func (i *Interpreter) CompilePayloadTest(src string) (core.PayloadTest, error) {
	if _, err := goja.Compile("payloadTest", wrap(src), true); err != nil {
		return nil, fmt.Errorf("script: compile payload test: %w", err)
	}
	return func(payload map[string]interface{}) bool {
		v, err := i.run("payloadTest", src, map[string]interface{}{
			"payload":  payload,
			"cronNext": nextCronTime,
		})
		if err != nil {
			return false
		}
		return v.ToBoolean()
	}, nil
}

// CompileBetaTest compiles src into a core.BetaTest. The script sees
// `facts` (an array of the facts' live payloads, in join order) and
// `bindings`, and must evaluate to a boolean.
func (i *Interpreter) CompileBetaTest(src string) (core.BetaTest, error) {
	if _, err := goja.Compile("betaTest", wrap(src), true); err != nil {
		return nil, fmt.Errorf("script: compile beta test: %w", err)
	}
	return func(facts []*core.Fact, bindings core.Bindings) bool {
		snaps := make([]map[string]interface{}, len(facts))
		for idx, f := range facts {
			snaps[idx] = f.Payload()
		}
		v, err := i.run("betaTest", src, map[string]interface{}{
			"facts":    snaps,
			"bindings": snapshotBindings(bindings),
			"cronNext": nextCronTime,
		})
		if err != nil {
			return false
		}
		return v.ToBoolean()
	}, nil
}

// CompileAction compiles src into a core.Action. The script sees
// `facts`, `bindings`, and an `emit(type, payload)` function that
// stages a fact for the engine handle to add once the script returns;
// the script cannot call back into the engine directly, keeping
// actions synchronous from the engine's point of view.
func (i *Interpreter) CompileAction(src string) (core.Action, error) {
	if _, err := goja.Compile("action", wrap(src), true); err != nil {
		return nil, fmt.Errorf("script: compile action: %w", err)
	}
	return func(facts []*core.Fact, h *core.EngineHandle, bindings core.Bindings) error {
		var emitted []map[string]interface{}
		emit := func(typ string, payload map[string]interface{}) {
			p := make(map[string]interface{}, len(payload)+1)
			for k, v := range payload {
				p[k] = v
			}
			p["type"] = typ
			emitted = append(emitted, p)
		}

		snaps := make([]map[string]interface{}, len(facts))
		for idx, f := range facts {
			snaps[idx] = f.Payload()
		}

		_, err := i.run("action", src, map[string]interface{}{
			"facts":    snaps,
			"bindings": snapshotBindings(bindings),
			"emit":     emit,
			"cronNext": nextCronTime,
		})
		if err != nil {
			return err
		}

		for _, fact := range emitted {
			if _, err := h.AddFact(fact); err != nil {
				return err
			}
		}
		return nil
	}, nil
}

// NextCronTime returns the next time expr fires strictly after after.
// Compiled scripts, guards included, reach the same computation
// through cronNext(expr), which measures from the current time and
// returns an RFC 3339 string ("" for a bad expression), so a scripted
// guard can decide "not yet due" for a scheduled rule.
func NextCronTime(expr string, after time.Time) (time.Time, error) {
	c, err := cronexpr.Parse(expr)
	if err != nil {
		return time.Time{}, fmt.Errorf("script: bad cron expression %q: %w", expr, err)
	}
	return c.Next(after), nil
}

func nextCronTime(expr string) string {
	c, err := cronexpr.Parse(expr)
	if err != nil {
		return ""
	}
	return c.Next(time.Now()).UTC().Format(time.RFC3339Nano)
}

func snapshotBindings(bs core.Bindings) map[string]interface{} {
	out := make(map[string]interface{}, len(bs))
	for k, v := range bs {
		if f, ok := v.(*core.Fact); ok {
			out[k] = f.Payload()
			continue
		}
		out[k] = v
	}
	return out
}
