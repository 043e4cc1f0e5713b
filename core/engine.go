package core

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// AgendaEntry is one candidate (rule, match) pair considered during
// conflict resolution.
type AgendaEntry struct {
	Rule         *Rule
	Match        PartialMatch
	Signature    string
	Salience     int
	MatchRecency int64
}

// ConflictResolver orders (and may filter) an agenda. The engine
// still records every fired entry's signature in its refraction set
// regardless of what a custom resolver does.
type ConflictResolver func(agenda []*AgendaEntry) []*AgendaEntry

// TraceEntry records one firing when Engine tracing is enabled.
type TraceEntry struct {
	RuleName   string
	Timestamp  time.Time
	Facts      []map[string]interface{}
	FactsAdded []map[string]interface{}
}

// EngineOptions configures a new Engine.
type EngineOptions struct {
	// MaxCycles bounds Run's match-resolve-act loop. Zero means the
	// default of 100.
	MaxCycles int

	// Trace, when true, makes Run record a TraceEntry for every
	// firing, retrievable with GetExecutionTrace.
	Trace bool
}

// Engine owns a WorkingMemory and a rule set and runs the
// match-resolve-act cycle over them.
//
// Engine is not safe for concurrent use. It is single-threaded by
// design: Run executes to quiescence on the calling goroutine, and
// calling Run reentrantly (e.g. from inside an Action) is undefined.
type Engine struct {
	wm    *WorkingMemory
	rules []*Rule

	maxCycles int
	trace     bool

	firedHistory   map[string]struct{}
	executionTrace []TraceEntry

	conflictResolver ConflictResolver

	cycleCount int
	recorder   *traceRecorder
}

// traceRecorder captures facts added by the action currently firing,
// so Run can report them in that firing's TraceEntry without
// intercepting Engine.AddFact for every caller the way the teacher's
// trace design does; this recorder is scoped to a single firing.
type traceRecorder struct {
	added []map[string]interface{}
}

// NewEngine makes an Engine with an empty WorkingMemory.
func NewEngine(opts EngineOptions) *Engine {
	maxCycles := opts.MaxCycles
	if maxCycles == 0 {
		maxCycles = 100
	}
	e := &Engine{
		wm:           NewWorkingMemory(),
		maxCycles:    maxCycles,
		trace:        opts.Trace,
		firedHistory: make(map[string]struct{}),
	}
	e.conflictResolver = e.defaultConflictResolver
	return e
}

// EngineHandle is the view of the Engine passed to a firing Action.
// It's the same Engine underneath; the distinct type just documents
// the reduced, action-appropriate surface at the call site.
type EngineHandle struct {
	engine *Engine
}

// AddFact validates and inserts a fact payload, returning the new
// Fact. The payload must contain a non-empty "type" key.
func (e *Engine) AddFact(payload map[string]interface{}) (*Fact, error) {
	typ, ok := payload["type"].(string)
	if !ok || typ == "" {
		return nil, &MissingType{}
	}

	cp := make(map[string]interface{}, len(payload))
	for k, v := range payload {
		if k == "type" {
			continue
		}
		cp[k] = v
	}

	f := e.wm.insert(typ, cp)

	if e.recorder != nil {
		e.recorder.added = append(e.recorder.added, f.snapshotPayload())
	}

	return f, nil
}

// UpdateFact merges partialPayload into the fact's payload.
func (e *Engine) UpdateFact(id FactID, partialPayload map[string]interface{}) error {
	return e.wm.update(id, partialPayload)
}

// RemoveFact removes the fact with the given id.
func (e *Engine) RemoveFact(id FactID) error {
	return e.wm.remove(id)
}

// Query starts a fluent query over working memory. An empty typ
// queries every fact regardless of type.
func (e *Engine) Query(typ string) *QueryBuilder {
	return &QueryBuilder{wm: e.wm, typ: typ}
}

// AddFact, UpdateFact, RemoveFact, and Query on EngineHandle delegate
// to the underlying Engine; this is the surface an Action sees.
func (h *EngineHandle) AddFact(payload map[string]interface{}) (*Fact, error) {
	return h.engine.AddFact(payload)
}

func (h *EngineHandle) UpdateFact(id FactID, partialPayload map[string]interface{}) error {
	return h.engine.UpdateFact(id, partialPayload)
}

func (h *EngineHandle) RemoveFact(id FactID) error {
	return h.engine.RemoveFact(id)
}

func (h *EngineHandle) Query(typ string) *QueryBuilder {
	return h.engine.Query(typ)
}

// AddRule compiles def.Condition into a node network and appends the
// resulting Rule to the engine's rule set.
func (e *Engine) AddRule(def RuleDef) (*Rule, error) {
	cr, err := compile(def.Condition)
	if err != nil {
		return nil, err
	}

	cr.root.inject(e.wm)

	rule := &Rule{
		Name:            def.Name,
		Salience:        def.Salience,
		Doc:             def.Doc,
		root:            cr.root,
		condition:       def.Condition,
		referencedTypes: cr.referencedTypes,
		hasNegation:     cr.hasNegation,
		action:          def.Action,
	}

	e.rules = append(e.rules, rule)

	return rule, nil
}

// Rules returns every rule added to this engine, in addition order.
func (e *Engine) Rules() []*Rule {
	out := make([]*Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

// SetConflictResolver replaces the default conflict resolver.
func (e *Engine) SetConflictResolver(fn ConflictResolver) {
	e.conflictResolver = fn
}

// GetExecutionTrace returns the trace recorded by the most recent
// Run, or nil if tracing is disabled.
func (e *Engine) GetExecutionTrace() []TraceEntry {
	return e.executionTrace
}

// ClearExecutionTrace discards any recorded trace.
func (e *Engine) ClearExecutionTrace() {
	e.executionTrace = nil
}

func matchSignature(ruleName string, facts []*Fact) string {
	ids := make([]string, len(facts))
	for i, f := range facts {
		ids[i] = strconv.FormatInt(int64(f.id), 10)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, _ := strconv.ParseInt(ids[i], 10, 64)
		b, _ := strconv.ParseInt(ids[j], 10, 64)
		return a < b
	})
	return ruleName + "::" + strings.Join(ids, ",")
}

func matchRecency(facts []*Fact) int64 {
	var max int64
	for _, f := range facts {
		if f.recency > max {
			max = f.recency
		}
	}
	return max
}

func (e *Engine) ruleEligible(r *Rule) bool {
	// A rule never evaluated before is evaluated regardless of dirty
	// types, so matches over already-clean facts, or an accumulator's
	// match over no facts at all, are not skipped.
	if !r.evaluated {
		return true
	}
	if len(r.referencedTypes) == 0 {
		return true
	}
	if r.hasNegation {
		return true
	}
	for t := range r.referencedTypes {
		if _, dirty := e.wm.dirtyCurrentTypes()[t]; dirty {
			return true
		}
	}
	return false
}

func (e *Engine) buildAgenda() ([]*AgendaEntry, error) {
	var agenda []*AgendaEntry
	for _, r := range e.rules {
		if !e.ruleEligible(r) {
			continue
		}
		matches, err := r.root.evaluate()
		if err != nil {
			return nil, err
		}
		r.evaluated = true
		for _, m := range matches {
			agenda = append(agenda, &AgendaEntry{
				Rule:         r,
				Match:        m,
				Signature:    matchSignature(r.Name, m.Facts),
				Salience:     r.Salience,
				MatchRecency: matchRecency(m.Facts),
			})
		}
	}
	return agenda, nil
}

// defaultConflictResolver drops already-fired signatures, then sorts
// by salience (descending), matchRecency (descending), and finally
// signature (ascending) as a deterministic tie-break.
func (e *Engine) defaultConflictResolver(agenda []*AgendaEntry) []*AgendaEntry {
	fresh := make([]*AgendaEntry, 0, len(agenda))
	for _, entry := range agenda {
		if _, fired := e.firedHistory[entry.Signature]; !fired {
			fresh = append(fresh, entry)
		}
	}

	sort.SliceStable(fresh, func(i, j int) bool {
		a, b := fresh[i], fresh[j]
		if a.Salience != b.Salience {
			return a.Salience > b.Salience
		}
		if a.MatchRecency != b.MatchRecency {
			return a.MatchRecency > b.MatchRecency
		}
		return a.Signature < b.Signature
	})

	return fresh
}

func (e *Engine) fire(entry *AgendaEntry) error {
	e.recorder = &traceRecorder{}
	defer func() { e.recorder = nil }()

	handle := &EngineHandle{engine: e}
	if err := entry.Rule.action(entry.Match.Facts, handle, entry.Match.Bindings); err != nil {
		return fmt.Errorf("rule %q: %w", entry.Rule.Name, err)
	}

	e.firedHistory[entry.Signature] = struct{}{}

	if e.trace {
		snaps := make([]map[string]interface{}, len(entry.Match.Facts))
		for i, f := range entry.Match.Facts {
			snaps[i] = f.snapshotPayload()
		}
		e.executionTrace = append(e.executionTrace, TraceEntry{
			RuleName:   entry.Rule.Name,
			Timestamp:  time.Now(),
			Facts:      snaps,
			FactsAdded: e.recorder.added,
		})
	}

	return nil
}

// Run executes the match-resolve-act cycle until a fixed point,
// refraction makes no new entry resolvable, or maxCycles is reached.
//
// Run fails with MaxCyclesExceeded only when the cycle count reaches
// maxCycles with the agenda still non-empty; reaching quiescence
// earlier is success.
func (e *Engine) Run() error {
	e.cycleCount = 0
	e.executionTrace = nil

	stable := false

	for e.cycleCount < e.maxCycles {
		e.wm.promoteNextDirty()

		agenda, err := e.buildAgenda()
		if err != nil {
			return err
		}
		if len(agenda) == 0 {
			stable = true
			break
		}

		e.cycleCount++

		resolved := e.conflictResolver(agenda)

		fired := false
		for _, entry := range resolved {
			if err := e.fire(entry); err != nil {
				return err
			}
			fired = true
		}

		if !fired {
			stable = true
			break
		}

		e.wm.clearCurrentDirty()
	}

	if !stable && e.cycleCount == e.maxCycles {
		return &MaxCyclesExceeded{Limit: e.maxCycles}
	}

	return nil
}

// CycleCount returns the number of cycles the most recent Run took.
func (e *Engine) CycleCount() int {
	return e.cycleCount
}
