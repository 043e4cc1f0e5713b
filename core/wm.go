package core

// WorkingMemory owns all facts, indexes them by type, and tracks
// which types have changed across the current and next engine cycle
// so stable rules can skip re-evaluation.
//
// WorkingMemory is not safe for concurrent use; it is owned by a
// single Engine and mutated only during Run or by the mutator methods
// called between Run invocations, per the single-threaded ownership
// model described for Engine.
type WorkingMemory struct {
	byType  map[string]map[FactID]*Fact
	nextID  FactID
	version int64

	dirtyCurrent map[string]struct{}
	dirtyNext    map[string]struct{}
}

// NewWorkingMemory makes an empty WorkingMemory.
func NewWorkingMemory() *WorkingMemory {
	return &WorkingMemory{
		byType:       make(map[string]map[FactID]*Fact),
		dirtyCurrent: make(map[string]struct{}),
		dirtyNext:    make(map[string]struct{}),
	}
}

// insert assigns a fresh id and recency to the payload's fact and
// adds it to working memory. The type must already have been
// validated as non-empty by the caller.
func (wm *WorkingMemory) insert(typ string, payload map[string]interface{}) *Fact {
	wm.nextID++
	wm.version++

	f := &Fact{
		id:      wm.nextID,
		typ:     typ,
		payload: payload,
		recency: wm.version,
	}

	bucket, have := wm.byType[typ]
	if !have {
		bucket = make(map[FactID]*Fact)
		wm.byType[typ] = bucket
	}
	bucket[f.id] = f

	wm.dirtyNext[typ] = struct{}{}

	return f
}

// update locates the fact by id, rejects a type-changing payload,
// shallow-merges the remaining keys, and bumps recency.
func (wm *WorkingMemory) update(id FactID, partial map[string]interface{}) error {
	f, err := wm.find(id)
	if err != nil {
		return err
	}

	if t, has := partial["type"]; has {
		if ts, ok := t.(string); !ok || ts != f.typ {
			return &TypeImmutable{ID: id}
		}
	}

	for k, v := range partial {
		if k == "type" {
			continue
		}
		f.payload[k] = v
	}

	wm.version++
	f.recency = wm.version
	wm.dirtyNext[f.typ] = struct{}{}

	return nil
}

// remove locates the fact by id and deletes it from its type bucket,
// pruning the bucket if it becomes empty.
func (wm *WorkingMemory) remove(id FactID) error {
	f, err := wm.find(id)
	if err != nil {
		return err
	}

	bucket := wm.byType[f.typ]
	delete(bucket, id)
	if len(bucket) == 0 {
		delete(wm.byType, f.typ)
	}

	wm.dirtyNext[f.typ] = struct{}{}

	return nil
}

func (wm *WorkingMemory) find(id FactID) (*Fact, error) {
	for _, bucket := range wm.byType {
		if f, have := bucket[id]; have {
			return f, nil
		}
	}
	return nil, &NotFound{ID: id}
}

// byTypeFacts returns a snapshot slice of the facts of the given
// type, or nil if there are none.
func (wm *WorkingMemory) byTypeFacts(typ string) []*Fact {
	bucket, have := wm.byType[typ]
	if !have {
		return nil
	}
	acc := make([]*Fact, 0, len(bucket))
	for _, f := range bucket {
		acc = append(acc, f)
	}
	return acc
}

// all returns a snapshot slice of every fact in working memory.
func (wm *WorkingMemory) all() []*Fact {
	var acc []*Fact
	for _, bucket := range wm.byType {
		for _, f := range bucket {
			acc = append(acc, f)
		}
	}
	return acc
}

// promoteNextDirty merges next-cycle dirty types into the current
// cycle's dirty set and clears the next set.
func (wm *WorkingMemory) promoteNextDirty() {
	for t := range wm.dirtyNext {
		wm.dirtyCurrent[t] = struct{}{}
	}
	wm.dirtyNext = make(map[string]struct{})
}

// clearCurrentDirty clears the current cycle's dirty set.
func (wm *WorkingMemory) clearCurrentDirty() {
	wm.dirtyCurrent = make(map[string]struct{})
}

// isTypeDirty reports whether t is dirty in either the current or the
// next cycle's dirty set.
func (wm *WorkingMemory) isTypeDirty(t string) bool {
	if _, have := wm.dirtyCurrent[t]; have {
		return true
	}
	_, have := wm.dirtyNext[t]
	return have
}

// dirtyCurrentTypes returns the set of types dirty in the current
// cycle.
func (wm *WorkingMemory) dirtyCurrentTypes() map[string]struct{} {
	return wm.dirtyCurrent
}
