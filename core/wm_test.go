package core

import "testing"

func TestWorkingMemoryRecencyMonotonic(t *testing.T) {
	wm := NewWorkingMemory()

	a := wm.insert("Person", map[string]interface{}{"name": "Alice"})
	b := wm.insert("Person", map[string]interface{}{"name": "Bob"})

	if a.Recency() >= b.Recency() {
		t.Fatalf("expected a.Recency() < b.Recency(), got %d, %d", a.Recency(), b.Recency())
	}

	if err := wm.update(a.id, map[string]interface{}{"name": "Alicia"}); err != nil {
		t.Fatal(err)
	}
	if a.Recency() <= b.Recency() {
		t.Fatalf("expected updated a.Recency() > b.Recency(), got %d, %d", a.Recency(), b.Recency())
	}
}

func TestWorkingMemorySingleBucketInvariant(t *testing.T) {
	wm := NewWorkingMemory()
	wm.insert("Person", map[string]interface{}{"name": "Alice"})
	wm.insert("Person", map[string]interface{}{"name": "Bob"})
	wm.insert("Event", map[string]interface{}{"kind": "Birthday"})

	seen := make(map[FactID]int)
	for _, t := range []string{"Person", "Event"} {
		for _, f := range wm.byTypeFacts(t) {
			seen[f.id]++
		}
	}
	for id, count := range seen {
		if count != 1 {
			t.Fatalf("fact %d returned by byType %d times", id, count)
		}
	}
	if len(wm.all()) != 3 {
		t.Fatalf("expected 3 facts total, got %d", len(wm.all()))
	}
}

func TestWorkingMemoryPrunesEmptyBucket(t *testing.T) {
	wm := NewWorkingMemory()
	f := wm.insert("Person", map[string]interface{}{"name": "Alice"})

	if err := wm.remove(f.id); err != nil {
		t.Fatal(err)
	}

	if facts := wm.byTypeFacts("Person"); len(facts) != 0 {
		t.Fatalf("expected no Person facts, got %v", facts)
	}
}

func TestWorkingMemoryUpdateRejectsTypeChange(t *testing.T) {
	wm := NewWorkingMemory()
	f := wm.insert("Person", map[string]interface{}{"name": "Alice"})

	err := wm.update(f.id, map[string]interface{}{"type": "Robot"})
	if _, ok := err.(*TypeImmutable); !ok {
		t.Fatalf("expected TypeImmutable, got %v", err)
	}
}

func TestWorkingMemoryNotFound(t *testing.T) {
	wm := NewWorkingMemory()
	err := wm.remove(999)
	if _, ok := err.(*NotFound); !ok {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestWorkingMemoryDirtyBookkeeping(t *testing.T) {
	wm := NewWorkingMemory()

	if wm.isTypeDirty("Person") {
		t.Fatal("nothing should be dirty yet")
	}

	wm.insert("Person", map[string]interface{}{"name": "Alice"})
	if !wm.isTypeDirty("Person") {
		t.Fatal("Person should be dirty after insert")
	}

	wm.promoteNextDirty()
	if _, dirty := wm.dirtyCurrentTypes()["Person"]; !dirty {
		t.Fatal("Person should be in dirtyCurrent after promotion")
	}

	wm.clearCurrentDirty()
	if wm.isTypeDirty("Person") {
		t.Fatal("Person should be clean after clearCurrentDirty")
	}
}
