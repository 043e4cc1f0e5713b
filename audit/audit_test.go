package audit

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/arrowhead-labs/ruleflow/core"
)

func TestNullStoreDiscardsEverything(t *testing.T) {
	var s Store = NullStore{}
	ctx := context.Background()

	if err := s.AppendTrace(ctx, "run-1", []core.TraceEntry{{RuleName: "r"}}); err != nil {
		t.Fatal(err)
	}
	got, err := s.ReadTrace(ctx, "run-1")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Fatalf("expected nothing back from NullStore, got %v", got)
	}
}

func TestBoltStoreRoundTrip(t *testing.T) {
	filename := "audit_test.db"
	defer os.Remove(filename)

	s, err := OpenBoltStore(filename)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	ctx := context.Background()
	runID := "run-1"

	first := []core.TraceEntry{
		{RuleName: "adult-birthday", Timestamp: time.Now()},
		{RuleName: "sum-prices", Timestamp: time.Now()},
	}
	if err := s.AppendTrace(ctx, runID, first); err != nil {
		t.Fatal(err)
	}

	second := []core.TraceEntry{
		{RuleName: "grow-forever", Timestamp: time.Now()},
	}
	if err := s.AppendTrace(ctx, runID, second); err != nil {
		t.Fatal(err)
	}

	got, err := s.ReadTrace(ctx, runID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}

	wantOrder := []string{"adult-birthday", "sum-prices", "grow-forever"}
	for i, e := range got {
		if e.RuleName != wantOrder[i] {
			t.Fatalf("entry %d: expected %q, got %q", i, wantOrder[i], e.RuleName)
		}
	}
}

func TestBoltStoreUnknownRunIsEmpty(t *testing.T) {
	filename := "audit_test_empty.db"
	defer os.Remove(filename)

	s, err := OpenBoltStore(filename)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	got, err := s.ReadTrace(context.Background(), "nonexistent")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Fatalf("expected nil for unknown run id, got %v", got)
	}
}

func TestBoltStoreRejectsOperationsAfterClose(t *testing.T) {
	filename := "audit_test_closed.db"
	defer os.Remove(filename)

	s, err := OpenBoltStore(filename)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	if err := s.AppendTrace(ctx, "run-1", []core.TraceEntry{{RuleName: "r"}}); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed from AppendTrace, got %v", err)
	}
	if _, err := s.ReadTrace(ctx, "run-1"); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed from ReadTrace, got %v", err)
	}
}
