// Package audit persists an engine's execution trace, never its
// working memory: appending core.TraceEntry values for a run is
// orthogonal to the no-persistence-of-working-memory non-goal core
// carries, since a trace is a record of what fired, not a snapshot an
// engine could be rehydrated from.
//
// Grounded in the teacher's cmd/mservice/storage interface plus its
// storage/bolt and storage/noop implementations: a small persistence
// interface with a bbolt-backed implementation and a default no-op.
package audit

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/arrowhead-labs/ruleflow/core"
)

// ErrClosed is returned by a Store's operations once Close has been
// called on it.
var ErrClosed = errors.New("audit: closed")

// Store persists TraceEntry values recorded during one or more runs,
// keyed by an opaque run id.
type Store interface {
	// AppendTrace appends entries recorded by one Run under runID, in
	// firing order.
	AppendTrace(ctx context.Context, runID string, entries []core.TraceEntry) error

	// ReadTrace returns every entry previously appended under runID,
	// in firing order.
	ReadTrace(ctx context.Context, runID string) ([]core.TraceEntry, error)

	Close() error
}

// NullStore discards every trace. It is the default Store, grounded
// on the teacher's storage/noop.go.
type NullStore struct{}

func (NullStore) AppendTrace(ctx context.Context, runID string, entries []core.TraceEntry) error {
	return nil
}

func (NullStore) ReadTrace(ctx context.Context, runID string) ([]core.TraceEntry, error) {
	return nil, nil
}

func (NullStore) Close() error { return nil }

// BoltStore persists traces to a bbolt file, one bucket per run id,
// keyed by a zero-padded big-endian sequence number so a bucket's
// cursor iterates in firing order.
type BoltStore struct {
	db     *bbolt.DB
	closed bool
}

// OpenBoltStore opens (creating if needed) a bbolt database at
// filename for use as a Store.
func OpenBoltStore(filename string) (*BoltStore, error) {
	db, err := bbolt.Open(filename, 0644, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("audit: open %s: %w", filename, err)
	}
	return &BoltStore{db: db}, nil
}

// Close releases the underlying bbolt file. Every later call to
// AppendTrace or ReadTrace returns ErrClosed.
func (s *BoltStore) Close() error {
	s.closed = true
	return s.db.Close()
}

func seqKey(n int) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(n))
	return b
}

// AppendTrace appends entries to runID's bucket, continuing the
// sequence from whatever was already stored.
func (s *BoltStore) AppendTrace(ctx context.Context, runID string, entries []core.TraceEntry) error {
	if s.closed {
		return ErrClosed
	}
	if len(entries) == 0 {
		return nil
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(runID))
		if err != nil {
			return err
		}
		next := b.Stats().KeyN
		for i, entry := range entries {
			js, err := json.Marshal(&entry)
			if err != nil {
				return fmt.Errorf("audit: marshal trace entry: %w", err)
			}
			if err := b.Put(seqKey(next+i), js); err != nil {
				return err
			}
		}
		return nil
	})
}

// ReadTrace returns every entry stored under runID, in sequence order.
func (s *BoltStore) ReadTrace(ctx context.Context, runID string) ([]core.TraceEntry, error) {
	if s.closed {
		return nil, ErrClosed
	}
	var entries []core.TraceEntry
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(runID))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			var entry core.TraceEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("audit: unmarshal trace entry: %w", err)
			}
			entries = append(entries, entry)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}
