// Package results holds the deduplicated outcome of a resolution run
// and serializes it to JSON or CSV. The store is keyed by record
// content, last write wins, so identical answers from different
// nameservers collapse into one entry.
package results

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/atomic"

	"github.com/lc/resolvr/internal/records"
)

// Format selects the serialization encoding.
type Format string

const (
	// FormatJSON serializes the store as a pretty-printed JSON array.
	FormatJSON Format = "json"
	// FormatCSV serializes the store as CSV with a header row.
	FormatCSV Format = "csv"
)

// ParseFormat validates a user-supplied format string.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatJSON, FormatCSV:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unknown output format %q", s)
	}
}

// Store is the shared results map. It is written only by the pipeline's
// batcher and read only after the pipeline has fully drained, so the
// single mutex sees at most two owners over the store's lifetime.
type Store struct {
	mu    sync.Mutex // protects byKey
	byKey map[string]records.Record
	count atomic.Int64 // current key count, readable without the lock
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		byKey: make(map[string]records.Record),
	}
}

// Insert merges a batch into the store under one lock acquisition.
// A record whose key already exists overwrites the previous entry.
func (s *Store) Insert(batch []records.Record) {
	if len(batch) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range batch {
		s.byKey[r.Key()] = r
	}
	s.count.Store(int64(len(s.byKey)))
}

// Count returns the number of distinct keys currently stored.
func (s *Store) Count() int {
	return int(s.count.Load())
}

// Snapshot returns the stored records sorted by key. Sorting makes
// serialization deterministic: the same store always yields the same
// bytes regardless of map iteration order.
func (s *Store) Snapshot() []records.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.byKey))
	for k := range s.byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]records.Record, 0, len(keys))
	for _, k := range keys {
		out = append(out, s.byKey[k])
	}
	return out
}

// CountsByKind returns how many stored records each variant accounts
// for. Used for the end-of-run summary.
func (s *Store) CountsByKind() map[records.Kind]int {
	counts := make(map[records.Kind]int)
	for _, r := range s.Snapshot() {
		counts[r.Kind]++
	}
	return counts
}

// Serialize renders the store in the requested format.
func (s *Store) Serialize(f Format) ([]byte, error) {
	switch f {
	case FormatCSV:
		return s.csv()
	default:
		return s.json()
	}
}

func (s *Store) json() ([]byte, error) {
	out, err := json.MarshalIndent(s.Snapshot(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding results as json: %w", err)
	}
	return out, nil
}

func (s *Store) csv() ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(records.CSVHeader()); err != nil {
		return nil, fmt.Errorf("encoding results as csv: %w", err)
	}
	for _, r := range s.Snapshot() {
		if err := w.Write(r.CSVRow()); err != nil {
			return nil, fmt.Errorf("encoding results as csv: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("encoding results as csv: %w", err)
	}
	return buf.Bytes(), nil
}
