package registry

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// Record is the registry entry for one rendered component instance.
type Record struct {
	ComponentName string         `json:"componentName"`
	Props         map[string]any `json:"props"`
	Timestamp     int64          `json:"timestamp"`
}

// Entry pairs a Record with its component id.
type Entry struct {
	ID string `json:"id"`
	Record
}

// Snapshot is the serialized form of a Store, keyed by component id.
type Snapshot map[string]Record

// Sequence hands out id suffixes shared by many stores, so that ids from
// separate render passes never collide in an additive client registry.
type Sequence struct {
	n atomic.Int64
}

// NewSequence creates a sequence starting at 1.
func NewSequence() *Sequence { return &Sequence{} }

// next returns a suffix greater than both every earlier one and floor.
func (q *Sequence) next(floor int) int {
	for {
		cur := q.n.Load()
		n := cur + 1
		if n <= int64(floor) {
			n = int64(floor) + 1
		}
		if q.n.CompareAndSwap(cur, n) {
			return int(n)
		}
	}
}

// Store maps component ids to props records. Ids have the form Name_N with a
// counter that is unique for the lifetime of the store, or of its Sequence
// when it has one.
type Store struct {
	mu      sync.RWMutex
	records map[string]Record
	order   []string
	counter int
	seq     *Sequence
	now     func() time.Time
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithSequence draws id suffixes from seq instead of a per-store counter.
func WithSequence(seq *Sequence) StoreOption {
	return func(s *Store) { s.seq = seq }
}

// NewStore creates an empty store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		records: make(map[string]Record),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Register stores props for componentName under a freshly generated id.
func (s *Store) Register(componentName string, props map[string]any) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.seq != nil {
		s.counter = s.seq.next(s.counter)
	} else {
		s.counter++
	}
	id := componentName + "_" + strconv.Itoa(s.counter)
	s.put(id, Record{
		ComponentName: componentName,
		Props:         props,
		Timestamp:     s.now().UnixMilli(),
	})

	return id
}

// Set stores rec under id, replacing any previous record.
func (s *Store) Set(id string, rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.put(id, rec)
	s.bump(id)
}

// Get returns the record stored under id.
func (s *Store) Get(id string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	return rec, ok
}

// ByComponentName returns every entry rendered for componentName, in
// registration order.
func (s *Store) ByComponentName(componentName string) []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var entries []Entry
	for _, id := range s.order {
		if rec := s.records[id]; rec.ComponentName == componentName {
			entries = append(entries, Entry{ID: id, Record: rec})
		}
	}

	return entries
}

// IDs returns every id in registration order.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, len(s.order))
	copy(ids, s.order)
	return ids
}

// Remove deletes the record stored under id and reports whether it existed.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.records[id]; !ok {
		return false
	}
	delete(s.records, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}

	return true
}

// Clear removes every record and resets the id counter.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]Record)
	s.order = nil
	s.counter = 0
}

// Len returns the number of records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.records)
}

// Snapshot returns a copy of every record keyed by id.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := make(Snapshot, len(s.records))
	for id, rec := range s.records {
		snap[id] = rec
	}

	return snap
}

// Merge adds every record of snap, overwriting records with the same id.
// Existing records not present in snap are kept.
func (s *Store) Merge(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range sortedIDs(snap) {
		s.put(id, snap[id])
		s.bump(id)
	}
}

// Load replaces the contents of the store with snap and restores the id
// counter from the numeric suffixes of its ids.
func (s *Store) Load(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]Record, len(snap))
	s.order = nil
	s.counter = 0
	for _, id := range sortedIDs(snap) {
		s.put(id, snap[id])
		s.bump(id)
	}
}

// MarshalJSON encodes the store as its snapshot.
func (s *Store) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Snapshot())
}

// UnmarshalJSON loads a snapshot produced by MarshalJSON.
func (s *Store) UnmarshalJSON(data []byte) error {
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("decode props snapshot: %w", err)
	}
	if s.records == nil {
		s.records = make(map[string]Record)
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.Load(snap)

	return nil
}

func (s *Store) put(id string, rec Record) {
	if _, exists := s.records[id]; !exists {
		s.order = append(s.order, id)
	}
	s.records[id] = rec
}

// bump keeps the counter ahead of any numeric id suffix so that ids loaded
// from a snapshot are never generated again.
func (s *Store) bump(id string) {
	if n, ok := idSuffix(id); ok && n > s.counter {
		s.counter = n
	}
}

func idSuffix(id string) (int, bool) {
	i := strings.LastIndexByte(id, '_')
	if i < 0 || i == len(id)-1 {
		return 0, false
	}
	n, err := strconv.Atoi(id[i+1:])
	if err != nil || n < 0 {
		return 0, false
	}

	return n, true
}

// sortedIDs orders snapshot ids by numeric suffix, then lexically, so that
// loading preserves the original registration order.
func sortedIDs(snap Snapshot) []string {
	ids := make([]string, 0, len(snap))
	for id := range snap {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, aok := idSuffix(ids[i])
		b, bok := idSuffix(ids[j])
		switch {
		case aok && bok && a != b:
			return a < b
		case aok != bok:
			return aok
		default:
			return ids[i] < ids[j]
		}
	})

	return ids
}
