// Package scene holds the numeric scene-state model for a room: bounded
// metrics plus the ordered conversation log.
//
// Metrics are the only shared numeric truth in a session. Every mutation is a
// delta applied under the state lock and clamped to the metric's declared
// bound, so readers can never observe an out-of-range value.
package scene

import (
	"errors"
	"sync"
	"time"
)

// ErrUnknownMetric indicates an update or read named a metric that was not
// part of the room's initial metric set.
var ErrUnknownMetric = errors.New("unknown scene metric")

// Bound declares the valid range for one metric. Metrics with NoCeiling grow
// without an upper limit but are still clamped at Min.
type Bound struct {
	Min       int
	Max       int
	NoCeiling bool
}

// Clamp returns value forced into the bound.
func (b Bound) Clamp(value int) int {
	if value < b.Min {
		return b.Min
	}
	if !b.NoCeiling && value > b.Max {
		return b.Max
	}
	return value
}

// Entry is one record in the conversation log.
type Entry struct {
	Speaker string
	Content string
	Tag     string
	Seq     int
	At      time.Time
}

const (
	// coordinationCap is the size at which the duplicate-detection history
	// is trimmed back to coordinationKeep entries. The narrative log is
	// never trimmed.
	coordinationCap  = 50
	coordinationKeep = 30
)

// State is the scene state owned by one room.
type State struct {
	mu      sync.Mutex
	metrics map[string]int
	bounds  map[string]Bound
	log     []Entry
	coord   []Entry
	nextSeq int
	clock   func() time.Time
}

// New creates scene state with the given initial metrics and bounds. Every
// initial metric must carry a bound; metrics without one default to [0,100].
func New(initial map[string]int, bounds map[string]Bound) *State {
	metrics := make(map[string]int, len(initial))
	declared := make(map[string]Bound, len(initial))
	for name, value := range initial {
		bound, ok := bounds[name]
		if !ok {
			bound = Bound{Min: 0, Max: 100}
		}
		declared[name] = bound
		metrics[name] = bound.Clamp(value)
	}
	return &State{
		metrics: metrics,
		bounds:  declared,
		clock:   time.Now,
	}
}

// UpdateMetric applies delta to the named metric, clamps the result to the
// metric's bound, and returns the new value.
func (s *State) UpdateMetric(name string, delta int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.metrics[name]
	if !ok {
		return 0, ErrUnknownMetric
	}
	next := s.bounds[name].Clamp(current + delta)
	s.metrics[name] = next
	return next, nil
}

// ApplyDeltas applies a batch of metric deltas, skipping unknown names, and
// returns the per-metric change that actually took effect after clamping.
func (s *State) ApplyDeltas(deltas map[string]int) map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	applied := make(map[string]int)
	for name, delta := range deltas {
		current, ok := s.metrics[name]
		if !ok {
			continue
		}
		next := s.bounds[name].Clamp(current + delta)
		if next != current {
			applied[name] = next - current
		}
		s.metrics[name] = next
	}
	return applied
}

// Metric returns the current value of one metric.
func (s *State) Metric(name string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	value, ok := s.metrics[name]
	if !ok {
		return 0, ErrUnknownMetric
	}
	return value, nil
}

// SnapshotMetrics returns a copy of all current metric values.
func (s *State) SnapshotMetrics() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := make(map[string]int, len(s.metrics))
	for name, value := range s.metrics {
		snapshot[name] = value
	}
	return snapshot
}

// AppendLog appends one entry to the authoritative narrative log and to the
// bounded coordination history.
func (s *State) AppendLog(speaker, content, tag string) Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSeq++
	entry := Entry{
		Speaker: speaker,
		Content: content,
		Tag:     tag,
		Seq:     s.nextSeq,
		At:      s.clock().UTC(),
	}
	s.log = append(s.log, entry)

	s.coord = append(s.coord, entry)
	if len(s.coord) > coordinationCap {
		s.coord = s.coord[len(s.coord)-coordinationKeep:]
	}
	return entry
}

// RecentLog returns up to limit most recent narrative entries, oldest first.
func (s *State) RecentLog(limit int) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 || limit > len(s.log) {
		limit = len(s.log)
	}
	recent := make([]Entry, limit)
	copy(recent, s.log[len(s.log)-limit:])
	return recent
}

// RecentCoordination returns up to limit most recent coordination entries,
// oldest first. This history feeds duplicate detection only.
func (s *State) RecentCoordination(limit int) []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 || limit > len(s.coord) {
		limit = len(s.coord)
	}
	recent := make([]Entry, limit)
	copy(recent, s.coord[len(s.coord)-limit:])
	return recent
}

// ResetCoordination clears the coordination history. A new session in a
// reused room must never inherit a stale narrative for duplicate scoring.
func (s *State) ResetCoordination() {
	s.mu.Lock()
	s.coord = nil
	s.mu.Unlock()
}

// LogLen returns the narrative log length.
func (s *State) LogLen() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.log)
}
