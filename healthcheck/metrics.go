package healthcheck

import (
	"sync"
)

// Metrics counts how health-check completion records were handled. It is
// safe for concurrent use.
type Metrics struct {
	mu      sync.Mutex
	matched map[Mode]uint64
	forced  map[Mode]uint64
}

// NewMetrics constructs a metrics container.
func NewMetrics() *Metrics {
	return &Metrics{
		matched: make(map[Mode]uint64),
		forced:  make(map[Mode]uint64),
	}
}

// IncMatched increments the counter for records handled under mode.
func (m *Metrics) IncMatched(mode Mode) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.matched[mode]++
}

// IncForced increments the counter for matched records that were logged
// unchanged because the request failed.
func (m *Metrics) IncForced(mode Mode) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.forced[mode]++
}

// SnapshotMatched returns a copy of the matched counters.
func (m *Metrics) SnapshotMatched() map[Mode]uint64 {
	return m.snapshot(func(m *Metrics) map[Mode]uint64 { return m.matched })
}

// SnapshotForced returns a copy of the forced counters.
func (m *Metrics) SnapshotForced() map[Mode]uint64 {
	return m.snapshot(func(m *Metrics) map[Mode]uint64 { return m.forced })
}

func (m *Metrics) snapshot(pick func(*Metrics) map[Mode]uint64) map[Mode]uint64 {
	out := make(map[Mode]uint64)
	if m == nil {
		return out
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range pick(m) {
		out[k] = v
	}
	return out
}
