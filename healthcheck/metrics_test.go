package healthcheck

import "testing"

func TestMetricsCounters(t *testing.T) {
	t.Parallel()

	m := NewMetrics()
	m.IncMatched(ModeDrop)
	m.IncMatched(ModeDrop)
	m.IncForced(ModeDemote)

	if got := m.SnapshotMatched()[ModeDrop]; got != 2 {
		t.Fatalf("SnapshotMatched = %d, want 2", got)
	}
	if got := m.SnapshotForced()[ModeDemote]; got != 1 {
		t.Fatalf("SnapshotForced = %d, want 1", got)
	}

	var nilMetrics *Metrics
	nilMetrics.IncMatched(ModeTag)
	if got := len(nilMetrics.SnapshotMatched()); got != 0 {
		t.Fatalf("nil metrics snapshot len = %d, want 0", got)
	}
}
