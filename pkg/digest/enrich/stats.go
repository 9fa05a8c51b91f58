package enrich

import "sync"

// Stats holds the enricher's process-wide observation counters. Each
// enricher instance owns its own Stats so tests run isolated; updates
// are mutex-guarded and purely observational — they never influence a
// resolution outcome.
type Stats struct {
	mu sync.Mutex

	totalProcessed int64
	escalated      int64
	downgraded     int64
	unchanged      int64
	hidden         int64
	parseErrors    int64
	reasons        map[string]int64
}

// NewStats creates an empty stats collector.
func NewStats() *Stats {
	return &Stats{reasons: make(map[string]int64)}
}

// record applies one entity's outcome. The lock covers only the
// increments, never the decay computation.
func (s *Stats) record(direction string, hidden bool, parseErrors int, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalProcessed++
	switch direction {
	case directionEscalated:
		s.escalated++
	case directionDowngraded:
		s.downgraded++
	default:
		s.unchanged++
	}
	if hidden {
		s.hidden++
	}
	s.parseErrors += int64(parseErrors)
	s.reasons[reason]++
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	TotalProcessed int64            `json:"total_processed"`
	Escalated      int64            `json:"escalated"`
	Downgraded     int64            `json:"downgraded"`
	Unchanged      int64            `json:"unchanged"`
	Hidden         int64            `json:"hidden"`
	ParseErrors    int64            `json:"parse_errors"`
	DecayReasons   map[string]int64 `json:"decay_reasons"`
}

// Snapshot returns a copy of the current counters, not a live reference.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	reasons := make(map[string]int64, len(s.reasons))
	for k, v := range s.reasons {
		reasons[k] = v
	}
	return Snapshot{
		TotalProcessed: s.totalProcessed,
		Escalated:      s.escalated,
		Downgraded:     s.downgraded,
		Unchanged:      s.unchanged,
		Hidden:         s.hidden,
		ParseErrors:    s.parseErrors,
		DecayReasons:   reasons,
	}
}

// Reset clears all counters. Test-only hook; nothing on the resolution
// path calls it.
func (s *Stats) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.totalProcessed = 0
	s.escalated = 0
	s.downgraded = 0
	s.unchanged = 0
	s.hidden = 0
	s.parseErrors = 0
	s.reasons = make(map[string]int64)
}
