package answer

import (
	"sync"

	"github.com/fyrsmithlabs/mcqrouter/internal/question"
)

// DomainStats counts answering activity for one domain.
type DomainStats struct {
	Batches       int
	ParsedBatches int
	Fallbacks     int
	SingleCalls   int
	CallErrors    int
	Defaults      int
}

// Stats accumulates DomainStats. The zero value is ready to use.
type Stats struct {
	mu      sync.Mutex
	domains map[question.Domain]*DomainStats
}

func (s *Stats) update(d question.Domain, fn func(*DomainStats)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.domains == nil {
		s.domains = make(map[question.Domain]*DomainStats)
	}
	ds, ok := s.domains[d]
	if !ok {
		ds = &DomainStats{}
		s.domains[d] = ds
	}
	fn(ds)
}

// Snapshot returns a copy of the counters for every domain seen so far.
func (s *Stats) Snapshot() map[question.Domain]DomainStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[question.Domain]DomainStats, len(s.domains))
	for d, ds := range s.domains {
		out[d] = *ds
	}
	return out
}
