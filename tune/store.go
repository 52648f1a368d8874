package tune

import (
	"sort"
	"sync"
)

// ResultStore accumulates the trials of one search run. Appends are safe
// under concurrent use by parallel evaluators; recorded trials are never
// mutated.
type ResultStore struct {
	mu     sync.RWMutex
	trials []*Trial
	seq    uint64
}

// NewResultStore creates an empty store.
func NewResultStore() *ResultStore {
	return &ResultStore{}
}

// RestoreResultStore rebuilds a store from previously recorded trials,
// keeping their sequence numbers. Used by deserialization; later appends
// continue after the highest restored sequence.
func RestoreResultStore(trials []*Trial) *ResultStore {
	s := &ResultStore{trials: make([]*Trial, len(trials))}
	copy(s.trials, trials)
	for _, t := range trials {
		if t.Seq > s.seq {
			s.seq = t.Seq
		}
	}
	return s
}

// Add appends a trial and assigns its insertion sequence number.
func (s *ResultStore) Add(t *Trial) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	t.Seq = s.seq
	s.trials = append(s.trials, t)
}

// All returns the trials in insertion order.
func (s *ResultStore) All() []*Trial {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Trial, len(s.trials))
	copy(out, s.trials)
	return out
}

// Len returns the number of recorded trials, failed trials included.
func (s *ResultStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.trials)
}

// FailedCount returns the number of failed trials.
func (s *ResultStore) FailedCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, t := range s.trials {
		if t.Failed() {
			n++
		}
	}
	return n
}

// Failures returns the failed trials in insertion order, so callers can
// inspect how many configurations could not be scored and why.
func (s *ResultStore) Failures() []*Trial {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Trial
	for _, t := range s.trials {
		if t.Failed() {
			out = append(out, t)
		}
	}
	return out
}

// BestK returns the k best successful trials ordered by aggregate metric
// under the direction, ties broken by earliest insertion. Failed trials are
// excluded from ranking. Fewer than k trials may be returned.
func (s *ResultStore) BestK(k int, dir Direction) []*Trial {
	s.mu.RLock()
	ranked := make([]*Trial, 0, len(s.trials))
	for _, t := range s.trials {
		if !t.Failed() {
			ranked = append(ranked, t)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Metric == ranked[j].Metric {
			return ranked[i].Seq < ranked[j].Seq
		}
		return dir.Better(ranked[i].Metric, ranked[j].Metric)
	})

	if k < 0 {
		k = 0
	}
	if k < len(ranked) {
		ranked = ranked[:k]
	}
	return ranked
}

// Best returns the single best successful trial, or false when no trial
// succeeded.
func (s *ResultStore) Best(dir Direction) (*Trial, bool) {
	best := s.BestK(1, dir)
	if len(best) == 0 {
		return nil, false
	}
	return best[0], true
}
