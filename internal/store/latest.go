package store

import (
	"sort"
	"sync"

	"github.com/R-Kotenko/ImbalanceTracker/internal/model"
)

// Store keeps the most recent snapshot and metric point per pair for the
// read-only HTTP API. It is written only by the gateway dispatch loop and
// read by HTTP handlers.
type Store struct {
	mu      sync.RWMutex
	books   map[string]model.OrderBook
	metrics map[string]model.MetricPoint
}

func New() *Store {
	return &Store{
		books:   make(map[string]model.OrderBook),
		metrics: make(map[string]model.MetricPoint),
	}
}

func (s *Store) Update(ob model.OrderBook, mp model.MetricPoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.books[ob.Pair] = ob
	s.metrics[mp.Pair] = mp
}

func (s *Store) Book(pair string) (model.OrderBook, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ob, ok := s.books[pair]
	return ob, ok
}

func (s *Store) Metric(pair string) (model.MetricPoint, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	mp, ok := s.metrics[pair]
	return mp, ok
}

// Pairs lists every pair seen so far, sorted.
func (s *Store) Pairs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pairs := make([]string, 0, len(s.metrics))
	for p := range s.metrics {
		pairs = append(pairs, p)
	}
	sort.Strings(pairs)
	return pairs
}
