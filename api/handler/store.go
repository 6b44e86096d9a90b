package handler

import (
	"sync"

	"github.com/use-agent/prayertimes/models"
)

// Store holds the aggregate the API serves. It can be replaced while
// requests are in flight.
type Store struct {
	mu     sync.RWMutex
	agg    *models.Aggregate
	source string
}

// NewStore returns a store serving agg, read from source.
func NewStore(agg *models.Aggregate, source string) *Store {
	s := &Store{}
	s.Replace(agg, source)
	return s
}

// Replace swaps in a new aggregate.
func (s *Store) Replace(agg *models.Aggregate, source string) {
	if agg == nil {
		agg = models.NewAggregate()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agg = agg
	s.source = source
}

// Aggregate returns the current aggregate. Callers must not modify it.
func (s *Store) Aggregate() *models.Aggregate {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.agg
}

// Source returns where the current aggregate came from.
func (s *Store) Source() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.source
}
