// Package refresh keeps the in-memory event set current: a Store holds the
// last loaded events and a Runner reloads them on a cron schedule.
package refresh

import (
	"sort"
	"sync"
	"time"

	"timelinecal/internal/model"
)

// Store is the event set served to the timeline. Safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	events    []model.Event
	updatedAt time.Time
	lastErr   error
}

func NewStore() *Store {
	return &Store{}
}

// Set replaces the event set. err is the (possibly partial) load error
// recorded alongside it.
func (s *Store) Set(events []model.Event, err error) {
	cp := make([]model.Event, len(events))
	copy(cp, events)

	s.mu.Lock()
	s.events = cp
	s.updatedAt = time.Now()
	s.lastErr = err
	s.mu.Unlock()
}

// SetError records a failed load without dropping the previous events.
func (s *Store) SetError(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
}

// Events returns a copy of every stored event.
func (s *Store) Events() []model.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Event, len(s.events))
	copy(out, s.events)
	return out
}

// Between returns events starting in [from, to), ordered by start.
func (s *Store) Between(from, to time.Time) []model.Event {
	s.mu.RLock()
	out := make([]model.Event, 0)
	for _, ev := range s.events {
		if !ev.Start.Before(from) && ev.Start.Before(to) {
			out = append(out, ev)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// Len is the number of stored events.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// Status reports when the set was last replaced and the last load error.
func (s *Store) Status() (updatedAt time.Time, lastErr error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt, s.lastErr
}
