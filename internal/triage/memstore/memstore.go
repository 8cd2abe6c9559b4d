// Package memstore provides an in-memory implementation of triage.Store.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/linnemanlabs/mediguard/internal/triage"
)

// Store holds triage decisions in memory. Suitable for dev/testing.
type Store struct {
	mu        sync.RWMutex
	decisions map[string]*triage.Decision // decision ID -> decision
	order     []string                    // append order
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{
		decisions: make(map[string]*triage.Decision),
	}
}

// Append stores a copy of the decision. Existing IDs are never overwritten.
func (s *Store) Append(_ context.Context, d *triage.Decision) error {
	if d.ID == "" {
		return fmt.Errorf("memstore: decision has no id")
	}
	if !d.Override.Consistent() {
		return fmt.Errorf("memstore: decision %s has a partial override", d.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.decisions[d.ID]; ok {
		return fmt.Errorf("memstore: decision %s already exists", d.ID)
	}
	cp := copyDecision(d)
	s.decisions[d.ID] = cp
	s.order = append(s.order, d.ID)
	return nil
}

// Get retrieves a decision by its ID. Returns a copy.
func (s *Store) Get(_ context.Context, id string) (*triage.Decision, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.decisions[id]
	if !ok {
		return nil, false, nil
	}
	return copyDecision(d), true, nil
}

// list returns copies of all decisions in append order.
func (s *Store) list() []*triage.Decision {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*triage.Decision, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, copyDecision(s.decisions[id]))
	}
	return out
}

// count returns the number of stored decisions.
func (s *Store) count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// copyDecision copies d including the override pointers.
func copyDecision(d *triage.Decision) *triage.Decision {
	cp := *d
	if d.Override.Class != nil {
		c := *d.Override.Class
		cp.Override.Class = &c
	}
	if d.Override.Reason != nil {
		r := *d.Override.Reason
		cp.Override.Reason = &r
	}
	return &cp
}
