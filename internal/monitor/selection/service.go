// Package selection maintains which client ids are selected for the next
// command. Selection survives a registry refresh for ids that persist
// across it, so a redraw never loses the operator's choices.
package selection

import (
	"fmt"
	"sort"
	"sync"

	"gamemon/internal/domain"
	"gamemon/internal/eventbus"
)

// Service holds selection state for the active room. Reads come from the
// UI loop while mutations arrive on the bus dispatch goroutine, so every
// access goes through the lock.
type Service struct {
	bus     eventbus.EventBus
	mu      sync.RWMutex
	checked map[string]bool // id -> selected
}

// NewService creates a new selection service.
func NewService(bus eventbus.EventBus) *Service {
	return &Service{
		bus:     bus,
		checked: make(map[string]bool),
	}
}

// SetAll reinitializes selection state from a fresh registry snapshot.
// Ids already known keep their explicit state; new ids default to
// defaultSelected.
func (s *Service) SetAll(ids []string, defaultSelected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]bool, len(ids))
	for _, id := range ids {
		if prev, ok := s.checked[id]; ok {
			next[id] = prev
		} else {
			next[id] = defaultSelected
		}
	}
	s.checked = next
	s.publishLocked()
}

// Toggle flips one id's membership. Toggling an id the registry never
// reported is an error; the caller surfaces it as a warning.
func (s *Service) Toggle(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.checked[id]
	if !ok {
		return fmt.Errorf("selection: unknown client id %q", id)
	}
	s.checked[id] = !cur
	s.publishLocked()
	return nil
}

// SetBulk sets every known id to the same state.
func (s *Service) SetBulk(selected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id := range s.checked {
		s.checked[id] = selected
	}
	s.publishLocked()
}

// Current returns the ids currently selected, sorted for stable output.
func (s *Service) Current() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentLocked()
}

func (s *Service) currentLocked() []string {
	out := make([]string, 0, len(s.checked))
	for id, sel := range s.checked {
		if sel {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// IsSelected reports one id's state.
func (s *Service) IsSelected(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.checked[id]
}

// Count returns the number of known ids.
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.checked)
}

// BulkState computes the tri-state of the bulk control. An empty set is
// fully checked by convention: nothing to exclude.
func (s *Service) BulkState() BulkState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.checked) == 0 {
		return BulkAllSelected
	}
	all, none := true, true
	for _, sel := range s.checked {
		if sel {
			none = false
		} else {
			all = false
		}
	}
	switch {
	case all:
		return BulkAllSelected
	case none:
		return BulkNoneSelected
	default:
		return BulkIndeterminate
	}
}

// Clear empties the set. Invoked on every scope exit.
func (s *Service) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.checked) == 0 {
		return
	}
	s.checked = make(map[string]bool)
	s.publishLocked()
}

func (s *Service) publishLocked() {
	s.bus.Publish(domain.SelectionChangedEvent{
		Selected: s.currentLocked(),
		Known:    len(s.checked),
	})
}
