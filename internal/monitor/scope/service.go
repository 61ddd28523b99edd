// Package scope is the single source of truth for the channel and room
// currently being administered, and the central point of invalidation:
// every transition clears the client selection and notifies dependent
// views so they re-query the server.
package scope

import (
	"fmt"
	"sync"

	"gamemon/internal/domain"
	"gamemon/internal/eventbus"
)

// State names the positions of the scope state machine.
type State int

const (
	NoChannel State = iota
	ChannelOnly
	ChannelAndRoom
)

// SelectionClearer is the one mutation the tracker performs on the
// selection store. Passed by explicit reference, never ambient.
type SelectionClearer interface {
	Clear()
}

// Service tracks the active channel and room. The scope is mutated on
// the bus dispatch goroutine and read from the UI loop, hence the lock.
// The selection store is cleared outside of it so the two locks never
// nest.
type Service struct {
	bus eventbus.EventBus
	sel SelectionClearer

	mu    sync.RWMutex
	scope domain.Scope
}

// NewService creates a new scope tracker.
func NewService(bus eventbus.EventBus, sel SelectionClearer) *Service {
	return &Service{bus: bus, sel: sel}
}

// SelectChannel sets the active channel. Any room selection is dropped:
// rooms are not carried across channels. Passing "" returns to NoChannel.
func (s *Service) SelectChannel(name string) {
	s.mu.Lock()
	channelChanged := name != s.scope.Channel
	roomChanged := s.scope.RoomID != ""
	s.scope = domain.Scope{Channel: name}
	sc := s.scope
	s.mu.Unlock()

	s.sel.Clear()

	s.bus.Publish(domain.ScopeChangedEvent{
		Scope:          sc,
		ChannelChanged: channelChanged,
		RoomChanged:    roomChanged,
	})
}

// SelectRoom sets the active room within the current channel. Passing an
// empty id returns to ChannelOnly. Requires a channel to be set.
func (s *Service) SelectRoom(room domain.RoomInfo) error {
	s.mu.Lock()
	if !s.scope.HasChannel() {
		s.mu.Unlock()
		return fmt.Errorf("scope: cannot select room %q without a channel", room.ID)
	}

	roomChanged := room.ID != s.scope.RoomID
	s.scope.RoomID = room.ID
	s.scope.RoomName = room.Name
	s.scope.RoomType = room.Type
	sc := s.scope
	s.mu.Unlock()

	s.sel.Clear()

	s.bus.Publish(domain.ScopeChangedEvent{
		Scope:       sc,
		RoomChanged: roomChanged,
	})
	return nil
}

// ClearRoom drops the room selection, keeping the channel.
func (s *Service) ClearRoom() {
	s.mu.RLock()
	hasChannel := s.scope.HasChannel()
	s.mu.RUnlock()
	if !hasChannel {
		return
	}
	_ = s.SelectRoom(domain.RoomInfo{})
}

// Current returns a read-only snapshot of the scope.
func (s *Service) Current() domain.Scope {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.scope
}

// State derives the state-machine position from the scope.
func (s *Service) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	switch {
	case !s.scope.HasChannel():
		return NoChannel
	case !s.scope.HasRoom():
		return ChannelOnly
	default:
		return ChannelAndRoom
	}
}
