// Package registry mirrors the server-reported membership of the active
// room. Snapshots are replaced wholesale on every refresh; the server
// always returns the full membership, so a stale out-of-order reply is
// harmless once applied.
package registry

import (
	"sync"

	"gamemon/internal/domain"
	"gamemon/internal/eventbus"
)

// SelectionSeeder reseeds the selection store after a refresh.
type SelectionSeeder interface {
	SetAll(ids []string, defaultSelected bool)
}

// Service holds the latest client snapshot for the active room. Replace
// runs on the bus dispatch goroutine while the UI loop reads, so all
// state sits behind the lock. The selection store is seeded after the
// lock is released so the two locks never nest.
type Service struct {
	bus eventbus.EventBus
	sel SelectionSeeder

	mu      sync.RWMutex
	roomID  string
	clients map[string]domain.ClientRecord
	order   []string
	logic   *domain.ClientRecord

	nClients int
	nPlayers int
	nAdmins  int
}

// NewService creates a new client registry.
func NewService(bus eventbus.EventBus, sel SelectionSeeder) *Service {
	return &Service{
		bus:     bus,
		sel:     sel,
		clients: make(map[string]domain.ClientRecord),
	}
}

// Snapshot is the input to Replace, mirroring the INFO_CLIENTS payload.
// RoomID is the room the listing was queried for.
type Snapshot struct {
	RoomID   string
	Logic    *domain.ClientRecord
	Clients  []domain.ClientRecord
	NClients int
	NPlayers int
	NAdmins  int
}

// Replace swaps in a fresh snapshot. Records without an id are dropped
// with a warning; the rest of the payload is still applied. The logic
// record is kept out of the general iteration but stays addressable for
// commands that target the room's logic client.
func (s *Service) Replace(p Snapshot) {
	s.mu.Lock()
	s.roomID = p.RoomID
	s.clients = make(map[string]domain.ClientRecord, len(p.Clients))
	s.order = s.order[:0]
	s.logic = p.Logic
	s.nClients = p.NClients
	s.nPlayers = p.NPlayers
	s.nAdmins = p.NAdmins

	logicID := ""
	if p.Logic != nil {
		logicID = p.Logic.ID
	}

	dropped := 0
	for _, rec := range p.Clients {
		if rec.ID == "" {
			dropped++
			continue
		}
		if rec.ID == logicID {
			continue
		}
		if _, dup := s.clients[rec.ID]; dup {
			continue
		}
		s.clients[rec.ID] = rec
		s.order = append(s.order, rec.ID)
	}

	ids := append([]string(nil), s.order...)
	ev := domain.ClientsUpdatedEvent{
		RoomID:   s.roomID,
		Clients:  s.allLocked(),
		Logic:    s.logic,
		NClients: s.nClients,
		NPlayers: s.nPlayers,
		NAdmins:  s.nAdmins,
	}
	s.mu.Unlock()

	for i := 0; i < dropped; i++ {
		s.bus.Publish(domain.AlertEvent{
			Level:   domain.AlertWarning,
			Message: "dropped client record without id",
		})
	}

	s.sel.SetAll(ids, true)
	s.bus.Publish(ev)
}

// Get returns one record by id.
func (s *Service) Get(id string) (domain.ClientRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.clients[id]
	return rec, ok
}

// All returns the records of the snapshot in arrival order, excluding
// the logic record.
func (s *Service) All() []domain.ClientRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.allLocked()
}

func (s *Service) allLocked() []domain.ClientRecord {
	out := make([]domain.ClientRecord, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.clients[id])
	}
	return out
}

// IDs returns the ids of All().
func (s *Service) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}

// RoomID returns the room the snapshot belongs to.
func (s *Service) RoomID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.roomID
}

// Logic returns the room's logic record, if the server reported one.
func (s *Service) Logic() *domain.ClientRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.logic
}

// Counts returns the server-reported totals for the status bar.
func (s *Service) Counts() (clients, players, admins int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nClients, s.nPlayers, s.nAdmins
}

// Clear drops the snapshot, e.g. when the room scope is left.
func (s *Service) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.roomID = ""
	s.clients = make(map[string]domain.ClientRecord)
	s.order = nil
	s.logic = nil
	s.nClients, s.nPlayers, s.nAdmins = 0, 0, 0
}
