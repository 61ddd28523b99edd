// Package coordinator wires the monitor services together and applies
// server-pushed events to them. It owns the "currently loading" flags
// that make stale replies for an abandoned scope harmless: an inbound
// listing is applied only when a matching query is outstanding.
package coordinator

import (
	"encoding/json"
	"log"
	"sync"

	"gamemon/internal/domain"
	"gamemon/internal/eventbus"
	"gamemon/internal/monitor/dispatch"
	"gamemon/internal/monitor/filebatch"
	"gamemon/internal/monitor/registry"
	"gamemon/internal/monitor/scope"
	"gamemon/internal/monitor/selection"
	"gamemon/internal/protocol"
	"gamemon/internal/token"
)

// Coordinator manages the monitor services and their interactions.
type Coordinator struct {
	Scope     *scope.Service
	Selection *selection.Service
	Registry  *registry.Service
	Dispatch  *dispatch.Service
	Files     *filebatch.Service
	Logs      *filebatch.Service

	bus eventbus.EventBus

	mu              sync.Mutex
	waitingChannels bool
	waitingRooms    bool
	waitingClients  bool
}

// New creates a coordinator with all services wired.
func New(bus eventbus.EventBus, sender dispatch.Sender, tokens *token.Generator) *Coordinator {
	sel := selection.NewService(bus)
	sc := scope.NewService(bus, sel)
	reg := registry.NewService(bus, sel)

	c := &Coordinator{
		Scope:     sc,
		Selection: sel,
		Registry:  reg,
		Dispatch:  dispatch.NewService(bus, sender, sc, sel, reg, tokens),
		Files:     filebatch.NewService(bus),
		Logs:      filebatch.NewService(bus),
		bus:       bus,
	}

	bus.Subscribe(domain.EventInboundReceived, func(e eventbus.DomainEvent) {
		if in, ok := e.(domain.InboundReceivedEvent); ok {
			c.HandleInbound(in.Name, in.Data)
		}
	})

	return c
}

// SelectChannel switches the active channel and re-queries its rooms.
func (c *Coordinator) SelectChannel(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Scope.SelectChannel(name)
	c.Registry.Clear()
	c.refreshRoomsLocked()
}

// SelectRoom switches the active room and re-queries its clients.
func (c *Coordinator) SelectRoom(room domain.RoomInfo) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.Scope.SelectRoom(room); err != nil {
		return err
	}
	c.Registry.Clear()
	if room.ID != "" {
		c.refreshClientsLocked()
	}
	return nil
}

// RefreshChannels queries the server channel list.
func (c *Coordinator) RefreshChannels() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshChannelsLocked()
}

func (c *Coordinator) refreshChannelsLocked() {
	c.waitingChannels = true
	if err := c.Dispatch.QueryChannels(); err != nil {
		c.waitingChannels = false
	}
}

// RefreshRooms queries the room list of the active channel.
func (c *Coordinator) RefreshRooms() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshRoomsLocked()
}

func (c *Coordinator) refreshRoomsLocked() {
	if !c.Scope.Current().HasChannel() {
		return
	}
	c.waitingRooms = true
	if err := c.Dispatch.QueryRooms(); err != nil {
		c.waitingRooms = false
	}
}

// RefreshClients queries the client list of the active room.
func (c *Coordinator) RefreshClients() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshClientsLocked()
}

func (c *Coordinator) refreshClientsLocked() {
	if !c.Scope.Current().HasRoom() {
		return
	}
	c.waitingClients = true
	if err := c.Dispatch.QueryClients(); err != nil {
		c.waitingClients = false
	}
}

// RefreshAll re-queries every level that is in scope.
func (c *Coordinator) RefreshAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refreshChannelsLocked()
	c.refreshRoomsLocked()
	c.refreshClientsLocked()
	_ = c.Dispatch.QueryGames()
}

// HandleInbound applies one server-pushed named event. Events for which
// no query is outstanding, or which carry a mismatched correlation, are
// dropped.
func (c *Coordinator) HandleInbound(name string, data json.RawMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch name {
	case protocol.EvChannels:
		if !c.waitingChannels {
			return
		}
		c.waitingChannels = false
		channels, err := protocol.DecodeChannels(data)
		if err != nil {
			c.decodeFailed(name, err)
			return
		}
		c.bus.Publish(domain.ChannelsUpdatedEvent{Channels: channels})
		// With a single channel there is nothing to choose; select it.
		if len(channels) == 1 && !c.Scope.Current().HasChannel() {
			c.Scope.SelectChannel(channels[0].Name)
			c.Registry.Clear()
			c.refreshRoomsLocked()
		}

	case protocol.EvRooms:
		if !c.waitingRooms {
			return
		}
		c.waitingRooms = false
		rooms, err := protocol.DecodeRooms(data)
		if err != nil {
			c.decodeFailed(name, err)
			return
		}
		c.bus.Publish(domain.RoomsUpdatedEvent{
			Channel: c.Scope.Current().Channel,
			Rooms:   rooms,
		})

	case protocol.EvClients:
		if !c.waitingClients {
			return
		}
		c.waitingClients = false
		payload, err := protocol.DecodeClients(data)
		if err != nil {
			c.decodeFailed(name, err)
			return
		}
		c.Registry.Replace(registry.Snapshot{
			RoomID:   c.Scope.Current().RoomID,
			Logic:    payload.Logic,
			Clients:  payload.Clients,
			NClients: payload.NClients,
			NPlayers: payload.NPlayers,
			NAdmins:  payload.NAdmins,
		})

	case protocol.EvGames:
		games, err := protocol.DecodeGames(data)
		if err != nil {
			c.decodeFailed(name, err)
			return
		}
		c.bus.Publish(domain.GamesUpdatedEvent{Games: games})

	case protocol.EvResults:
		c.applyFiles("DATA", c.Files, data)

	case protocol.EvLogs:
		c.applyFiles("LOGS", c.Logs, data)

	case protocol.EvExported:
		payload, err := protocol.DecodeExported(data)
		if err != nil {
			c.decodeFailed(name, err)
			return
		}
		if !c.Dispatch.CompleteExport(payload.Idx) {
			log.Printf("Coordinator: ignoring stale export completion %d", payload.Idx)
		}

	default:
		log.Printf("Coordinator: unhandled inbound event %q", name)
	}
}

func (c *Coordinator) applyFiles(kind string, svc *filebatch.Service, data json.RawMessage) {
	payload, err := protocol.DecodeFiles(data)
	if err != nil {
		c.decodeFailed(kind, err)
		return
	}
	if svc.SetFiles(payload.Files, payload.LastModified) {
		c.bus.Publish(domain.FilesUpdatedEvent{
			Kind:         kind,
			Files:        payload.Files,
			LastModified: payload.LastModified,
		})
	}
}

func (c *Coordinator) decodeFailed(name string, err error) {
	log.Printf("Coordinator: %s decode failed: %v", name, err)
	c.bus.Publish(domain.ErrorEvent{Message: "malformed " + name + " payload", Err: err})
}
