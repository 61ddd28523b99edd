package domain

import "encoding/json"

// EventType represents the type of domain event
type EventType string

// Event types
const (
	EventChannelsUpdated  EventType = "ChannelsUpdated"
	EventRoomsUpdated     EventType = "RoomsUpdated"
	EventClientsUpdated   EventType = "ClientsUpdated"
	EventGamesUpdated     EventType = "GamesUpdated"
	EventFilesUpdated     EventType = "FilesUpdated"
	EventScopeChanged     EventType = "ScopeChanged"
	EventSelectionChanged EventType = "SelectionChanged"
	EventCommandSent      EventType = "CommandSent"
	EventExportCompleted  EventType = "ExportCompleted"
	EventDownloadReady    EventType = "DownloadReady"
	EventInboundReceived  EventType = "InboundReceived"
	EventConnState        EventType = "ConnState"
	EventAlert            EventType = "Alert"
	EventError            EventType = "Error"
)

// DomainEvent is the interface for all domain events
type DomainEvent interface {
	Type() EventType
}

// ChannelsUpdatedEvent carries a fresh channel listing from the server
type ChannelsUpdatedEvent struct {
	Channels []ChannelInfo
}

func (e ChannelsUpdatedEvent) Type() EventType { return EventChannelsUpdated }

// RoomsUpdatedEvent carries a fresh room listing for the active channel
type RoomsUpdatedEvent struct {
	Channel string
	Rooms   []RoomInfo
}

func (e RoomsUpdatedEvent) Type() EventType { return EventRoomsUpdated }

// ClientsUpdatedEvent is emitted after the registry replaced its snapshot
type ClientsUpdatedEvent struct {
	RoomID   string
	Clients  []ClientRecord
	Logic    *ClientRecord
	NClients int
	NPlayers int
	NAdmins  int
}

func (e ClientsUpdatedEvent) Type() EventType { return EventClientsUpdated }

// GamesUpdatedEvent carries the game catalog of the server
type GamesUpdatedEvent struct {
	Games []GameInfo
}

func (e GamesUpdatedEvent) Type() EventType { return EventGamesUpdated }

// FilesUpdatedEvent carries a listing of exported data or log files
type FilesUpdatedEvent struct {
	Kind         string // DATA, RESULTS or LOGS
	Files        []FileNode
	LastModified int64
}

func (e FilesUpdatedEvent) Type() EventType { return EventFilesUpdated }

// ScopeChangedEvent is emitted on every channel or room transition.
// Dependent views re-query rooms when the channel changed and clients
// when the room changed.
type ScopeChangedEvent struct {
	Scope          Scope
	ChannelChanged bool
	RoomChanged    bool
}

func (e ScopeChangedEvent) Type() EventType { return EventScopeChanged }

// SelectionChangedEvent is emitted whenever the selected-client set changes
type SelectionChangedEvent struct {
	Selected []string
	Known    int
}

func (e SelectionChangedEvent) Type() EventType { return EventSelectionChanged }

// CommandSentEvent is emitted after an envelope went out on the wire
type CommandSentEvent struct {
	Kind   string
	RoomID string
}

func (e CommandSentEvent) Type() EventType { return EventCommandSent }

// ExportCompletedEvent closes an export round-trip. TimedOut is set when
// the client-side deadline fired before the server replied.
type ExportCompletedEvent struct {
	Token    int64
	TimedOut bool
}

func (e ExportCompletedEvent) Type() EventType { return EventExportCompleted }

// DownloadReadyEvent carries the one-shot URL of a packaged batch download
type DownloadReadyEvent struct {
	URL string
}

func (e DownloadReadyEvent) Type() EventType { return EventDownloadReady }

// InboundReceivedEvent wraps one named event pushed by the server
type InboundReceivedEvent struct {
	Name string
	Data json.RawMessage
}

func (e InboundReceivedEvent) Type() EventType { return EventInboundReceived }

// ConnStateEvent signals websocket connect/disconnect
type ConnStateEvent struct {
	Connected bool
	Err       error
}

func (e ConnStateEvent) Type() EventType { return EventConnState }

// AlertLevel grades operator-visible notices
type AlertLevel string

const (
	AlertSuccess AlertLevel = "success"
	AlertWarning AlertLevel = "warning"
	AlertDanger  AlertLevel = "danger"
)

// AlertEvent is a transient operator-visible notice
type AlertEvent struct {
	Level   AlertLevel
	Message string
}

func (e AlertEvent) Type() EventType { return EventAlert }

// ErrorEvent is emitted when an error occurs
type ErrorEvent struct {
	Message string
	Err     error
}

func (e ErrorEvent) Type() EventType { return EventError }
