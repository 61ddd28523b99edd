// Package protocol defines the wire contract between the monitor and the
// game server: outbound command envelopes addressed to SERVERCOMMAND and
// inbound named data events.
package protocol

import (
	"encoding/json"
	"fmt"

	"gamemon/internal/domain"
)

// TargetServerCommand is the target of every outbound command envelope.
const TargetServerCommand = "SERVERCOMMAND"

// TargetData is the target of operator-composed messages addressed
// directly to clients instead of the server command handler.
const TargetData = "DATA"

// CommandKind is the text field of an outbound envelope.
type CommandKind string

const (
	CmdInfo            CommandKind = "INFO"
	CmdRoomCommand     CommandKind = "ROOMCOMMAND"
	CmdWaitRoomCommand CommandKind = "WAITROOMCOMMAND"
	CmdExport          CommandKind = "EXPORT"
	CmdUpdateSettings  CommandKind = "UPDATE_SETTINGS"
	CmdRedirect        CommandKind = "REDIRECT"
	CmdDisconnect      CommandKind = "DISCONNECT"
	CmdRemoteSetup     CommandKind = "SETUP"
	CmdGameCommand     CommandKind = "GAMECOMMAND"
)

// Inbound named events the monitor subscribes to.
const (
	EvChannels        = "INFO_CHANNELS"
	EvRooms           = "INFO_ROOMS"
	EvClients         = "INFO_CLIENTS"
	EvGames           = "INFO_GAMES"
	EvResults         = "INFO_RESULTS"
	EvLogs            = "INFO_LOGS"
	EvChannelSelected = "CHANNEL_SELECTED"
	EvRoomSelected    = "ROOM_SELECTED"
	EvExported        = "exported"
)

// Envelope is the outbound unit. Constructed fresh per dispatch, never
// persisted. To and Action are only set on custom messages; command
// envelopes are routed by target and text alone.
type Envelope struct {
	Target string         `json:"target"`
	Text   CommandKind    `json:"text"`
	Data   map[string]any `json:"data,omitempty"`
	To     []string       `json:"to,omitempty"`
	Action string         `json:"action,omitempty"`
}

// NewEnvelope builds a SERVERCOMMAND envelope of the given kind.
func NewEnvelope(kind CommandKind, data map[string]any) Envelope {
	return Envelope{Target: TargetServerCommand, Text: kind, Data: data}
}

// NewCustomMessage builds a free-form message for the given recipients.
func NewCustomMessage(to []string, action, text string, data map[string]any) Envelope {
	return Envelope{
		Target: TargetData,
		Text:   CommandKind(text),
		Data:   data,
		To:     to,
		Action: action,
	}
}

// Inbound is one server-pushed frame before payload decoding.
type Inbound struct {
	Text string          `json:"text"`
	Data json.RawMessage `json:"data"`
}

// DecodeInbound parses a raw websocket frame.
func DecodeInbound(raw []byte) (Inbound, error) {
	var in Inbound
	if err := json.Unmarshal(raw, &in); err != nil {
		return Inbound{}, fmt.Errorf("malformed inbound frame: %w", err)
	}
	if in.Text == "" {
		return Inbound{}, fmt.Errorf("inbound frame without event name")
	}
	return in, nil
}

// ClientsPayload is the INFO_CLIENTS data shape.
type ClientsPayload struct {
	Logic    *domain.ClientRecord  `json:"logic"`
	Clients  []domain.ClientRecord `json:"clients"`
	NClients int                   `json:"nClients"`
	NPlayers int                   `json:"nPlayers"`
	NAdmins  int                   `json:"nAdmins"`
}

// DecodeClients parses an INFO_CLIENTS payload.
func DecodeClients(raw json.RawMessage) (ClientsPayload, error) {
	var p ClientsPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return ClientsPayload{}, fmt.Errorf("malformed INFO_CLIENTS payload: %w", err)
	}
	return p, nil
}

// DecodeChannels parses an INFO_CHANNELS payload. The server keys
// channels by name; ordering is not significant.
func DecodeChannels(raw json.RawMessage) ([]domain.ChannelInfo, error) {
	var byName map[string]domain.ChannelInfo
	if err := json.Unmarshal(raw, &byName); err != nil {
		return nil, fmt.Errorf("malformed INFO_CHANNELS payload: %w", err)
	}
	channels := make([]domain.ChannelInfo, 0, len(byName))
	for name, ch := range byName {
		if ch.Name == "" {
			ch.Name = name
		}
		channels = append(channels, ch)
	}
	return channels, nil
}

// DecodeRooms parses an INFO_ROOMS payload.
func DecodeRooms(raw json.RawMessage) ([]domain.RoomInfo, error) {
	var rooms []domain.RoomInfo
	if err := json.Unmarshal(raw, &rooms); err != nil {
		return nil, fmt.Errorf("malformed INFO_ROOMS payload: %w", err)
	}
	return rooms, nil
}

// DecodeGames parses an INFO_GAMES payload keyed by game name.
func DecodeGames(raw json.RawMessage) ([]domain.GameInfo, error) {
	var byName map[string]domain.GameInfo
	if err := json.Unmarshal(raw, &byName); err != nil {
		return nil, fmt.Errorf("malformed INFO_GAMES payload: %w", err)
	}
	games := make([]domain.GameInfo, 0, len(byName))
	for name, g := range byName {
		if g.Name == "" {
			g.Name = name
		}
		games = append(games, g)
	}
	return games, nil
}

// FilesPayload is the INFO_RESULTS / INFO_LOGS data shape.
type FilesPayload struct {
	Files        []domain.FileNode `json:"files"`
	LastModified int64             `json:"lastModified"`
}

// DecodeFiles parses a file-listing payload and fills in file kinds.
func DecodeFiles(raw json.RawMessage) (FilesPayload, error) {
	var p FilesPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return FilesPayload{}, fmt.Errorf("malformed file listing payload: %w", err)
	}
	for i := range p.Files {
		p.Files[i].Kind = domain.FileKindOf(p.Files[i].Name)
	}
	return p, nil
}

// ExportedPayload is the data of an "exported" completion event.
type ExportedPayload struct {
	Idx int64 `json:"idx"`
}

// DecodeExported parses an export-completion payload.
func DecodeExported(raw json.RawMessage) (ExportedPayload, error) {
	var p ExportedPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return ExportedPayload{}, fmt.Errorf("malformed exported payload: %w", err)
	}
	return p, nil
}
