package domain

import (
	"fmt"
	"time"
)

// RoomType classifies the rooms of a channel
type RoomType string

const (
	RoomWaiting RoomType = "Waiting"
	RoomGame    RoomType = "Game"
	RoomGarage  RoomType = "Garage"
	RoomOther   RoomType = "Other"
)

// ClientKind classifies connected entities in a room
type ClientKind string

const (
	KindPlayer ClientKind = "player"
	KindBot    ClientKind = "bot"
	KindAdmin  ClientKind = "admin"
	KindLogic  ClientKind = "logic"
)

// Disconnectable reports whether clients of this kind may be kicked
// from the server. Admins and logic clients never are.
func (k ClientKind) Disconnectable() bool {
	return k == KindPlayer || k == KindBot
}

// GameStage identifies a position in the game sequence
type GameStage struct {
	Stage int `json:"stage"`
	Step  int `json:"step"`
	Round int `json:"round"`
}

// Hash renders the stage in the compact "S.s-r" form used in listings
func (g GameStage) Hash() string {
	return fmt.Sprintf("%d.%d-%d", g.Stage, g.Step, g.Round)
}

// ClientRecord mirrors one server-reported client of the active room.
// Records are replaced wholesale on every refresh; identity is ID,
// unique within a room at a given instant.
type ClientRecord struct {
	ID          string     `json:"id"`
	SID         string     `json:"sid,omitempty"`
	Kind        ClientKind `json:"clientType"`
	Admin       bool       `json:"admin,omitempty"`
	Stage       *GameStage `json:"stage,omitempty"`
	StageLevel  string     `json:"stageLevel,omitempty"`
	Paused      bool       `json:"paused,omitempty"`
	LastError   string     `json:"lastError,omitempty"`
	ConnectedAt time.Time  `json:"connectedAt,omitempty"`
}

// Scope is the (channel, room) pair currently being administered.
// RoomID is only meaningful when Channel is set; changing the channel
// always drops the room.
type Scope struct {
	Channel  string
	RoomID   string
	RoomName string
	RoomType RoomType
}

// HasChannel reports whether a channel is selected.
func (s Scope) HasChannel() bool { return s.Channel != "" }

// HasRoom reports whether a room is selected.
func (s Scope) HasRoom() bool { return s.Channel != "" && s.RoomID != "" }

// ChannelInfo describes one administrative partition of the server.
type ChannelInfo struct {
	Name       string `json:"name"`
	GameName   string `json:"gameName,omitempty"`
	NConnected int    `json:"nConnClients,omitempty"`
	NRooms     int    `json:"nGameRooms,omitempty"`
	Open       bool   `json:"open,omitempty"`
}

// RoomInfo describes one room of the selected channel.
type RoomInfo struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Type     RoomType `json:"type"`
	NClients int      `json:"nClients,omitempty"`
}

// GameInfo describes one game known to the server.
type GameInfo struct {
	Name       string   `json:"name"`
	Dir        string   `json:"dir,omitempty"`
	Alias      []string `json:"alias,omitempty"`
	Treatments []string `json:"treatments,omitempty"`
}

// FileKind classifies exported files by extension for display.
type FileKind string

const (
	FileCSV     FileKind = "csv"
	FileJSON    FileKind = "json"
	FileGeneric FileKind = "file"
)

// FileKindOf returns the kind of a file based on its extension.
func FileKindOf(name string) FileKind {
	for i := len(name) - 1; i > 0; i-- {
		if name[i] != '.' {
			continue
		}
		switch name[i+1:] {
		case "csv":
			return FileCSV
		case "json", "ndjson":
			return FileJSON
		}
		break
	}
	return FileGeneric
}

// FileNode is one leaf of the exported-files tree, grouped by directory.
type FileNode struct {
	Dir     string    `json:"dir"`
	Name    string    `json:"file"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"mtime"`
	Kind    FileKind  `json:"-"`
}

// Key is the composite identifier used by the file batch selector.
func (f FileNode) Key() string { return f.Dir + "/" + f.Name }
