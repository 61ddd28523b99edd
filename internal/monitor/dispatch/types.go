package dispatch

// RoomCommand is a targeted room-level command.
type RoomCommand string

const (
	RoomSetup  RoomCommand = "SETUP"
	RoomStart  RoomCommand = "START"
	RoomStop   RoomCommand = "STOP"
	RoomPause  RoomCommand = "PAUSE"
	RoomResume RoomCommand = "RESUME"
)

// WaitRoomCommand is a waiting-room control command.
type WaitRoomCommand string

const (
	WaitOpen         WaitRoomCommand = "OPEN"
	WaitClose        WaitRoomCommand = "CLOSE"
	WaitPlayWithBots WaitRoomCommand = "PLAYWITHBOTS"
	WaitDispatch     WaitRoomCommand = "DISPATCH"
)

// DispatchOpts tunes a DISPATCH waiting-room command. Zero fields are
// omitted from the envelope and the server applies its defaults.
type DispatchOpts struct {
	NumberOfGames   int
	GroupSize       int
	ChosenTreatment string
}

// ExportKind selects what the server packages on an export request.
type ExportKind string

const (
	ExportData ExportKind = "DATA"
	ExportLogs ExportKind = "LOGS"
)

// InfoQuery is the type field of an INFO request.
type InfoQuery string

const (
	InfoChannels InfoQuery = "CHANNELS"
	InfoRooms    InfoQuery = "ROOMS"
	InfoClients  InfoQuery = "CLIENTS"
	InfoGames    InfoQuery = "GAMES"
	InfoResults  InfoQuery = "RESULTS"
	InfoLogs     InfoQuery = "LOGS"
)
