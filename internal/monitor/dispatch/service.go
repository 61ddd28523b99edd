// Package dispatch assembles and transmits command envelopes consistent
// with the current scope and selection. Every operation sends exactly one
// envelope; none retry. Local validation failures become operator alerts
// and nothing goes on the wire.
package dispatch

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"gamemon/internal/domain"
	"gamemon/internal/eventbus"
	"gamemon/internal/protocol"
	"gamemon/internal/token"
)

// Sender transmits one envelope over the messaging collaborator.
type Sender interface {
	Send(env protocol.Envelope) error
}

// ScopeSource provides the current scope snapshot.
type ScopeSource interface {
	Current() domain.Scope
}

// SelectionSource provides the currently selected client ids.
type SelectionSource interface {
	Current() []string
}

// RegistrySource provides client metadata for target filtering.
type RegistrySource interface {
	Get(id string) (domain.ClientRecord, bool)
	Logic() *domain.ClientRecord
}

// DefaultExportTimeout bounds how long export controls stay disabled
// when the server never confirms completion.
const DefaultExportTimeout = 10 * time.Second

// Service builds and sends scoped command envelopes.
type Service struct {
	bus    eventbus.EventBus
	sender Sender
	scope  ScopeSource
	sel    SelectionSource
	reg    RegistrySource
	tokens *token.Generator

	ExportTimeout time.Duration

	mu            sync.Mutex
	pendingExport int64
	exportTimer   *time.Timer
}

// NewService creates a new command dispatcher.
func NewService(bus eventbus.EventBus, sender Sender, scope ScopeSource,
	sel SelectionSource, reg RegistrySource, tokens *token.Generator) *Service {

	return &Service{
		bus:           bus,
		sender:        sender,
		scope:         scope,
		sel:           sel,
		reg:           reg,
		tokens:        tokens,
		ExportTimeout: DefaultExportTimeout,
	}
}

// SendRoomCommand sends a targeted room-level command to the selected
// clients. With nothing selected the call is a no-op: commands are never
// broadcast by omission. A selected logic client is extracted into the
// doLogic flag because the server addresses logic through its own path.
func (s *Service) SendRoomCommand(cmd RoomCommand, force bool) error {
	sc := s.scope.Current()
	if !sc.HasRoom() {
		return s.warn("no room selected, command not sent")
	}

	targets := s.sel.Current()
	if len(targets) == 0 {
		return nil
	}

	doLogic := false
	if lg := s.reg.Logic(); lg != nil {
		filtered := targets[:0]
		for _, id := range targets {
			if id == lg.ID {
				doLogic = true
				continue
			}
			filtered = append(filtered, id)
		}
		targets = filtered
	}

	env := protocol.NewEnvelope(protocol.CmdRoomCommand, map[string]any{
		"type":    string(cmd),
		"roomId":  sc.RoomID,
		"doLogic": doLogic,
		"clients": targets,
		"force":   force,
	})
	return s.transmit(env, string(cmd), sc.RoomID)
}

// SendWaitRoomCommand sends a waiting-room control command, scoped to the
// room only. DISPATCH carries the optional sizing and treatment choices.
func (s *Service) SendWaitRoomCommand(cmd WaitRoomCommand, opts DispatchOpts) error {
	sc := s.scope.Current()
	if !sc.HasRoom() {
		return s.warn("no room selected, waitroom command not sent")
	}

	data := map[string]any{
		"type":   string(cmd),
		"roomId": sc.RoomID,
	}
	if cmd == WaitDispatch {
		if opts.NumberOfGames > 0 {
			data["numberOfGames"] = opts.NumberOfGames
		}
		if opts.GroupSize > 0 {
			data["groupSize"] = opts.GroupSize
		}
		if opts.ChosenTreatment != "" {
			data["chosenTreatment"] = opts.ChosenTreatment
		}
	}

	env := protocol.NewEnvelope(protocol.CmdWaitRoomCommand, data)
	return s.transmit(env, string(cmd), sc.RoomID)
}

// SendRedirect points the given clients to a new URI. Empty uri or empty
// target list aborts locally with a warning, no envelope is produced.
func (s *Service) SendRedirect(uri string, targets []string) error {
	if uri == "" {
		return s.warn("cannot redirect, empty uri")
	}
	if len(targets) == 0 {
		return s.warn("cannot redirect, no client selected")
	}

	env := protocol.NewEnvelope(protocol.CmdRedirect, map[string]any{
		"uri":     uri,
		"clients": targets,
	})
	return s.transmit(env, "REDIRECT", s.scope.Current().RoomID)
}

// SendDisconnect kicks the given clients. Only players and bots are
// eligible; admins and logic clients are silently skipped so a mixed
// selection still works.
func (s *Service) SendDisconnect(ids []string) error {
	sc := s.scope.Current()
	sent := 0
	for _, id := range ids {
		rec, ok := s.reg.Get(id)
		if !ok {
			s.bus.Publish(domain.AlertEvent{
				Level:   domain.AlertWarning,
				Message: fmt.Sprintf("cannot disconnect unknown client %q", id),
			})
			continue
		}
		if !rec.Kind.Disconnectable() {
			continue
		}
		env := protocol.NewEnvelope(protocol.CmdDisconnect, map[string]any{
			"id":  rec.ID,
			"sid": rec.SID,
		})
		if err := s.sender.Send(env); err != nil {
			return s.sendFailed(err)
		}
		sent++
	}
	if sent > 0 {
		s.bus.Publish(domain.CommandSentEvent{Kind: "DISCONNECT", RoomID: sc.RoomID})
	}
	return nil
}

// SendChatInvite opens a chat session with the given clients. Unless
// includeNonPlayers is set, only players are invited. The generated
// session token is shared between the operator-side and participant-side
// views of the conversation and returned to the caller.
func (s *Service) SendChatInvite(targets []string, includeNonPlayers bool, initialMsg string) (string, error) {
	recipients := make([]string, 0, len(targets))
	for _, id := range targets {
		rec, ok := s.reg.Get(id)
		if !ok {
			continue
		}
		if includeNonPlayers || rec.Kind == domain.KindPlayer {
			recipients = append(recipients, id)
		}
	}
	if len(recipients) == 0 {
		return "", s.warn("cannot chat, no eligible client selected")
	}

	session := s.tokens.ChatSession()
	sc := s.scope.Current()

	data := map[string]any{
		"type":      "widgets",
		"clients":   recipients,
		"chatEvent": session,
		"sender":    sc.Channel,
	}
	if initialMsg != "" {
		data["initialMsg"] = initialMsg
	}

	env := protocol.NewEnvelope(protocol.CmdRemoteSetup, data)
	if err := s.transmit(env, "CHAT", sc.RoomID); err != nil {
		return "", err
	}
	return session, nil
}

// SendExportRequest asks the server to package data or logs. The returned
// correlation token must match the eventual completion event; a stale
// completion is ignored. A client-side timeout re-enables the export
// controls if the server never answers.
func (s *Service) SendExportRequest(kind ExportKind, options, gameFilter string) (int64, error) {
	tok := s.tokens.Int63()

	data := map[string]any{
		"type":    string(kind),
		"idx":     tok,
		"options": options,
	}
	if gameFilter != "" {
		data["game"] = gameFilter
	}

	env := protocol.NewEnvelope(protocol.CmdExport, data)
	if err := s.sender.Send(env); err != nil {
		return 0, s.sendFailed(err)
	}

	s.mu.Lock()
	if s.exportTimer != nil {
		s.exportTimer.Stop()
	}
	s.pendingExport = tok
	s.exportTimer = time.AfterFunc(s.ExportTimeout, func() { s.expireExport(tok) })
	s.mu.Unlock()

	s.bus.Publish(domain.CommandSentEvent{Kind: "EXPORT"})
	return tok, nil
}

// CompleteExport matches an export-completion event against the pending
// request. Mismatched tokens are stale cross-talk and are dropped.
func (s *Service) CompleteExport(idx int64) bool {
	s.mu.Lock()
	if idx == 0 || idx != s.pendingExport {
		s.mu.Unlock()
		return false
	}
	s.pendingExport = 0
	if s.exportTimer != nil {
		s.exportTimer.Stop()
		s.exportTimer = nil
	}
	s.mu.Unlock()

	s.bus.Publish(domain.ExportCompletedEvent{Token: idx})
	s.bus.Publish(domain.AlertEvent{Level: domain.AlertSuccess, Message: "export completed"})
	return true
}

func (s *Service) expireExport(tok int64) {
	s.mu.Lock()
	if s.pendingExport != tok {
		s.mu.Unlock()
		return
	}
	s.pendingExport = 0
	s.exportTimer = nil
	s.mu.Unlock()

	s.bus.Publish(domain.ExportCompletedEvent{Token: tok, TimedOut: true})
	s.bus.Publish(domain.AlertEvent{Level: domain.AlertWarning, Message: "export still running on server, controls re-enabled"})
}

// ExportPending reports whether an export round-trip is in flight.
func (s *Service) ExportPending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingExport != 0
}

// RemoteSetup pushes window options (right-click, esc, prompt-on-leave,
// wait-screen) to the given clients.
func (s *Service) RemoteSetup(targets []string, opts map[string]any) error {
	if len(targets) == 0 {
		return s.warn("no client selected, setup not sent")
	}
	env := protocol.NewEnvelope(protocol.CmdRemoteSetup, map[string]any{
		"type":    "window",
		"clients": targets,
		"options": opts,
	})
	return s.transmit(env, "SETUP_WINDOW", s.scope.Current().RoomID)
}

// GotoStep moves the selected clients to another game stage.
func (s *Service) GotoStep(targets []string, stage domain.GameStage) error {
	if len(targets) == 0 {
		return s.warn("no client selected, stage change not sent")
	}
	env := protocol.NewEnvelope(protocol.CmdGameCommand, map[string]any{
		"type":    "goto_step",
		"clients": targets,
		"stage":   stage.Hash(),
	})
	return s.transmit(env, "GOTO_STEP", s.scope.Current().RoomID)
}

// SendCustomMsg sends an operator-composed message straight to the given
// clients. The action names the verb on the receiving side and is
// normalized to lower case; text and payload are passed through as-is.
func (s *Service) SendCustomMsg(targets []string, action, text string, payload map[string]any) error {
	if strings.TrimSpace(action) == "" {
		return s.warn("cannot send custom message, missing action")
	}
	if len(targets) == 0 {
		return s.warn("cannot send custom message, no client selected")
	}

	env := protocol.NewCustomMessage(targets, strings.ToLower(action), text, payload)
	return s.transmit(env, "CUSTOM_MSG", s.scope.Current().RoomID)
}

// SendUpdateSettings pushes monitor settings to the server, e.g. the
// display name shown to other admins.
func (s *Service) SendUpdateSettings(update map[string]any) error {
	if len(update) == 0 {
		return nil
	}
	env := protocol.NewEnvelope(protocol.CmdUpdateSettings, update)
	if err := s.sender.Send(env); err != nil {
		return s.sendFailed(err)
	}
	return nil
}

// QueryChannels asks the server for its channel list.
func (s *Service) QueryChannels() error {
	return s.query(map[string]any{"type": string(InfoChannels), "extraInfo": true})
}

// QueryRooms asks for the room list of the current channel.
func (s *Service) QueryRooms() error {
	sc := s.scope.Current()
	if !sc.HasChannel() {
		return nil
	}
	return s.query(map[string]any{"type": string(InfoRooms), "channel": sc.Channel})
}

// QueryClients asks for the client list of the current room.
func (s *Service) QueryClients() error {
	sc := s.scope.Current()
	if !sc.HasRoom() {
		return nil
	}
	return s.query(map[string]any{"type": string(InfoClients), "roomId": sc.RoomID})
}

// QueryGames asks for the game catalog.
func (s *Service) QueryGames() error {
	return s.query(map[string]any{"type": string(InfoGames)})
}

// QueryFiles asks for the exported data or log file listing.
func (s *Service) QueryFiles(q InfoQuery) error {
	return s.query(map[string]any{"type": string(q)})
}

func (s *Service) query(data map[string]any) error {
	env := protocol.NewEnvelope(protocol.CmdInfo, data)
	if err := s.sender.Send(env); err != nil {
		return s.sendFailed(err)
	}
	return nil
}

func (s *Service) transmit(env protocol.Envelope, kind, roomID string) error {
	if err := s.sender.Send(env); err != nil {
		return s.sendFailed(err)
	}
	s.bus.Publish(domain.CommandSentEvent{Kind: kind, RoomID: roomID})
	return nil
}

// warn surfaces a local validation failure as a non-fatal operator
// warning. The operation is aborted, no error propagates.
func (s *Service) warn(msg string) error {
	s.bus.Publish(domain.AlertEvent{Level: domain.AlertWarning, Message: msg})
	return nil
}

func (s *Service) sendFailed(err error) error {
	s.bus.Publish(domain.ErrorEvent{Message: "send failed", Err: err})
	return fmt.Errorf("dispatch: %w", err)
}
