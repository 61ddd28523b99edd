package ui

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"gamemon/internal/config"
	"gamemon/internal/domain"
	"gamemon/internal/monitor/coordinator"
	"gamemon/internal/monitor/dispatch"
	"gamemon/internal/monitor/filebatch"
	"gamemon/internal/monitor/selection"
	"gamemon/internal/ui/views"
)

// EventMsg wraps a domain event forwarded from the bus.
type EventMsg struct {
	Event domain.DomainEvent
}

type alertClearMsg struct{}

type autoRefreshMsg struct{}

type downloadResultMsg struct {
	url string
	err error
}

// inputMode selects what the text input is currently collecting.
type inputMode int

const (
	modeNormal inputMode = iota
	modeRedirect
	modeDispatch
	modeExport
	modeChat
	modeStage
	modeCustom
)

// Model is the dashboard's Bubble Tea model.
type Model struct {
	coord      *coordinator.Coordinator
	cfg        *config.Config
	downloader *filebatch.Downloader
	renderer   *views.Renderer

	width  int
	height int

	connected bool
	channels  []domain.ChannelInfo
	rooms     []domain.RoomInfo
	clients   []domain.ClientRecord
	logic     *domain.ClientRecord
	nClients  int
	nPlayers  int
	nAdmins   int

	focus     views.Pane
	cursors   map[views.Pane]int
	force     bool
	showFiles bool
	filesKind string

	alert      *views.Alert
	exportBusy bool
	exportKind dispatch.ExportKind

	mode       inputMode
	input      textinput.Model
	inputLabel string
	spin       spinner.Model
	program    *tea.Program
}

// NewModel creates the dashboard model.
func NewModel(coord *coordinator.Coordinator, cfg *config.Config, dl *filebatch.Downloader) *Model {
	ti := textinput.New()
	ti.CharLimit = 256

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return &Model{
		coord:      coord,
		cfg:        cfg,
		downloader: dl,
		renderer:   views.NewRenderer(),
		cursors:    make(map[views.Pane]int),
		filesKind:  "DATA",
		exportKind: dispatch.ExportData,
		input:      ti,
		spin:       sp,
	}
}

// SetProgram stores the program reference for pager handoff.
func (m *Model) SetProgram(p *tea.Program) { m.program = p }

// Init schedules the initial refresh and the auto-refresh ticker.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spin.Tick}
	if m.cfg.UISettings.AutoRefresh > 0 {
		cmds = append(cmds, m.autoRefreshTick())
	}
	return tea.Batch(cmds...)
}

func (m *Model) autoRefreshTick() tea.Cmd {
	return tea.Tick(m.cfg.UISettings.AutoRefresh, func(time.Time) tea.Msg {
		return autoRefreshMsg{}
	})
}

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case autoRefreshMsg:
		m.coord.RefreshAll()
		return m, m.autoRefreshTick()

	case alertClearMsg:
		m.alert = nil
		return m, nil

	case downloadResultMsg:
		if msg.err != nil {
			return m, m.showAlert(domain.AlertDanger, "download failed: "+msg.err.Error())
		}
		return m, m.showAlert(domain.AlertSuccess, "download ready: "+msg.url)

	case EventMsg:
		return m.handleEvent(msg.Event)

	case tea.KeyMsg:
		if m.mode != modeNormal {
			return m.handleInputKey(msg)
		}
		return m.handleNormalKey(msg)
	}

	return m, nil
}

func (m *Model) handleEvent(e domain.DomainEvent) (tea.Model, tea.Cmd) {
	switch ev := e.(type) {
	case domain.ConnStateEvent:
		m.connected = ev.Connected
		if !ev.Connected && ev.Err != nil {
			return m, m.showAlert(domain.AlertDanger, "connection lost: "+ev.Err.Error())
		}
	case domain.ChannelsUpdatedEvent:
		m.channels = ev.Channels
		m.clampCursor(views.PaneChannels, len(m.channels))
	case domain.RoomsUpdatedEvent:
		m.rooms = ev.Rooms
		m.clampCursor(views.PaneRooms, len(m.rooms))
	case domain.ClientsUpdatedEvent:
		m.clients = ev.Clients
		m.logic = ev.Logic
		m.nClients, m.nPlayers, m.nAdmins = ev.NClients, ev.NPlayers, ev.NAdmins
		m.clampCursor(views.PaneClients, len(m.clients))
	case domain.ScopeChangedEvent:
		if ev.ChannelChanged {
			m.rooms = nil
		}
		if ev.ChannelChanged || ev.RoomChanged {
			m.clients = nil
			m.logic = nil
			m.nClients, m.nPlayers, m.nAdmins = 0, 0, 0
		}
	case domain.FilesUpdatedEvent:
		m.clampCursor(views.PaneFiles, len(ev.Files))
	case domain.ExportCompletedEvent:
		m.exportBusy = false
		if ev.TimedOut {
			return m, m.showAlert(domain.AlertWarning, "export timed out, controls re-enabled")
		}
		return m, m.showAlert(domain.AlertSuccess, "export completed")
	case domain.AlertEvent:
		return m, m.showAlert(ev.Level, ev.Message)
	case domain.ErrorEvent:
		return m, m.showAlert(domain.AlertDanger, ev.Message)
	}
	return m, nil
}

func (m *Model) handleNormalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "tab":
		m.cycleFocus()
	case "up", "k":
		m.moveCursor(-1)
	case "down", "j":
		m.moveCursor(1)

	case "enter":
		return m.activate()

	case " ":
		return m.toggleUnderCursor()

	case "a":
		if m.showFiles {
			m.fileSvc().SelectAll()
		} else {
			m.coord.Selection.SetBulk(true)
		}
	case "A":
		if m.showFiles {
			m.fileSvc().SelectNone()
		} else {
			m.coord.Selection.SetBulk(false)
		}
	case "x":
		// Bulk toggle mirrors the select-all checkbox: an
		// indeterminate state collapses to all.
		if !m.showFiles {
			m.coord.Selection.SetBulk(m.coord.Selection.BulkState() != selection.BulkAllSelected)
		}

	case "r":
		m.coord.RefreshAll()
		return m, m.showAlert(domain.AlertSuccess, "refreshing")

	case "f":
		m.force = !m.force

	case "1", "2", "3", "4", "5":
		return m, m.roomCommand(msg.String())

	case "o":
		return m, m.waitRoomCommand(dispatch.WaitOpen, dispatch.DispatchOpts{})
	case "c":
		return m, m.waitRoomCommand(dispatch.WaitClose, dispatch.DispatchOpts{})
	case "b":
		return m, m.waitRoomCommand(dispatch.WaitPlayWithBots, dispatch.DispatchOpts{})
	case "d":
		if m.showFiles {
			return m, m.startDownload()
		}
		return m.enterInput(modeDispatch, "dispatch [#games #size treatment]:")

	case "R":
		return m.enterInput(modeRedirect, "redirect uri:")
	case "C":
		return m.enterInput(modeChat, "chat message (empty for none):")
	case "G":
		return m.enterInput(modeStage, "goto stage (S.s-r):")
	case "M":
		return m.enterInput(modeCustom, "custom message (action [text]):")

	case "K":
		return m, m.kickSelected()

	case "e":
		return m.enterInput(modeExport, "export options:")
	case "E":
		if m.exportKind == dispatch.ExportData {
			m.exportKind = dispatch.ExportLogs
		} else {
			m.exportKind = dispatch.ExportData
		}
		return m, m.showAlert(domain.AlertSuccess, "export target: "+string(m.exportKind))

	case "v":
		if m.showFiles {
			return m, m.viewFileUnderCursor()
		}

	case "l":
		m.toggleFilesView()

	case "?":
		return m, m.showHelp()
	}
	return m, nil
}

func (m *Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.mode = modeNormal
		m.input.Blur()
		return m, nil
	case "enter":
		value := strings.TrimSpace(m.input.Value())
		mode := m.mode
		m.mode = modeNormal
		m.input.Blur()
		m.input.SetValue("")
		return m, m.submitInput(mode, value)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) submitInput(mode inputMode, value string) tea.Cmd {
	switch mode {
	case modeRedirect:
		if err := m.coord.Dispatch.SendRedirect(value, m.coord.Selection.Current()); err != nil {
			log.Printf("UI: redirect failed: %v", err)
		}
		return nil

	case modeDispatch:
		opts, err := parseDispatchOpts(value)
		if err != nil {
			return m.showAlert(domain.AlertWarning, err.Error())
		}
		return m.waitRoomCommand(dispatch.WaitDispatch, opts)

	case modeExport:
		tok, err := m.coord.Dispatch.SendExportRequest(m.exportKind, value, "")
		if err != nil {
			return nil
		}
		m.exportBusy = true
		log.Printf("UI: export %s requested, token %d", m.exportKind, tok)
		return nil

	case modeChat:
		session, err := m.coord.Dispatch.SendChatInvite(
			m.coord.Selection.Current(), false, value)
		if err != nil {
			return nil
		}
		if session != "" {
			return m.showAlert(domain.AlertSuccess, "chat session opened")
		}
		return nil

	case modeStage:
		stage, err := parseStage(value)
		if err != nil {
			return m.showAlert(domain.AlertWarning, err.Error())
		}
		if err := m.coord.Dispatch.GotoStep(m.coord.Selection.Current(), stage); err != nil {
			log.Printf("UI: goto step failed: %v", err)
		}
		return nil

	case modeCustom:
		action, text := splitCustomMsg(value)
		if err := m.coord.Dispatch.SendCustomMsg(m.coord.Selection.Current(), action, text, nil); err != nil {
			log.Printf("UI: custom message failed: %v", err)
		}
		return nil
	}
	return nil
}

// splitCustomMsg separates the leading action word from the message text.
func splitCustomMsg(value string) (action, text string) {
	parts := strings.Fields(value)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

func (m *Model) roomCommand(key string) tea.Cmd {
	cmds := map[string]dispatch.RoomCommand{
		"1": dispatch.RoomSetup,
		"2": dispatch.RoomStart,
		"3": dispatch.RoomStop,
		"4": dispatch.RoomPause,
		"5": dispatch.RoomResume,
	}
	cmd := cmds[key]
	if len(m.coord.Selection.Current()) == 0 {
		return m.showAlert(domain.AlertWarning, "no client selected, "+string(cmd)+" not sent")
	}
	if err := m.coord.Dispatch.SendRoomCommand(cmd, m.force); err != nil {
		log.Printf("UI: %s failed: %v", cmd, err)
		return nil
	}
	return m.showAlert(domain.AlertSuccess, string(cmd)+" sent")
}

func (m *Model) waitRoomCommand(cmd dispatch.WaitRoomCommand, opts dispatch.DispatchOpts) tea.Cmd {
	sc := m.coord.Scope.Current()
	if sc.RoomType != domain.RoomWaiting {
		return m.showAlert(domain.AlertWarning, "not a waiting room")
	}
	if err := m.coord.Dispatch.SendWaitRoomCommand(cmd, opts); err != nil {
		log.Printf("UI: %s failed: %v", cmd, err)
		return nil
	}
	return m.showAlert(domain.AlertSuccess, string(cmd)+" sent")
}

func (m *Model) kickSelected() tea.Cmd {
	targets := m.coord.Selection.Current()
	if len(targets) == 0 {
		return m.showAlert(domain.AlertWarning, "no client selected")
	}
	if err := m.coord.Dispatch.SendDisconnect(targets); err != nil {
		log.Printf("UI: disconnect failed: %v", err)
		return nil
	}
	return m.showAlert(domain.AlertSuccess, "disconnect sent")
}

func (m *Model) startDownload() tea.Cmd {
	svc := m.fileSvc()
	if sel, _ := svc.Count(); sel == 0 {
		return m.showAlert(domain.AlertWarning, "no items selected")
	}
	dl := m.downloader
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), filebatch.DefaultDownloadTimeout)
		defer cancel()
		url, err := dl.Download(ctx, svc)
		return downloadResultMsg{url: url, err: err}
	}
}

func (m *Model) activate() (tea.Model, tea.Cmd) {
	switch m.focus {
	case views.PaneChannels:
		if i := m.cursors[views.PaneChannels]; i < len(m.channels) {
			m.coord.SelectChannel(m.channels[i].Name)
		}
	case views.PaneRooms:
		if i := m.cursors[views.PaneRooms]; i < len(m.rooms) {
			if err := m.coord.SelectRoom(m.rooms[i]); err != nil {
				return m, m.showAlert(domain.AlertWarning, err.Error())
			}
		}
	case views.PaneClients, views.PaneFiles:
		return m.toggleUnderCursor()
	}
	return m, nil
}

func (m *Model) toggleUnderCursor() (tea.Model, tea.Cmd) {
	if m.showFiles {
		nodes := m.fileSvc().Nodes()
		if i := m.cursors[views.PaneFiles]; i < len(nodes) {
			m.fileSvc().Toggle(nodes[i].Key())
		}
		return m, nil
	}
	if m.focus != views.PaneClients {
		return m, nil
	}
	if i := m.cursors[views.PaneClients]; i < len(m.clients) {
		if err := m.coord.Selection.Toggle(m.clients[i].ID); err != nil {
			return m, m.showAlert(domain.AlertWarning, err.Error())
		}
	}
	return m, nil
}

func (m *Model) toggleFilesView() {
	if !m.showFiles {
		m.showFiles = true
		m.focus = views.PaneFiles
		_ = m.coord.Dispatch.QueryFiles(m.filesQuery())
		return
	}
	if m.filesKind == "DATA" {
		m.filesKind = "LOGS"
		_ = m.coord.Dispatch.QueryFiles(m.filesQuery())
		return
	}
	m.filesKind = "DATA"
	m.showFiles = false
	m.focus = views.PaneChannels
}

func (m *Model) filesQuery() dispatch.InfoQuery {
	if m.filesKind == "LOGS" {
		return dispatch.InfoLogs
	}
	return dispatch.InfoResults
}

func (m *Model) fileSvc() *filebatch.Service {
	if m.filesKind == "LOGS" {
		return m.coord.Logs
	}
	return m.coord.Files
}

func (m *Model) cycleFocus() {
	if m.showFiles {
		return
	}
	switch m.focus {
	case views.PaneChannels:
		m.focus = views.PaneRooms
	case views.PaneRooms:
		m.focus = views.PaneClients
	default:
		m.focus = views.PaneChannels
	}
}

func (m *Model) moveCursor(delta int) {
	max := 0
	switch m.focus {
	case views.PaneChannels:
		max = len(m.channels)
	case views.PaneRooms:
		max = len(m.rooms)
	case views.PaneClients:
		max = len(m.clients)
	case views.PaneFiles:
		max = len(m.fileSvc().Nodes())
	}
	if max == 0 {
		return
	}
	cur := m.cursors[m.focus] + delta
	if cur < 0 {
		cur = 0
	}
	if cur >= max {
		cur = max - 1
	}
	m.cursors[m.focus] = cur
}

func (m *Model) clampCursor(p views.Pane, max int) {
	if m.cursors[p] >= max {
		if max == 0 {
			m.cursors[p] = 0
		} else {
			m.cursors[p] = max - 1
		}
	}
}

func (m *Model) enterInput(mode inputMode, prompt string) (tea.Model, tea.Cmd) {
	m.mode = mode
	m.input.Placeholder = ""
	m.input.Prompt = ""
	m.input.SetValue("")
	m.inputLabel = prompt
	return m, m.input.Focus()
}

func (m *Model) showAlert(level domain.AlertLevel, msg string) tea.Cmd {
	m.alert = &views.Alert{Level: level, Message: msg, At: time.Now()}
	return tea.Tick(5*time.Second, func(time.Time) tea.Msg {
		return alertClearMsg{}
	})
}

func (m *Model) viewFileUnderCursor() tea.Cmd {
	nodes := m.fileSvc().Nodes()
	i := m.cursors[views.PaneFiles]
	if i >= len(nodes) {
		return nil
	}
	key := nodes[i].Key()
	dl := m.downloader
	pager := NewPager(m.program)
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), filebatch.DefaultDownloadTimeout)
		defer cancel()
		url, err := dl.DownloadKeys(ctx, []string{key})
		if err != nil {
			return downloadResultMsg{err: err}
		}
		content, err := dl.Fetch(ctx, url)
		if err != nil {
			return downloadResultMsg{err: err}
		}
		if err := pager.Show(content); err != nil {
			log.Printf("UI: file pager failed: %v", err)
		}
		return nil
	}
}

func (m *Model) showHelp() tea.Cmd {
	pager := NewPager(m.program)
	return func() tea.Msg {
		if err := pager.Show(helpContent()); err != nil {
			log.Printf("UI: help pager failed: %v", err)
		}
		return nil
	}
}

// View renders the frame.
func (m *Model) View() string {
	sel, total := m.fileSvc().Count()

	state := views.ViewState{
		Width:     m.width,
		Height:    m.height,
		Scope:     m.coord.Scope.Current(),
		Connected: m.connected,
		Channels:  m.channels,
		Rooms:     m.rooms,
		Clients:   m.clients,
		Logic:     m.logic,

		Files:         m.fileSvc().Nodes(),
		FilesKind:     m.filesKind,
		FileSelected:  m.fileSvc().IsSelected,
		FilesSelected: sel,
		FilesTotal:    total,

		IsSelected: m.coord.Selection.IsSelected,
		BulkState:  m.coord.Selection.BulkState(),
		NSelected:  len(m.coord.Selection.Current()),
		NClients:   m.nClients,
		NPlayers:   m.nPlayers,
		NAdmins:    m.nAdmins,

		Focus:      m.focus,
		Cursor:     m.cursors[m.focus],
		Force:      m.force,
		ShowFiles:  m.showFiles,
		Alert:      m.alert,
		ExportBusy: m.exportBusy,
	}
	if m.exportBusy {
		state.StatusLine = m.spin.View() + " exporting"
	}
	if m.mode != modeNormal {
		state.InputLabel = m.inputLabel
		state.InputView = m.input.View()
	}

	return m.renderer.Render(state)
}

// parseDispatchOpts parses "#games #size treatment"; all parts optional.
func parseDispatchOpts(value string) (dispatch.DispatchOpts, error) {
	opts := dispatch.DispatchOpts{}
	if value == "" {
		return opts, nil
	}
	parts := strings.Fields(value)
	if len(parts) > 0 {
		n, err := strconv.Atoi(parts[0])
		if err != nil || n < 1 {
			return opts, fmt.Errorf("invalid number of games: %q", parts[0])
		}
		opts.NumberOfGames = n
	}
	if len(parts) > 1 {
		n, err := strconv.Atoi(parts[1])
		if err != nil || n < 1 {
			return opts, fmt.Errorf("invalid group size: %q", parts[1])
		}
		opts.GroupSize = n
	}
	if len(parts) > 2 {
		opts.ChosenTreatment = parts[2]
	}
	return opts, nil
}

// parseStage parses the "S.s-r" hash form.
func parseStage(value string) (domain.GameStage, error) {
	bad := fmt.Errorf("invalid stage %q, want S.s-r", value)

	dot := strings.IndexByte(value, '.')
	dash := strings.IndexByte(value, '-')
	if dot < 0 || dash < dot {
		return domain.GameStage{}, bad
	}
	stage, err1 := strconv.Atoi(value[:dot])
	step, err2 := strconv.Atoi(value[dot+1 : dash])
	round, err3 := strconv.Atoi(value[dash+1:])
	if err1 != nil || err2 != nil || err3 != nil {
		return domain.GameStage{}, bad
	}
	return domain.GameStage{Stage: stage, Step: step, Round: round}, nil
}
