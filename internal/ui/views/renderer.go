package views

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"gamemon/internal/domain"
	"gamemon/internal/monitor/selection"
)

// Pane identifies the focusable regions of the dashboard.
type Pane int

const (
	PaneChannels Pane = iota
	PaneRooms
	PaneClients
	PaneFiles
)

// Alert is a transient banner shown above the panes.
type Alert struct {
	Level   domain.AlertLevel
	Message string
	At      time.Time
}

// ViewState is everything the renderer needs for one frame.
type ViewState struct {
	Width  int
	Height int

	Scope     domain.Scope
	Connected bool

	Channels []domain.ChannelInfo
	Rooms    []domain.RoomInfo
	Clients  []domain.ClientRecord
	Logic    *domain.ClientRecord

	Files         []domain.FileNode
	FilesKind     string
	FileSelected  func(key string) bool
	FilesSelected int
	FilesTotal    int

	IsSelected func(id string) bool
	BulkState  selection.BulkState
	NSelected  int
	NClients   int
	NPlayers   int
	NAdmins    int

	Focus      Pane
	Cursor     int
	Force      bool
	ShowFiles  bool
	Alert      *Alert
	ExportBusy bool
	StatusLine string
	InputLabel string
	InputView  string
}

// Renderer renders the dashboard.
type Renderer struct {
	styles *Styles
}

// NewRenderer creates a renderer with default styles.
func NewRenderer() *Renderer {
	return &Renderer{styles: NewStyles()}
}

// Render produces the full frame.
func (r *Renderer) Render(s ViewState) string {
	var b strings.Builder

	b.WriteString(r.renderHeader(s))
	b.WriteString("\n")

	if s.Alert != nil {
		b.WriteString(r.renderAlert(*s.Alert))
		b.WriteString("\n")
	}

	if s.ShowFiles {
		b.WriteString(r.renderFiles(s))
	} else {
		b.WriteString(r.renderPanes(s))
	}
	b.WriteString("\n")

	b.WriteString(r.renderStatus(s))

	if s.InputLabel != "" {
		b.WriteString("\n")
		b.WriteString(s.InputLabel + " " + s.InputView)
	}

	return b.String()
}

func (r *Renderer) renderHeader(s ViewState) string {
	st := r.styles

	crumbs := []string{}
	if s.Scope.Channel != "" {
		crumbs = append(crumbs, s.Scope.Channel)
	} else {
		crumbs = append(crumbs, "no channel")
	}
	if s.Scope.RoomName != "" {
		crumbs = append(crumbs, s.Scope.RoomName)
		crumbs = append(crumbs, "clients")
	}

	conn := st.AlertDanger.Render("offline")
	if s.Connected {
		conn = st.KindPlayer.Render("online")
	}

	return lipgloss.JoinHorizontal(lipgloss.Top,
		st.Title.Render("gamemon"),
		st.Dim.Render("  "),
		st.Breadcrumb.Render(strings.Join(crumbs, " / ")),
		st.Dim.Render("  "),
		conn,
	)
}

func (r *Renderer) renderAlert(a Alert) string {
	st := r.styles
	style := st.AlertSuccess
	switch a.Level {
	case domain.AlertWarning:
		style = st.AlertWarning
	case domain.AlertDanger:
		style = st.AlertDanger
	}
	return style.Render(fmt.Sprintf("%s — %s", a.At.Format("15:04:05"), a.Message))
}

func (r *Renderer) renderPanes(s ViewState) string {
	channels := r.renderChannelPane(s)
	rooms := r.renderRoomPane(s)
	clients := r.renderClientPane(s)

	return lipgloss.JoinHorizontal(lipgloss.Top, channels, rooms, clients)
}

func (r *Renderer) paneStyle(s ViewState, p Pane) lipgloss.Style {
	if s.Focus == p {
		return r.styles.PaneFocused
	}
	return r.styles.Pane
}

func (r *Renderer) renderChannelPane(s ViewState) string {
	st := r.styles
	var b strings.Builder
	b.WriteString(st.PaneHeader.Render("Channels"))
	b.WriteString("\n")

	if len(s.Channels) == 0 {
		b.WriteString(st.Dim.Render("(none)"))
	}
	for i, ch := range s.Channels {
		line := ch.Name
		if ch.GameName != "" {
			line += st.Dim.Render(" " + ch.GameName)
		}
		if ch.Name == s.Scope.Channel {
			line = st.Breadcrumb.Render(ch.Name)
		}
		b.WriteString(r.cursorLine(s, PaneChannels, i, line))
		b.WriteString("\n")
	}
	return r.paneStyle(s, PaneChannels).Render(strings.TrimRight(b.String(), "\n"))
}

func (r *Renderer) renderRoomPane(s ViewState) string {
	st := r.styles
	var b strings.Builder
	b.WriteString(st.PaneHeader.Render("Rooms"))
	b.WriteString("\n")

	if s.Scope.Channel == "" {
		b.WriteString(st.Dim.Render("select a channel"))
	} else if len(s.Rooms) == 0 {
		b.WriteString(st.Dim.Render("(none)"))
	}
	for i, room := range s.Rooms {
		line := fmt.Sprintf("%s %s", room.Name, st.Dim.Render(string(room.Type)))
		if room.ID == s.Scope.RoomID {
			line = st.Breadcrumb.Render(room.Name) + " " + st.Dim.Render(string(room.Type))
		}
		b.WriteString(r.cursorLine(s, PaneRooms, i, line))
		b.WriteString("\n")
	}
	return r.paneStyle(s, PaneRooms).Render(strings.TrimRight(b.String(), "\n"))
}

func (r *Renderer) renderClientPane(s ViewState) string {
	st := r.styles
	var b strings.Builder

	bulk := CheckboxCell(bulkCheck(s.BulkState)).Render(st)
	b.WriteString(st.PaneHeader.Render(fmt.Sprintf("%s Clients", bulk)))
	b.WriteString("\n")

	if !s.Scope.HasRoom() {
		b.WriteString(st.Dim.Render("select a room"))
		return r.paneStyle(s, PaneClients).Render(b.String())
	}
	if len(s.Clients) == 0 && s.Logic == nil {
		b.WriteString(st.Dim.Render("(empty room)"))
	}

	if s.Logic != nil {
		row := []string{
			CheckboxCell(Unchecked).Render(st),
			BadgeCell("logic", s.Logic.ID).Render(st),
			st.Dim.Render("logic"),
		}
		b.WriteString("  " + strings.Join(row, " "))
		b.WriteString("\n")
	}

	for i, cl := range s.Clients {
		check := Unchecked
		if s.IsSelected != nil && s.IsSelected(cl.ID) {
			check = Checked
		}
		stage := "-"
		if cl.Stage != nil {
			stage = cl.Stage.Hash()
		}
		paused := ""
		if cl.Paused {
			paused = st.AlertWarning.Render(" ⏸")
		}
		row := []string{
			CheckboxCell(check).Render(st),
			BadgeCell(string(cl.Kind), cl.ID).Render(st),
			TextCell("%s", string(cl.Kind)).Render(st),
			TextCell("%s", stage).Render(st),
			TextCell("%s", cl.StageLevel).Render(st),
		}
		b.WriteString(r.cursorLine(s, PaneClients, i, strings.Join(row, " ")+paused))
		b.WriteString("\n")
	}
	return r.paneStyle(s, PaneClients).Render(strings.TrimRight(b.String(), "\n"))
}

func (r *Renderer) renderFiles(s ViewState) string {
	st := r.styles
	var b strings.Builder

	b.WriteString(st.PaneHeader.Render(fmt.Sprintf("Files (%s)", s.FilesKind)))
	b.WriteString(st.Dim.Render(fmt.Sprintf("  %d/%d selected", s.FilesSelected, s.FilesTotal)))
	b.WriteString("\n")

	if len(s.Files) == 0 {
		b.WriteString(st.Dim.Render("(no files)"))
	}

	lastDir := ""
	for i, f := range s.Files {
		if f.Dir != lastDir {
			lastDir = f.Dir
			b.WriteString(st.Breadcrumb.Render(f.Dir + "/"))
			b.WriteString("\n")
		}
		check := Unchecked
		if s.FileSelected != nil && s.FileSelected(f.Key()) {
			check = Checked
		}
		row := fmt.Sprintf("  %s %s %s %s",
			CheckboxCell(check).Render(st),
			f.Name,
			st.Dim.Render(fmt.Sprintf("%6d B", f.Size)),
			st.Dim.Render(f.ModTime.Format("2006-01-02 15:04")),
		)
		b.WriteString(r.cursorLine(s, PaneFiles, i, row))
		b.WriteString("\n")
	}
	return r.paneStyle(s, PaneFiles).Render(strings.TrimRight(b.String(), "\n"))
}

func (r *Renderer) renderStatus(s ViewState) string {
	st := r.styles
	parts := []string{}

	if s.Scope.HasRoom() {
		parts = append(parts, fmt.Sprintf("clients %d (players %d, admins %d)",
			s.NClients, s.NPlayers, s.NAdmins))
		parts = append(parts, fmt.Sprintf("selected %d", s.NSelected))
	}
	if s.Force {
		parts = append(parts, st.AlertWarning.Render("FORCE"))
	}
	if s.ExportBusy {
		parts = append(parts, "export in progress…")
	}
	if s.StatusLine != "" {
		parts = append(parts, s.StatusLine)
	}
	parts = append(parts, st.Help.Render("? help · q quit"))

	return st.Status.Render(strings.Join(parts, " · "))
}

func (r *Renderer) cursorLine(s ViewState, p Pane, i int, line string) string {
	if s.Focus == p && s.Cursor == i {
		return r.styles.Cursor.Render("> ") + line
	}
	return "  " + line
}

func bulkCheck(b selection.BulkState) CheckState {
	switch b {
	case selection.BulkAllSelected:
		return Checked
	case selection.BulkNoneSelected:
		return Unchecked
	default:
		return Indeterminate
	}
}
