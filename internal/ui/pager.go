package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/noborus/ov/oviewer"
)

// Pager hands the terminal over to ov for scrollable content and gives
// it back to the Bubble Tea program afterwards.
type Pager struct {
	program *tea.Program
}

// NewPager creates a pager bound to the running program.
func NewPager(program *tea.Program) *Pager {
	return &Pager{program: program}
}

// Show displays content in the ov pager. Blocks until the pager exits.
func (p *Pager) Show(content string) error {
	if p.program == nil {
		return fmt.Errorf("program not set")
	}

	if err := p.program.ReleaseTerminal(); err != nil {
		return err
	}
	defer func() {
		// Give ov a moment to fully exit before taking the terminal back.
		time.Sleep(100 * time.Millisecond)
		_ = p.program.RestoreTerminal()
	}()

	root, err := oviewer.NewRoot(strings.NewReader(content))
	if err != nil {
		return err
	}

	config := oviewer.NewConfig()
	config.IsWriteOnExit = false
	config.IsWriteOriginal = false
	root.SetConfig(config)

	return root.Run()
}

// helpContent renders the key reference shown by the help pager.
func helpContent() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("99")).
		MarginBottom(1)

	sectionStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("39")).
		MarginTop(1)

	keyStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("220"))

	descStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("252"))

	row := func(key, desc string) string {
		return fmt.Sprintf("  %-18s %s\n", keyStyle.Render(key), descStyle.Render(desc))
	}

	var help strings.Builder

	help.WriteString(titleStyle.Render("gamemon Help"))
	help.WriteString("\n")

	help.WriteString(sectionStyle.Render("Navigation"))
	help.WriteString("\n")
	help.WriteString(row("↑/↓, j/k", "Move cursor"))
	help.WriteString(row("Tab", "Cycle panes"))
	help.WriteString(row("Enter", "Select channel/room, toggle client"))
	help.WriteString("\n")

	help.WriteString(sectionStyle.Render("Selection"))
	help.WriteString("\n")
	help.WriteString(row("Space", "Toggle selection"))
	help.WriteString(row("a/A", "Select/deselect all"))
	help.WriteString(row("x", "Toggle the bulk checkbox"))
	help.WriteString("\n")

	help.WriteString(sectionStyle.Render("Game Commands"))
	help.WriteString("\n")
	help.WriteString(row("1-5", "SETUP / START / STOP / PAUSE / RESUME"))
	help.WriteString(row("f", "Toggle FORCE for room commands"))
	help.WriteString(row("G", "Goto stage (S.s-r)"))
	help.WriteString("\n")

	help.WriteString(sectionStyle.Render("Waiting Room"))
	help.WriteString("\n")
	help.WriteString(row("o/c", "Open/close the waiting room"))
	help.WriteString(row("b", "Play with bots"))
	help.WriteString(row("d", "Dispatch a game"))
	help.WriteString("\n")

	help.WriteString(sectionStyle.Render("Clients"))
	help.WriteString("\n")
	help.WriteString(row("R", "Redirect selected clients"))
	help.WriteString(row("K", "Disconnect selected clients"))
	help.WriteString(row("C", "Open a chat with selected clients"))
	help.WriteString(row("M", "Send a custom message to selected clients"))
	help.WriteString("\n")

	help.WriteString(sectionStyle.Render("Data & Files"))
	help.WriteString("\n")
	help.WriteString(row("e", "Request a server-side export"))
	help.WriteString(row("E", "Switch export target (data/logs)"))
	help.WriteString(row("l", "Cycle files view: data, logs, off"))
	help.WriteString(row("d", "Download selected files (files view)"))
	help.WriteString(row("v", "View file under cursor (files view)"))
	help.WriteString("\n")

	help.WriteString(sectionStyle.Render("Other"))
	help.WriteString("\n")
	help.WriteString(row("r", "Refresh everything"))
	help.WriteString(row("?", "This help"))
	help.WriteString(row("q", "Quit"))

	return help.String()
}
