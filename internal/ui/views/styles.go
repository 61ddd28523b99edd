package views

import (
	"github.com/charmbracelet/lipgloss"
)

// Styles contains all the style definitions for the UI
type Styles struct {
	Title       lipgloss.Style
	Breadcrumb  lipgloss.Style
	Pane        lipgloss.Style
	PaneFocused lipgloss.Style
	PaneHeader  lipgloss.Style
	Cursor      lipgloss.Style
	Dim         lipgloss.Style
	Status      lipgloss.Style
	Help        lipgloss.Style
	SelectedBg  lipgloss.Style

	AlertSuccess lipgloss.Style
	AlertWarning lipgloss.Style
	AlertDanger  lipgloss.Style

	KindPlayer lipgloss.Style
	KindBot    lipgloss.Style
	KindAdmin  lipgloss.Style
	KindLogic  lipgloss.Style
}

// NewStyles creates a new Styles instance with default values
func NewStyles() *Styles {
	return &Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99")),
		Breadcrumb: lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true),
		Pane: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("241")).
			Padding(0, 1),
		PaneFocused: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("99")).
			Padding(0, 1),
		PaneHeader: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("252")).
			Underline(true),
		Cursor: lipgloss.NewStyle().
			Foreground(lipgloss.Color("226")).
			Bold(true),
		Dim:    lipgloss.NewStyle().Faint(true),
		Status: lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		Help:   lipgloss.NewStyle().Faint(true),
		SelectedBg: lipgloss.NewStyle().
			Background(lipgloss.Color("238")),

		AlertSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("78")).Bold(true),
		AlertWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true),
		AlertDanger:  lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true),

		KindPlayer: lipgloss.NewStyle().Foreground(lipgloss.Color("78")),
		KindBot:    lipgloss.NewStyle().Foreground(lipgloss.Color("33")),
		KindAdmin:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		KindLogic:  lipgloss.NewStyle().Foreground(lipgloss.Color("99")).Italic(true),
	}
}
