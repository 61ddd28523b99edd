package views

import "fmt"

// CellKind tags the content variants a table cell can carry.
type CellKind int

const (
	CellText CellKind = iota
	CellLink
	CellCheckbox
	CellBadge
)

// CheckState is the tri-state of a checkbox cell.
type CheckState int

const (
	Unchecked CheckState = iota
	Checked
	Indeterminate
)

// Cell is a tagged-variant table cell. Rendering dispatches exhaustively
// over the tag instead of sniffing content shapes.
type Cell struct {
	Kind  CellKind
	Text  string
	URL   string
	Check CheckState
	Badge string
}

// TextCell builds a plain text cell.
func TextCell(format string, args ...any) Cell {
	return Cell{Kind: CellText, Text: fmt.Sprintf(format, args...)}
}

// LinkCell builds a link cell.
func LinkCell(url, label string) Cell {
	return Cell{Kind: CellLink, URL: url, Text: label}
}

// CheckboxCell builds a checkbox cell.
func CheckboxCell(state CheckState) Cell {
	return Cell{Kind: CellCheckbox, Check: state}
}

// BadgeCell builds a badge cell.
func BadgeCell(badge, label string) Cell {
	return Cell{Kind: CellBadge, Badge: badge, Text: label}
}

// Render turns a cell into its terminal representation.
func (c Cell) Render(st *Styles) string {
	switch c.Kind {
	case CellCheckbox:
		switch c.Check {
		case Checked:
			return "[x]"
		case Indeterminate:
			return "[-]"
		default:
			return "[ ]"
		}
	case CellLink:
		return st.Breadcrumb.Render(c.Text)
	case CellBadge:
		style := st.Status
		switch c.Badge {
		case "player":
			style = st.KindPlayer
		case "bot":
			style = st.KindBot
		case "admin":
			style = st.KindAdmin
		case "logic":
			style = st.KindLogic
		}
		return style.Render(c.Text)
	default:
		return c.Text
	}
}
