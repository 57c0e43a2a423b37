package report

import "github.com/charmbracelet/lipgloss"

// Palette shared by the table renderer and the progress TUI.
const (
	ColorHeader    = lipgloss.Color("205")
	ColorLabel     = lipgloss.Color("245")
	ColorValue     = lipgloss.Color("255")
	ColorMuted     = lipgloss.Color("240")
	ColorBorder    = lipgloss.Color("238")
	ColorOK        = lipgloss.Color("42")
	ColorWarning   = lipgloss.Color("214")
	ColorHighlight = lipgloss.Color("81")
)

// Styles is a set of lipgloss styles bound to one renderer. Output written to
// a non-terminal gets no colour.
type Styles struct {
	Header lipgloss.Style
	Label  lipgloss.Style
	Value  lipgloss.Style
	Muted  lipgloss.Style
	Border lipgloss.Style
	Cell   lipgloss.Style
}

// NewStyles derives styles from r.
func NewStyles(r *lipgloss.Renderer) Styles {
	return Styles{
		Header: r.NewStyle().Foreground(ColorHeader).Bold(true),
		Label:  r.NewStyle().Foreground(ColorLabel),
		Value:  r.NewStyle().Foreground(ColorValue).Bold(true),
		Muted:  r.NewStyle().Foreground(ColorMuted).Italic(true),
		Border: r.NewStyle().Foreground(ColorBorder),
		Cell:   r.NewStyle().Padding(0, 1),
	}
}
