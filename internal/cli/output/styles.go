package output

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Semantic color palette.
var (
	colorPrimary = lipgloss.Color("#00BFFF")
	colorAccent  = lipgloss.Color("#FFD700")
	colorSuccess = lipgloss.Color("#00E676")
	colorDanger  = lipgloss.Color("#FF5252")
	colorMuted   = lipgloss.Color("#8C8C8C")
)

// Styles holds the lipgloss styles used for text output.
type Styles struct {
	Header1       lipgloss.Style
	Header2       lipgloss.Style
	Bold          lipgloss.Style
	Muted         lipgloss.Style
	Success       lipgloss.Style
	Error         lipgloss.Style
	Warning       lipgloss.Style
	Key           lipgloss.Style
	StatusSuccess lipgloss.Style
	StatusFailed  lipgloss.Style
}

// NewStyles builds styles bound to a lipgloss renderer, so color support
// follows the renderer's output rather than the process stdout.
func NewStyles(lr *lipgloss.Renderer) Styles {
	return Styles{
		Header1:       lr.NewStyle().Bold(true).Foreground(colorPrimary),
		Header2:       lr.NewStyle().Bold(true),
		Bold:          lr.NewStyle().Bold(true),
		Muted:         lr.NewStyle().Foreground(colorMuted),
		Success:       lr.NewStyle().Foreground(colorSuccess),
		Error:         lr.NewStyle().Foreground(colorDanger).Bold(true),
		Warning:       lr.NewStyle().Foreground(colorAccent),
		Key:           lr.NewStyle().Foreground(colorMuted).Width(18),
		StatusSuccess: lr.NewStyle().Foreground(colorSuccess).SetString("✓"),
		StatusFailed:  lr.NewStyle().Foreground(colorDanger).SetString("✗"),
	}
}

// newLipglossRenderer returns a renderer for w. Non-terminals get the
// ASCII profile, which renders every style as plain text.
func newLipglossRenderer(w io.Writer, isTTY bool) *lipgloss.Renderer {
	if isTTY {
		return lipgloss.NewRenderer(w)
	}
	return lipgloss.NewRenderer(w, termenv.WithProfile(termenv.Ascii))
}
