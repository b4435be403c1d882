package present

import "github.com/charmbracelet/lipgloss"

// Styles are the shared output styles, built per renderer so colors degrade
// cleanly on non-TTY output.
type Styles struct {
	AppName      lipgloss.Style
	Comment      lipgloss.Style
	InlineCode   lipgloss.Style
	ID           lipgloss.Style
	Timeago      lipgloss.Style
	Bullet       lipgloss.Style
	FlagDesc     lipgloss.Style
	Link         lipgloss.Style
	Reasoning    lipgloss.Style
	ToolCall     lipgloss.Style
	Healthy      lipgloss.Style
	Unhealthy    lipgloss.Style
	ErrorHeader  lipgloss.Style
	ErrorDetails lipgloss.Style
	ErrPadding   lipgloss.Style
}

// MakeStyles builds the style set for a renderer.
func MakeStyles(r *lipgloss.Renderer) Styles {
	return Styles{
		AppName:      r.NewStyle().Bold(true),
		Comment:      r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#9C9C9C", Dark: "#5C5C5C"}),
		InlineCode:   r.NewStyle().Foreground(lipgloss.Color("#FF5F87")).Background(lipgloss.AdaptiveColor{Light: "#F2F2F2", Dark: "#3A3A3A"}).Padding(0, 1),
		ID:           r.NewStyle().Foreground(lipgloss.Color("#F1C069")),
		Timeago:      r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#999999", Dark: "#666666"}),
		Bullet:       r.NewStyle().SetString("•").Foreground(lipgloss.AdaptiveColor{Light: "#757575", Dark: "#777777"}).PaddingRight(1),
		FlagDesc:     r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#5C5C5C", Dark: "#9C9C9C"}),
		Link:         r.NewStyle().Foreground(lipgloss.Color("#00AF87")).Underline(true),
		Reasoning:    r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#9C9C9C", Dark: "#5C5C5C"}).Italic(true),
		ToolCall:     r.NewStyle().Foreground(lipgloss.Color("#6E8EFB")),
		Healthy:      r.NewStyle().Foreground(lipgloss.Color("#02BF87")),
		Unhealthy:    r.NewStyle().Foreground(lipgloss.Color("#FF4672")),
		ErrorHeader:  r.NewStyle().Foreground(lipgloss.Color("#F1F1F1")).Background(lipgloss.Color("#FF5F87")).Bold(true).Padding(0, 1).SetString("ERROR"),
		ErrorDetails: r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#9C9C9C", Dark: "#757575"}),
		ErrPadding:   r.NewStyle().Padding(0, 1),
	}
}
