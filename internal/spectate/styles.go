package spectate

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title    lipgloss.Style
	header   lipgloss.Style
	section  lipgloss.Style
	room     lipgloss.Style
	fixRoom  lipgloss.Style
	pathRoom lipgloss.Style
	crew     lipgloss.Style
	saboteur lipgloss.Style
	dead     lipgloss.Style
	watched  lipgloss.Style
	body     lipgloss.Style
	warning  lipgloss.Style
	event    lipgloss.Style
	faint    lipgloss.Style
	win      lipgloss.Style
	barFill  lipgloss.Style
	barEmpty lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:    lipgloss.NewStyle().Bold(true),
		header:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		section:  lipgloss.NewStyle().MarginTop(1),
		room:     lipgloss.NewStyle().Foreground(lipgloss.Color("250")).Width(16),
		fixRoom:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")).Width(16),
		pathRoom: lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Width(16),
		crew:     lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		saboteur: lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
		dead:     lipgloss.NewStyle().Faint(true).Strikethrough(true),
		watched:  lipgloss.NewStyle().Bold(true).Underline(true),
		body:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196")),
		warning:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		event:    lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		faint:    lipgloss.NewStyle().Faint(true),
		win:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("120")),
		barFill:  lipgloss.NewStyle().Foreground(lipgloss.Color("159")),
		barEmpty: lipgloss.NewStyle().Foreground(lipgloss.Color("238")),
	}
}
