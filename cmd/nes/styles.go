package main

import "github.com/charmbracelet/lipgloss"

type styles struct {
	title lipgloss.Style
	label lipgloss.Style
	value lipgloss.Style
	err   lipgloss.Style
	box   lipgloss.Style
}

func newStyles() styles {
	return styles{
		title: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.ANSIColor(7)).Background(lipgloss.ANSIColor(1)).Padding(0, 1),
		label: lipgloss.NewStyle().Foreground(lipgloss.ANSIColor(8)).Width(12),
		value: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.ANSIColor(6)),
		err:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.ANSIColor(7)).Background(lipgloss.ANSIColor(1)),
		box:   lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.ANSIColor(4)).Padding(0, 1),
	}
}

// summary renders a titled box of label/value rows.
func (s styles) summary(title string, rows [][2]string) string {
	lines := make([]string, 0, len(rows)+1)
	lines = append(lines, s.title.Render(title))
	for _, r := range rows {
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, s.label.Render(r[0]), s.value.Render(r[1])))
	}
	return s.box.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
