package ui

import (
	"github.com/charmbracelet/lipgloss"
)

const (
	colorAccent = "#E8A33D" // label orange
	colorOK     = "#4FB477"
	colorErr    = "#E0524C"
	colorWarn   = "#D9C45B"
	colorMuted  = "#7A7A7A"
)

var styles = newPalette()

// palette names the lipgloss styles each view renders with.
type palette struct {
	title lipgloss.Style
	ok    lipgloss.Style
	err   lipgloss.Style
	warn  lipgloss.Style
	help  lipgloss.Style
	label lipgloss.Style
}

func newPalette() palette {
	fg := func(c string) lipgloss.Style {
		return lipgloss.NewStyle().Foreground(lipgloss.Color(c))
	}
	return palette{
		title: fg(colorAccent).Bold(true).MarginBottom(1),
		ok:    fg(colorOK).Bold(true),
		err:   fg(colorErr).Bold(true),
		warn:  fg(colorWarn),
		help:  fg(colorMuted).Italic(true),
		label: fg(colorMuted).Width(14),
	}
}
