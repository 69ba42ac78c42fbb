package tui

import "github.com/charmbracelet/lipgloss"

var (
	ColorInk       = lipgloss.Color("#ECEFF4")
	ColorDim       = lipgloss.Color("#7B8290")
	ColorAccent    = lipgloss.Color("#A8B3C4")
	ColorAccentAlt = lipgloss.Color("#D8DEE9")
	ColorSuccess   = lipgloss.Color("#A3BE8C")
	ColorWarn      = lipgloss.Color("#EBCB8B")
)
