package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Tone colors a summary value.
type Tone int

const (
	ToneNormal Tone = iota
	ToneGood
	ToneWarn
)

type SummaryRow struct {
	Label string
	Value string
	Tone  Tone
}

// RenderSummary lays rows out as a two-column table framed by rules.
func RenderSummary(rows []SummaryRow) string {
	labelWidth := 0
	valueWidth := 0
	for _, row := range rows {
		labelWidth = max(labelWidth, lipgloss.Width(row.Label))
		valueWidth = max(valueWidth, lipgloss.Width(row.Value))
	}

	hline := dimStyle.Render(strings.Repeat("-", labelWidth+valueWidth+3))
	lines := []string{hline}

	for _, row := range rows {
		label := padRight(row.Label, labelWidth)
		value := padRight(row.Value, valueWidth)
		lines = append(lines, fmt.Sprintf("%s | %s", labelStyle.Render(label), toneStyle(row.Tone).Render(value)))
	}

	lines = append(lines, hline)
	return strings.Join(lines, "\n")
}

// RenderFailures lists skipped inputs with their reason, one per line.
func RenderFailures(items []FailedItem) string {
	if len(items) == 0 {
		return ""
	}
	lines := []string{warnStyle.Render(fmt.Sprintf("Skipped %d image(s):", len(items)))}
	for _, item := range items {
		lines = append(lines, fmt.Sprintf("  %s %s %s",
			dimStyle.Render("-"),
			fileStyle.Render(item.Name),
			dimStyle.Render(item.Reason),
		))
	}
	return strings.Join(lines, "\n")
}

// FailedItem is a display row for an input that produced no output.
type FailedItem struct {
	Name   string
	Reason string
}

func padRight(s string, width int) string {
	w := lipgloss.Width(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}

func toneStyle(t Tone) lipgloss.Style {
	switch t {
	case ToneGood:
		return goodStyle
	case ToneWarn:
		return warnStyle
	default:
		return valueStyle
	}
}

var (
	valueStyle = lipgloss.NewStyle().Foreground(ColorInk).Bold(true)
	goodStyle  = lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(ColorWarn).Bold(true)
	fileStyle  = lipgloss.NewStyle().Foreground(ColorAccent)
)
