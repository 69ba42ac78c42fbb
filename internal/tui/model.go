package tui

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"grayblend/internal/packager"
)

// Model renders a live progress bar for one packager.Run. It quits when
// the update channel is closed. Ctrl+C arrives as a key press while the
// terminal is in raw mode, so the model cancels the batch itself.
type Model struct {
	updates   <-chan packager.ProgressUpdate
	cancel    context.CancelFunc
	started   time.Time
	intensity int
	width     int
	last      packager.ProgressUpdate
	quitting  bool
}

type doneMsg struct{}

type updateMsg packager.ProgressUpdate

// NewModel builds the view for a batch of total items. cancel, when non-nil,
// is called on Ctrl+C.
func NewModel(updates <-chan packager.ProgressUpdate, cancel context.CancelFunc, total, intensity int) Model {
	return Model{
		updates:   updates,
		cancel:    cancel,
		started:   time.Now(),
		intensity: intensity,
		last:      packager.ProgressUpdate{Total: total},
	}
}

func (m Model) Init() tea.Cmd {
	return listenForUpdates(m.updates)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case updateMsg:
		m.last = packager.ProgressUpdate(msg)
		return m, listenForUpdates(m.updates)
	case doneMsg:
		m.quitting = true
		return m, tea.Quit
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			if m.cancel != nil {
				m.cancel()
			}
			m.quitting = true
			return m, tea.Quit
		}
		return m, nil
	default:
		return m, nil
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	barWidth := 40
	if m.width > 0 {
		barWidth = int(math.Min(60, float64(m.width-10)))
		if barWidth < 20 {
			barWidth = 20
		}
	}

	ratio := m.last.Fraction()
	elapsed := time.Since(m.started).Round(time.Millisecond)

	current := "waiting for first image"
	if m.last.Name != "" {
		current = m.last.Name
		if m.last.Err != nil {
			current += " (skipped)"
		}
	}

	lines := []string{
		titleStyle.Render(fmt.Sprintf("grayblend  G%d", m.intensity)),
		labelStyle.Render(fmt.Sprintf("Images: %d/%d", m.last.Completed, m.last.Total)) +
			dimStyle.Render(fmt.Sprintf("  failed:%d", m.last.Failed)),
		dimStyle.Render("Last: " + current),
		dimStyle.Render(fmt.Sprintf("Elapsed: %s", elapsed)),
		barStyle.Render(renderBar(barWidth, ratio)) + labelStyle.Render(fmt.Sprintf(" %3.0f%%", ratio*100)),
	}

	return strings.Join(lines, "\n")
}

func listenForUpdates(updates <-chan packager.ProgressUpdate) tea.Cmd {
	return func() tea.Msg {
		update, ok := <-updates
		if !ok {
			return doneMsg{}
		}
		return updateMsg(update)
	}
}

func renderBar(width int, ratio float64) string {
	filled := int(math.Round(ratio * float64(width)))
	filled = max(0, min(filled, width))
	return "[" + strings.Repeat("=", filled) + strings.Repeat(" ", width-filled) + "]"
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
	labelStyle = lipgloss.NewStyle().Foreground(ColorInk)
	barStyle   = lipgloss.NewStyle().Foreground(ColorAccentAlt)
	dimStyle   = lipgloss.NewStyle().Foreground(ColorDim)
)
