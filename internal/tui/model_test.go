package tui

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grayblend/internal/packager"
)

func TestModel_TracksLatestUpdate(t *testing.T) {
	updates := make(chan packager.ProgressUpdate, 2)
	m := NewModel(updates, nil, 4, 42)

	next, cmd := m.Update(updateMsg{Completed: 1, Total: 4, Name: "a.png"})
	require.NotNil(t, cmd)
	m = next.(Model)
	next, _ = m.Update(updateMsg{Completed: 2, Failed: 1, Total: 4, Name: "b.png", Err: errors.New("bad")})
	m = next.(Model)

	view := m.View()
	assert.Contains(t, view, "G42")
	assert.Contains(t, view, "Images: 2/4")
	assert.Contains(t, view, "failed:1")
	assert.Contains(t, view, "b.png (skipped)")
	assert.Contains(t, view, "50%")
}

func TestModel_InitialView(t *testing.T) {
	m := NewModel(nil, nil, 3, 0)
	view := m.View()
	assert.Contains(t, view, "Images: 0/3")
	assert.Contains(t, view, "waiting for first image")
}

func TestModel_QuitsWhenChannelCloses(t *testing.T) {
	updates := make(chan packager.ProgressUpdate)
	close(updates)

	m := NewModel(updates, nil, 1, 10)
	msg := m.Init()()
	assert.Equal(t, doneMsg{}, msg)

	next, cmd := m.Update(msg)
	require.NotNil(t, cmd)
	assert.Empty(t, next.(Model).View())
}

func TestModel_ForwardsUpdatesFromChannel(t *testing.T) {
	updates := make(chan packager.ProgressUpdate, 1)
	updates <- packager.ProgressUpdate{Completed: 1, Total: 1, Name: "x.png"}

	msg := listenForUpdates(updates)()
	assert.Equal(t, updateMsg{Completed: 1, Total: 1, Name: "x.png"}, msg)
}

func TestModel_CtrlCCancelsBatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := NewModel(nil, cancel, 5, 30)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, next.(Model).View())
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestModel_OtherKeysKeepRunning(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := NewModel(nil, cancel, 5, 30)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	assert.Nil(t, cmd)
	assert.NoError(t, ctx.Err())
}

func TestModel_WindowSize(t *testing.T) {
	m := NewModel(nil, nil, 1, 0)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 200})
	// Bar is capped at 60 cells plus brackets.
	assert.Contains(t, next.(Model).View(), "["+spaces(60)+"]")
}

func TestRenderBar(t *testing.T) {
	assert.Equal(t, "[=====     ]", renderBar(10, 0.5))
	assert.Equal(t, "[==========]", renderBar(10, 1.5))
	assert.Equal(t, "[          ]", renderBar(10, -1))
}

func spaces(n int) string {
	s := make([]byte, n)
	for i := range s {
		s[i] = ' '
	}
	return string(s)
}
