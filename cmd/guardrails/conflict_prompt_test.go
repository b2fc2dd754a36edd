package main

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
)

func TestConflictPromptModel_Navigation(t *testing.T) {
	t.Parallel()

	m := conflictPromptModel{path: ".ai/guardrails.yaml", candidates: []string{"alpha", "beta", "gamma"}}

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	got := next.(conflictPromptModel)
	assert.Equal(t, 1, got.cursor)

	next, _ = got.Update(tea.KeyMsg{Type: tea.KeyUp})
	got = next.(conflictPromptModel)
	assert.Equal(t, 0, got.cursor)
}

func TestConflictPromptModel_NavigationDoesNotUnderOrOverflow(t *testing.T) {
	t.Parallel()

	m := conflictPromptModel{path: ".ai/guardrails.yaml", candidates: []string{"alpha", "beta"}}

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 0, next.(conflictPromptModel).cursor)

	m.cursor = 1
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 1, next.(conflictPromptModel).cursor)
}

func TestConflictPromptModel_VimNavigation(t *testing.T) {
	t.Parallel()

	m := conflictPromptModel{path: ".ai/guardrails.yaml", candidates: []string{"alpha", "beta"}}

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}})
	got := next.(conflictPromptModel)
	assert.Equal(t, 1, got.cursor)

	next, _ = got.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'k'}})
	assert.Equal(t, 0, next.(conflictPromptModel).cursor)
}

func TestConflictPromptModel_SelectQuits(t *testing.T) {
	t.Parallel()

	m := conflictPromptModel{path: ".ai/guardrails.yaml", candidates: []string{"alpha", "beta"}, cursor: 1}

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	got := next.(conflictPromptModel)

	assert.Equal(t, "beta", got.chosen)
	assert.NotNil(t, cmd)
}

func TestConflictPromptModel_CancelQuits(t *testing.T) {
	t.Parallel()

	m := conflictPromptModel{path: ".ai/guardrails.yaml", candidates: []string{"alpha", "beta"}}

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	got := next.(conflictPromptModel)

	assert.True(t, got.cancelled)
	assert.NotNil(t, cmd)
}

func TestConflictPromptModel_View(t *testing.T) {
	t.Parallel()

	m := conflictPromptModel{path: ".ai/guardrails.yaml", candidates: []string{"alpha", "beta"}}

	view := m.View()
	assert.Contains(t, view, ".ai/guardrails.yaml")
	assert.Contains(t, view, "alpha")
	assert.Contains(t, view, "beta")
}

func TestConflictPromptModel_IgnoresNonKeyMsg(t *testing.T) {
	t.Parallel()

	m := conflictPromptModel{path: ".ai/guardrails.yaml", candidates: []string{"alpha"}}

	next, cmd := m.Update(tea.WindowSizeMsg{Width: 80, Height: 24})
	assert.Equal(t, m, next.(conflictPromptModel))
	assert.Nil(t, cmd)
}
