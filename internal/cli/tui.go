// SPDX-License-Identifier: MIT
package cli

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
)

// model adapts a session to bubbletea: left click selects, right click deletes & the arrow
// keys resize the selection.
type model struct {
	s     *session
	width int
	err   error
}

func newModel(s *session) model { return model{s: s} }

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.s.setSize(msg.Width, msg.Height)

	case tea.MouseMsg:
		if msg.Action != tea.MouseActionPress {
			break
		}

		switch msg.Button {
		case tea.MouseButtonLeft:
			m.s.selectAt(msg.X, msg.Y)
		case tea.MouseButtonRight:
			m.err = m.s.deleteAt(msg.X, msg.Y)
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			m.err = m.s.resize(true)
		case "down", "j":
			m.err = m.s.resize(false)
		}
	}

	return m, nil
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(paint(m.s.tiles, m.s.display, m.s.selected))
	if m.s.display.H > 0 {
		b.WriteByte('\n')
	}

	status := m.s.status()
	if m.err != nil {
		status = m.err.Error()
	}

	// Clip to the screen, the line would wrap otherwise.
	if runes := []rune(status); m.width > 0 && len(runes) > m.width {
		status = string(runes[:m.width])
	}
	b.WriteString(statusStyle.Width(m.width).Render(status))

	return b.String()
}
