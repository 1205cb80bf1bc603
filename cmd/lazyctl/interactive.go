package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/wippyai/lazyload/manifest"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#98FB98"))

	fileStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type modelState int

const (
	stateBrowse modelState = iota
	stateDetail
)

type inspectModel struct {
	manifest *manifest.Manifest
	filename string
	ids      []string
	visible  []string
	filter   textinput.Model
	selected int
	state    modelState
}

func newInspectModel(filename string, m *manifest.Manifest) *inspectModel {
	ti := textinput.New()
	ti.Placeholder = "filter module ids"
	ti.Prompt = "/ "
	ti.Width = 40
	ti.Focus()

	ids := m.IDs()
	return &inspectModel{
		manifest: m,
		filename: filename,
		ids:      ids,
		visible:  ids,
		filter:   ti,
		state:    stateBrowse,
	}
}

func (m *inspectModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m *inspectModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "ctrl+c":
			return m, tea.Quit

		case "up":
			if m.state == stateBrowse && m.selected > 0 {
				m.selected--
			}
			return m, nil

		case "down":
			if m.state == stateBrowse && m.selected < len(m.visible)-1 {
				m.selected++
			}
			return m, nil

		case "enter":
			if m.state == stateBrowse && len(m.visible) > 0 {
				m.state = stateDetail
				m.filter.Blur()
			}
			return m, nil

		case "esc":
			if m.state == stateDetail {
				m.state = stateBrowse
				return m, m.filter.Focus()
			}
			return m, tea.Quit
		}
	}

	if m.state != stateBrowse {
		return m, nil
	}
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.applyFilter()
	return m, cmd
}

func (m *inspectModel) applyFilter() {
	q := strings.ToLower(strings.TrimSpace(m.filter.Value()))
	if q == "" {
		m.visible = m.ids
	} else {
		m.visible = nil
		for _, id := range m.ids {
			if strings.Contains(strings.ToLower(id), q) {
				m.visible = append(m.visible, id)
			}
		}
	}
	if m.selected >= len(m.visible) {
		m.selected = max(len(m.visible)-1, 0)
	}
}

func (m *inspectModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Lazy Manifest"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString("\n\n")

	switch m.state {
	case stateBrowse:
		b.WriteString(m.filter.View())
		b.WriteString("\n\n")
		if len(m.visible) == 0 {
			b.WriteString(helpStyle.Render("no matching entries"))
			b.WriteString("\n")
		}
		for i, id := range m.visible {
			line := fmt.Sprintf("%s (%d files)", id, len(m.manifest.Files(id)))
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + idStyle.Render(id) + fmt.Sprintf(" (%d files)", len(m.manifest.Files(id))))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("type to filter • ↑/↓ select • enter show files • esc quit"))

	case stateDetail:
		id := m.visible[m.selected]
		b.WriteString(fmt.Sprintf("Files for %s:\n\n", idStyle.Render(id)))
		for _, u := range m.manifest.AssetURLs(id) {
			b.WriteString("  ")
			b.WriteString(fileStyle.Render(u))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("esc back • ctrl+c quit"))
	}

	return b.String()
}

func runInteractive(filename string, m *manifest.Manifest) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("interactive mode requires a terminal")
	}
	p := tea.NewProgram(newInspectModel(filename, m), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
