package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"dhlx/pkg/ddl"
)

type appState int

const (
	stateList appState = iota
	stateDetail
)

var (
	styleBase = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("240"))

	styleTitle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("99")).
			Padding(0, 1)

	styleHelp = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Padding(0, 1)

	styleDetail = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("214")).
			Padding(0, 2).
			MarginLeft(2)
)

type model struct {
	table   table.Model
	ip      *ddl.Interp
	entries []entry
	state   appState
	detail  string
	offset  int
	height  int
}

func newModel(ip *ddl.Interp, entries []entry) model {
	columns := []table.Column{
		{Title: "TYPE", Width: 12},
		{Title: "INDEX", Width: 6},
		{Title: "NAME", Width: 20},
		{Title: "FIELDS", Width: 48},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(toRows(entries)),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true).
		Foreground(lipgloss.Color("99"))
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return model{table: t, ip: ip, entries: entries, state: stateList, height: 15}
}

func toRows(entries []entry) []table.Row {
	rows := make([]table.Row, len(entries))
	for i, e := range entries {
		rows[i] = table.Row{e.Type, fmt.Sprintf("%d", e.Obj.Index()), e.Key(), summary(e.Obj, 48)}
	}
	return rows
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if ws, ok := msg.(tea.WindowSizeMsg); ok && ws.Height > 8 {
		m.height = ws.Height - 6
		m.table.SetHeight(m.height)
	}
	if m.state == stateDetail {
		return m.updateDetail(msg)
	}
	return m.updateList(msg)
}

func (m model) updateList(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "enter":
			if idx := m.table.Cursor(); idx >= 0 && idx < len(m.entries) {
				e := m.entries[idx]
				var sb strings.Builder
				dumpObject(&sb, m.ip, e.Key(), e.Obj, 0)
				m.detail = strings.TrimRight(sb.String(), "\n")
				m.offset = 0
				m.state = stateDetail
			}
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m model) updateDetail(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "esc", "enter", "backspace":
			m.state = stateList
		case "down", "j":
			if m.offset < strings.Count(m.detail, "\n") {
				m.offset++
			}
		case "up", "k":
			if m.offset > 0 {
				m.offset--
			}
		}
	}
	return m, nil
}

func (m model) View() string {
	title := styleTitle.Render(fmt.Sprintf("%s  [%s]  %d objects", strings.ToUpper(appName), m.ip.Opts.MapName, len(m.entries)))
	tableView := styleBase.Render(m.table.View())

	if m.state == stateDetail {
		lines := strings.Split(m.detail, "\n")[m.offset:]
		if len(lines) > m.height {
			lines = lines[:m.height]
		}
		help := styleHelp.Render("↑/↓  scroll    esc  back    q  quit")
		return title + "\n" + styleDetail.Render(strings.Join(lines, "\n")) + "\n" + help
	}

	var help string
	if len(m.entries) == 0 {
		help = styleHelp.Render("No indexed objects.  q  quit")
	} else {
		help = styleHelp.Render("↑/↓  navigate    enter  fields    q  quit")
	}
	return title + "\n" + tableView + "\n" + help
}
