package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/dd0wney/synthgraph/pkg/library"
)

func newBrowseCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "browse",
		Short: "Browse the definition library interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			lib, err := a.library()
			if err != nil {
				return err
			}
			m, err := newBrowser(lib)
			if err != nil {
				return err
			}
			p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithOutput(a.out))
			_, err = p.Run()
			return err
		},
	}
}

type browserKeyMap struct {
	Open   key.Binding
	Back   key.Binding
	Delete key.Binding
	Quit   key.Binding
	Up     key.Binding
	Down   key.Binding
}

var browserKeys = browserKeyMap{
	Open: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "open"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc", "backspace"),
		key.WithHelp("esc", "back"),
	),
	Delete: key.NewBinding(
		key.WithKeys("d"),
		key.WithHelp("d", "delete"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
}

func (k browserKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Open, k.Back, k.Delete, k.Quit}
}

func (k browserKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Open, k.Back},
		{k.Delete, k.Quit},
	}
}

// browser lists library entries and shows one definition at a time
type browser struct {
	lib      *library.Library
	entries  []library.Entry
	table    table.Model
	detail   viewport.Model
	showing  bool
	help     help.Model
	keys     browserKeyMap
	message  string
	errorMsg bool
}

func newBrowser(lib *library.Library) (browser, error) {
	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Name", Width: 32},
			{Title: "Bytes", Width: 8},
			{Title: "Format", Width: 8},
			{Title: "Modified", Width: 20},
		}),
		table.WithFocused(true),
		table.WithHeight(12),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#00FFFF")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(lipgloss.Color("#FF00FF")).
		Bold(false)
	t.SetStyles(s)

	b := browser{
		lib:    lib,
		table:  t,
		detail: viewport.New(80, 20),
		help:   help.New(),
		keys:   browserKeys,
	}
	if err := b.reload(); err != nil {
		return browser{}, err
	}
	return b, nil
}

func (b *browser) reload() error {
	entries, err := b.lib.List()
	if err != nil {
		return err
	}
	b.entries = entries

	rows := make([]table.Row, len(entries))
	for i, e := range entries {
		format := "plain"
		if e.Compressed {
			format = "snappy"
		}
		rows[i] = table.Row{e.Name, fmt.Sprintf("%d", e.Size), format, e.ModTime.Format("2006-01-02 15:04:05")}
	}
	b.table.SetRows(rows)
	if c := b.table.Cursor(); c >= len(rows) && len(rows) > 0 {
		b.table.SetCursor(len(rows) - 1)
	}
	return nil
}

func (b browser) selected() (library.Entry, bool) {
	c := b.table.Cursor()
	if c < 0 || c >= len(b.entries) {
		return library.Entry{}, false
	}
	return b.entries[c], true
}

func (b browser) Init() tea.Cmd {
	return nil
}

func (b browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		b.help.Width = msg.Width
		b.detail.Width = msg.Width
		b.detail.Height = max(msg.Height-4, 1)
		b.table.SetHeight(max(msg.Height-6, 1))
		return b, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, b.keys.Quit):
			return b, tea.Quit

		case b.showing && key.Matches(msg, b.keys.Back):
			b.showing = false
			return b, nil

		case !b.showing && key.Matches(msg, b.keys.Open):
			e, ok := b.selected()
			if !ok {
				return b, nil
			}
			g, err := b.lib.Load(e.Name)
			if err != nil {
				b.message, b.errorMsg = err.Error(), true
				return b, nil
			}
			b.detail.SetContent(renderDefinition(g))
			b.detail.GotoTop()
			b.showing = true
			b.message = ""
			return b, nil

		case !b.showing && key.Matches(msg, b.keys.Delete):
			e, ok := b.selected()
			if !ok {
				return b, nil
			}
			if err := b.lib.Delete(e.Name); err != nil {
				b.message, b.errorMsg = err.Error(), true
				return b, nil
			}
			b.message, b.errorMsg = "deleted "+e.Name, false
			if err := b.reload(); err != nil {
				b.message, b.errorMsg = err.Error(), true
			}
			return b, nil
		}
	}

	if b.showing {
		b.detail, cmd = b.detail.Update(msg)
	} else {
		b.table, cmd = b.table.Update(msg)
	}
	return b, cmd
}

func (b browser) View() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("synthdef library"))
	sb.WriteString(dimStyle.Render("  " + b.lib.Dir()))
	sb.WriteString("\n\n")

	switch {
	case b.showing:
		sb.WriteString(b.detail.View())
	case len(b.entries) == 0:
		sb.WriteString(dimStyle.Render("library is empty"))
	default:
		sb.WriteString(b.table.View())
	}
	sb.WriteString("\n")

	if b.message != "" {
		style := successStyle
		if b.errorMsg {
			style = errorStyle
		}
		sb.WriteString(style.Render(b.message) + "\n")
	}
	sb.WriteString(b.help.View(b.keys))
	return sb.String()
}
