// Package tui is an interactive terminal browser for the items API.
package tui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vyrodovalexey/items-api/internal/model"
)

// API is the subset of the items client the browser needs.
type API interface {
	List(ctx context.Context) ([]model.Item, error)
	Create(ctx context.Context, name, description string) (*model.Item, error)
	Update(ctx context.Context, id string, patch model.ItemPatch) (*model.Item, error)
	Delete(ctx context.Context, id string) (*model.Item, error)
}

// Run starts the browser on the alternate screen and blocks until the user
// quits.
func Run(ctx context.Context, api API) error {
	p := tea.NewProgram(New(ctx, api), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

var errEmptyName = errors.New("name cannot be empty")

// mode is what the key handler is currently doing.
type mode int

const (
	modeBrowse mode = iota
	modeName
	modeDescription
	modeConfirmDelete
)

type (
	itemsLoadedMsg struct {
		items []model.Item
		err   error
	}
	mutationDoneMsg struct {
		status string
		err    error
	}
)

// listItem adapts model.Item to list.Item.
type listItem struct {
	item model.Item
}

func (i listItem) Title() string       { return i.item.Name }
func (i listItem) Description() string { return i.item.Description }
func (i listItem) FilterValue() string { return i.item.Name + " " + i.item.Description }

// itemDelegate renders one item per line.
type itemDelegate struct{}

func (d itemDelegate) Height() int                             { return 1 }
func (d itemDelegate) Spacing() int                            { return 0 }
func (d itemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, ok := item.(listItem)
	if !ok {
		return
	}

	line := it.item.Name
	if it.item.Description != "" {
		line += "  " + mutedStyle.Render(it.item.Description)
	}

	prefix := "  "
	if index == m.Index() {
		prefix = selectedStyle.Render("> ")
	}
	fmt.Fprintln(w, prefix+line)
}

var (
	addKey     = key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add"))
	editKey    = key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit"))
	deleteKey  = key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete"))
	refreshKey = key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh"))
)

// Model is the bubbletea model of the browser.
type Model struct {
	ctx  context.Context
	api  API
	list list.Model
	ti   textinput.Model

	mode    mode
	editID  string // empty while adding
	name    string // name captured before the description step
	loading bool
	status  string
	err     error
	width   int
	height  int
}

// New creates the browser model. Items are fetched by Init.
func New(ctx context.Context, api API) Model {
	l := list.New(nil, itemDelegate{}, 0, 0)
	l.Title = titleStyle.Render("Items")
	l.SetShowHelp(true)
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.SetStatusBarItemName("item", "items")
	l.Styles.Title = titleStyle
	l.Styles.HelpStyle = helpStyle
	l.FilterInput.Prompt = "/ "
	extra := func() []key.Binding { return []key.Binding{addKey, editKey, deleteKey, refreshKey} }
	l.AdditionalShortHelpKeys = extra
	l.AdditionalFullHelpKeys = extra

	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 200

	return Model{
		ctx:     ctx,
		api:     api,
		list:    l,
		ti:      ti,
		loading: true,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return m.load()
}

func (m Model) load() tea.Cmd {
	return func() tea.Msg {
		items, err := m.api.List(m.ctx)
		return itemsLoadedMsg{items: items, err: err}
	}
}

// Items returns the items currently shown.
func (m Model) Items() []model.Item {
	out := make([]model.Item, 0, len(m.list.Items()))
	for _, it := range m.list.Items() {
		if li, ok := it.(listItem); ok {
			out = append(out, li.item)
		}
	}
	return out
}

// Err returns the last error reported by the API.
func (m Model) Err() error {
	return m.err
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.list.SetSize(msg.Width-4, msg.Height-6)
		return m, nil

	case itemsLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		li := make([]list.Item, 0, len(msg.items))
		for _, it := range msg.items {
			li = append(li, listItem{item: it})
		}
		return m, m.list.SetItems(li)

	case mutationDoneMsg:
		if msg.err != nil {
			m.err = msg.err
			m.status = ""
			return m, nil
		}
		m.err = nil
		m.status = msg.status
		m.loading = true
		return m, m.load()

	case tea.KeyMsg:
		switch m.mode {
		case modeName, modeDescription:
			return m.updateInput(msg)
		case modeConfirmDelete:
			return m.updateConfirm(msg)
		}
		if m.list.FilterState() != list.Filtering {
			if next, cmd, handled := m.updateBrowse(msg); handled {
				return next, cmd
			}
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// updateBrowse handles the item keys. Unhandled keys fall through to the list.
func (m Model) updateBrowse(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	switch {
	case key.Matches(msg, addKey):
		m.editID = ""
		m.name = ""
		return m.startInput(modeName, "", "Name"), textinput.Blink, true

	case key.Matches(msg, editKey):
		it, ok := m.selected()
		if !ok {
			return m, nil, true
		}
		m.editID = it.ID
		m.name = ""
		return m.startInput(modeName, it.Name, "Name"), textinput.Blink, true

	case key.Matches(msg, deleteKey):
		if _, ok := m.selected(); !ok {
			return m, nil, true
		}
		m.mode = modeConfirmDelete
		return m, nil, true

	case key.Matches(msg, refreshKey):
		m.loading = true
		m.status = ""
		return m, m.load(), true
	}
	return m, nil, false
}

// updateInput drives the two-step name then description prompt.
func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = modeBrowse
		m.ti.Blur()
		m.ti.SetValue("")
		m.err = nil
		return m, nil

	case tea.KeyEnter:
		value := strings.TrimSpace(m.ti.Value())
		if m.mode == modeName {
			if value == "" {
				m.err = errEmptyName
				return m, nil
			}
			m.err = nil
			m.name = value
			description := ""
			if it, ok := m.selected(); ok && m.editID != "" {
				description = it.Description
			}
			return m.startInput(modeDescription, description, "Description"), nil
		}

		m.mode = modeBrowse
		m.ti.Blur()
		m.ti.SetValue("")
		return m, m.save(m.editID, m.name, value)
	}

	var cmd tea.Cmd
	m.ti, cmd = m.ti.Update(msg)
	return m, cmd
}

// updateConfirm deletes the selected item on "y" and cancels on anything else.
func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.mode = modeBrowse
	if msg.String() != "y" {
		return m, nil
	}
	it, ok := m.selected()
	if !ok {
		return m, nil
	}
	id, name := it.ID, it.Name
	return m, func() tea.Msg {
		_, err := m.api.Delete(m.ctx, id)
		return mutationDoneMsg{status: "deleted " + name, err: err}
	}
}

func (m Model) startInput(next mode, value, placeholder string) Model {
	m.mode = next
	m.ti.Placeholder = placeholder
	m.ti.SetValue(value)
	m.ti.CursorEnd()
	m.ti.Focus()
	return m
}

// save creates a new item when id is empty and updates it otherwise.
func (m Model) save(id, name, description string) tea.Cmd {
	return func() tea.Msg {
		if id == "" {
			_, err := m.api.Create(m.ctx, name, description)
			return mutationDoneMsg{status: "added " + name, err: err}
		}
		_, err := m.api.Update(m.ctx, id, model.ItemPatch{Name: &name, Description: &description})
		return mutationDoneMsg{status: "updated " + name, err: err}
	}
}

func (m Model) selected() (model.Item, bool) {
	it, ok := m.list.SelectedItem().(listItem)
	if !ok {
		return model.Item{}, false
	}
	return it.item, true
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.list.View())

	switch m.mode {
	case modeName, modeDescription:
		heading := "Add item"
		if m.editID != "" {
			heading = "Edit item"
		}
		b.WriteString("\n")
		b.WriteString(panelStyle.Render(accentStyle.Render(heading) + "\n" + m.ti.View()))
	case modeConfirmDelete:
		if it, ok := m.selected(); ok {
			b.WriteString("\n")
			b.WriteString(errorStyle.Render(fmt.Sprintf("Delete %q? (y/N)", it.Name)))
		}
	}

	b.WriteString("\n")
	switch {
	case m.err != nil:
		b.WriteString(errorStyle.Render("✖ " + m.err.Error()))
	case m.loading:
		b.WriteString(mutedStyle.Render("loading..."))
	case m.status != "":
		b.WriteString(successStyle.Render("✔ " + m.status))
	}

	return panelStyle.Render(b.String())
}
