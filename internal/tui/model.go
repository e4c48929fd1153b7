// Package tui is the terminal inbox browser.
package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/tOgg1/inapp/internal/models"
)

const (
	refreshInterval = 2 * time.Second
	chromeLines     = 4
)

// Inbox is the message source the browser reads and reports to.
type Inbox interface {
	InboxMessages() []*models.Message
	MarkRead(ctx context.Context, id string) error
	TrackOpen(ctx context.Context, id string, location models.Location) error
	TrackClose(ctx context.Context, id string, source models.CloseSource, clickedURL string, location models.Location) error
	Remove(ctx context.Context, id string, location models.Location) error
}

// SessionTracker receives inbox session lifecycle and visible rows.
type SessionTracker interface {
	StartSession(rows []models.RowInfo) (models.SessionStartInfo, error)
	UpdateVisibleRows(rows []models.RowInfo) error
	EndSession() (*models.SessionInfo, error)
}

// Config configures the browser.
type Config struct {
	Inbox    Inbox
	Sessions SessionTracker

	// OnSessionEnd receives the finished session summary.
	OnSessionEnd func(*models.SessionInfo)

	// Styles overrides DefaultStyles when set.
	Styles *Styles
}

type refreshMsg struct{}

// Model is the bubbletea model for the inbox browser.
type Model struct {
	ctx    context.Context
	cfg    Config
	styles Styles

	messages []*models.Message
	cursor   int
	offset   int
	width    int
	height   int

	opened  *models.Message
	started bool
	ended   bool
	err     error
}

// NewModel creates a browser model and loads the current inbox.
func NewModel(ctx context.Context, cfg Config) *Model {
	styles := DefaultStyles()
	if cfg.Styles != nil {
		styles = *cfg.Styles
	}
	m := &Model{ctx: ctx, cfg: cfg, styles: styles, height: 20, width: 80}
	m.reload()
	return m
}

// Init implements tea.Model. The session starts on the first
// WindowSizeMsg, once the number of visible rows is known.
func (m *Model) Init() tea.Cmd {
	return tickRefresh()
}

func tickRefresh() tea.Cmd {
	return tea.Tick(refreshInterval, func(time.Time) tea.Msg { return refreshMsg{} })
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.clampScroll()
		m.reportVisible()
		return m, nil
	case refreshMsg:
		m.reload()
		m.reportVisible()
		return m, tickRefresh()
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" || key == "q" {
		m.finish()
		return m, tea.Quit
	}

	if m.opened != nil {
		switch key {
		case "esc", "backspace", "left", "h":
			m.closeOpened()
		}
		return m, nil
	}

	switch key {
	case "up", "k":
		m.move(-1)
	case "down", "j":
		m.move(1)
	case "home", "g":
		m.move(-len(m.messages))
	case "end", "G":
		m.move(len(m.messages))
	case "enter", "right", "l":
		m.openSelected()
	case "r":
		if sel := m.selected(); sel != nil {
			m.setErr(m.cfg.Inbox.MarkRead(m.ctx, sel.ID))
			m.reload()
		}
	case "d", "delete":
		if sel := m.selected(); sel != nil {
			m.setErr(m.cfg.Inbox.Remove(m.ctx, sel.ID, models.LocationInbox))
			m.reload()
			m.reportVisible()
		}
	}
	return m, nil
}

func (m *Model) move(delta int) {
	if len(m.messages) == 0 {
		return
	}
	m.cursor += delta
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.cursor >= len(m.messages) {
		m.cursor = len(m.messages) - 1
	}
	m.clampScroll()
	m.reportVisible()
}

func (m *Model) openSelected() {
	sel := m.selected()
	if sel == nil {
		return
	}
	m.setErr(m.cfg.Inbox.TrackOpen(m.ctx, sel.ID, models.LocationInbox))
	if !sel.Read {
		m.setErr(m.cfg.Inbox.MarkRead(m.ctx, sel.ID))
	}
	m.opened = sel
	m.reportVisible()
}

func (m *Model) closeOpened() {
	m.setErr(m.cfg.Inbox.TrackClose(m.ctx, m.opened.ID, models.CloseSourceBack, "", models.LocationInbox))
	m.opened = nil
	m.reload()
	m.reportVisible()
}

func (m *Model) finish() {
	if m.ended || m.cfg.Sessions == nil || !m.started {
		m.ended = true
		return
	}
	m.ended = true
	info, err := m.cfg.Sessions.EndSession()
	if err != nil {
		m.setErr(err)
		return
	}
	if m.cfg.OnSessionEnd != nil {
		m.cfg.OnSessionEnd(info)
	}
}

// Finish ends the inbox session if the program exited without quitting.
func (m *Model) Finish() { m.finish() }

func (m *Model) reload() {
	var selectedID string
	if sel := m.selected(); sel != nil {
		selectedID = sel.ID
	}
	m.messages = m.cfg.Inbox.InboxMessages()
	m.cursor = 0
	for i, msg := range m.messages {
		if msg.ID == selectedID {
			m.cursor = i
			break
		}
	}
	if m.cursor >= len(m.messages) && len(m.messages) > 0 {
		m.cursor = len(m.messages) - 1
	}
	m.clampScroll()
}

func (m *Model) selected() *models.Message {
	if m.cursor < 0 || m.cursor >= len(m.messages) {
		return nil
	}
	return m.messages[m.cursor]
}

func (m *Model) listHeight() int {
	h := m.height - chromeLines
	if h < 1 {
		h = 1
	}
	return h
}

func (m *Model) clampScroll() {
	h := m.listHeight()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+h {
		m.offset = m.cursor - h + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

// VisibleRows returns the rows currently on screen. None are visible
// while a message is open.
func (m *Model) VisibleRows() []models.RowInfo {
	if m.opened != nil {
		return nil
	}
	end := m.offset + m.listHeight()
	if end > len(m.messages) {
		end = len(m.messages)
	}
	rows := make([]models.RowInfo, 0, end-m.offset)
	for _, msg := range m.messages[m.offset:end] {
		rows = append(rows, models.RowInfo{MessageID: msg.ID, SilentInbox: msg.SilentInbox})
	}
	return rows
}

func (m *Model) reportVisible() {
	if m.cfg.Sessions == nil || m.ended {
		return
	}
	rows := m.VisibleRows()
	if !m.started {
		_, err := m.cfg.Sessions.StartSession(rows)
		m.setErr(err)
		m.started = err == nil
		return
	}
	m.setErr(m.cfg.Sessions.UpdateVisibleRows(rows))
}

func (m *Model) setErr(err error) {
	if err != nil {
		m.err = err
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	st := m.styles
	var b strings.Builder

	unread := 0
	for _, msg := range m.messages {
		if !msg.Read {
			unread++
		}
	}
	b.WriteString(st.Title.Render(fmt.Sprintf("Inbox  %d messages, %d unread", len(m.messages), unread)))
	b.WriteString("\n\n")

	if m.opened != nil {
		b.WriteString(st.Detail.Width(max(m.width-2, 20)).Render(renderContent(m.opened)))
		b.WriteString("\n")
		b.WriteString(st.Muted.Render("esc back  q quit"))
		return b.String()
	}

	if len(m.messages) == 0 {
		b.WriteString(st.Muted.Render("No messages."))
		b.WriteString("\n")
	}

	end := m.offset + m.listHeight()
	if end > len(m.messages) {
		end = len(m.messages)
	}
	for i := m.offset; i < end; i++ {
		line := m.renderRow(m.messages[i])
		if i == m.cursor {
			line = st.Selected.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	if m.err != nil {
		b.WriteString(st.Error.Render(m.err.Error()))
		b.WriteString("\n")
	}
	b.WriteString(st.Muted.Render("↑/↓ move  enter open  r read  d delete  q quit"))
	return b.String()
}

func (m *Model) renderRow(msg *models.Message) string {
	st := m.styles
	marker := " "
	if !msg.Read {
		marker = st.Unread.Render("●")
	}
	pin := " "
	if msg.Pinned {
		pin = st.Pinned.Render("★")
	}
	title := msg.Title()
	if title == "" {
		title = msg.ID
	}
	when := ""
	if msg.CreatedAt != nil {
		when = st.Muted.Render(msg.CreatedAt.Local().Format("Jan 02 15:04"))
	}
	return fmt.Sprintf("%s %s %s  %s", marker, pin, title, when)
}

func renderContent(msg *models.Message) string {
	fields := msg.ContentFields()
	if fields == nil {
		return msg.ID
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	if title := msg.Title(); title != "" {
		b.WriteString(title)
		b.WriteString("\n\n")
	}
	for _, k := range keys {
		if s, ok := fields[k].(string); ok && s != msg.Title() {
			fmt.Fprintf(&b, "%s: %s\n", k, s)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
