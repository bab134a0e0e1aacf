// Package tui is the interactive review loop over a saved scan.
package tui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"dupdrive/internal/dedupe"
)

// Decider applies and persists a review action for the session's current group.
type Decider interface {
	Decide(ws *dedupe.Workspace, action dedupe.ReviewAction, keepID string) (dedupe.Decision, bool, error)
}

// DriveLink returns the web link of a Drive file.
func DriveLink(id string) string {
	return "https://drive.google.com/file/d/" + id + "/view"
}

type inputMode int

const (
	modeBrowse inputMode = iota
	modeSearch
	modeJump
)

// Model is the Bubble Tea model of the review screen.
type Model struct {
	ws      *dedupe.Workspace
	decider Decider

	mode     inputMode
	input    textinput.Model
	selected int // member cursor for groups with more than two files
	message  string
	failed   bool
	width    int
	quitting bool
}

// New creates a review model over ws. Decisions go through decider.
func New(ws *dedupe.Workspace, decider Decider) Model {
	ti := textinput.New()
	ti.CharLimit = 200
	return Model{ws: ws, decider: decider, input: ti}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.quitting = true
			return m, tea.Quit
		}
		if m.mode != modeBrowse {
			return m.updateInput(msg)
		}
		return m.updateBrowse(msg)
	}
	return m, nil
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = modeBrowse
		m.input.Blur()
		return m, nil
	case tea.KeyEnter:
		value := strings.TrimSpace(m.input.Value())
		session := m.ws.Session
		switch m.mode {
		case modeSearch:
			session.Search(value)
			m.setMessage(fmt.Sprintf("Search %q: %d pending groups", value, len(session.FilteredIndices())), false)
		case modeJump:
			n, err := strconv.Atoi(value)
			if err != nil {
				m.setMessage(fmt.Sprintf("Not a group number: %q", value), true)
			} else {
				session.JumpTo(n)
			}
		}
		m.selected = 0
		m.mode = modeBrowse
		m.input.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateBrowse(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	session := m.ws.Session
	key := msg.String()

	switch key {
	case "q":
		m.quitting = true
		return m, tea.Quit
	case "n", "right", "l":
		session.Navigate(dedupe.Next)
		m.selected = 0
	case "p", "left", "h":
		session.Navigate(dedupe.Prev)
		m.selected = 0
	case "down", "j":
		if g, ok := session.Current(); ok {
			m.selected = min(m.cursor(g)+1, len(g.Files)-1)
		}
	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}
	case "f":
		session.SetFilter(session.Filter().Next())
		m.selected = 0
		m.setMessage("Showing "+string(session.Filter())+" groups", false)
	case "r":
		session.ApplyFilter()
		m.selected = 0
	case "/":
		m.startInput(modeSearch, "search: ", session.SearchTerm())
		return m, textinput.Blink
	case "g":
		m.startInput(modeJump, "go to group: ", "")
		return m, textinput.Blink
	case "a":
		m.decide(dedupe.KeepLeft, "")
	case "b":
		g, ok := session.Current()
		if ok && len(g.Files) > 2 {
			m.decide(dedupe.KeepSpecific, g.Files[m.cursor(g)].ID)
		} else {
			m.decide(dedupe.KeepRight, "")
		}
	case "s":
		m.decide(dedupe.Skip, "")
	default:
		if len(key) == 1 && key[0] >= '1' && key[0] <= '9' {
			m.keepNth(int(key[0] - '0'))
		}
	}
	return m, nil
}

func (m *Model) startInput(mode inputMode, prompt, value string) {
	m.mode = mode
	m.input.Prompt = prompt
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.input.Focus()
}

// cursor returns the member cursor clamped to g.
func (m *Model) cursor(g *dedupe.DuplicateGroup) int {
	if m.selected < 0 || m.selected >= len(g.Files) {
		m.selected = 0
	}
	return m.selected
}

func (m *Model) keepNth(n int) {
	g, ok := m.ws.Session.Current()
	if !ok {
		return
	}
	if n > len(g.Files) {
		m.setMessage(fmt.Sprintf("Group has no file %d", n), true)
		return
	}
	m.decide(dedupe.KeepSpecific, g.Files[n-1].ID)
}

func (m *Model) decide(action dedupe.ReviewAction, keepID string) {
	g, _ := m.ws.Session.Current()
	d, applied, err := m.decider.Decide(m.ws, action, keepID)
	if applied {
		// The session moved on to the next group.
		m.selected = 0
	}
	switch {
	case errors.Is(err, dedupe.ErrNoSecondMember):
		m.setMessage("This group has no second file", true)
		return
	case err != nil && applied:
		m.setMessage("Decision recorded, not saved: "+err.Error(), true)
		return
	case err != nil:
		m.setMessage("Decision rejected: "+err.Error(), true)
		return
	case !applied:
		m.setMessage("Nothing to decide", false)
		return
	}

	if d.IsSkip() {
		m.setMessage("Skipped", false)
		return
	}
	name := d.KeepID
	if g != nil {
		if f, ok := g.Member(d.KeepID); ok {
			name = f.Name
		}
	}
	m.setMessage(fmt.Sprintf("Keeping %s, %d marked for deletion", name, len(d.DeleteIDs)), false)
}

func (m *Model) setMessage(msg string, failed bool) {
	m.message = msg
	m.failed = failed
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	session := m.ws.Session
	var b strings.Builder

	b.WriteString(titleStyle.Render("dupdrive review"))
	filter := "filter: " + string(session.Filter())
	if term := session.SearchTerm(); term != "" {
		filter += fmt.Sprintf("  search: %q", term)
	}
	b.WriteString("  " + subtitleStyle.Render(filter) + "\n")

	st := m.ws.Stats()
	b.WriteString(statusBarStyle.Render(fmt.Sprintf("Pending: %d | Decided: %d | Skipped: %d | Total: %d",
		st.Pending, st.Decided, st.Skipped, len(m.ws.Scan.Groups))) + "\n\n")

	g, ok := session.Current()
	if !ok {
		b.WriteString(dimStyle.Render("No duplicates to review.") + "\n")
	} else {
		b.WriteString(m.renderGroup(g))
	}

	b.WriteString("\n")
	switch {
	case m.mode != modeBrowse:
		b.WriteString(m.input.View() + "\n")
	case m.message != "" && m.failed:
		b.WriteString(errorStyle.Render(m.message) + "\n")
	case m.message != "":
		b.WriteString(successStyle.Render(m.message) + "\n")
	default:
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("n/p next/prev  a/b keep first/second  1-9 keep file N  s skip  f filter  / search  g go to  r refresh  q quit"))
	return b.String()
}

func (m Model) renderGroup(g *dedupe.DuplicateGroup) string {
	session := m.ws.Session
	pos, total := session.Position()

	var b strings.Builder
	header := fmt.Sprintf("Group %d of %d | MD5: %s | %d files", pos, total, shortChecksum(g.Checksum), len(g.Files))
	if label := session.DecisionLabel(g); label != "" {
		header += " " + label
	}
	b.WriteString(selectedStyle.Render(header) + "\n")
	if g.Uncertain {
		b.WriteString(warnStyle.Render("Warning: Same MD5 but different sizes - review carefully!") + "\n")
	}
	b.WriteString("\n")

	multi := len(g.Files) > 2
	var boxes []string
	for i, f := range g.Files {
		tag := strconv.Itoa(i + 1)
		if !multi {
			tag = string(rune('A' + i))
		}
		marker := "  "
		if multi && i == m.cursor(g) {
			marker = selectedStyle.Render("> ")
		}
		lines := []string{
			marker + selectedStyle.Render(tag) + "  " + pathStyle.Render(f.Path),
			"    " + dimStyle.Render(fmt.Sprintf("%s  modified %s  %s", dedupe.FormatSize(f.Size), modifiedLabel(f.ModifiedTime), f.MimeType)),
			"    " + dimStyle.Render(DriveLink(f.ID)),
		}
		boxes = append(boxes, memberBoxStyle.Render(strings.Join(lines, "\n")))
	}

	if !multi && m.width >= 120 {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, boxes...) + "\n")
	} else {
		b.WriteString(lipgloss.JoinVertical(lipgloss.Left, boxes...) + "\n")
	}
	return b.String()
}

func shortChecksum(checksum string) string {
	if len(checksum) <= 16 {
		return checksum
	}
	return checksum[:16] + "..."
}

// modifiedLabel trims an RFC 3339 timestamp to "YYYY-MM-DD HH:MM:SS".
func modifiedLabel(ts string) string {
	if ts == "" {
		return "N/A"
	}
	if len(ts) > 19 {
		ts = ts[:19]
	}
	return strings.Replace(ts, "T", " ", 1)
}

// Run starts the review program on the alternate screen.
func Run(ws *dedupe.Workspace, decider Decider) error {
	p := tea.NewProgram(New(ws, decider), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
