// Package tui is the terminal player: a bubbletea program that renders
// session snapshots and maps keys to controller commands.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/claude/circuit/internal/session"
	"github.com/claude/circuit/internal/view"
)

type page int

const (
	pagePlayer page = iota
	pageHistory
)

// requestTimeout bounds each persistence call made from the UI.
const requestTimeout = 15 * time.Second

type loadedMsg struct{ err error }

type completedMsg struct{ err error }

type Model struct {
	ctrl     *session.Controller
	notifier *Notifier

	state  session.State
	page   page
	cursor int
	busy   bool // a persistence call is in flight

	width    int
	height   int
	quitting bool
}

// NewModel creates the player model. notifier may be nil when snapshots are
// only read after commands (tests).
func NewModel(ctrl *session.Controller, notifier *Notifier) Model {
	return Model{
		ctrl:     ctrl,
		notifier: notifier,
		state:    ctrl.Snapshot(),
		width:    100,
		height:   32,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.load(false), m.wait())
}

func (m Model) wait() tea.Cmd {
	if m.notifier == nil {
		return nil
	}
	return m.notifier.Wait()
}

func (m Model) load(announce bool) tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return loadedMsg{err: ctrl.Load(ctx, announce)}
	}
}

func (m Model) confirm() tea.Cmd {
	ctrl := m.ctrl
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		return completedMsg{err: ctrl.ConfirmCompletion(ctx)}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case StateMsg:
		m.state = session.State(msg)
		m.syncCursor()
		return m, m.wait()

	case loadedMsg:
		m.busy = false
		m.refresh()
		return m, nil

	case completedMsg:
		m.busy = false
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		if m.page == pageHistory {
			return m.updateHistory(msg)
		}
		return m.updatePlayer(msg)
	}
	return m, nil
}

func (m Model) updatePlayer(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	controls := view.Render(m.state).Controls

	switch msg.String() {
	case "q", "ctrl+c":
		m.ctrl.Pause()
		m.quitting = true
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case "down", "j":
		if m.cursor < len(m.state.Workouts)-1 {
			m.cursor++
		}
		return m, nil

	case "enter":
		m.ctrl.Select(m.cursor)

	case "s":
		if controls.ResumeFromPlan {
			m.ctrl.ResumeFromPlan()
		} else {
			m.ctrl.Start()
		}

	case "p", " ":
		if controls.Resume {
			m.ctrl.Resume()
		} else {
			m.ctrl.Pause()
		}

	case "v":
		if m.state.ViewMode == session.ViewLive && controls.BackToPlan {
			m.ctrl.BackToPlan()
		} else if controls.ResumeFromPlan {
			m.ctrl.ResumeFromPlan()
		}

	case "b", "left":
		m.ctrl.Back()

	case "n", "right":
		m.ctrl.Skip()

	case "r":
		m.ctrl.Reset()

	case "c":
		if controls.Confirm && !m.busy {
			m.busy = true
			return m, m.confirm()
		}
		return m, nil

	case "l":
		if !m.busy {
			m.busy = true
			return m, m.load(true)
		}
		return m, nil

	case "h":
		m.page = pageHistory
		return m, nil

	default:
		return m, nil
	}

	m.refresh()
	return m, nil
}

func (m Model) updateHistory(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.ctrl.Pause()
		m.quitting = true
		return m, tea.Quit
	case "h", "esc":
		m.page = pagePlayer
	case "l":
		if !m.busy {
			m.busy = true
			return m, m.load(true)
		}
	}
	return m, nil
}

// refresh reads the controller directly so a key's effect is visible before
// the notifier delivers its snapshot.
func (m *Model) refresh() {
	m.state = m.ctrl.Snapshot()
	m.syncCursor()
}

func (m *Model) syncCursor() {
	n := len(m.state.Workouts)
	switch {
	case n == 0:
		m.cursor = 0
	case m.cursor >= n:
		m.cursor = n - 1
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	vm := view.Render(m.state)

	var body string
	if m.page == pageHistory {
		body = m.viewHistory()
	} else {
		list := m.viewList(vm)
		var main string
		if vm.Mode == session.ViewLive {
			main = m.viewLive(vm)
		} else {
			main = m.viewPlan(vm)
		}
		listWidth := min(36, m.width/3)
		body = lipgloss.JoinHorizontal(lipgloss.Top,
			paneStyle.Width(listWidth).Render(list),
			paneStyle.Width(max(m.width-listWidth-6, 20)).Render(main),
		)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("circuit"),
		body,
		m.viewStatus(vm),
		m.viewHelp(vm),
	)
}

func (m Model) viewList(vm view.ViewModel) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Workouts"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(vm.ListSummary))
	b.WriteString("\n\n")
	if vm.ListEmpty != "" {
		b.WriteString(dimStyle.Render(vm.ListEmpty))
		return b.String()
	}
	for i, item := range vm.Workouts {
		marker := "  "
		if item.Selected {
			marker = "> "
		}
		line := fmt.Sprintf("%s%s  %s", marker, item.Date, item.Title)
		if i == m.cursor {
			b.WriteString(selectedStyle.Render(line))
		} else {
			b.WriteString(normalStyle.Render(line))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) viewPlan(vm view.ViewModel) string {
	p := vm.Plan
	var b strings.Builder
	b.WriteString(exerciseStyle.Render(p.Title))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(p.Meta))
	b.WriteString("\n")
	if p.Description != "" {
		b.WriteString(p.Description)
		b.WriteString("\n")
	}
	b.WriteString("Estimated: " + p.Duration + "\n\n")

	if p.Empty != "" {
		b.WriteString(dimStyle.Render(p.Empty))
		return b.String()
	}
	for _, ex := range p.Exercises {
		b.WriteString(exerciseStyle.Render(ex.Name))
		b.WriteString("\n  ")
		b.WriteString(dimStyle.Render(ex.Metrics))
		b.WriteString("\n")
		for _, note := range ex.Notes {
			b.WriteString("  - " + note + "\n")
		}
	}
	return b.String()
}

func (m Model) viewLive(vm view.ViewModel) string {
	var b strings.Builder
	b.WriteString(badgeStyle(string(vm.Badge)).Render(string(vm.Badge)))
	b.WriteString("  ")
	b.WriteString(vm.Round)
	b.WriteString("\n")
	b.WriteString(clockStyle.Render(vm.Clock))
	b.WriteString("\n")
	b.WriteString(exerciseStyle.Render(vm.ExerciseName))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(vm.ExerciseDetail))
	b.WriteString("\n\n")
	for _, line := range vm.Instructions {
		b.WriteString("- " + line + "\n")
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(vm.Next))
	return b.String()
}

func (m Model) viewHistory() string {
	h := view.History(m.state.Completed)
	var b strings.Builder
	b.WriteString(headerStyle.Render("Completed Workouts"))
	b.WriteString("  ")
	b.WriteString(dimStyle.Render(h.Count))
	b.WriteString("\n\n")
	if h.Empty != "" {
		b.WriteString(dimStyle.Render(h.Empty))
		return paneStyle.Width(max(m.width-4, 20)).Render(b.String())
	}
	b.WriteString(dimStyle.Render(fmt.Sprintf("%-10s %-10s %-28s %-10s %s", "Day", "Date", "Workout", "Scheduled", "Completed at")))
	b.WriteString("\n")
	for _, r := range h.Rows {
		b.WriteString(fmt.Sprintf("%-10s %-10s %-28s %-10s %s\n", r.Day, r.Date, r.Title, r.ScheduledDate, r.CompletedAt))
	}
	return paneStyle.Width(max(m.width-4, 20)).Render(b.String())
}

func (m Model) viewStatus(vm view.ViewModel) string {
	width := max(m.width-2, 10)
	switch {
	case m.busy:
		return statusBarStyle.Width(width).Render("Working...")
	case vm.StatusIsErr:
		return errorBarStyle.Width(width).Render(vm.Status)
	default:
		return statusBarStyle.Width(width).Render(vm.Status)
	}
}

type binding struct {
	key, label string
	enabled    bool
}

func (m Model) viewHelp(vm view.ViewModel) string {
	if m.page == pageHistory {
		return helpStyle.Render(keyStyle.Render("h") + " player  " + keyStyle.Render("l") + " reload  " + keyStyle.Render("q") + " quit")
	}
	c := vm.Controls
	bindings := []binding{
		{"↑/↓ enter", "select", len(vm.Workouts) > 0},
		{"s", "start", c.Start},
		{"s", "resume", c.ResumeFromPlan},
		{"p", "pause", c.Pause},
		{"p", "resume", c.Resume},
		{"v", "plan", c.BackToPlan},
		{"b", "back", c.Back},
		{"n", "skip", c.Skip},
		{"r", "reset", c.Reset},
		{"c", "confirm complete", c.Confirm},
		{"l", "reload", true},
		{"h", "history", true},
		{"q", "quit", true},
	}
	var parts []string
	for _, bd := range bindings {
		if bd.enabled {
			parts = append(parts, keyStyle.Render(bd.key)+" "+bd.label)
		}
	}
	return helpStyle.Render(strings.Join(parts, "  "))
}
