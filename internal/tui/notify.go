package tui

import (
	"io"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/claude/circuit/internal/session"
)

// StateMsg carries a controller snapshot into the program.
type StateMsg session.State

// Notifier hands controller snapshots to the program. Listen never blocks, so
// it is safe to call from Update as well as from the clock goroutine; bursts
// collapse to the latest snapshot.
type Notifier struct {
	mu      sync.Mutex
	latest  session.State
	pending chan struct{}
}

func NewNotifier() *Notifier {
	return &Notifier{pending: make(chan struct{}, 1)}
}

// Listen is a session listener for session.WithListener.
func (n *Notifier) Listen(s session.State) {
	n.mu.Lock()
	n.latest = s
	n.mu.Unlock()
	select {
	case n.pending <- struct{}{}:
	default:
	}
}

// Wait returns a command that delivers the next snapshot.
func (n *Notifier) Wait() tea.Cmd {
	return func() tea.Msg {
		<-n.pending
		n.mu.Lock()
		defer n.mu.Unlock()
		return StateMsg(n.latest)
	}
}

// Bell is an Alerter that rings the terminal bell. Write errors are ignored.
type Bell struct {
	W io.Writer
}

func (b Bell) Alert() {
	_, _ = b.W.Write([]byte("\a"))
}
