package notify

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

var (
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	failureStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("39"))
	timeStyle    = lipgloss.NewStyle().Faint(true)
)

// Terminal writes one line per notification.
type Terminal struct {
	mu   sync.Mutex
	w    io.Writer
	json bool
}

// NewTerminal renders styled lines to w. With asJSON set it writes one JSON
// object per line instead.
func NewTerminal(w io.Writer, asJSON bool) *Terminal {
	return &Terminal{w: w, json: asJSON}
}

// Notify writes n.
func (t *Terminal) Notify(n Notification) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.json {
		enc := json.NewEncoder(t.w)
		enc.SetEscapeHTML(false)
		_ = enc.Encode(n)
		return
	}
	_, _ = fmt.Fprintln(t.w, Render(n))
}

// Render formats n as a single styled line.
func Render(n Notification) string {
	var symbol string
	var style lipgloss.Style
	switch n.State {
	case StatePending:
		symbol, style = "…", pendingStyle
	case StateSuccess:
		symbol, style = "✓", successStyle
	case StateFailure:
		symbol, style = "✗", failureStyle
	default:
		symbol, style = "•", infoStyle
	}
	return timeStyle.Render(n.At.Format("15:04:05")) + " " + style.Render(symbol+" "+n.Message)
}
