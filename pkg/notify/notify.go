// Package notify reports the progress of operations to the operator.
//
// A Notification moves through at most two states: it is emitted Pending and
// later re-emitted, with the same ID, as Success or Failure. Informational
// notifications (Info) are standalone. The Tracker guarantees exactly one
// terminal notification per tracked operation.
package notify

import (
	"sync"
	"time"
)

// State is the lifecycle state of a notification.
type State string

// Notification states.
const (
	StatePending State = "pending"
	StateSuccess State = "success"
	StateFailure State = "failure"
	StateInfo    State = "info"
)

// Terminal reports whether s ends a notification's lifecycle.
func (s State) Terminal() bool {
	return s == StateSuccess || s == StateFailure
}

// Notification is one message shown to the operator.
type Notification struct {
	ID      string    `json:"id"`
	State   State     `json:"state"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Notifier displays notifications. Implementations must be safe for
// concurrent use.
type Notifier interface {
	Notify(n Notification)
}

// Func adapts a function to Notifier.
type Func func(Notification)

// Notify calls f.
func (f Func) Notify(n Notification) { f(n) }

// Multi fans out to several notifiers in order.
func Multi(notifiers ...Notifier) Notifier {
	return Func(func(n Notification) {
		for _, x := range notifiers {
			if x != nil {
				x.Notify(n)
			}
		}
	})
}

// Discard drops every notification.
var Discard Notifier = Func(func(Notification) {})

// Recorder keeps every notification it receives. It is used by tests and by
// the interactive console to replay recent messages.
type Recorder struct {
	mu    sync.Mutex
	items []Notification
	ch    chan Notification
}

// NewRecorder returns a Recorder that also publishes on a buffered channel of
// the given size. A zero size disables the channel.
func NewRecorder(buffer int) *Recorder {
	r := &Recorder{}
	if buffer > 0 {
		r.ch = make(chan Notification, buffer)
	}
	return r
}

// Notify records n.
func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	r.items = append(r.items, n)
	r.mu.Unlock()
	if r.ch != nil {
		select {
		case r.ch <- n:
		default:
		}
	}
}

// C returns the publication channel, or nil.
func (r *Recorder) C() <-chan Notification { return r.ch }

// All returns a copy of everything recorded.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Notification, len(r.items))
	copy(out, r.items)
	return out
}

// Last returns the most recent n notifications.
func (r *Recorder) Last(n int) []Notification {
	all := r.All()
	if len(all) > n {
		all = all[len(all)-n:]
	}
	return all
}

// Filter returns the recorded notifications in state s.
func (r *Recorder) Filter(s State) []Notification {
	var out []Notification
	for _, n := range r.All() {
		if n.State == s {
			out = append(out, n)
		}
	}
	return out
}
