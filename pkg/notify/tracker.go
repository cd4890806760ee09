package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/getmockd/supamocka/pkg/logging"
)

// FailureHint is appended to every failure label.
const FailureHint = ". Check the logs for more details."

// Labels are the messages shown for each state of a tracked operation.
type Labels struct {
	Pending   string
	OnSuccess string
	OnFailure string
}

// DefaultLabels are used for any empty field.
var DefaultLabels = Labels{
	Pending:   "Loading...",
	OnSuccess: "Success",
	OnFailure: "Error",
}

func (l Labels) withDefaults() Labels {
	if l.Pending == "" {
		l.Pending = DefaultLabels.Pending
	}
	if l.OnSuccess == "" {
		l.OnSuccess = DefaultLabels.OnSuccess
	}
	if l.OnFailure == "" {
		l.OnFailure = DefaultLabels.OnFailure
	}
	return l
}

// Operation is the work a Tracker reports on. Logical failures must already
// be errors; the tracker only distinguishes error from nil.
type Operation func(ctx context.Context) (any, error)

// Tracker wraps operations with the pending/success/failure protocol.
type Tracker struct {
	notifier Notifier
	log      *slog.Logger
	now      func() time.Time
	wg       sync.WaitGroup
}

// TrackerOption configures a Tracker.
type TrackerOption func(*Tracker)

// WithLogger sets where results and failure reasons are recorded.
func WithLogger(log *slog.Logger) TrackerOption {
	return func(t *Tracker) {
		if log != nil {
			t.log = log
		}
	}
}

// WithClock sets the timestamp source for notifications.
func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

// NewTracker returns a Tracker that reports to notifier.
func NewTracker(notifier Notifier, opts ...TrackerOption) *Tracker {
	if notifier == nil {
		notifier = Discard
	}
	t := &Tracker{
		notifier: notifier,
		log:      logging.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Info emits a standalone informational notification.
func (t *Tracker) Info(msg string) {
	t.emit(uuid.NewString(), StateInfo, msg)
}

// Fail emits a standalone failure notification.
func (t *Tracker) Fail(msg string) {
	t.emit(uuid.NewString(), StateFailure, msg)
}

// Go emits the pending notification, then runs op in the background. Exactly
// one terminal notification follows. Errors and panics never reach the
// caller; they are reported and logged.
func (t *Tracker) Go(ctx context.Context, labels Labels, op Operation) {
	labels = labels.withDefaults()
	id := t.pending(labels)

	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		_ = t.finish(ctx, id, labels, op)
	}()
}

// Run is the synchronous form of Go. It returns op's error after the terminal
// notification has been emitted, so one-shot commands can set their exit
// status.
func (t *Tracker) Run(ctx context.Context, labels Labels, op Operation) error {
	labels = labels.withDefaults()
	id := t.pending(labels)
	return t.finish(ctx, id, labels, op)
}

// Wait blocks until every operation started with Go has finished.
func (t *Tracker) Wait() {
	t.wg.Wait()
}

func (t *Tracker) pending(labels Labels) string {
	id := uuid.NewString()
	t.emit(id, StatePending, labels.Pending)
	return id
}

func (t *Tracker) finish(ctx context.Context, id string, labels Labels, op Operation) error {
	result, err := t.call(ctx, op)
	if err != nil {
		t.log.Error("request failed", "operation", labels.Pending, "id", id, "error", err)
		t.emit(id, StateFailure, labels.OnFailure+FailureHint)
		return err
	}
	t.log.Info("request succeeded", "operation", labels.Pending, "id", id, "result", result)
	t.emit(id, StateSuccess, labels.OnSuccess)
	return nil
}

func (t *Tracker) call(ctx context.Context, op Operation) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("operation panicked: %v", r)
		}
	}()
	return op(ctx)
}

func (t *Tracker) emit(id string, state State, msg string) {
	t.notifier.Notify(Notification{
		ID:      id,
		State:   state,
		Message: msg,
		At:      t.now(),
	})
}
