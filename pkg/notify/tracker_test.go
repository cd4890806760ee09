package notify

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_ExactlyOneTerminalNotification(t *testing.T) {
	tests := []struct {
		name      string
		op        Operation
		wantState State
		wantMsg   string
	}{
		{
			name:      "fulfilled",
			op:        func(context.Context) (any, error) { return map[string]string{"id": "u-1"}, nil },
			wantState: StateSuccess,
			wantMsg:   "User created",
		},
		{
			name:      "rejected",
			op:        func(context.Context) (any, error) { return nil, errors.New("Email exists") },
			wantState: StateFailure,
			wantMsg:   "Error creating user" + FailureHint,
		},
		{
			name:      "panicked",
			op:        func(context.Context) (any, error) { panic("boom") },
			wantState: StateFailure,
			wantMsg:   "Error creating user" + FailureHint,
		},
	}

	labels := Labels{Pending: "Creating user", OnSuccess: "User created", OnFailure: "Error creating user"}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := NewRecorder(0)
			tr := NewTracker(rec)

			tr.Go(context.Background(), labels, tt.op)
			tr.Wait()

			all := rec.All()
			require.Len(t, all, 2)
			assert.Equal(t, StatePending, all[0].State)
			assert.Equal(t, "Creating user", all[0].Message)
			assert.Equal(t, tt.wantState, all[1].State)
			assert.Equal(t, tt.wantMsg, all[1].Message)
			assert.Equal(t, all[0].ID, all[1].ID, "terminal state must update the pending notification")
			assert.True(t, all[1].State.Terminal())
		})
	}
}

func TestTracker_PendingEmittedBeforeOperationRuns(t *testing.T) {
	rec := NewRecorder(0)
	tr := NewTracker(rec)

	var seenAtStart int
	err := tr.Run(context.Background(), Labels{Pending: "Syncing users"}, func(context.Context) (any, error) {
		seenAtStart = len(rec.All())
		return nil, nil
	})
	require.NoError(t, err)

	assert.Equal(t, 1, seenAtStart)
	all := rec.All()
	require.Len(t, all, 2)
	assert.Equal(t, "Success", all[1].Message, "empty labels fall back to defaults")
}

func TestTracker_GoEmitsPendingSynchronously(t *testing.T) {
	rec := NewRecorder(0)
	tr := NewTracker(rec)
	release := make(chan struct{})

	tr.Go(context.Background(), Labels{Pending: "Creating user"}, func(context.Context) (any, error) {
		<-release
		return nil, nil
	})

	all := rec.All()
	require.Len(t, all, 1)
	assert.Equal(t, StatePending, all[0].State)

	close(release)
	tr.Wait()
	assert.Len(t, rec.All(), 2)
}

func TestTracker_FailureIsLoggedNotThrown(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	rec := NewRecorder(0)
	tr := NewTracker(rec, WithLogger(logger))

	assert.NotPanics(t, func() {
		tr.Go(context.Background(),
			Labels{Pending: "Creating user", OnSuccess: "User created", OnFailure: "Error creating user"},
			func(context.Context) (any, error) { return nil, errors.New("Email exists") })
		tr.Wait()
	})

	failures := rec.Filter(StateFailure)
	require.Len(t, failures, 1)
	assert.True(t, strings.HasPrefix(failures[0].Message, "Error creating user"))
	assert.Contains(t, logs.String(), "Email exists")
	assert.Contains(t, logs.String(), "level=ERROR")
}

func TestTracker_SuccessResultIsLogged(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	tr := NewTracker(Discard, WithLogger(logger))

	require.NoError(t, tr.Run(context.Background(), Labels{}, func(context.Context) (any, error) {
		return "u-42", nil
	}))
	assert.Contains(t, logs.String(), "result=u-42")
}

func TestTracker_RunReturnsError(t *testing.T) {
	want := errors.New("nope")
	err := NewTracker(nil).Run(context.Background(), Labels{}, func(context.Context) (any, error) {
		return nil, want
	})
	assert.ErrorIs(t, err, want)
}

func TestTracker_InfoAndFail(t *testing.T) {
	rec := NewRecorder(4)
	tr := NewTracker(rec)

	tr.Info("GET: /ping 200")
	tr.Fail("GET: /ping failed")

	assert.Equal(t, StateInfo, (<-rec.C()).State)
	assert.Equal(t, StateFailure, (<-rec.C()).State)
	assert.False(t, StateInfo.Terminal())
}

func TestMulti(t *testing.T) {
	a, b := NewRecorder(0), NewRecorder(0)
	Multi(a, nil, b).Notify(Notification{Message: "hi"})
	assert.Len(t, a.All(), 1)
	assert.Len(t, b.All(), 1)
}

func TestTerminal(t *testing.T) {
	var buf bytes.Buffer
	NewTerminal(&buf, false).Notify(Notification{State: StateInfo, Message: "GET: /ping 200"})
	assert.Contains(t, buf.String(), "GET: /ping 200")

	buf.Reset()
	NewTerminal(&buf, true).Notify(Notification{ID: "n1", State: StateFailure, Message: "boom"})
	assert.Contains(t, buf.String(), `"state":"failure"`)
	assert.Contains(t, buf.String(), `"id":"n1"`)
}
