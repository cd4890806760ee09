package console

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/getmockd/supamocka/pkg/notify"
	"github.com/getmockd/supamocka/pkg/supabase"
)

type fakeAdmin struct {
	url       string
	secretKey string

	mu        sync.Mutex
	users     []supabase.User
	listErr   error
	createErr error
	release   chan struct{}
	listGate  chan struct{}
	listCalls int
	created   []supabase.CreateUserParams
}

func (f *fakeAdmin) BaseURL() string { return f.url }

func (f *fakeAdmin) ListUsers(context.Context) ([]supabase.User, error) {
	if f.listGate != nil {
		<-f.listGate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.users, nil
}

func (f *fakeAdmin) CreateUser(_ context.Context, params supabase.CreateUserParams) (*supabase.User, error) {
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, params)
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &supabase.User{ID: "u-1", Email: params.Email}, nil
}

func (f *fakeAdmin) listCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.listCalls
}

func (f *fakeAdmin) createdParams() []supabase.CreateUserParams {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]supabase.CreateUserParams(nil), f.created...)
}

// adminFactory hands out fakeAdmins and remembers them in order. configure
// runs on each new client before it is returned.
type adminFactory struct {
	mu        sync.Mutex
	clients   []*fakeAdmin
	configure func(n int, f *fakeAdmin)
}

func (a *adminFactory) build(url, secretKey string) supabase.AdminClient {
	a.mu.Lock()
	defer a.mu.Unlock()
	f := &fakeAdmin{url: url, secretKey: secretKey}
	if a.configure != nil {
		a.configure(len(a.clients), f)
	}
	a.clients = append(a.clients, f)
	return f
}

func (a *adminFactory) built() []*fakeAdmin {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]*fakeAdmin(nil), a.clients...)
}

type probeCall struct {
	url       string
	publicKey string
	path      string
}

type fakeProbes struct {
	mu      sync.Mutex
	status  int
	err     error
	block   chan struct{}
	started chan struct{}
	calls   []probeCall
}

func (p *fakeProbes) build(url, publicKey string) supabase.RESTClient {
	return &fakeProbe{parent: p, url: url, publicKey: publicKey}
}

func (p *fakeProbes) recorded() []probeCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]probeCall(nil), p.calls...)
}

type fakeProbe struct {
	parent    *fakeProbes
	url       string
	publicKey string
}

func (f *fakeProbe) Probe(_ context.Context, path string) (int, error) {
	p := f.parent
	p.mu.Lock()
	p.calls = append(p.calls, probeCall{url: f.url, publicKey: f.publicKey, path: path})
	status, err, block, started := p.status, p.err, p.block, p.started
	p.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if block != nil {
		<-block
	}
	return status, err
}

func (f *fakeProbe) ListEndpoints(context.Context) ([]supabase.Endpoint, error) {
	return nil, nil
}

func nextNotification(t *testing.T, rec *notify.Recorder) notify.Notification {
	t.Helper()
	select {
	case n := <-rec.C():
		return n
	case <-time.After(2 * time.Second):
		require.FailNow(t, "timed out waiting for a notification")
		return notify.Notification{}
	}
}

func requireQuiet(t *testing.T, rec *notify.Recorder) {
	t.Helper()
	select {
	case n := <-rec.C():
		require.FailNow(t, "unexpected notification", "%s: %s", n.State, n.Message)
	case <-time.After(50 * time.Millisecond):
	}
}
