package console

import (
	"context"
	"log/slog"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/getmockd/supamocka/pkg/notify"
	"github.com/getmockd/supamocka/pkg/session"
	"github.com/getmockd/supamocka/pkg/supabase"
)

// TestPassword is the password given to every user created from the
// console.
const TestPassword = "TestPassword1"

// Labels used for tracked requests.
var (
	CreateUserLabels = notify.Labels{
		Pending:   "Creating user",
		OnSuccess: "User created",
		OnFailure: "Error creating user",
	}
	SyncUsersLabels = notify.Labels{
		Pending:   "Syncing users",
		OnSuccess: "Users synced",
		OnFailure: "Error syncing users",
	}
)

// Options configures New. Only State is required.
type Options struct {
	State         *session.State
	Notifier      notify.Notifier
	Logger        *slog.Logger
	Clock         clockwork.Clock
	ClientFactory ClientFactory
	ProbeFactory  ProbeFactory

	// DeferInitialSync leaves the directory sync of the initial derivation
	// to the caller's next SyncUsers, so that derivation lists users once.
	DeferInitialSync bool
}

// Console ties the persisted session to the Supabase project it points at.
type Console struct {
	state   *session.State
	clients *ClientCache
	tracker *notify.Tracker
	poller  *Poller
	log     *slog.Logger

	syncs       sync.WaitGroup
	syncMu      sync.Mutex
	unsubscribe func()
	closeOnce   sync.Once
}

// New derives the initial admin client and starts the first directory
// sync, whatever the stored settings are, unless DeferInitialSync is set.
func New(opts Options) *Console {
	log := opts.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	c := &Console{
		state:   opts.State,
		clients: NewClientCache(opts.ClientFactory),
		log:     log,
	}
	c.tracker = notify.NewTracker(opts.Notifier,
		notify.WithLogger(log),
		notify.WithClock(clock.Now),
	)
	c.poller = NewPoller(PollerOptions{
		State:   opts.State,
		Tracker: c.tracker,
		Clock:   clock,
		Probes:  opts.ProbeFactory,
		Logger:  log.With("component", "poller"),
	})
	c.unsubscribe = c.state.Subscribe(func(string) { c.Client() }, session.KeyConnection)
	if opts.DeferInitialSync {
		c.clients.Get(c.state.Connection())
	} else {
		c.Client()
	}
	return c
}

// State returns the session the console reads from.
func (c *Console) State() *session.State { return c.state }

// Tracker returns the tracker every console request reports through.
func (c *Console) Tracker() *notify.Tracker { return c.tracker }

// Poller returns the console's REST poller.
func (c *Console) Poller() *Poller { return c.poller }

// Client returns the admin client for the current settings, deriving a new
// one (and syncing the user directory) when url or secret key changed.
func (c *Console) Client() supabase.AdminClient {
	client, _ := c.current()
	return client
}

func (c *Console) current() (supabase.AdminClient, uint64) {
	client, generation, derived := c.clients.Get(c.state.Connection())
	if derived {
		c.log.Debug("derived admin client", "url", client.BaseURL(), "generation", generation)
		c.startSync(client, generation)
	}
	return client, generation
}

// Resync forces a new client derivation, and with it a directory sync.
func (c *Console) Resync() {
	c.clients.Invalidate()
	c.Client()
}

// Users returns the cached user directory.
func (c *Console) Users() []supabase.User {
	return c.state.Users()
}

func createParams(email string, confirm bool) supabase.CreateUserParams {
	return supabase.CreateUserParams{Email: email, Password: TestPassword, EmailConfirm: confirm}
}

// CreateUser submits a user creation in the background. The outcome is
// reported through notifications only.
func (c *Console) CreateUser(ctx context.Context, email string) {
	client := c.Client()
	c.tracker.Go(ctx, CreateUserLabels, func(ctx context.Context) (any, error) {
		return client.CreateUser(ctx, createParams(email, false))
	})
}

// CreateUserSync is CreateUser for callers that need the result. confirm
// marks the address as already verified.
func (c *Console) CreateUserSync(ctx context.Context, email string, confirm bool) (*supabase.User, error) {
	client := c.Client()
	var user *supabase.User
	err := c.tracker.Run(ctx, CreateUserLabels, func(ctx context.Context) (any, error) {
		u, err := client.CreateUser(ctx, createParams(email, confirm))
		user = u
		return u, err
	})
	return user, err
}

// SyncUsers refreshes the user directory now and reports the outcome.
func (c *Console) SyncUsers(ctx context.Context) ([]supabase.User, error) {
	client, generation := c.current()
	var users []supabase.User
	err := c.tracker.Run(ctx, SyncUsersLabels, func(ctx context.Context) (any, error) {
		u, err := c.syncDirectory(ctx, client, generation)
		users = u
		return len(u), err
	})
	return users, err
}

// Wait blocks until background syncs and tracked requests have finished.
func (c *Console) Wait() {
	c.syncs.Wait()
	c.tracker.Wait()
}

// Close stops polling, detaches from the session and waits for in-flight
// work. It is safe to call more than once.
func (c *Console) Close() {
	c.closeOnce.Do(func() {
		c.poller.Close()
		c.unsubscribe()
		c.Wait()
	})
}
