package console

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/getmockd/supamocka/pkg/notify"
	"github.com/getmockd/supamocka/pkg/session"
	"github.com/getmockd/supamocka/pkg/supabase"
)

// ProbeFactory builds the REST client used for one tick.
type ProbeFactory func(url, publicKey string) supabase.RESTClient

// pollTarget is the part of the configuration a running ticker is bound to.
// A change to any field restarts the ticker.
type pollTarget struct {
	interval time.Duration
	endpoint string
	url      string
}

// Poller periodically probes a REST endpoint and reports each response
// status as a notification.
type Poller struct {
	state   *session.State
	tracker *notify.Tracker
	clock   clockwork.Clock
	probes  ProbeFactory
	log     *slog.Logger

	mu      sync.Mutex
	running bool
	target  pollTarget
	cancel  context.CancelFunc
	done    chan struct{}
	expect  *Expectation

	ticks       sync.WaitGroup
	unsubscribe func()
}

// PollerOptions configures NewPoller. State and Tracker are required.
type PollerOptions struct {
	State   *session.State
	Tracker *notify.Tracker
	Clock   clockwork.Clock
	Probes  ProbeFactory
	Logger  *slog.Logger
}

// NewPoller returns a stopped poller bound to opts.State.
func NewPoller(opts PollerOptions) *Poller {
	p := &Poller{
		state:   opts.State,
		tracker: opts.Tracker,
		clock:   opts.Clock,
		probes:  opts.Probes,
		log:     opts.Logger,
	}
	if p.clock == nil {
		p.clock = clockwork.NewRealClock()
	}
	if p.probes == nil {
		p.probes = func(url, publicKey string) supabase.RESTClient {
			return supabase.NewRESTClient(url, publicKey)
		}
	}
	if p.log == nil {
		p.log = slog.New(slog.DiscardHandler)
	}
	p.unsubscribe = p.state.Subscribe(p.onChange,
		session.KeyPollingInterval, session.KeyPollingEndpoint, session.KeyConnection)
	return p
}

// SetExpectation installs e for subsequent ticks. nil removes it.
func (p *Poller) SetExpectation(e *Expectation) {
	p.mu.Lock()
	p.expect = e
	p.mu.Unlock()
}

// Running reports whether the poller is scheduled.
func (p *Poller) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Start schedules ticks using the current configuration. It is a no-op when
// already running.
func (p *Poller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	p.startLocked(p.currentTarget())
	p.running = true
}

// Stop cancels the schedule. Once Stop returns no further tick is
// dispatched; a tick already in flight still completes. Stop is a no-op
// when not running.
func (p *Poller) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	p.stopLocked()
	p.running = false
}

// Toggle starts a stopped poller or stops a running one and returns the
// new state.
func (p *Poller) Toggle() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		p.stopLocked()
	} else {
		p.startLocked(p.currentTarget())
	}
	p.running = !p.running
	return p.running
}

// Drain blocks until every dispatched tick has finished.
func (p *Poller) Drain() {
	p.ticks.Wait()
}

// Close stops the poller, detaches it from the state and drains ticks.
func (p *Poller) Close() {
	p.Stop()
	p.unsubscribe()
	p.Drain()
}

func (p *Poller) currentTarget() pollTarget {
	cfg := p.state.Polling()
	if cfg.Interval <= 0 {
		p.log.Warn("invalid polling interval, using default",
			"interval", cfg.Interval, "default", session.DefaultPollingInterval)
		cfg.Interval = session.DefaultPollingInterval
	}
	return pollTarget{
		interval: cfg.Interval,
		endpoint: cfg.Endpoint,
		url:      p.state.Connection().URL,
	}
}

func (p *Poller) onChange(string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	next := p.currentTarget()
	if next == p.target {
		return
	}
	p.log.Debug("restarting poller",
		"interval", next.interval, "endpoint", next.endpoint, "url", next.url)
	p.stopLocked()
	p.startLocked(next)
}

// startLocked creates the ticker before the loop goroutine exists so the
// first period is measured from this call.
func (p *Poller) startLocked(target pollTarget) {
	origin := p.clock.Now()
	ticker := p.clock.NewTicker(target.interval)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	p.target = target
	p.cancel = cancel
	p.done = done
	go p.loop(ctx, ticker, origin, target, done)
}

func (p *Poller) stopLocked() {
	p.cancel()
	<-p.done
	p.cancel = nil
	p.done = nil
}

// loop must never take p.mu: stopLocked waits for it while holding the lock.
//
// A ticker delivers at most one value for several elapsed periods, so each
// receive dispatches one tick per period passed since the last scheduled
// deadline.
func (p *Poller) loop(ctx context.Context, ticker clockwork.Ticker, origin time.Time, target pollTarget, done chan struct{}) {
	defer close(done)
	defer ticker.Stop()
	last := origin
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			due := dueTicks(last, p.clock.Now(), target.interval)
			last = last.Add(time.Duration(due) * target.interval)
			for range due {
				if ctx.Err() != nil {
					return
				}
				p.dispatch(target)
			}
		}
	}
}

// dueTicks returns how many whole intervals separate last from now.
func dueTicks(last, now time.Time, interval time.Duration) int {
	if interval <= 0 || now.Before(last) {
		return 0
	}
	return int(now.Sub(last) / interval)
}

func (p *Poller) dispatch(target pollTarget) {
	p.ticks.Add(1)
	go func() {
		defer p.ticks.Done()
		p.tick(context.Background(), target)
	}()
}

func (p *Poller) tick(ctx context.Context, target pollTarget) {
	client := p.probes(target.url, p.state.Connection().PublicKey)
	started := p.clock.Now()

	status, err := client.Probe(ctx, target.endpoint)
	if err != nil {
		p.log.Error("poll request failed", "endpoint", target.endpoint, "error", err)
		p.tracker.Fail(fmt.Sprintf("GET: %s failed", target.endpoint))
		return
	}

	msg := fmt.Sprintf("GET: %s %d", target.endpoint, status)

	p.mu.Lock()
	expect := p.expect
	p.mu.Unlock()

	ok, err := expect.Check(ProbeResult{
		Status:    status,
		Endpoint:  target.endpoint,
		ElapsedMs: p.clock.Since(started).Milliseconds(),
	})
	switch {
	case err != nil:
		p.log.Error("evaluating expectation", "expectation", expect.String(), "error", err)
		p.tracker.Fail(msg + " (expectation error)")
	case !ok:
		p.tracker.Fail(fmt.Sprintf("%s (expected %s)", msg, expect.String()))
	default:
		p.tracker.Info(msg)
	}
}
