package cli

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/getmockd/supamocka/internal/console"
	"github.com/getmockd/supamocka/pkg/notify"
	"github.com/getmockd/supamocka/pkg/session"
	"github.com/getmockd/supamocka/pkg/supabase"
)

// PollConfigOutput is the JSON form of the polling settings.
type PollConfigOutput struct {
	IntervalMs int64  `json:"intervalMs"`
	Endpoint   string `json:"endpoint"`
	URL        string `json:"url"`
}

// PollSummary is printed when a bounded poll run ends.
type PollSummary struct {
	Ticks    int64 `json:"ticks"`
	Failures int64 `json:"failures"`
}

// tickCounter counts poll outcomes and cancels the run after limit ticks.
// Outcomes past the limit are ignored.
type tickCounter struct {
	limit int64
	done  context.CancelFunc

	mu       sync.Mutex
	ticks    int64
	failures int64
}

func (c *tickCounter) Notify(n notify.Notification) {
	if n.State != notify.StateInfo && n.State != notify.StateFailure {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.limit > 0 && c.ticks >= c.limit {
		return
	}
	c.ticks++
	if n.State == notify.StateFailure {
		c.failures++
	}
	if c.ticks == c.limit {
		c.done()
	}
}

func (c *tickCounter) summary() PollSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return PollSummary{Ticks: c.ticks, Failures: c.failures}
}

// savePollFlags persists --interval and --endpoint when given.
func savePollFlags(cmd *cobra.Command, state *session.State, interval time.Duration, endpoint string) error {
	if cmd.Flags().Changed("interval") {
		if err := session.ValidatePollingInterval(interval); err != nil {
			return err
		}
		if err := state.SetPollingInterval(interval); err != nil {
			return err
		}
	}
	if cmd.Flags().Changed("endpoint") {
		if err := state.SetPollingEndpoint(endpoint); err != nil {
			return err
		}
	}
	return nil
}

func (a *app) pollCmd() *cobra.Command {
	var (
		interval time.Duration
		endpoint string
		expect   string
		count    int64
	)

	cmd := &cobra.Command{
		Use:   "poll",
		Short: "Probe a REST endpoint on an interval until interrupted",
		Long: `Probe GET <url>/rest/v1<endpoint> on an interval and print each response
status. Runs until Ctrl-C, or until --count probes have completed.

--interval and --endpoint are saved as the new polling settings.
--expect takes an expression over status, endpoint and elapsedMs; probes
that do not satisfy it are reported as failures.`,
		Example: `  supamocka poll --endpoint /todos?select=id
  supamocka poll --interval 250ms --count 20 --expect 'status < 500 && elapsedMs < 300'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			expectation, err := console.CompileExpectation(expect)
			if err != nil {
				return err
			}
			if count < 0 {
				return fmt.Errorf("count must not be negative, got %d", count)
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			state := a.session(ctx)
			if err := savePollFlags(cmd, state, interval, endpoint); err != nil {
				return err
			}
			conn := state.Connection()
			if conn.URL == "" {
				a.warn("%v", ErrNoProjectURL)
			}

			counter := &tickCounter{limit: count, done: cancel}
			con := a.console(ctx, counter)
			poller := con.Poller()
			poller.SetExpectation(expectation)

			cfg := state.Polling()
			if !a.jsonOutput() {
				fmt.Fprintf(a.errOut, "Polling %s every %s. Press Ctrl-C to stop.\n",
					supabase.ProbeURL(conn.URL, cfg.Endpoint), cfg.Interval)
			}
			poller.Start()
			<-ctx.Done()
			con.Close()

			summary := counter.summary()
			if err := a.printResult(summary, func() {
				fmt.Fprintf(a.out, "%d probes, %d failed.\n", summary.Ticks, summary.Failures)
			}); err != nil {
				return err
			}
			if count > 0 && summary.Failures > 0 {
				return fmt.Errorf("%d of %d probes failed", summary.Failures, summary.Ticks)
			}
			return nil
		},
	}

	cmd.Flags().DurationVarP(&interval, "interval", "i", session.DefaultPollingInterval, "Time between probes")
	cmd.Flags().StringVarP(&endpoint, "endpoint", "p", session.DefaultPollingEndpoint, "Path under /rest/v1 to probe")
	cmd.Flags().StringVar(&expect, "expect", "", "Expression every response must satisfy, e.g. 'status < 400'")
	cmd.Flags().Int64VarP(&count, "count", "n", 0, "Stop after this many probes (0 runs until interrupted)")
	cmd.AddCommand(a.pollConfigCmd())
	return cmd
}

func (a *app) pollConfigCmd() *cobra.Command {
	var (
		interval time.Duration
		endpoint string
	)

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change the polling settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			state := a.session(cmd.Context())
			if err := savePollFlags(cmd, state, interval, endpoint); err != nil {
				return err
			}

			cfg := state.Polling()
			out := PollConfigOutput{
				IntervalMs: cfg.Interval.Milliseconds(),
				Endpoint:   cfg.Endpoint,
				URL:        supabase.ProbeURL(state.Connection().URL, cfg.Endpoint),
			}
			return a.printResult(out, func() {
				fmt.Fprintf(a.out, "Interval: %s\nEndpoint: %s\nProbes:   GET %s\n", cfg.Interval, out.Endpoint, out.URL)
			})
		},
	}

	cmd.Flags().DurationVarP(&interval, "interval", "i", session.DefaultPollingInterval, "Time between probes")
	cmd.Flags().StringVarP(&endpoint, "endpoint", "p", session.DefaultPollingEndpoint, "Path under /rest/v1 to probe")
	return cmd
}
