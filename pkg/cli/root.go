package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/getmockd/supamocka/internal/console"
	"github.com/getmockd/supamocka/pkg/cli/internal/output"
	"github.com/getmockd/supamocka/pkg/cliconfig"
	"github.com/getmockd/supamocka/pkg/kvstore"
	"github.com/getmockd/supamocka/pkg/logging"
	"github.com/getmockd/supamocka/pkg/notify"
	"github.com/getmockd/supamocka/pkg/session"
	"github.com/getmockd/supamocka/pkg/supabase"
)

var (
	// Version is injected during build
	Version = "dev"
	// Commit is injected during build
	Commit = "none"
	// BuildDate is injected during build
	BuildDate = "unknown"
)

// globalFlags are the persistent flags available to all subcommands.
type globalFlags struct {
	json       bool
	verbose    bool
	logLevel   string
	store      string
	dataDir    string
	configPath string
}

// app carries what one invocation of the command tree needs. Everything
// expensive is opened lazily and released by close.
type app struct {
	flags globalFlags

	out    io.Writer
	errOut io.Writer
	in     io.Reader

	clock      clockwork.Clock
	httpClient *http.Client

	cfg     *cliconfig.CLIConfig
	log     *slog.Logger
	store   *kvstore.Store
	state   *session.State
	closers []io.Closer
}

// Option customizes the command tree.
type Option func(*app)

// WithOutput redirects command output and diagnostics.
func WithOutput(out, errOut io.Writer) Option {
	return func(a *app) {
		a.out = out
		a.errOut = errOut
	}
}

// WithInput sets where interactive forms read from.
func WithInput(in io.Reader) Option {
	return func(a *app) { a.in = in }
}

// WithHTTPClient makes every project request go through c.
func WithHTTPClient(c *http.Client) Option {
	return func(a *app) { a.httpClient = c }
}

// WithClock replaces the clock used for polling and timestamps.
func WithClock(c clockwork.Clock) Option {
	return func(a *app) { a.clock = c }
}

func newApp(opts ...Option) *app {
	a := &app{
		out:    os.Stdout,
		errOut: os.Stderr,
		in:     os.Stdin,
		clock:  clockwork.NewRealClock(),
		log:    logging.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// NewRootCmd builds the supamocka command tree.
func NewRootCmd(opts ...Option) *cobra.Command {
	return newApp(opts...).rootCmd()
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "supamocka",
		Short: "supamocka is an operator console for a Supabase project",
		Long: `supamocka keeps the connection settings for one Supabase project and drives
its admin API: create and list users, and poll a REST endpoint to watch it respond.

Settings are saved between runs in a session store under the data directory.
CLI behaviour can be configured with flags, SUPAMOCKA_* environment variables,
.supamockarc.yaml in the current directory, or ~/.config/supamocka/config.yaml.`,
		SilenceUsage:  true,
		SilenceErrors: true, // Run prints errors
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.SetOut(a.out)
	root.SetErr(a.errOut)
	root.SetIn(a.in)

	pf := root.PersistentFlags()
	pf.BoolVar(&a.flags.json, "json", false, "Output command results in JSON format")
	pf.BoolVarP(&a.flags.verbose, "verbose", "v", false, "Log at debug level")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "Log level: debug, info, warn, error (default: warn)")
	pf.StringVar(&a.flags.store, "store", "", "Session store backend: file, sqlite, memory (default: file)")
	pf.StringVar(&a.flags.dataDir, "data-dir", "", "Directory holding the session store and diagnostics log")
	pf.StringVar(&a.flags.configPath, "config", "", "Config file to use instead of .supamockarc.yaml")

	root.AddCommand(
		a.settingsCmd(),
		a.usersCmd(),
		a.pollCmd(),
		a.endpointsCmd(),
		a.sectionsCmd(),
		a.statusCmd(),
		a.consoleCmd(),
		a.configCmd(),
		a.versionCmd(),
	)
	return root
}

// Run executes the command tree with args and releases everything it
// opened.
func Run(ctx context.Context, args []string, opts ...Option) error {
	a := newApp(opts...)
	defer a.close()

	root := a.rootCmd()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// Execute runs the CLI against os.Args and exits non-zero on failure.
// This is called by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := Run(ctx, os.Args[1:])
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// setup resolves configuration and logging. It runs before every command.
func (a *app) setup(cmd *cobra.Command) error {
	path := a.flags.configPath
	if path == "" {
		path = cliconfig.GetConfigPathFromEnv()
	}
	cfg, err := cliconfig.LoadAll(path)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("json") {
		cfg.ApplyFlag("json", func(c *cliconfig.CLIConfig) { c.JSON = a.flags.json })
	}
	if flags.Changed("verbose") {
		cfg.ApplyFlag("verbose", func(c *cliconfig.CLIConfig) { c.Verbose = a.flags.verbose })
	}
	if flags.Changed("log-level") {
		cfg.ApplyFlag("logLevel", func(c *cliconfig.CLIConfig) { c.LogLevel = a.flags.logLevel })
	}
	if flags.Changed("store") {
		cfg.ApplyFlag("store", func(c *cliconfig.CLIConfig) { c.Store = a.flags.store })
	}
	if flags.Changed("data-dir") {
		cfg.ApplyFlag("dataDir", func(c *cliconfig.CLIConfig) { c.DataDir = a.flags.dataDir })
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg
	a.log = a.newLogger()
	return nil
}

func (a *app) newLogger() *slog.Logger {
	lc := a.cfg.LoggingConfig()
	lc.Output = a.errOut
	handler := logging.NewHandler(lc)

	if a.cfg.Diagnostics {
		diag, closer, err := logging.OpenDiagnostics(a.cfg.DataDir)
		if err != nil {
			output.Warn(a.errOut, "diagnostics log disabled: %v", err)
		} else {
			a.closers = append(a.closers, closer)
			handler = logging.NewMultiHandler(handler, diag)
		}
	}
	return slog.New(handler)
}

func (a *app) jsonOutput() bool {
	return a.cfg != nil && a.cfg.JSON
}

// session opens the session store on first use.
func (a *app) session(ctx context.Context) *session.State {
	if a.state != nil {
		return a.state
	}
	a.store = kvstore.Open(ctx, a.cfg.StoreConfig(), a.log)
	if a.store.Degraded() {
		output.Warn(a.errOut, "session store unavailable, changes will not be saved")
	}
	a.closers = append(a.closers, a.store)
	a.state = session.New(a.store)
	return a.state
}

func (a *app) clientOptions() []supabase.ClientOption {
	opts := []supabase.ClientOption{
		supabase.WithTimeout(a.cfg.Timeout),
		supabase.WithUserAgent("supamocka/" + Version),
	}
	if a.httpClient != nil {
		opts = append(opts, supabase.WithHTTPClient(a.httpClient))
	}
	return opts
}

func (a *app) adminClient(url, secretKey string) supabase.AdminClient {
	return supabase.NewAdminClient(url, secretKey, a.clientOptions()...)
}

func (a *app) restClient(url, publicKey string) supabase.RESTClient {
	return supabase.NewRESTClient(url, publicKey, a.clientOptions()...)
}

// notifier renders notifications on stderr so --json stdout stays clean.
func (a *app) notifier(extra ...notify.Notifier) notify.Notifier {
	return notify.Multi(append([]notify.Notifier{notify.NewTerminal(a.errOut, a.jsonOutput())}, extra...)...)
}

// console builds the orchestrator over the session. Callers must Close it.
func (a *app) console(ctx context.Context, extra ...notify.Notifier) *console.Console {
	return console.New(a.consoleOptions(ctx, extra...))
}

// syncConsole is console for commands that call SyncUsers straight away.
func (a *app) syncConsole(ctx context.Context) *console.Console {
	opts := a.consoleOptions(ctx)
	opts.DeferInitialSync = true
	return console.New(opts)
}

func (a *app) consoleOptions(ctx context.Context, extra ...notify.Notifier) console.Options {
	return console.Options{
		State:         a.session(ctx),
		Notifier:      a.notifier(extra...),
		Logger:        a.log,
		Clock:         a.clock,
		ClientFactory: a.adminClient,
		ProbeFactory:  a.restClient,
	}
}

func (a *app) close() {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if err := errors.Join(errs...); err != nil {
		a.log.Warn("closing resources", "error", err)
	}
}
