package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/getmockd/supamocka/internal/console"
	"github.com/getmockd/supamocka/pkg/notify"
	"github.com/getmockd/supamocka/pkg/session"
)

// Menu actions.
const (
	actionShowSettings = "show-settings"
	actionEditSettings = "edit-settings"
	actionCreateUser   = "create-user"
	actionRandomUser   = "random-user"
	actionListUsers    = "list-users"
	actionSyncUsers    = "sync-users"
	actionTogglePoll   = "toggle-poll"
	actionPollSettings = "poll-settings"
	actionSections     = "sections"
	actionRecent       = "recent"
	actionQuit         = "quit"
)

const recentNotifications = 10

func (a *app) consoleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "console",
		Short: "Interactive menu for every action, with polling in the background",
		Long: `Open an interactive menu. Actions are grouped in sections that can be
expanded or collapsed; the open sections are remembered between runs.
Polling keeps running in the background while the menu waits for input.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runConsole(cmd.Context())
		},
	}
}

func (a *app) runConsole(ctx context.Context) error {
	state := a.session(ctx)
	recent := notify.NewRecorder(0)
	con := a.console(ctx, recent)
	defer con.Close()

	for ctx.Err() == nil {
		action, err := a.chooseAction(state, con.Poller().Running())
		if errors.Is(err, huh.ErrUserAborted) || action == actionQuit {
			return nil
		}
		if err != nil {
			return err
		}
		if err := a.runAction(ctx, action, state, con, recent); err != nil {
			if errors.Is(err, huh.ErrUserAborted) {
				continue
			}
			a.warn("%v", err)
		}
	}
	return nil
}

// chooseAction shows the actions of every open section.
func (a *app) chooseAction(state *session.State, polling bool) (string, error) {
	var options []huh.Option[string]
	if state.IsOpen(session.SectionSettings) {
		options = append(options,
			huh.NewOption("Settings: show", actionShowSettings),
			huh.NewOption("Settings: edit", actionEditSettings))
	}
	if state.IsOpen(session.SectionCreateUser) {
		options = append(options,
			huh.NewOption("Create user", actionCreateUser),
			huh.NewOption("Create user with a random email", actionRandomUser))
	}
	if state.IsOpen(session.SectionUsers) {
		options = append(options,
			huh.NewOption("Users: list", actionListUsers),
			huh.NewOption("Users: sync", actionSyncUsers))
	}
	if state.IsOpen(session.SectionPolling) {
		toggle := "Polling: start"
		if polling {
			toggle = "Polling: stop"
		}
		options = append(options,
			huh.NewOption(toggle, actionTogglePoll),
			huh.NewOption("Polling: settings", actionPollSettings))
	}
	options = append(options,
		huh.NewOption("Expand or collapse sections", actionSections),
		huh.NewOption("Recent notifications", actionRecent),
		huh.NewOption("Quit", actionQuit))

	var action string
	err := huh.NewForm(huh.NewGroup(
		huh.NewSelect[string]().
			Title("supamocka").
			Options(options...).
			Value(&action),
	)).WithInput(a.in).WithOutput(a.errOut).Run()
	return action, err
}

func (a *app) runAction(ctx context.Context, action string, state *session.State, con *console.Console, recent *notify.Recorder) error {
	switch action {
	case actionShowSettings:
		return a.printSettings(describeSettings(state.Connection()))

	case actionEditSettings:
		edited, err := a.connectionForm(state.Connection())
		if err != nil {
			return err
		}
		return state.SetConnection(edited)

	case actionCreateUser:
		var email string
		err := huh.NewForm(huh.NewGroup(
			huh.NewInput().Title("Email").Value(&email),
		)).WithInput(a.in).WithOutput(a.errOut).Run()
		if err != nil {
			return err
		}
		if strings.TrimSpace(email) == "" {
			return ErrNoEmail
		}
		con.CreateUser(ctx, strings.TrimSpace(email))

	case actionRandomUser:
		con.CreateUser(ctx, RandomEmail())

	case actionListUsers:
		return a.printUsers(con.Users())

	case actionSyncUsers:
		_, err := con.SyncUsers(ctx)
		return err

	case actionTogglePoll:
		if con.Poller().Toggle() {
			cfg := state.Polling()
			fmt.Fprintf(a.errOut, "Polling %s every %s.\n", cfg.Endpoint, cfg.Interval)
		} else {
			fmt.Fprintln(a.errOut, "Polling stopped.")
		}

	case actionPollSettings:
		return a.pollSettingsForm(state)

	case actionSections:
		open := state.OpenSections()
		options := make([]huh.Option[string], 0, len(session.Sections))
		for _, id := range session.Sections {
			options = append(options, huh.NewOption(id, id))
		}
		err := huh.NewForm(huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Open sections").
				Options(options...).
				Value(&open),
		)).WithInput(a.in).WithOutput(a.errOut).Run()
		if err != nil {
			return err
		}
		return state.SetOpenSections(open)

	case actionRecent:
		for _, n := range recent.Last(recentNotifications) {
			fmt.Fprintln(a.errOut, notify.Render(n))
		}
	}
	return nil
}

// pollSettingsForm edits the polling settings. A running poller picks the
// change up immediately.
func (a *app) pollSettingsForm(state *session.State) error {
	cfg := state.Polling()
	interval := cfg.Interval.String()
	endpoint := cfg.Endpoint

	err := huh.NewForm(huh.NewGroup(
		huh.NewInput().
			Title("Interval").
			Value(&interval).
			Validate(func(s string) error {
				d, err := time.ParseDuration(s)
				if err != nil {
					return err
				}
				return session.ValidatePollingInterval(d)
			}),
		huh.NewInput().
			Title("Endpoint under /rest/v1").
			Value(&endpoint),
	)).WithInput(a.in).WithOutput(a.errOut).Run()
	if err != nil {
		return err
	}

	d, _ := time.ParseDuration(interval)
	if err := state.SetPollingInterval(d); err != nil {
		return err
	}
	return state.SetPollingEndpoint(endpoint)
}
