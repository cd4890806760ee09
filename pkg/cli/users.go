package cli

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/huh"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/getmockd/supamocka/pkg/cli/internal/output"
	"github.com/getmockd/supamocka/pkg/supabase"
)

// RandomEmail returns a throwaway address such as test-1a2b3c4d@example.com.
func RandomEmail() string {
	return "test-" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8] + "@example.com"
}

// filterUsers keeps the users whose email matches the glob pattern.
func filterUsers(users []supabase.User, pattern string) ([]supabase.User, error) {
	if pattern == "" {
		return users, nil
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid pattern %q", pattern)
	}
	out := make([]supabase.User, 0, len(users))
	for _, u := range users {
		if ok, _ := doublestar.Match(pattern, u.Email); ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func (a *app) usersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Create and list project users",
	}
	cmd.AddCommand(a.usersCreateCmd(), a.usersListCmd(), a.usersSyncCmd())
	return cmd
}

func (a *app) usersCreateCmd() *cobra.Command {
	var (
		email   string
		random  bool
		confirm bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user with the test password",
		Long: `Create a user through the admin API. Every user gets the password
"TestPassword1". Without --email or --random the address is asked for.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch {
			case random && email != "":
				return errors.New("--email and --random cannot be combined")
			case random:
				email = RandomEmail()
			case email == "":
				err := huh.NewForm(huh.NewGroup(
					huh.NewInput().
						Title("Email").
						Placeholder("someone@example.com").
						Value(&email).
						Validate(func(s string) error {
							if strings.TrimSpace(s) == "" {
								return ErrNoEmail
							}
							return nil
						}),
				)).WithInput(a.in).WithOutput(a.errOut).Run()
				if err != nil {
					return err
				}
			}

			con := a.console(cmd.Context())
			defer con.Close()

			user, err := con.CreateUserSync(cmd.Context(), strings.TrimSpace(email), confirm)
			if err != nil {
				return err
			}
			return a.printResult(user, func() {
				fmt.Fprintf(a.out, "Created %s (%s)\n", user.Email, user.ID)
			})
		},
	}

	cmd.Flags().StringVarP(&email, "email", "e", "", "Email address of the new user")
	cmd.Flags().BoolVar(&random, "random", false, "Use a generated test-xxxxxxxx@example.com address")
	cmd.Flags().BoolVar(&confirm, "confirm", false, "Mark the email address as already confirmed")
	return cmd
}

func (a *app) usersListCmd() *cobra.Command {
	var (
		match   string
		refresh bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the cached users",
		Long: `List the users cached by the last directory sync. The cache is refreshed
whenever the connection settings change; pass --refresh to sync first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			users := a.session(ctx).Users()
			if refresh {
				con := a.syncConsole(ctx)
				synced, err := con.SyncUsers(ctx)
				con.Close()
				if err != nil {
					return err
				}
				users = synced
			}

			users, err := filterUsers(users, match)
			if err != nil {
				return err
			}
			return a.printUsers(users)
		},
	}

	cmd.Flags().StringVarP(&match, "match", "m", "", "Only show users whose email matches this glob, e.g. 'test-*@example.com'")
	cmd.Flags().BoolVar(&refresh, "refresh", false, "Sync with the project before listing")
	return cmd
}

func (a *app) printUsers(users []supabase.User) error {
	if users == nil {
		users = []supabase.User{}
	}
	return a.printResult(users, func() {
		if len(users) == 0 {
			fmt.Fprintln(a.out, "No users.")
			return
		}
		tw := output.Table(a.out)
		fmt.Fprintln(tw, "ID\tEMAIL\tROLE\tCREATED\tLAST SIGN IN")
		for _, u := range users {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", u.ID, u.Email, u.Role, formatTime(u.CreatedAt), formatTime(u.LastSignInAt))
		}
		_ = tw.Flush()
	})
}

func (a *app) usersSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Refresh the cached users from the project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			con := a.syncConsole(cmd.Context())
			defer con.Close()

			users, err := con.SyncUsers(cmd.Context())
			if err != nil {
				return err
			}
			return a.printResult(map[string]int{"users": len(users)}, func() {
				fmt.Fprintf(a.out, "%d users cached.\n", len(users))
			})
		},
	}
}
