package cli

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/getmockd/supamocka/pkg/cli/internal/output"
	"github.com/getmockd/supamocka/pkg/session"
	"github.com/getmockd/supamocka/pkg/supabase"
)

// SettingsOutput is the JSON form of the connection settings. The secret
// key is always masked.
type SettingsOutput struct {
	URL           string   `json:"url"`
	PublicKey     string   `json:"publicKey"`
	SecretKey     string   `json:"secretKey"`
	PublicKeyRole string   `json:"publicKeyRole,omitempty"`
	SecretKeyRole string   `json:"secretKeyRole,omitempty"`
	Warnings      []string `json:"warnings,omitempty"`
}

func describeSettings(c session.ConnectionSettings) SettingsOutput {
	out := SettingsOutput{
		URL:       c.URL,
		PublicKey: c.PublicKey,
		SecretKey: output.Mask(c.SecretKey),
	}
	if role, err := supabase.KeyRole(c.PublicKey); err == nil {
		out.PublicKeyRole = role
		if role == supabase.RoleService {
			out.Warnings = append(out.Warnings,
				"the public key is a service_role key; anyone holding it has admin access")
		}
	}
	if role, err := supabase.KeyRole(c.SecretKey); err == nil {
		out.SecretKeyRole = role
		if role != supabase.RoleService {
			out.Warnings = append(out.Warnings,
				fmt.Sprintf("the secret key has role %q; admin user calls need a service_role key", role))
		}
	}
	return out
}

func withRole(value, role string) string {
	if value == "" {
		return "(not set)"
	}
	if role == "" {
		return value
	}
	return value + " (" + role + ")"
}

func (a *app) settingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show and edit the project connection settings",
	}
	cmd.AddCommand(a.settingsShowCmd(), a.settingsSetCmd(), a.settingsResetCmd())
	return cmd
}

func (a *app) settingsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the connection settings with the secret key masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			view := describeSettings(a.session(cmd.Context()).Connection())
			return a.printSettings(view)
		},
	}
}

func (a *app) printSettings(view SettingsOutput) error {
	return a.printResult(view, func() {
		tw := output.Table(a.out)
		fmt.Fprintf(tw, "URL:\t%s\n", withRole(view.URL, ""))
		fmt.Fprintf(tw, "Public key:\t%s\n", withRole(view.PublicKey, view.PublicKeyRole))
		fmt.Fprintf(tw, "Secret key:\t%s\n", withRole(view.SecretKey, view.SecretKeyRole))
		_ = tw.Flush()
		for _, w := range view.Warnings {
			a.warn("%s", w)
		}
	})
}

func (a *app) settingsSetCmd() *cobra.Command {
	var url, publicKey, secretKey string

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change the connection settings",
		Long: `Change the connection settings. Only the flags given are changed.
Without flags an interactive form is shown, prefilled with the current values.

Saving re-derives the admin client and refreshes the cached user list.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			state := a.session(ctx)
			current := state.Connection()
			flags := cmd.Flags()
			interactive := !flags.Changed("url") && !flags.Changed("public-key") && !flags.Changed("secret-key")
			changed := func(name string) bool { return interactive || flags.Changed(name) }

			if interactive {
				edited, err := a.connectionForm(current)
				if err != nil {
					return err
				}
				url, publicKey, secretKey = edited.URL, edited.PublicKey, edited.SecretKey
			}

			updated, err := state.UpdateConnection(func(c *session.ConnectionSettings) {
				if changed("url") {
					c.URL = url
				}
				if changed("public-key") {
					c.PublicKey = publicKey
				}
				if changed("secret-key") {
					c.SecretKey = secretKey
				}
			})
			if err != nil {
				return err
			}

			con := a.console(ctx)
			con.Close()

			view := describeSettings(updated)
			if err := a.printSettings(view); err != nil {
				return err
			}
			if !a.jsonOutput() {
				fmt.Fprintf(a.errOut, "Settings saved. %d users cached.\n", len(con.Users()))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "url", "", "Project URL")
	cmd.Flags().StringVar(&publicKey, "public-key", "", "Public (anon) API key")
	cmd.Flags().StringVar(&secretKey, "secret-key", "", "Secret (service_role) API key")
	return cmd
}

// connectionForm asks for the connection settings, starting from current.
func (a *app) connectionForm(current session.ConnectionSettings) (session.ConnectionSettings, error) {
	edited := current
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Project URL").
				Placeholder("https://<project>.supabase.co").
				Value(&edited.URL),
			huh.NewInput().
				Title("Public (anon) key").
				Value(&edited.PublicKey),
			huh.NewInput().
				Title("Secret (service_role) key").
				EchoMode(huh.EchoModePassword).
				Value(&edited.SecretKey),
		),
	).WithInput(a.in).WithOutput(a.errOut)
	if err := form.Run(); err != nil {
		return current, err
	}
	return edited, nil
}

func (a *app) settingsResetCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Forget every saved setting, cached user and open section",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				confirm := false
				err := huh.NewForm(huh.NewGroup(
					huh.NewConfirm().
						Title("Forget all saved settings?").
						Value(&confirm),
				)).WithInput(a.in).WithOutput(a.errOut).Run()
				if err != nil {
					return err
				}
				if !confirm {
					return errors.New("reset cancelled")
				}
			}

			a.session(cmd.Context()).Reset()
			return a.printResult(map[string]bool{"reset": true}, func() {
				fmt.Fprintln(a.out, "All settings forgotten.")
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}
