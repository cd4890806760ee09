package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/getmockd/supamocka/pkg/cli/internal/output"
	"github.com/getmockd/supamocka/pkg/kvstore"
)

// StatusOutput summarizes the saved session.
type StatusOutput struct {
	URL          string   `json:"url"`
	PublicKeySet bool     `json:"publicKeySet"`
	SecretKeySet bool     `json:"secretKeySet"`
	Users        int      `json:"users"`
	IntervalMs   int64    `json:"pollingIntervalMs"`
	Endpoint     string   `json:"pollingEndpoint"`
	OpenSections []string `json:"openSections"`
	Store        string   `json:"store"`
	Persistent   bool     `json:"persistent"`
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func (a *app) statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Summarize the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			state := a.session(cmd.Context())
			conn := state.Connection()
			polling := state.Polling()

			out := StatusOutput{
				URL:          conn.URL,
				PublicKeySet: conn.PublicKey != "",
				SecretKeySet: conn.SecretKey != "",
				Users:        len(state.Users()),
				IntervalMs:   polling.Interval.Milliseconds(),
				Endpoint:     polling.Endpoint,
				OpenSections: state.OpenSections(),
				Store:        a.cfg.Store,
				Persistent:   a.cfg.Store != kvstore.BackendMemory && !a.store.Degraded(),
			}
			return a.printResult(out, func() {
				tw := output.Table(a.out)
				fmt.Fprintf(tw, "Project:\t%s\n", withRole(out.URL, ""))
				fmt.Fprintf(tw, "Keys set:\tpublic %s, secret %s\n", yesNo(out.PublicKeySet), yesNo(out.SecretKeySet))
				fmt.Fprintf(tw, "Cached users:\t%d\n", out.Users)
				fmt.Fprintf(tw, "Polling:\tGET %s every %s\n", out.Endpoint, polling.Interval)
				fmt.Fprintf(tw, "Open sections:\t%s\n", strings.Join(out.OpenSections, ", "))
				fmt.Fprintf(tw, "Store:\t%s (persistent: %s)\n", out.Store, yesNo(out.Persistent))
				_ = tw.Flush()
			})
		},
	}
}
