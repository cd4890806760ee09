package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/getmockd/supamocka/pkg/cli/internal/output"
	"github.com/getmockd/supamocka/pkg/supabase"
)

func (a *app) endpointsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "endpoints",
		Short: "List the REST endpoints the project publishes",
		Long: `List the paths of the OpenAPI document served at <url>/rest/v1/.
Any of them can be used as the polling endpoint.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conn := a.session(cmd.Context()).Connection()
			if conn.URL == "" {
				return ErrNoProjectURL
			}

			endpoints, err := a.restClient(conn.URL, conn.PublicKey).ListEndpoints(cmd.Context())
			if err != nil {
				return fmt.Errorf("listing endpoints: %w", err)
			}
			if endpoints == nil {
				endpoints = []supabase.Endpoint{}
			}
			return a.printResult(endpoints, func() {
				if len(endpoints) == 0 {
					fmt.Fprintln(a.out, "No endpoints published.")
					return
				}
				tw := output.Table(a.out)
				fmt.Fprintln(tw, "PATH\tMETHODS\tSUMMARY")
				for _, e := range endpoints {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", e.Path, strings.Join(e.Methods, ","), e.Summary)
				}
				_ = tw.Flush()
			})
		},
	}
}
