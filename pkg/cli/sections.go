package cli

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/getmockd/supamocka/pkg/cli/internal/output"
	"github.com/getmockd/supamocka/pkg/session"
)

// SectionOutput is one row of the sections listing.
type SectionOutput struct {
	ID   string `json:"id"`
	Open bool   `json:"open"`
}

func validateSections(ids []string) error {
	for _, id := range ids {
		if !slices.Contains(session.Sections, id) {
			return fmt.Errorf("unknown section %q (known: %s)", id, strings.Join(session.Sections, ", "))
		}
	}
	return nil
}

func (a *app) sectionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sections",
		Short: "Show which console sections are expanded",
		Long: `Show which sections of the interactive console are expanded. The set is
saved, so the console reopens the way it was left.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.printSections(a.session(cmd.Context()))
		},
	}

	toggle := func(use, short string, open bool) *cobra.Command {
		return &cobra.Command{
			Use:       use + " SECTION...",
			Short:     short,
			Args:      cobra.MinimumNArgs(1),
			ValidArgs: session.Sections,
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := validateSections(args); err != nil {
					return err
				}
				state := a.session(cmd.Context())
				ids := state.OpenSections()
				if open {
					ids = append(ids, args...)
				} else {
					ids = slices.DeleteFunc(ids, func(id string) bool { return slices.Contains(args, id) })
				}
				if err := state.SetOpenSections(ids); err != nil {
					return err
				}
				return a.printSections(state)
			},
		}
	}
	cmd.AddCommand(
		toggle("open", "Expand sections", true),
		toggle("close", "Collapse sections", false),
	)
	return cmd
}

func (a *app) printSections(state *session.State) error {
	rows := make([]SectionOutput, 0, len(session.Sections))
	for _, id := range session.Sections {
		rows = append(rows, SectionOutput{ID: id, Open: state.IsOpen(id)})
	}
	return a.printResult(rows, func() {
		tw := output.Table(a.out)
		fmt.Fprintln(tw, "SECTION\tSTATE")
		for _, r := range rows {
			st := "closed"
			if r.Open {
				st = "open"
			}
			fmt.Fprintf(tw, "%s\t%s\n", r.ID, st)
		}
		_ = tw.Flush()
	})
}
