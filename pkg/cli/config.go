package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/getmockd/supamocka/pkg/cli/internal/output"
	"github.com/getmockd/supamocka/pkg/cliconfig"
)

// ConfigValue is one effective setting and where it came from.
type ConfigValue struct {
	Key    string `json:"key"`
	Value  any    `json:"value"`
	Source string `json:"source"`
}

func configValues(cfg *cliconfig.CLIConfig) []ConfigValue {
	values := map[string]any{
		"store":       cfg.Store,
		"dataDir":     cfg.DataDir,
		"logLevel":    cfg.LogLevel,
		"logFormat":   cfg.LogFormat,
		"diagnostics": cfg.Diagnostics,
		"timeout":     cfg.Timeout.String(),
		"verbose":     cfg.Verbose,
		"json":        cfg.JSON,
	}
	out := make([]ConfigValue, 0, len(cliconfig.Keys))
	for _, key := range cliconfig.Keys {
		source := cfg.Sources[key]
		if source == "" {
			source = cliconfig.SourceDefault
		}
		out = append(out, ConfigValue{Key: key, Value: values[key], Source: source})
	}
	return out
}

func (a *app) configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show the effective CLI configuration and where each value came from",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			values := configValues(a.cfg)
			return a.printResult(values, func() {
				tw := output.Table(a.out)
				fmt.Fprintln(tw, "KEY\tVALUE\tSOURCE")
				for _, v := range values {
					fmt.Fprintf(tw, "%s\t%v\t%s\n", v.Key, v.Value, v.Source)
				}
				_ = tw.Flush()
			})
		},
	}
}
