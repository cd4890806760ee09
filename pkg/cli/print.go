package cli

import "github.com/getmockd/supamocka/pkg/cli/internal/output"

// printResult outputs a single operation result.
//
// Contract: when --json is active, ONLY the JSON encoding of data is written
// to stdout. Human-readable prose (progress messages, hints) must go to stderr
// or be omitted entirely. textFn is called only in text mode.
func (a *app) printResult(data any, textFn func()) error {
	if a.jsonOutput() {
		return output.JSON(a.out, data)
	}
	textFn()
	return nil
}

// warn writes a warning to stderr in both modes.
func (a *app) warn(format string, args ...any) {
	output.Warn(a.errOut, format, args...)
}
