package console

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// ProbeResult is the environment an expectation is evaluated against.
type ProbeResult struct {
	Status    int    `expr:"status"`
	Endpoint  string `expr:"endpoint"`
	ElapsedMs int64  `expr:"elapsedMs"`
}

// Expectation is a compiled boolean expression over a ProbeResult, for
// example `status < 400 && elapsedMs < 500`.
type Expectation struct {
	source  string
	program *vm.Program
}

// CompileExpectation compiles source. An empty source yields nil.
func CompileExpectation(source string) (*Expectation, error) {
	if source == "" {
		return nil, nil
	}
	program, err := expr.Compile(source, expr.Env(ProbeResult{}), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("invalid expectation %q: %w", source, err)
	}
	return &Expectation{source: source, program: program}, nil
}

// String returns the expression source.
func (e *Expectation) String() string {
	if e == nil {
		return ""
	}
	return e.source
}

// Check reports whether r satisfies the expectation. A nil expectation
// accepts everything.
func (e *Expectation) Check(r ProbeResult) (bool, error) {
	if e == nil {
		return true, nil
	}
	out, err := expr.Run(e.program, r)
	if err != nil {
		return false, err
	}
	ok, _ := out.(bool)
	return ok, nil
}
