// Package verifier runs the per-function pipeline: parse the annotated
// conditions, resolve and typecheck them, generate the weakest
// precondition over the control-flow graph, and hand the verification
// condition to the solver. Functions verify independently; nothing here
// mutates shared state.
package verifier

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"gover/internal/cfg"
	"gover/internal/cond"
	"gover/internal/report"
	"gover/internal/smt"
	"gover/internal/wp"
)

// Function is one annotated function in the integration shim's normalized
// view: raw condition strings, the variable table, and the lowered
// control-flow graph with condition expressions already resolved.
type Function struct {
	Name string
	File string
	Line int

	Pre   string
	Post  string
	Table *cond.VariableTable
	Graph *cfg.Graph

	// LowerErr is set by the shim when the function body could not be
	// normalized; the function is reported as skipped.
	LowerErr error
}

// Verify runs the pipeline for a single function. The stages are strictly
// sequential; only the solve is bounded by the timeout.
func Verify(ctx context.Context, fn *Function, contracts cfg.Contracts, timeout time.Duration) *report.Diagnostic {
	d := &report.Diagnostic{Function: fn.Name, File: fn.File, Line: fn.Line}

	if fn.LowerErr != nil {
		return skipped(d, fn.LowerErr)
	}

	pre, perr := cond.Parse(fn.Pre)
	if perr != nil {
		return skipped(d, perr)
	}
	post, perr := cond.Parse(fn.Post)
	if perr != nil {
		return skipped(d, perr)
	}

	pre, err := cond.Resolve(pre, fn.Table)
	if err != nil {
		return skipped(d, err)
	}
	post, err = cond.Resolve(post, fn.Table)
	if err != nil {
		return skipped(d, err)
	}
	if err := cond.CheckCondition(pre); err != nil {
		return skipped(d, err)
	}
	if err := cond.CheckCondition(post); err != nil {
		return skipped(d, err)
	}

	vc, err := wp.BuildVC(pre, post, fn.Graph, contracts)
	if err != nil {
		return skipped(d, err)
	}
	log.Debugf("%s: vc: %s", fn.Name, vc)

	// The generated condition must itself be well-typed; a failure here
	// is a bug in the generator, not in the annotated source.
	if err := cond.CheckCondition(vc); err != nil {
		d.Status = report.StatusUnknown
		d.Detail = "internal: generated condition ill-typed: " + err.Error()
		return d
	}

	solver := smt.NewSolver()
	defer solver.Close()

	checkCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		checkCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	result, err := solver.Check(checkCtx, vc)
	if err != nil {
		d.Status = report.StatusUnknown
		d.Detail = err.Error()
		return d
	}

	switch result.Status {
	case smt.StatusValid:
		d.Status = report.StatusValid
	case smt.StatusInvalid:
		d.Status = report.StatusInvalid
		d.Counterexample = result.Model.String()
	default:
		d.Status = report.StatusUnknown
		d.Detail = result.Reason
	}
	return d
}

// skipped records a recoverable pipeline error: this function is not
// verified, others are unaffected.
func skipped(d *report.Diagnostic, err error) *report.Diagnostic {
	d.Status = report.StatusSkipped
	d.Detail = err.Error()
	log.Debugf("%s: skipped: %v", d.Function, err)
	return d
}
