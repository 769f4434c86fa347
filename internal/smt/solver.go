// Package smt checks verification conditions with yices2. A condition is
// valid when its negation is unsatisfiable; a satisfying assignment of the
// negation is a counterexample to the contract.
package smt

import (
	"context"
	"sync"

	yices2 "github.com/ianamason/yices2_go_bindings/yices_api"
	"github.com/pkg/errors"

	"gover/internal/cond"
)

// yicesMu serializes term construction, assertion and model extraction.
// The yices term table is process-global and not thread-safe; only the
// solve itself may run concurrently, one context per Solver.
var yicesMu sync.Mutex

type Status int

const (
	// StatusValid: the negated condition is unsatisfiable, the contract
	// holds on every path.
	StatusValid Status = iota
	// StatusInvalid: the solver found a counterexample.
	StatusInvalid
	// StatusUnknown: timeout, undecidable fragment or encoding failure.
	// Never to be conflated with StatusValid.
	StatusUnknown
)

func (s Status) String() string {
	switch s {
	case StatusValid:
		return "valid"
	case StatusInvalid:
		return "invalid"
	}
	return "unknown"
}

type Result struct {
	Status Status
	Model  Model  // counterexample, set when Status is StatusInvalid
	Reason string // set when Status is StatusUnknown
}

// Solver owns one yices context. Contexts are never shared across
// verification tasks; acquire per task and Close on every exit path.
type Solver struct {
	ctx yices2.ContextT
}

func NewSolver() *Solver {
	s := &Solver{
		ctx: yices2.ContextT{},
	}
	yices2.InitContext(yices2.ConfigT{}, &s.ctx)
	return s
}

func (s *Solver) Close() {
	yices2.CloseContext(&s.ctx)
}

// Check decides the verification condition. The caller-supplied context
// bounds the solve; on expiry the search is stopped and the result is
// StatusUnknown rather than a blocked caller.
func (s *Solver) Check(ctx context.Context, vc cond.Expr) (Result, error) {
	enc := newEncoder()

	yicesMu.Lock()
	term, err := enc.encode(cond.Not(vc))
	if err != nil {
		yicesMu.Unlock()
		var encErr *EncodingError
		if errors.As(err, &encErr) {
			return Result{Status: StatusUnknown, Reason: encErr.Error()}, nil
		}
		return Result{}, err
	}
	errcode := yices2.AssertFormula(s.ctx, term)
	yicesMu.Unlock()
	if errcode < 0 {
		return Result{}, errors.Errorf("assert formula: %s", yices2.ErrorString())
	}

	done := make(chan yices2.SmtStatusT, 1)
	go func() {
		done <- yices2.CheckContext(s.ctx, yices2.ParamT{})
	}()

	var status yices2.SmtStatusT
	select {
	case status = <-done:
	case <-ctx.Done():
		yices2.StopSearch(s.ctx)
		<-done
		return Result{Status: StatusUnknown, Reason: "solver timeout: " + ctx.Err().Error()}, nil
	}

	switch status {
	case yices2.StatusUnsat:
		return Result{Status: StatusValid}, nil
	case yices2.StatusSat:
		yicesMu.Lock()
		model := yices2.GetModel(s.ctx, 1)
		counterexample := extractModel(model, enc.consts)
		yices2.CloseModel(model)
		yicesMu.Unlock()
		return Result{Status: StatusInvalid, Model: counterexample}, nil
	case yices2.StatusInterrupted:
		return Result{Status: StatusUnknown, Reason: "solver interrupted"}, nil
	case yices2.StatusUnknown:
		return Result{Status: StatusUnknown, Reason: "solver returned unknown"}, nil
	}
	return Result{}, errors.Errorf("check context: %s", yices2.ErrorString())
}
