package verifier

import (
	"context"
	"runtime"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"gover/internal/cfg"
	"gover/internal/report"
)

type Options struct {
	// Timeout bounds each function's solver call; zero means no bound.
	Timeout time.Duration
	// Workers caps concurrent verification tasks; zero means NumCPU.
	Workers int
}

// RunAll verifies every function on a bounded worker pool. Tasks share
// only read-only inputs, so they run in parallel safely; diagnostics come
// back in input order.
func RunAll(ctx context.Context, fns []*Function, contracts cfg.Contracts, opts Options) []*report.Diagnostic {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	var (
		sem         = make(chan struct{}, workers)
		wg          sync.WaitGroup
		diagnostics = make([]*report.Diagnostic, len(fns))
	)
	for i, fn := range fns {
		// Checked before the semaphore so a done context wins even when
		// slots are free.
		if err := ctx.Err(); err != nil {
			diagnostics[i] = notRun(fn, err)
			continue
		}
		select {
		case <-ctx.Done():
			diagnostics[i] = notRun(fn, ctx.Err())
			continue
		case sem <- struct{}{}:
		}
		wg.Add(1)
		go func(i int, fn *Function) {
			defer wg.Done()
			defer func() { <-sem }()
			log.Debugf("verifying %s", fn.Name)
			diagnostics[i] = Verify(ctx, fn, contracts, opts.Timeout)
		}(i, fn)
	}
	wg.Wait()
	return diagnostics
}

func notRun(fn *Function, err error) *report.Diagnostic {
	return &report.Diagnostic{
		Function: fn.Name,
		File:     fn.File,
		Line:     fn.Line,
		Status:   report.StatusUnknown,
		Detail:   err.Error(),
	}
}
