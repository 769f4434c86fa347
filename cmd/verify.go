package main

import (
	"context"
	"fmt"
	"time"

	yices2 "github.com/ianamason/yices2_go_bindings/yices_api"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"gover/internal/frontend"
	"gover/internal/report"
	"gover/internal/verifier"
)

var (
	verifyTimeout time.Duration
	verifyWorkers int
	verifyDebug   bool
)

var verifyCommand = &cobra.Command{
	Use:   "verify [files...]",
	Short: "verify annotated functions in Go source files",
	Long: `Parses the given Go files, finds functions carrying //verify:pre and
//verify:post directives, and proves each contract or reports a
counterexample.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return verifyExec(args)
	},
}

func init() {
	verifyCommand.Flags().DurationVar(&verifyTimeout, "timeout", 30*time.Second, "per-function solver timeout")
	verifyCommand.Flags().IntVar(&verifyWorkers, "workers", 0, "concurrent verification tasks (0 = NumCPU)")
	verifyCommand.Flags().BoolVar(&verifyDebug, "debug", false, "log pipeline internals")
}

func verifyExec(paths []string) error {
	if verifyDebug {
		log.SetLevel(log.DebugLevel)
	}
	yices2.Init()
	defer yices2.Exit()

	start := time.Now()
	fns, contracts, err := frontend.Load(paths)
	if err != nil {
		return err
	}
	log.Infof("found %d annotated functions", len(fns))

	diagnostics := verifier.RunAll(context.Background(), fns, contracts, verifier.Options{
		Timeout: verifyTimeout,
		Workers: verifyWorkers,
	})

	var invalid int
	for _, d := range diagnostics {
		fmt.Println(d)
		if d.Status == report.StatusInvalid {
			invalid++
		}
	}
	log.Infof("verified %d functions in %.2fs, %d refuted",
		len(diagnostics), time.Since(start).Seconds(), invalid)
	return nil
}
