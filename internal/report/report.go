// Package report renders per-function verification outcomes. Output is
// advisory: it never alters the artifact being compiled.
package report

import (
	"fmt"
	"strings"
)

type Status int

const (
	// StatusValid: the proof succeeded.
	StatusValid Status = iota
	// StatusInvalid: the proof was refuted; the diagnostic carries a
	// counterexample. This is a successful analysis of a real defect.
	StatusInvalid
	// StatusUnknown: the check was inconclusive (timeout, undecidable
	// fragment, unencodable construct).
	StatusUnknown
	// StatusSkipped: verification was not attempted (parse error, type
	// error, unsupported construct).
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusValid:
		return "VALID"
	case StatusInvalid:
		return "INVALID"
	case StatusUnknown:
		return "UNKNOWN"
	}
	return "SKIPPED"
}

// Diagnostic is the outcome of one function's verification.
type Diagnostic struct {
	Function string
	File     string
	Line     int

	Status         Status
	Counterexample string // variable assignment list, StatusInvalid only
	Detail         string // reason or error message
}

func (d *Diagnostic) String() string {
	var b strings.Builder
	b.WriteString(colour(statusColour(d.Status), fmt.Sprintf("%-8s", d.Status)))
	fmt.Fprintf(&b, " %s", d.Function)
	if d.File != "" {
		fmt.Fprintf(&b, " (%s:%d)", d.File, d.Line)
	}
	if d.Status == StatusInvalid && d.Counterexample != "" {
		b.WriteString("\n         counterexample: ")
		b.WriteString(colour(33, d.Counterexample))
	}
	if d.Detail != "" {
		b.WriteString("\n         ")
		b.WriteString(d.Detail)
	}
	return b.String()
}

func statusColour(s Status) int {
	switch s {
	case StatusValid:
		return 32
	case StatusInvalid:
		return 31
	case StatusUnknown:
		return 35
	}
	return 33
}

func colour(color int, str string) string {
	return fmt.Sprintf("\033[%dm%s\033[0m", color, str)
}
