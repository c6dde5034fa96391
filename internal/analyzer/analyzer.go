// Copyright 2011 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

// Package analyzer implements the semantic checker for CIC programs.  A
// program is analyzed one line at a time, in order, against a stack of
// lexical scopes; the result is the list of values printed by the program
// interleaved with the diagnostics found.
package analyzer

import (
	"bufio"
	"io"
	"strings"
	"time"

	"github.com/cic-lang/cic/internal/analyzer/errors"
	"github.com/golang/glog"
	perrors "github.com/pkg/errors"
)

const maxLineLength = 1024 * 1024

// Analyzer holds the configuration for analyzing programs.  It holds no
// per-program state and may be shared.
type Analyzer struct {
	errorsAbort bool // Duplicate declarations and scope underflow abort the run.
	dumpScopes  bool // Log the scope stack when blocks close.
}

// New creates a new Analyzer with the supplied options.
func New(options ...Option) (*Analyzer, error) {
	a := &Analyzer{}
	if err := a.SetOption(options...); err != nil {
		return nil, err
	}
	return a, nil
}

// SetOption takes one or more option functions and applies them in order to Analyzer.
func (a *Analyzer) SetOption(options ...Option) error {
	for _, option := range options {
		if err := option(a); err != nil {
			return err
		}
	}
	return nil
}

// Result is the outcome of analyzing one program.
type Result struct {
	Name        string
	Output      []string              // printed values and diagnostics, in statement order
	Diagnostics errors.DiagnosticList // the diagnostics alone
	Lines       int                   // number of lines processed
}

// String returns the program output, one entry per line.
func (r *Result) String() string {
	return strings.Join(r.Output, "\n")
}

// Analyze reads the program called name from input and analyzes it.
func (a *Analyzer) Analyze(name string, input io.Reader) (*Result, error) {
	var lines []string
	scanner := bufio.NewScanner(input)
	scanner.Buffer(make([]byte, 0, 4096), maxLineLength)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, perrors.Wrapf(err, "failed to read program %q", name)
	}
	return a.AnalyzeLines(name, lines)
}

// AnalyzeLines analyzes the program called name given as a sequence of
// source lines.  Semantic errors are returned in the Result; the error return
// is non-nil only when the analysis was aborted, in which case it is the
// *errors.Diagnostic responsible and the Result holds the output up to that
// line.
func (a *Analyzer) AnalyzeLines(name string, lines []string) (*Result, error) {
	start := time.Now()
	s := newState(name, a)
	var err error
	for _, line := range lines {
		if err = s.step(line); err != nil {
			glog.Infof("%s: analysis aborted: %s", name, err)
			break
		}
	}
	if a.dumpScopes {
		glog.Infof("%s scopes at end of program:\n%s", name, s.stack.String())
	}
	linesTotal.WithLabelValues(name).Add(float64(s.line))
	analysisDurations.WithLabelValues(name).Observe(time.Since(start).Seconds())
	return s.result(), err
}
