// Copyright 2016 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package analyzer

import (
	"strings"

	"github.com/cic-lang/cic/internal/analyzer/errors"
	"github.com/cic-lang/cic/internal/analyzer/position"
	"github.com/cic-lang/cic/internal/analyzer/symbol"
	"github.com/golang/glog"
)

// Statement keywords.
const (
	kwBlock  = "BLOCO"
	kwEnd    = "FIM"
	kwNumber = "NUMERO"
	kwString = "CADEIA"
	kwPrint  = "PRINT"
)

// globalScope is the name of the scope open before the first line.
const globalScope = "global"

type stmtKind int

const (
	blockOpenStmt stmtKind = iota
	blockCloseStmt
	declStmt
	printStmt
	assignStmt
)

func (k stmtKind) String() string {
	switch k {
	case blockOpenStmt:
		return "block-open"
	case blockCloseStmt:
		return "block-close"
	case declStmt:
		return "declaration"
	case printStmt:
		return "print"
	default:
		return "assignment"
	}
}

// classify returns the kind of statement on a trimmed line.  The first
// matching prefix wins, and anything else is an assignment.
func classify(line string) stmtKind {
	switch {
	case strings.HasPrefix(line, kwBlock):
		return blockOpenStmt
	case strings.HasPrefix(line, kwEnd):
		return blockCloseStmt
	case strings.HasPrefix(line, kwNumber), strings.HasPrefix(line, kwString):
		return declStmt
	case strings.HasPrefix(line, kwPrint):
		return printStmt
	default:
		return assignStmt
	}
}

// state is the analysis context of one program run.
type state struct {
	prog  string
	line  int // 1-based number of the line being processed
	stack symbol.Stack

	output []string
	diags  errors.DiagnosticList

	errorsAbort bool
	dumpScopes  bool
}

func newState(prog string, a *Analyzer) *state {
	s := &state{
		prog:        prog,
		errorsAbort: a.errorsAbort,
		dumpScopes:  a.dumpScopes,
	}
	s.stack.Push(globalScope)
	return s
}

func (s *state) pos() position.Position {
	return position.Position{Filename: s.prog, Line: s.line}
}

// emit appends a printed value to the output.
func (s *state) emit(value string) {
	s.output = append(s.output, value)
}

// report records a diagnostic of kind for the current line and appends it to
// the output.
func (s *state) report(kind errors.Kind) *errors.Diagnostic {
	d := s.diags.Add(s.pos(), kind)
	s.output = append(s.output, d.Error())
	diagnosticsTotal.WithLabelValues(s.prog, kind.String()).Inc()
	glog.V(1).Infof("%s: %s", d.Pos, kind)
	return d
}

// fatal reports a diagnostic that aborts the run when errorsAbort is set.
func (s *state) fatal(kind errors.Kind) error {
	d := s.report(kind)
	if s.errorsAbort {
		return d
	}
	return nil
}

func (s *state) result() *Result {
	return &Result{
		Name:        s.prog,
		Output:      s.output,
		Diagnostics: s.diags,
		Lines:       s.line,
	}
}

// step processes the next source line.
func (s *state) step(raw string) error {
	s.line++
	line := strings.TrimSpace(raw)
	kind := classify(line)
	glog.V(2).Infof("%s: %s %q", s.pos(), kind, line)
	switch kind {
	case blockOpenStmt:
		s.openBlock(line)
		return nil
	case blockCloseStmt:
		return s.closeBlock()
	case declStmt:
		return s.declare(line)
	case printStmt:
		s.print(line)
		return nil
	default:
		s.assign(line)
		return nil
	}
}

func (s *state) openBlock(line string) {
	name := strings.TrimSpace(strings.TrimPrefix(line, kwBlock))
	s.stack.Push(name)
	glog.V(2).Infof("%s: entered block %q at depth %d", s.pos(), name, s.stack.Depth())
}

func (s *state) closeBlock() error {
	// The global scope is not closed by FIM.
	if s.stack.Depth() <= 1 {
		return s.fatal(errors.ScopeUnderflow)
	}
	if s.dumpScopes {
		glog.Infof("%s: closing block:\n%s", s.pos(), s.stack.String())
	}
	sc, err := s.stack.Pop()
	if err != nil {
		return s.fatal(errors.ScopeUnderflow)
	}
	glog.V(2).Infof("%s: left block %q", s.pos(), sc.Name)
	return nil
}
