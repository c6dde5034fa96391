// Copyright 2015 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package errors

import (
	"fmt"
	"strings"

	"github.com/cic-lang/cic/internal/analyzer/position"
)

// Kind classifies a Diagnostic.
type Kind int

// The kinds of semantic error a program can contain.
const (
	UndeclaredVariable Kind = iota
	TypeMismatch
	DuplicateDeclaration
	ScopeUnderflow
)

// Message returns the fixed user visible message for the kind.
func (k Kind) Message() string {
	switch k {
	case UndeclaredVariable:
		return "variável não declarada"
	case TypeMismatch:
		return "tipos não compatíveis"
	case DuplicateDeclaration:
		return "variável já declarada"
	case ScopeUnderflow:
		return "bloco não aberto"
	default:
		panic("unexpected kind")
	}
}

func (k Kind) String() string {
	switch k {
	case UndeclaredVariable:
		return "undeclared_variable"
	case TypeMismatch:
		return "type_mismatch"
	case DuplicateDeclaration:
		return "duplicate_declaration"
	case ScopeUnderflow:
		return "scope_underflow"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Diagnostic is a semantic error found on one line of a program.
type Diagnostic struct {
	Pos  position.Position
	Kind Kind
}

// Error renders the diagnostic as it appears in program output.
func (d *Diagnostic) Error() string {
	return fmt.Sprintf("Erro linha %d, %s", d.Pos.Line, d.Kind.Message())
}

// DiagnosticList contains a list of diagnostics.
type DiagnosticList []*Diagnostic

// Add appends a diagnostic of kind at a position to the list, and returns it.
func (p *DiagnosticList) Add(pos position.Position, kind Kind) *Diagnostic {
	d := &Diagnostic{pos, kind}
	*p = append(*p, d)
	return d
}

// Append puts a DiagnosticList on the end of this DiagnosticList.
func (p *DiagnosticList) Append(l DiagnosticList) {
	*p = append(*p, l...)
}

// Count returns the number of diagnostics of the given kind.
func (p DiagnosticList) Count(kind Kind) (n int) {
	for _, d := range p {
		if d.Kind == kind {
			n++
		}
	}
	return
}

// DiagnosticList implements the error interface.
func (p DiagnosticList) Error() string {
	switch len(p) {
	case 0:
		return "no errors"
	case 1:
		return p[0].Error()
	}
	lines := make([]string, 0, len(p))
	for _, d := range p {
		lines = append(lines, d.Error())
	}
	return strings.Join(lines, "\n")
}
