// Copyright 2011 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package symbol

import (
	"bytes"
	"errors"
	"fmt"
	"sort"

	"github.com/cic-lang/cic/internal/analyzer/position"
)

var (
	// ErrScopeUnderflow is returned when a scope is popped from, or a symbol
	// declared in, an empty Stack.
	ErrScopeUnderflow = errors.New("scope stack underflow")
	// ErrUndeclared is returned when updating a name that no scope contains.
	ErrUndeclared = errors.New("undeclared variable")
	// ErrDuplicateDeclaration is matched by every *DuplicateError.
	ErrDuplicateDeclaration = errors.New("duplicate declaration")
)

// DuplicateError records a redeclaration in the current scope, and the
// symbol that was there first.
type DuplicateError struct {
	Name string
	Prev *Symbol
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("redeclaration of `%s' previously declared at %s", e.Name, e.Prev.Pos)
}

// Is makes errors.Is(err, ErrDuplicateDeclaration) true for a DuplicateError.
func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicateDeclaration
}

// Symbol describes a declared variable.
type Symbol struct {
	Name  string            // identifier name
	Type  Type              // declared type, fixed at declaration
	Value string            // current value, as literal source text
	Pos   position.Position // source position of the declaration
}

// Scope maintains a record of the identifiers declared in one block.
type Scope struct {
	Name    string // block name given after BLOCO
	Symbols map[string]*Symbol
}

// NewScope creates a new empty scope for the named block.
func NewScope(name string) *Scope {
	return &Scope{name, make(map[string]*Symbol)}
}

// Insert attempts to insert a symbol into the scope.  If the scope already
// contains a symbol alt with the same name, the scope is unchanged and the
// function returns alt.  Otherwise the symbol is inserted, and returns nil.
func (s *Scope) Insert(sym *Symbol) (alt *Symbol) {
	if alt = s.Symbols[sym.Name]; alt == nil {
		s.Symbols[sym.Name] = sym
	}
	return
}

// Stack is the stack of open scopes, innermost last.
type Stack []*Scope

// Push opens a new empty scope for the named block and makes it current.
func (s *Stack) Push(name string) *Scope {
	sc := NewScope(name)
	*s = append(*s, sc)
	return sc
}

// Pop removes the current scope and returns it.
func (s *Stack) Pop() (*Scope, error) {
	if len(*s) == 0 {
		return nil, ErrScopeUnderflow
	}
	sc := (*s)[len(*s)-1]
	(*s)[len(*s)-1] = nil
	*s = (*s)[:len(*s)-1]
	return sc, nil
}

// Depth returns the number of open scopes.
func (s *Stack) Depth() int {
	return len(*s)
}

// Current returns the innermost scope, or nil if the stack is empty.
func (s *Stack) Current() *Scope {
	if len(*s) == 0 {
		return nil
	}
	return (*s)[len(*s)-1]
}

// Reset discards all scopes.
func (s *Stack) Reset() {
	*s = (*s)[:0]
}

// Declare adds a new symbol to the current scope.  Names declared in an outer
// scope may be shadowed; a name already in the current scope returns a
// *DuplicateError.
func (s *Stack) Declare(name string, typ Type, value string, pos position.Position) (*Symbol, error) {
	cs := s.Current()
	if cs == nil {
		return nil, ErrScopeUnderflow
	}
	sym := &Symbol{Name: name, Type: typ, Value: value, Pos: pos}
	if alt := cs.Insert(sym); alt != nil {
		return nil, &DuplicateError{Name: name, Prev: alt}
	}
	return sym, nil
}

// Lookup returns the innermost symbol with the given name.
func (s *Stack) Lookup(name string) (*Symbol, bool) {
	for i := len(*s) - 1; i >= 0; i-- {
		if sym, ok := (*s)[i].Symbols[name]; ok {
			return sym, true
		}
	}
	return nil, false
}

// Update sets the value of the innermost symbol with the given name.
func (s *Stack) Update(name, value string) error {
	sym, ok := s.Lookup(name)
	if !ok {
		return ErrUndeclared
	}
	sym.Value = value
	return nil
}

// String prints the stack innermost scope first.  This method is only used
// for debugging.
func (s *Stack) String() string {
	var buf bytes.Buffer
	for i := len(*s) - 1; i >= 0; i-- {
		sc := (*s)[i]
		fmt.Fprintf(&buf, "scope %d %q {\n", i, sc.Name)
		names := make([]string, 0, len(sc.Symbols))
		for name := range sc.Symbols {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			sym := sc.Symbols[name]
			fmt.Fprintf(&buf, "\t%s %s = %s\n", sym.Type, sym.Name, sym.Value)
		}
		fmt.Fprintf(&buf, "}\n")
	}
	return buf.String()
}
