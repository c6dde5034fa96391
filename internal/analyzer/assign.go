// Copyright 2016 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package analyzer

import (
	"strings"

	"github.com/cic-lang/cic/internal/analyzer/errors"
	"github.com/cic-lang/cic/internal/analyzer/symbol"
	"github.com/golang/glog"
)

// assign handles `name = value`.  Nothing is modified unless every check
// passes.
func (s *state) assign(line string) {
	i := strings.Index(line, "=")
	if i < 0 {
		if line != "" {
			glog.V(1).Infof("%s: ignoring unrecognised statement %q", s.pos(), line)
		}
		return
	}
	name := strings.TrimSpace(line[:i])
	raw := strings.TrimSpace(line[i+1:])

	lhs, ok := s.stack.Lookup(name)
	if !ok {
		s.report(errors.UndeclaredVariable)
		return
	}
	value, kind, ok := s.resolve(lhs.Type, raw)
	if !ok {
		s.report(kind)
		return
	}
	if err := s.stack.Update(name, value); err != nil {
		s.report(errors.UndeclaredVariable)
		return
	}
	glog.V(2).Infof("%s: %s = %s", s.pos(), name, value)
}

// resolve computes the value of the right hand side raw for a target of type
// typ.  An identifier is a reference to a visible variable of the same type,
// and yields that variable's current value; anything else is a literal that
// must match typ.  On failure the diagnostic kind is returned.
func (s *state) resolve(typ symbol.Type, raw string) (string, errors.Kind, bool) {
	if symbol.IsIdentifier(raw) {
		rhs, ok := s.stack.Lookup(raw)
		if !ok {
			return "", errors.UndeclaredVariable, false
		}
		if rhs.Type != typ {
			return "", errors.TypeMismatch, false
		}
		return rhs.Value, 0, true
	}
	if !typ.Accepts(raw) {
		return "", errors.TypeMismatch, false
	}
	return raw, 0, true
}
