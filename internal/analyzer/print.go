// Copyright 2016 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package analyzer

import (
	"strings"

	"github.com/cic-lang/cic/internal/analyzer/errors"
)

// print handles `PRINT name`, appending the current value of name.
func (s *state) print(line string) {
	name := strings.TrimSpace(strings.TrimPrefix(line, kwPrint))
	sym, ok := s.stack.Lookup(name)
	if !ok {
		s.report(errors.UndeclaredVariable)
		return
	}
	s.emit(sym.Value)
}
