// Copyright 2016 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package analyzer

import (
	"strings"

	"github.com/cic-lang/cic/internal/analyzer/errors"
	"github.com/cic-lang/cic/internal/analyzer/symbol"
	"github.com/golang/glog"
)

// declare handles a declaration line, `NUMERO a, b = 1` or `CADEIA s = "x"`.
// Every clause is declared in the current scope with its initializer text as
// written; bare names take the zero value of the type.
func (s *state) declare(line string) error {
	kw := kwNumber
	if strings.HasPrefix(line, kwString) {
		kw = kwString
	}
	typ, _ := symbol.TypeFromKeyword(kw)
	rest := strings.TrimSpace(strings.TrimPrefix(line, kw))
	if rest == "" {
		glog.V(1).Infof("%s: empty %s declaration", s.pos(), kw)
		return nil
	}
	for _, clause := range strings.Split(rest, ",") {
		name, init := clause, ""
		if i := strings.Index(clause, "="); i >= 0 {
			name, init = clause[:i], clause[i+1:]
		}
		name = strings.TrimSpace(name)
		init = strings.TrimSpace(init)
		if name == "" {
			glog.V(1).Infof("%s: skipping declarator without a name in %q", s.pos(), line)
			continue
		}
		value := typ.Zero()
		if init != "" {
			value = init
		}
		if _, err := s.stack.Declare(name, typ, value, s.pos()); err != nil {
			glog.V(1).Infof("%s: %s", s.pos(), err)
			if err := s.fatal(errors.DuplicateDeclaration); err != nil {
				return err
			}
			continue
		}
		glog.V(2).Infof("%s: declared %s %s = %s in %q", s.pos(), typ, name, value, s.stack.Current().Name)
	}
	return nil
}
