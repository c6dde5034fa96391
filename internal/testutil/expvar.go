// Copyright 2021 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package testutil

import (
	"expvar"
	"testing"

	"github.com/golang/glog"
)

// TestGetExpvar fetches the expvar metric `name`, and returns the expvar.
// Callers are responsible for type assertions on the returned value.
func TestGetExpvar(tb testing.TB, name string) expvar.Var {
	tb.Helper()
	v := expvar.Get(name)
	glog.Infof("Var %q is %v", name, v)
	return v
}

// ExpectMapExpvarDelta returns a deferrable function which tests if the
// expvar map metric with name and key has changed by delta once the function
// runs.  Before returning, it fetches the original value for comparison.
func ExpectMapExpvarDelta(tb testing.TB, name, key string, want int64) func() {
	tb.Helper()
	get := func() int64 {
		v := TestGetExpvar(tb, name).(*expvar.Map).Get(key)
		if v == nil {
			return 0
		}
		return v.(*expvar.Int).Value()
	}
	start := get()
	return func() {
		tb.Helper()
		if now := get(); now-start != want {
			tb.Errorf("Did not see %s[%s] have delta: got %v - %v = %d, want %d", name, key, now, start, now-start, want)
		}
	}
}
