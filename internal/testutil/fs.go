// Copyright 2019 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/glog"
)

// TestTempDir creates a temporary directory for use during tests, returning the pathname.
func TestTempDir(tb testing.TB) string {
	tb.Helper()
	name, err := os.MkdirTemp("", "cic-test")
	if err != nil {
		tb.Fatal(err)
	}
	tb.Cleanup(func() {
		if err := os.RemoveAll(name); err != nil {
			tb.Fatalf("os.RemoveAll(%s): %s", name, err)
		}
	})
	return name
}

// WriteProgram writes the program text to a new file called name in dir,
// truncating any existing file, and returns the pathname.
func WriteProgram(tb testing.TB, dir, name, text string) string {
	tb.Helper()
	pathname := filepath.Join(dir, name)
	f, err := os.OpenFile(filepath.Clean(pathname), os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	FatalIfErr(tb, err)
	n, err := f.WriteString(text)
	FatalIfErr(tb, err)
	glog.Infof("Wrote %d bytes to %s", n, pathname)
	FatalIfErr(tb, f.Sync())
	FatalIfErr(tb, f.Close())
	return pathname
}
