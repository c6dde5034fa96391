// Copyright 2020 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

//go:build unix

package runtime

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/cic-lang/cic/internal/testutil"
	"golang.org/x/sys/unix"
)

// A program can be read from a named pipe.
func TestLoadProgramFromPipe(t *testing.T) {
	dir := testutil.TestTempDir(t)
	name := filepath.Join(dir, "pipe.cic")
	testutil.FatalIfErr(t, unix.Mkfifo(name, 0o600))

	r := newTestRuntime(t, "")
	errc := make(chan error, 1)
	go func() {
		f, err := os.OpenFile(name, os.O_WRONLY, 0o600)
		if err != nil {
			errc <- err
			return
		}
		_, err = f.WriteString("BLOCO A\nNUMERO x = 7\nPRINT x\nFIM\n")
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		errc <- err
	}()

	testutil.FatalIfErr(t, r.LoadProgram(name))
	testutil.FatalIfErr(t, <-errc)
	res, ok := r.Result("pipe.cic")
	if !ok {
		t.Fatal("pipe.cic not loaded")
	}
	testutil.ExpectNoDiff(t, []string{"7"}, res.Output)
}
