// Copyright 2015 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package runtime

import (
	"bytes"
	"context"
	goerrors "errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cic-lang/cic/internal/analyzer/errors"
	"github.com/cic-lang/cic/internal/testutil"
	"github.com/cic-lang/cic/internal/watcher"
)

func newTestRuntime(t *testing.T, programPath string, options ...Option) *Runtime {
	t.Helper()
	r, err := New(context.Background(), programPath, options...)
	testutil.FatalIfErr(t, err)
	t.Cleanup(r.Close)
	return r
}

func TestNewRuntime(t *testing.T) {
	r := newTestRuntime(t, "")
	if len(r.Names()) != 0 {
		t.Errorf("programs loaded without a program path: %v", r.Names())
	}
}

func TestNewRuntimeErrors(t *testing.T) {
	if _, err := New(nil, ""); err != ErrNeedsContext {
		t.Errorf("New(nil, ...) expecting ErrNeedsContext, got %v", err)
	}
	if _, err := New(context.Background(), "", CacheSize(0)); err == nil {
		t.Error("CacheSize(0) expecting error, got nil")
	}
	r := newTestRuntime(t, "/does/not/exist")
	if err := r.LoadAllPrograms(); err == nil {
		t.Error("missing program path expecting error, got nil")
	}
}

func TestAnalyzeProgram(t *testing.T) {
	r := newTestRuntime(t, "")
	defer testutil.ExpectMapExpvarDelta(t, "prog_loads_total", "Test", 1)()

	res, err := r.AnalyzeProgram(context.Background(), "Test", strings.NewReader("NUMERO x = 1\nPRINT x\n"))
	testutil.FatalIfErr(t, err)
	testutil.ExpectNoDiff(t, []string{"1"}, res.Output)

	// Unchanged content is served from the cache.
	again, err := r.AnalyzeProgram(context.Background(), "Test", strings.NewReader("NUMERO x = 1\nPRINT x\n"))
	testutil.FatalIfErr(t, err)
	if again != res {
		t.Error("unchanged program was analyzed again")
	}
	got, ok := r.Result("Test")
	if !ok || got != res {
		t.Errorf("Result(Test) = %v, %v", got, ok)
	}
}

func TestAnalyzeProgramChangedContent(t *testing.T) {
	r := newTestRuntime(t, "")
	_, err := r.AnalyzeProgram(context.Background(), "Test", strings.NewReader("NUMERO x = 1\nPRINT x\n"))
	testutil.FatalIfErr(t, err)
	res, err := r.AnalyzeProgram(context.Background(), "Test", strings.NewReader("NUMERO x = 2\nPRINT x\n"))
	testutil.FatalIfErr(t, err)
	testutil.ExpectNoDiff(t, []string{"2"}, res.Output)
}

func TestAnalyzeProgramAborts(t *testing.T) {
	r := newTestRuntime(t, "", ErrorsAbort())
	defer testutil.ExpectMapExpvarDelta(t, "prog_load_errors_total", "dup", 1)()

	res, err := r.AnalyzeProgram(context.Background(), "dup", strings.NewReader("NUMERO x\nNUMERO x\nPRINT x\n"))
	var d *errors.Diagnostic
	if !goerrors.As(err, &d) || d.Kind != errors.DuplicateDeclaration {
		t.Fatalf("expected duplicate declaration, got %v", err)
	}
	testutil.ExpectNoDiff(t, []string{"Erro linha 2, variável já declarada"}, res.Output)
}

func TestLoadAllPrograms(t *testing.T) {
	dir := testutil.TestTempDir(t)
	testutil.WriteProgram(t, dir, "a.cic", "NUMERO x = 1\nPRINT x\n")
	testutil.WriteProgram(t, dir, "b.cic", "PRINT y\n")
	testutil.WriteProgram(t, dir, ".hidden.cic", "PRINT z\n")
	testutil.WriteProgram(t, dir, "notes.txt", "PRINT z\n")
	testutil.FatalIfErr(t, os.Mkdir(filepath.Join(dir, "sub.cic"), 0o700))

	r := newTestRuntime(t, dir)
	testutil.FatalIfErr(t, r.LoadAllPrograms())
	testutil.ExpectNoDiff(t, []string{"a.cic", "b.cic"}, r.Names())

	var buf bytes.Buffer
	testutil.FatalIfErr(t, r.WriteResults(&buf))
	want := "== a.cic ==\n1\n== b.cic ==\nErro linha 1, variável não declarada\n"
	testutil.ExpectNoDiff(t, want, buf.String())

	testutil.FatalIfErr(t, os.Remove(filepath.Join(dir, "b.cic")))
	testutil.FatalIfErr(t, r.LoadAllPrograms())
	testutil.ExpectNoDiff(t, []string{"a.cic"}, r.Names())
}

func TestLoadSingleProgram(t *testing.T) {
	dir := testutil.TestTempDir(t)
	prog := testutil.WriteProgram(t, dir, "only.cic", "CADEIA s = \"x\"\nPRINT s\n")
	r := newTestRuntime(t, prog)
	testutil.FatalIfErr(t, r.LoadAllPrograms())
	var buf bytes.Buffer
	testutil.FatalIfErr(t, r.WriteResults(&buf))
	testutil.ExpectNoDiff(t, "\"x\"\n", buf.String())
}

func TestLoadAllProgramsErrorsAbort(t *testing.T) {
	dir := testutil.TestTempDir(t)
	testutil.WriteProgram(t, dir, "bad.cic", "FIM\nPRINT x\n")

	aborting := newTestRuntime(t, dir, ErrorsAbort())
	if err := aborting.LoadAllPrograms(); err == nil {
		t.Error("expected aborted load, got nil")
	}
	res, ok := aborting.Result("bad.cic")
	if !ok {
		t.Fatal("partial result of bad.cic not recorded")
	}
	testutil.ExpectNoDiff(t, []string{"Erro linha 1, bloco não aberto"}, res.Output)
	if aborting.ProgramError("bad.cic") == nil {
		t.Error("load error of bad.cic not recorded")
	}

	// Without ErrorsAbort the problem is a diagnostic.
	r := newTestRuntime(t, dir)
	testutil.FatalIfErr(t, r.LoadAllPrograms())
	res, ok = r.Result("bad.cic")
	if !ok {
		t.Fatal("bad.cic not loaded")
	}
	testutil.ExpectNoDiff(t, []string{
		"Erro linha 1, bloco não aberto",
		"Erro linha 2, variável não declarada",
	}, res.Output)
	if err := r.ProgramError("bad.cic"); err != nil {
		t.Errorf("unexpected load error %v", err)
	}
}

func TestProcessFileEvent(t *testing.T) {
	dir := testutil.TestTempDir(t)
	r := newTestRuntime(t, dir)
	w := watcher.NewFakeWatcher()
	testutil.FatalIfErr(t, w.Observe(dir, r))

	prog := testutil.WriteProgram(t, dir, "new.cic", "NUMERO n = 5\nPRINT n\n")
	w.InjectCreate(prog)
	res, ok := r.Result("new.cic")
	if !ok {
		t.Fatal("new.cic not loaded on create")
	}
	testutil.ExpectNoDiff(t, []string{"5"}, res.Output)

	testutil.WriteProgram(t, dir, "new.cic", "NUMERO n = 6\nPRINT n\n")
	w.InjectUpdate(prog)
	res, _ = r.Result("new.cic")
	testutil.ExpectNoDiff(t, []string{"6"}, res.Output)

	defer testutil.ExpectMapExpvarDelta(t, "prog_unloads_total", "new.cic", 1)()
	w.InjectDelete(prog)
	if _, ok := r.Result("new.cic"); ok {
		t.Error("new.cic still loaded after delete")
	}
}

func TestStatusHTML(t *testing.T) {
	r := newTestRuntime(t, "")
	_, err := r.AnalyzeProgram(context.Background(), "status.cic", strings.NewReader("PRINT q\n"))
	testutil.FatalIfErr(t, err)

	var buf bytes.Buffer
	testutil.FatalIfErr(t, r.WriteStatusHTML(&buf))
	if !strings.Contains(buf.String(), `<a href="/progz?prog=status.cic">status.cic</a>`) {
		t.Errorf("status page missing program link:\n%s", buf.String())
	}

	rec := httptest.NewRecorder()
	r.ProgzHandler(rec, httptest.NewRequest("GET", "/progz?prog=status.cic", nil))
	testutil.ExpectNoDiff(t, "Erro linha 1, variável não declarada\n", rec.Body.String())

	rec = httptest.NewRecorder()
	r.ProgzHandler(rec, httptest.NewRequest("GET", "/progz?prog=missing.cic", nil))
	if rec.Code != 404 {
		t.Errorf("missing program status %d, want 404", rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ProgzHandler(rec, httptest.NewRequest("GET", "/progz", nil))
	if !strings.Contains(rec.Body.String(), "status.cic") {
		t.Errorf("program list missing status.cic: %s", rec.Body.String())
	}
}
