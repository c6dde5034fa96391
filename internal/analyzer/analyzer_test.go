// Copyright 2019 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package analyzer_test

import (
	goerrors "errors"
	"fmt"
	"strings"
	"testing"

	"github.com/cic-lang/cic/internal/analyzer"
	"github.com/cic-lang/cic/internal/analyzer/errors"
	"github.com/cic-lang/cic/internal/testutil"
)

func makeAnalyzer(t *testing.T, options ...analyzer.Option) *analyzer.Analyzer {
	t.Helper()
	a, err := analyzer.New(options...)
	testutil.FatalIfErr(t, err)
	return a
}

var analyzerTests = []struct {
	name  string
	lines []string
	want  []string
}{
	{
		"declare and print",
		[]string{"NUMERO x = 1", "PRINT x"},
		[]string{"1"},
	},
	{
		"type mismatch leaves value unchanged",
		[]string{"NUMERO x = 1", `CADEIA y = "a"`, "x = y", "PRINT x"},
		[]string{"Erro linha 3, tipos não compatíveis", "1"},
	},
	{
		"scope popped before print",
		[]string{"BLOCO A", "NUMERO x = 5", "FIM", "PRINT x"},
		[]string{"Erro linha 4, variável não declarada"},
	},
	{
		"shadowing and restoration",
		[]string{
			"BLOCO _principal_",
			"NUMERO x = 1",
			"BLOCO _n1_",
			"NUMERO x = 2",
			"PRINT x",
			"FIM",
			"PRINT x",
			"FIM",
		},
		[]string{"2", "1"},
	},
	{
		"default initialization",
		[]string{"NUMERO a, b", "CADEIA s", "PRINT a", "PRINT b", "PRINT s"},
		[]string{"0", "0", `""`},
	},
	{
		"declaration list with initializers",
		[]string{`CADEIA a = "x", b, c = "z"`, "PRINT a", "PRINT b", "PRINT c"},
		[]string{`"x"`, `""`, `"z"`},
	},
	{
		"numeric literals",
		[]string{"NUMERO x", "x = -3.5", "PRINT x", "x = +7", "PRINT x", "x = 1.", "PRINT x"},
		[]string{"-3.5", "+7", "Erro linha 6, tipos não compatíveis", "+7"},
	},
	{
		"numeric literal to string",
		[]string{"CADEIA s", "s = 10", "PRINT s"},
		[]string{"Erro linha 2, tipos não compatíveis", `""`},
	},
	{
		"string literal keeps its quotes and equals sign",
		[]string{`CADEIA s`, `s = "a = b"`, "PRINT s"},
		[]string{`"a = b"`},
	},
	{
		"value propagation copies the current value",
		[]string{"NUMERO a = 1, b = 2", "a = b", "b = 9", "PRINT a", "PRINT b"},
		[]string{"2", "9"},
	},
	{
		"undeclared left hand side",
		[]string{"z = 1"},
		[]string{"Erro linha 1, variável não declarada"},
	},
	{
		"undeclared right hand side",
		[]string{"NUMERO x = 1", "x = nope", "PRINT x"},
		[]string{"Erro linha 2, variável não declarada", "1"},
	},
	{
		"uppercase right hand side is a literal",
		[]string{"NUMERO x = 1", "x = ABC"},
		[]string{"Erro linha 2, tipos não compatíveis"},
	},
	{
		"assignment through nested scope updates outer symbol",
		[]string{"NUMERO x = 1", "BLOCO A", "x = 4", "FIM", "PRINT x"},
		[]string{"4"},
	},
	{
		"print tolerates extra whitespace",
		[]string{"  NUMERO   x = 3  ", "PRINT    x   "},
		[]string{"3"},
	},
	{
		"blank and unrecognised lines are ignored",
		[]string{"", "NUMERO x = 1", "   ", "garbage", "PRINT y"},
		[]string{"Erro linha 5, variável não declarada"},
	},
	{
		"duplicate declaration is a diagnostic",
		[]string{"NUMERO x = 1", "NUMERO x = 2", "PRINT x"},
		[]string{"Erro linha 2, variável já declarada", "1"},
	},
	{
		"duplicate within one declaration line",
		[]string{"NUMERO x, x, y = 3", "PRINT y"},
		[]string{"Erro linha 1, variável já declarada", "3"},
	},
	{
		"unmatched FIM is a diagnostic",
		[]string{"FIM", "NUMERO x = 1", "PRINT x"},
		[]string{"Erro linha 1, bloco não aberto", "1"},
	},
	{
		"declaration initializer is stored as written",
		[]string{`NUMERO x = "a"`, "CADEIA s = 5", "PRINT x", "PRINT s"},
		[]string{`"a"`, "5"},
	},
	{
		"declaration initializer naming a variable is not resolved",
		[]string{"NUMERO n = 1, m = n", "PRINT m", `CADEIA a = "q"`, "BLOCO B", "CADEIA a = a", "PRINT a", "FIM", "PRINT a"},
		[]string{"n", "a", `"q"`},
	},
	{
		"sibling scopes do not share symbols",
		[]string{"BLOCO A", "NUMERO a = 1", "FIM", "BLOCO B", "PRINT a", "FIM"},
		[]string{"Erro linha 5, variável não declarada"},
	},
}

func TestAnalyzeLines(t *testing.T) {
	a := makeAnalyzer(t)
	for _, tc := range analyzerTests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			r, err := a.AnalyzeLines("test", tc.lines)
			testutil.FatalIfErr(t, err)
			testutil.ExpectNoDiff(t, tc.want, r.Output, testutil.EquateEmpty())
			if r.Lines != len(tc.lines) {
				t.Errorf("processed %d lines, want %d", r.Lines, len(tc.lines))
			}
		})
	}
}

func TestAnalyzeReader(t *testing.T) {
	a := makeAnalyzer(t)
	r, err := a.Analyze("test", strings.NewReader("BLOCO _principal_\r\nNUMERO a = 10\r\nPRINT a\r\nFIM\r\n"))
	testutil.FatalIfErr(t, err)
	testutil.ExpectNoDiff(t, "10", r.String())
	if r.Name != "test" {
		t.Errorf("name %q", r.Name)
	}
}

func TestDiagnosticsCarryPositions(t *testing.T) {
	a := makeAnalyzer(t)
	r, err := a.AnalyzeLines("prog.cic", []string{"NUMERO x", "PRINT y", `x = "s"`})
	testutil.FatalIfErr(t, err)
	if len(r.Diagnostics) != 2 {
		t.Fatalf("want 2 diagnostics, got %v", r.Diagnostics)
	}
	d := r.Diagnostics[1]
	if d.Kind != errors.TypeMismatch || d.Pos.Line != 3 || d.Pos.Filename != "prog.cic" {
		t.Errorf("unexpected diagnostic %+v", d)
	}
}

func TestErrorsAbort(t *testing.T) {
	a := makeAnalyzer(t, analyzer.ErrorsAbort())
	for _, tc := range []struct {
		lines []string
		kind  errors.Kind
		want  []string
	}{
		{
			[]string{"NUMERO x = 1", "PRINT x", "CADEIA x", "PRINT x"},
			errors.DuplicateDeclaration,
			[]string{"1", "Erro linha 3, variável já declarada"},
		},
		{
			[]string{"BLOCO A", "FIM", "FIM", "NUMERO x = 1"},
			errors.ScopeUnderflow,
			[]string{"Erro linha 3, bloco não aberto"},
		},
	} {
		r, err := a.AnalyzeLines("test", tc.lines)
		var d *errors.Diagnostic
		if !goerrors.As(err, &d) {
			t.Fatalf("expected a diagnostic error, got %v", err)
		}
		if d.Kind != tc.kind {
			t.Errorf("aborted on %s, want %s", d.Kind, tc.kind)
		}
		testutil.ExpectNoDiff(t, tc.want, r.Output)
	}
}

func TestErrorsAbortIgnoresRecoverable(t *testing.T) {
	a := makeAnalyzer(t, analyzer.ErrorsAbort())
	r, err := a.AnalyzeLines("test", []string{"PRINT x", "x = 1", "NUMERO y = 2", "PRINT y"})
	testutil.FatalIfErr(t, err)
	testutil.ExpectNoDiff(t, []string{
		"Erro linha 1, variável não declarada",
		"Erro linha 2, variável não declarada",
		"2",
	}, r.Output)
}

// N variables declared, assigned and printed across M nested blocks print
// exactly N values, each its own.
func TestRoundTripNestedBlocks(t *testing.T) {
	a := makeAnalyzer(t)
	const n, m = 12, 4
	var lines, want []string
	for b := 0; b < m; b++ {
		lines = append(lines, fmt.Sprintf("BLOCO b%d", b))
		for i := b; i < n; i += m {
			lines = append(lines, fmt.Sprintf("NUMERO v%d", i), fmt.Sprintf("v%d = %d", i, i*10))
		}
	}
	for b := m - 1; b >= 0; b-- {
		for i := b; i < n; i += m {
			lines = append(lines, fmt.Sprintf("PRINT v%d", i))
			want = append(want, fmt.Sprintf("%d", i*10))
		}
		lines = append(lines, "FIM")
	}
	r, err := a.AnalyzeLines("test", lines)
	testutil.FatalIfErr(t, err)
	testutil.ExpectNoDiff(t, want, r.Output)
	if len(r.Diagnostics) != 0 {
		t.Errorf("unexpected diagnostics: %s", r.Diagnostics)
	}
}

func TestAnalyzerIsReusable(t *testing.T) {
	a := makeAnalyzer(t)
	_, err := a.AnalyzeLines("one", []string{"NUMERO x = 1"})
	testutil.FatalIfErr(t, err)
	r, err := a.AnalyzeLines("two", []string{"PRINT x"})
	testutil.FatalIfErr(t, err)
	testutil.ExpectNoDiff(t, []string{"Erro linha 1, variável não declarada"}, r.Output)
}
