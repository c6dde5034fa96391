// Copyright 2015 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package runtime

import (
	"encoding/json"
	"expvar"
	"net/http"

	"github.com/golang/glog"
)

var exportJSONErrors = expvar.NewInt("results_json_errors")

type jsonDiagnostic struct {
	Line    int    `json:"line"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type jsonResult struct {
	Name        string           `json:"name"`
	Lines       int              `json:"lines"`
	Output      []string         `json:"output"`
	Diagnostics []jsonDiagnostic `json:"diagnostics"`
	LoadError   string           `json:"load_error,omitempty"`
}

// results returns a snapshot of the loaded programs' results in name order.
func (r *Runtime) results() []jsonResult {
	names := r.Names()
	out := make([]jsonResult, 0, len(names))
	for _, name := range names {
		res, ok := r.Result(name)
		if !ok {
			continue
		}
		jr := jsonResult{
			Name:        name,
			Lines:       res.Lines,
			Output:      append([]string{}, res.Output...),
			Diagnostics: make([]jsonDiagnostic, 0, len(res.Diagnostics)),
		}
		for _, d := range res.Diagnostics {
			jr.Diagnostics = append(jr.Diagnostics, jsonDiagnostic{d.Pos.Line, d.Kind.String(), d.Error()})
		}
		if err := r.ProgramError(name); err != nil {
			jr.LoadError = err.Error()
		}
		out = append(out, jr)
	}
	return out
}

// HandleJSON exports the results of every loaded program in JSON format via HTTP.
func (r *Runtime) HandleJSON(w http.ResponseWriter, _ *http.Request) {
	b, err := json.MarshalIndent(r.results(), "", "  ")
	if err != nil {
		exportJSONErrors.Add(1)
		glog.Info("error marshalling results into json:", err.Error())
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("content-type", "application/json")
	if _, err := w.Write(b); err != nil {
		glog.Error(err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
