// Copyright 2020 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package server

import (
	"fmt"
	"html/template"
	"net/http"

	"github.com/golang/glog"
)

const statusTemplate = `
<!DOCTYPE html>
<html>
<head>
<title>cicheck on {{.BindAddress}}</title>
</head>
<body>
<h1>cicheck on {{.BindAddress}}</h1>
<p>Build: {{.BuildInfo}}</p>
<p>Programs: {{.ProgramPath}}</p>
<p>Metrics: <a href="/metrics">prometheus</a></p>
<p>Results: <a href="/progz">progz</a>, <a href="/json">json</a></p>
<p>Info: <a href="/tracez">tracez</a></p>
<p>Debug: <a href="/debug/vars">debug/vars</a></p>
`

const statusTemplateEnd = `
</body>
</html>
`

// ServeHTTP satisfies the http.Handler interface, and is used to serve the
// root page of cicheck for online status reporting.
func (m *Server) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	t, err := template.New("status").Parse(statusTemplate)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	te, err := template.New("statusend").Parse(statusTemplateEnd)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	data := struct {
		BindAddress string
		BuildInfo   string
		ProgramPath string
	}{
		m.Addr(),
		m.buildInfo.String(),
		m.programPath,
	}
	w.Header().Add("Content-type", "text/html")
	w.WriteHeader(http.StatusOK)
	if err = t.Execute(w, data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
	if err = m.r.WriteStatusHTML(w); err != nil {
		glog.Warningf("Error while writing loader status: %s", err)
	}
	if err = te.Execute(w, data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (m *Server) quitHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Add("Content-type", "text/html")
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		fmt.Fprintf(w, "<html><body><form method=\"POST\">Are you sure? <input type=\"submit\" value=\"Yes\"></form></body></html>")
		return
	}
	fmt.Fprintf(w, "Exiting...")
	m.webquitOnce.Do(func() {
		close(m.webquit)
	})
}
