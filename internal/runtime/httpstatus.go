// Copyright 2021 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package runtime

import (
	"fmt"
	"html/template"
	"io"
	"net/http"
)

const loaderTemplate = `
<h2 id="loader">Program Loader</h2>
<table border="1">
<tr>
<th>program name</th>
<th>lines</th>
<th>diagnostics</th>
<th>errors</th>
<th>load errors</th>
<th>load successes</th>
<th>unloads</th>
</tr>
{{range $name, $lines := $.Lines}}
<tr>
<td><a href="/progz?prog={{$name}}">{{$name}}</a></td>
<td>{{$lines}}</td>
<td>{{index $.Diagnostics $name}}</td>
<td>
{{with index $.Errors $name}}
{{.}}
{{else}}
No errors
{{end}}
</td>
<td>{{index $.Loaderrors $name}}</td>
<td>{{index $.Loadsuccess $name}}</td>
<td>{{index $.Unloads $name}}</td>
</tr>
{{end}}
</table>
`

// WriteStatusHTML writes the current state of the loader as HTML to the given writer w.
func (r *Runtime) WriteStatusHTML(w io.Writer) error {
	t, err := template.New("loader").Parse(loaderTemplate)
	if err != nil {
		return err
	}
	data := struct {
		Lines       map[string]int
		Diagnostics map[string]int
		Errors      map[string]error
		Loaderrors  map[string]string
		Loadsuccess map[string]string
		Unloads     map[string]string
	}{
		make(map[string]int),
		make(map[string]int),
		make(map[string]error),
		make(map[string]string),
		make(map[string]string),
		make(map[string]string),
	}
	r.mu.RLock()
	for name, res := range r.programs {
		data.Lines[name] = res.Lines
		data.Diagnostics[name] = len(res.Diagnostics)
		data.Errors[name] = r.programErrors[name]
		if ProgLoadErrors.Get(name) != nil {
			data.Loaderrors[name] = ProgLoadErrors.Get(name).String()
		}
		if ProgLoads.Get(name) != nil {
			data.Loadsuccess[name] = ProgLoads.Get(name).String()
		}
		if ProgUnloads.Get(name) != nil {
			data.Unloads[name] = ProgUnloads.Get(name).String()
		}
	}
	r.mu.RUnlock()
	return t.Execute(w, data)
}

// ProgzHandler serves the output of one program as text when the prog query
// parameter is given, and otherwise the list of loaded programs.
func (r *Runtime) ProgzHandler(w http.ResponseWriter, req *http.Request) {
	prog := req.URL.Query().Get("prog")
	if prog != "" {
		res, ok := r.Result(prog)
		if !ok {
			http.Error(w, "No program found", http.StatusNotFound)
			return
		}
		w.Header().Add("Content-type", "text/plain; charset=utf-8")
		fmt.Fprintln(w, res.String())
		if err := r.ProgramError(prog); err != nil {
			fmt.Fprintf(w, "\nLast load error:\n%s\n", err)
		}
		return
	}
	w.Header().Add("Content-type", "text/html")
	fmt.Fprintf(w, "<ul>")
	for _, name := range r.Names() {
		fmt.Fprintf(w, "<li><a href=\"?prog=%s\">%s</a></li>", template.HTMLEscapeString(name), template.HTMLEscapeString(name))
	}
	fmt.Fprintf(w, "</ul>")
}
