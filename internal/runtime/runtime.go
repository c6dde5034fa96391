// Copyright 2015 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

// Package runtime loads CIC programs from the filesystem and keeps the most
// recent analysis result of each.  Programs may be created, updated, and
// deleted while the runtime is running; they are reanalyzed when the
// filesystem watcher reports a change, or on a HUP signal.
package runtime

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"expvar"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"

	"github.com/cic-lang/cic/internal/analyzer"
	"github.com/cic-lang/cic/internal/watcher"
	"github.com/golang/glog"
	"github.com/golang/groupcache/lru"
	"github.com/pkg/errors"
	"go.opencensus.io/trace"
)

var (
	// LineCount counts the number of program lines analyzed.
	LineCount = expvar.NewInt("lines_total")
	// ProgLoads counts the number of program load events.
	ProgLoads = expvar.NewMap("prog_loads_total")
	// ProgUnloads counts the number of program unload events.
	ProgUnloads = expvar.NewMap("prog_unloads_total")
	// ProgLoadErrors counts the number of program load errors.
	ProgLoadErrors = expvar.NewMap("prog_load_errors_total")
)

const (
	fileExt          = ".cic"
	defaultCacheSize = 64
)

// LoadAllPrograms loads all programs in a directory, or the single program
// named by the program path.  Programs previously loaded from a directory that
// are no longer present are unloaded.  This function returns an error if an
// internal error occurs, or if errorsAbort is set and a program aborted.
func (r *Runtime) LoadAllPrograms() error {
	if r.programPath == "" {
		glog.V(2).Info("Programpath is empty, loading nothing")
		return nil
	}
	s, err := os.Stat(r.programPath)
	if err != nil {
		return errors.Wrapf(err, "failed to stat %q", r.programPath)
	}
	switch {
	case s.IsDir():
		dirents, rerr := os.ReadDir(r.programPath)
		if rerr != nil {
			return errors.Wrapf(rerr, "Failed to list programs in %q", r.programPath)
		}

		markDeleted := make(map[string]struct{})
		r.mu.RLock()
		for name := range r.programs {
			markDeleted[name] = struct{}{}
		}
		r.mu.RUnlock()
		for _, dirent := range dirents {
			if dirent.IsDir() {
				continue
			}
			err = r.LoadProgram(filepath.Join(r.programPath, dirent.Name()))
			if err != nil {
				if r.errorsAbort {
					return err
				}
				glog.Warning(err)
			}
			delete(markDeleted, dirent.Name())
		}
		for name := range markDeleted {
			glog.Infof("unloading %s", name)
			r.UnloadProgram(name)
		}
	default:
		err = r.LoadProgram(r.programPath)
		if err != nil {
			if r.errorsAbort {
				return err
			}
			glog.Warning(err)
		}
	}
	return nil
}

// LoadProgram loads or reloads a program from the full pathname programPath.
// The name of the program is the basename of the file.
func (r *Runtime) LoadProgram(programPath string) error {
	name := filepath.Base(programPath)
	if strings.HasPrefix(name, ".") {
		glog.V(2).Infof("Skipping %s because it is a hidden file.", programPath)
		return nil
	}
	if filepath.Ext(name) != fileExt {
		glog.V(2).Infof("Skipping %s due to file extension.", programPath)
		return nil
	}
	f, err := os.OpenFile(filepath.Clean(programPath), os.O_RDONLY, 0o600)
	if err != nil {
		ProgLoadErrors.Add(name, 1)
		return errors.Wrapf(err, "Failed to read program %q", programPath)
	}
	defer func() {
		if err := f.Close(); err != nil {
			glog.Warning(err)
		}
	}()
	_, err = r.AnalyzeProgram(r.ctx, name, f)
	r.mu.Lock()
	r.programErrors[name] = err
	r.mu.Unlock()
	return err
}

// AnalyzeProgram analyzes a program read from the input and records the
// result under name.  A program whose content has not changed since it was
// last analyzed under the same name is not analyzed again.  If the analysis
// aborts, the partial result is recorded and the error returned.
func (r *Runtime) AnalyzeProgram(ctx context.Context, name string, input io.Reader) (*analyzer.Result, error) {
	_, span := trace.StartSpan(ctx, "Runtime.AnalyzeProgram")
	defer span.End()
	span.AddAttributes(trace.StringAttribute("prog", name))

	glog.V(2).Infof("AnalyzeProgram %s", name)
	var buf bytes.Buffer
	tee := io.TeeReader(input, &buf)
	hasher := sha256.New()
	if _, err := io.Copy(hasher, tee); err != nil {
		ProgLoadErrors.Add(name, 1)
		return nil, errors.Wrapf(err, "hashing failed for %q", name)
	}
	key := name + "@" + hex.EncodeToString(hasher.Sum(nil))

	r.mu.Lock()
	cached, ok := r.cache.Get(key)
	if ok {
		res := cached.(*analyzer.Result)
		r.programs[name] = res
		r.mu.Unlock()
		glog.V(1).Infof("contents match, not reanalyzing %q", name)
		span.AddAttributes(trace.BoolAttribute("cached", true))
		return res, nil
	}
	r.mu.Unlock()

	res, err := r.a.Analyze(name, &buf)
	if res == nil {
		ProgLoadErrors.Add(name, 1)
		return nil, err
	}
	LineCount.Add(int64(res.Lines))
	span.AddAttributes(
		trace.Int64Attribute("lines", int64(res.Lines)),
		trace.Int64Attribute("diagnostics", int64(len(res.Diagnostics))))

	r.mu.Lock()
	r.programs[name] = res
	if err == nil {
		r.cache.Add(key, res)
	}
	r.mu.Unlock()

	if err != nil {
		ProgLoadErrors.Add(name, 1)
		span.SetStatus(trace.Status{Code: trace.StatusCodeAborted, Message: err.Error()})
		return res, errors.Wrapf(err, "analysis of %s aborted", name)
	}
	ProgLoads.Add(name, 1)
	glog.Infof("Loaded program %s: %d lines, %d diagnostics", name, res.Lines, len(res.Diagnostics))
	return res, nil
}

// Runtime handles the lifecycle of programs by watching the configured
// program source path and analyzing changed programs.
type Runtime struct {
	ctx context.Context

	aOpts []analyzer.Option // options for constructing `a`
	a     *analyzer.Analyzer

	programPath string // Path that contains CIC programs.

	mu            sync.RWMutex                // guards the following
	programs      map[string]*analyzer.Result // last result of each loaded program
	programErrors map[string]error            // errors from the last load attempt of each program
	cache         *lru.Cache                  // results by program name and content hash

	cacheSize   int
	errorsAbort bool // Aborted analyses abort the loader.

	signalQuit chan struct{} // When closed stops the signal handler goroutine.
	closeOnce  sync.Once
	wg         sync.WaitGroup
}

// ErrNeedsContext is returned by New when given a nil context.
var ErrNeedsContext = errors.New("runtime needs a context")

// New creates a new program Runtime that reads programs from programPath.
// Callers perform the initial load with LoadAllPrograms.  The runtime reloads
// all programs on SIGHUP until ctx is cancelled or Close is called.
func New(ctx context.Context, programPath string, options ...Option) (*Runtime, error) {
	if ctx == nil {
		return nil, ErrNeedsContext
	}
	r := &Runtime{
		ctx:           ctx,
		programPath:   programPath,
		programs:      make(map[string]*analyzer.Result),
		programErrors: make(map[string]error),
		cacheSize:     defaultCacheSize,
		signalQuit:    make(chan struct{}),
	}
	var err error
	if err = r.SetOption(options...); err != nil {
		return nil, err
	}
	if r.a, err = analyzer.New(r.aOpts...); err != nil {
		return nil, err
	}
	r.cache = lru.New(r.cacheSize)
	if r.programPath == "" {
		glog.Info("No program path specified, no programs will be loaded.")
		return r, nil
	}

	// Create one goroutine that handles reload signals.
	n := make(chan os.Signal, 1)
	signal.Notify(n, syscall.SIGHUP)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer signal.Stop(n)
		for {
			select {
			case <-r.signalQuit:
				return
			case <-ctx.Done():
				return
			case <-n:
				if err := r.LoadAllPrograms(); err != nil {
					glog.Info(err)
				}
			}
		}
	}()
	return r, nil
}

// SetOption takes one or more option functions and applies them in order to Runtime.
func (r *Runtime) SetOption(options ...Option) error {
	for _, option := range options {
		if err := option(r); err != nil {
			return err
		}
	}
	return nil
}

// Close stops the reload signal handler.  It is safe to call more than once.
func (r *Runtime) Close() {
	r.closeOnce.Do(func() {
		close(r.signalQuit)
	})
	r.wg.Wait()
}

// UnloadProgram forgets the named program.
func (r *Runtime) UnloadProgram(pathname string) {
	name := filepath.Base(pathname)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.programs[name]; !ok {
		if _, ok := r.programErrors[name]; !ok {
			return
		}
	}
	delete(r.programs, name)
	delete(r.programErrors, name)
	ProgUnloads.Add(name, 1)
}

// ProcessFileEvent implements watcher.Processor, reanalyzing programs that
// are created or changed and unloading programs that are deleted.
func (r *Runtime) ProcessFileEvent(ctx context.Context, event watcher.Event) {
	_, span := trace.StartSpan(ctx, "Runtime.ProcessFileEvent")
	defer span.End()
	switch event.Op {
	case watcher.Create, watcher.Update:
		if err := r.LoadProgram(event.Pathname); err != nil {
			glog.Info(err)
		}
	case watcher.Delete:
		r.UnloadProgram(event.Pathname)
	}
}

// Names returns the names of the loaded programs, sorted.
func (r *Runtime) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.programs))
	for name := range r.programs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Result returns the last analysis result of the named program.
func (r *Runtime) Result(name string) (*analyzer.Result, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res, ok := r.programs[name]
	return res, ok
}

// ProgramError returns the error from the last load attempt of the named program.
func (r *Runtime) ProgramError(name string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.programErrors[name]
}

// WriteResults writes the output of every loaded program to w, in name
// order.  When more than one program is loaded each output is preceded by a
// header line naming the program.
func (r *Runtime) WriteResults(w io.Writer) error {
	names := r.Names()
	for _, name := range names {
		res, ok := r.Result(name)
		if !ok {
			continue
		}
		if len(names) > 1 {
			if _, err := io.WriteString(w, "== "+name+" ==\n"); err != nil {
				return err
			}
		}
		if len(res.Output) == 0 {
			continue
		}
		if _, err := io.WriteString(w, res.String()+"\n"); err != nil {
			return err
		}
	}
	return nil
}
