// Copyright 2011 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

// Command cicheck analyzes CIC programs, printing what each program prints
// and the diagnostics for undeclared variables and incompatible types.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cic-lang/cic/internal/config"
	"github.com/cic-lang/cic/internal/server"
	"github.com/cic-lang/cic/internal/watcher"
	"github.com/golang/glog"
	"go.opencensus.io/trace"
)

var (
	port    = flag.String("port", "3903", "HTTP port to listen on.")
	address = flag.String("address", "", "Host or IP address on which to bind HTTP listener")
	progs   = flag.String("progs", "", "Name of the directory containing CIC programs, or of a single program.")
	cfgPath = flag.String("config", "", "Path of a TOML file supplying defaults for these flags.")

	version = flag.Bool("version", false, "Print cicheck version information.")

	// Analyzer behaviour flags.
	oneShot     = flag.Bool("one_shot", true, "Analyze the programs once, print their output and exit.  Set to false to keep serving results over HTTP and reanalyze programs as they change.")
	errorsAbort = flag.Bool("errors_abort", false, "Abort a program at a duplicate declaration or an unmatched FIM, and exit non-zero in one-shot mode.")
	dumpScopes  = flag.Bool("dump_scopes", false, "Dump the scope stack of programs as each block closes (to INFO log).")
	cacheSize   = flag.Int("cache_size", 0, "Number of analysis results to memoize by program content; 0 uses the default.")

	// Ops flags.
	pollInterval = flag.Duration("poll_interval", 0, "Set the interval to poll the program path for changes, in addition to filesystem notifications; zero disables polling.")

	// Tracing.
	jaegerEndpoint    = flag.String("jaeger_endpoint", "", "If set, collector endpoint URL of jaeger thrift service")
	traceSamplePeriod = flag.Int("trace_sample_period", 0, "Sample period for traces.  If non-zero, every nth trace will be sampled.")
)

var (
	// Branch as well as Version and Revision identifies where in the git
	// history the build came from, as supplied by the linker when compiled
	// with `make'.  The defaults here indicate that the user did not use
	// `make' as instructed.
	Branch   = "invalid:-use-make-to-build"
	Version  = "invalid:-use-make-to-build"
	Revision = "invalid:-use-make-to-build"
)

func main() {
	buildInfo := server.BuildInfo{
		Branch:   Branch,
		Version:  Version,
		Revision: Revision,
	}

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s\n", buildInfo.String())
		fmt.Fprintf(os.Stderr, "\nUsage: %s [flags] [program]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if *version {
		fmt.Println(buildInfo.String())
		os.Exit(0)
	}
	if *cfgPath != "" {
		cfg, err := config.Load(*cfgPath)
		if err != nil {
			glog.Exitf("Couldn't load config: %s", err)
		}
		if err := cfg.Apply(flag.CommandLine); err != nil {
			glog.Exitf("Couldn't apply config: %s", err)
		}
	}
	glog.Info(buildInfo.String())
	glog.Infof("Commandline: %q", os.Args)
	switch {
	case flag.NArg() > 1:
		glog.Exitf("Too many extra arguments specified: %q\n(name a directory to analyze several programs.)", flag.Args())
	case flag.NArg() == 1 && *progs != "":
		glog.Exitf("Program path given both as -progs %q and as argument %q", *progs, flag.Arg(0))
	case flag.NArg() == 1:
		*progs = flag.Arg(0)
	}
	if *progs == "" {
		glog.Exitf("cicheck requires programs to analyze; please use the flag -progs or an argument to name a program or a directory of programs.")
	}
	if *pollInterval < 0 {
		glog.Exitf("-poll_interval must not be negative, got %s", *pollInterval)
	}

	if *traceSamplePeriod > 0 {
		trace.ApplyConfig(trace.Config{DefaultSampler: trace.ProbabilitySampler(1 / float64(*traceSamplePeriod))})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigint := make(chan os.Signal, 1)
	signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigint
		glog.Infof("Received %+v, exiting...", sig)
		cancel()
	}()

	opts := []server.Option{
		server.ProgramPath(*progs),
		server.SetBuildInfo(buildInfo),
	}
	if *cacheSize != 0 {
		opts = append(opts, server.CacheSize(*cacheSize))
	}
	if *errorsAbort {
		opts = append(opts, server.ErrorsAbort)
	}
	if *dumpScopes {
		opts = append(opts, server.DumpScopes)
	}
	if *jaegerEndpoint != "" {
		opts = append(opts, server.JaegerReporter(*jaegerEndpoint))
	}
	var w watcher.Watcher
	if *oneShot {
		opts = append(opts, server.OneShot)
	} else {
		opts = append(opts, server.BindAddress(*address, *port))
		dw, err := watcher.NewDirWatcher(ctx, *pollInterval)
		if err != nil {
			glog.Exitf("Couldn't start program watcher: %s", err)
		}
		w = dw
	}
	m, err := server.New(ctx, w, opts...)
	if err != nil {
		glog.Error(err)
		cancel()
		os.Exit(1) //nolint:gocritic // false positive
	}
	if err := m.Run(); err != nil {
		glog.Error(err)
		cancel()
		os.Exit(1) //nolint:gocritic // false positive
	}
	glog.Flush()
}
