// Copyright 2011 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package server

import (
	"io"
	"net"

	"contrib.go.opencensus.io/exporter/jaeger"
	"github.com/pkg/errors"
	"go.opencensus.io/trace"
)

// Option configures server.Server
type Option interface {
	apply(*Server) error
}

// ProgramPath sets the path to find CIC programs in the Server.
type ProgramPath string

func (opt ProgramPath) apply(m *Server) error {
	m.programPath = string(opt)
	return nil
}

// BindAddress sets the HTTP server address in Server.
func BindAddress(address, port string) Option {
	return &bindAddress{address, port}
}

type bindAddress struct {
	address, port string
}

func (opt bindAddress) apply(m *Server) error {
	if m.listener != nil {
		return errors.New("HTTP server bind address already supplied")
	}
	m.bindAddress = net.JoinHostPort(opt.address, opt.port)
	var err error
	m.listener, err = net.Listen("tcp", m.bindAddress)
	return errors.Wrapf(err, "failed to listen on %s", m.bindAddress)
}

// SetBuildInfo sets the cicheck program build information in the Server.
type SetBuildInfo BuildInfo

func (opt SetBuildInfo) apply(m *Server) error {
	m.buildInfo = BuildInfo(opt)
	return nil
}

// ResultsWriter sets the destination of the program outputs written in
// one-shot mode.  The default is standard output.
func ResultsWriter(w io.Writer) Option {
	return &resultsWriter{w}
}

type resultsWriter struct {
	io.Writer
}

func (opt resultsWriter) apply(m *Server) error {
	m.out = opt.Writer
	return nil
}

// CacheSize sets the number of analysis results the runtime memoizes.
type CacheSize int

func (opt CacheSize) apply(m *Server) error {
	m.cacheSize = int(opt)
	return nil
}

type niladicOption struct {
	applyfunc func(m *Server) error
}

func (n *niladicOption) apply(m *Server) error {
	return n.applyfunc(m)
}

// OneShot sets one-shot mode in the Server.
var OneShot = &niladicOption{
	func(m *Server) error {
		m.oneShot = true
		return nil
	}}

// ErrorsAbort makes a duplicate declaration or an unmatched FIM abort the
// analysis of a program.
var ErrorsAbort = &niladicOption{
	func(m *Server) error {
		m.errorsAbort = true
		return nil
	}}

// DumpScopes instructs the Server's analyzer to log the scope stack as each block closes.
var DumpScopes = &niladicOption{
	func(m *Server) error {
		m.dumpScopes = true
		return nil
	}}

// JaegerReporter creates a new jaeger reporter that sends to the given Jaeger endpoint address.
type JaegerReporter string

func (opt JaegerReporter) apply(m *Server) error {
	je, err := jaeger.NewExporter(jaeger.Options{
		CollectorEndpoint: string(opt),
		Process: jaeger.Process{
			ServiceName: "cicheck",
		},
	})
	if err != nil {
		return err
	}
	trace.RegisterExporter(je)
	return nil
}
