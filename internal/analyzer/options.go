// Copyright 2021 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package analyzer

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Option configures a new Analyzer.
type Option func(*Analyzer) error

// ErrorsAbort makes duplicate declarations and unmatched FIM lines abort the
// analysis instead of being reported as diagnostics.
func ErrorsAbort() Option {
	return func(a *Analyzer) error {
		a.errorsAbort = true
		return nil
	}
}

// DumpScopes instructs the Analyzer to log the scope stack to the INFO log
// before each block is closed and at the end of the program.
func DumpScopes() Option {
	return func(a *Analyzer) error {
		a.dumpScopes = true
		return nil
	}
}

// PrometheusRegisterer passes in a registry for setting up exported metrics.
func PrometheusRegisterer(reg prometheus.Registerer) Option {
	return func(a *Analyzer) error {
		return registerMetrics(reg)
	}
}
