// Copyright 2021 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package runtime

import (
	"github.com/cic-lang/cic/internal/analyzer"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Option configures a new program Runtime.
type Option func(*Runtime) error

// ErrorsAbort sets the Runtime to abort loading when a program analysis is
// aborted by a duplicate declaration or an unmatched FIM.
func ErrorsAbort() Option {
	return func(r *Runtime) error {
		r.errorsAbort = true
		r.aOpts = append(r.aOpts, analyzer.ErrorsAbort())
		return nil
	}
}

// DumpScopes instructs the Runtime to log the scope stack as blocks close.
func DumpScopes() Option {
	return func(r *Runtime) error {
		r.aOpts = append(r.aOpts, analyzer.DumpScopes())
		return nil
	}
}

// CacheSize sets the number of analysis results memoized by content.
func CacheSize(n int) Option {
	return func(r *Runtime) error {
		if n <= 0 {
			return errors.Errorf("cache size must be positive, got %d", n)
		}
		r.cacheSize = n
		return nil
	}
}

// PrometheusRegisterer passes in a registry for setting up exported metrics.
func PrometheusRegisterer(reg prometheus.Registerer) Option {
	return func(r *Runtime) error {
		r.aOpts = append(r.aOpts, analyzer.PrometheusRegisterer(reg))
		return nil
	}
}
