// Copyright 2021 Google Inc. All Rights Reserved.
// This file is available under the Apache license.

package analyzer

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	linesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cic",
		Subsystem: "analyzer",
		Name:      "lines_total",
		Help:      "Number of source lines analyzed.",
	}, []string{"prog"})

	diagnosticsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cic",
		Subsystem: "analyzer",
		Name:      "diagnostics_total",
		Help:      "Number of diagnostics reported, by kind.",
	}, []string{"prog", "kind"})

	analysisDurations = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "cic",
		Subsystem: "analyzer",
		Name:      "analysis_duration_seconds",
		Help:      "Whole program analysis time distribution in seconds.",
		Buckets:   prometheus.ExponentialBuckets(0.00002, 2.0, 10),
	}, []string{"prog"})
)

func registerMetrics(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{linesTotal, diagnosticsTotal, analysisDurations} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}
