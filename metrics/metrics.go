// SPDX-License-Identifier: MIT

// Package metrics holds the Prometheus collectors shared by the matrix engine,
// the eigen solvers, the PCA pipeline and the model stores.
//
// All collectors are registered on the default registry at init time; callers
// expose them with promhttp if they run a server, the CLI does not.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ParallelRuns counts executor invocations (one scoped pool per run).
	ParallelRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pcimg_parallel_runs_total",
		Help: "Total number of scoped worker pools started",
	})

	// ParallelUnits counts work units executed by all pools.
	ParallelUnits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pcimg_parallel_units_total",
		Help: "Total number of work units executed",
	})

	// MatrixOpDuration tracks latency of heavy matrix kernels.
	MatrixOpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pcimg_matrix_op_duration_seconds",
		Help:    "Latency of heavy matrix operations",
		Buckets: prometheus.ExponentialBuckets(0.00001, 4, 12),
	}, []string{"op"})

	// EigenIterations records how many iterations (or sweeps) a solver ran.
	EigenIterations = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pcimg_eigen_iterations",
		Help:    "Iterations or sweeps performed per eigen-decomposition",
		Buckets: []float64{1, 2, 5, 10, 20, 50, 100, 200, 500, 1000},
	}, []string{"solver"})

	// FitDuration tracks end-to-end PCA fit latency.
	FitDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pcimg_pca_fit_duration_seconds",
		Help:    "Duration of PCA fits",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 16),
	})

	// Projections counts encode/decode calls.
	Projections = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pcimg_pca_projections_total",
		Help: "Total number of PCA projections",
	}, []string{"op"})

	// StoreOperations counts model store operations by backend and outcome.
	StoreOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pcimg_store_operations_total",
		Help: "Total number of model store operations",
	}, []string{"backend", "operation", "status"})

	// StoreLatency tracks model store latency.
	StoreLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pcimg_store_latency_seconds",
		Help:    "Latency of model store operations",
		Buckets: []float64{.0001, .0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
	}, []string{"backend", "operation"})

	// CacheLookups counts LRU lookups on the cached store.
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pcimg_store_cache_lookups_total",
		Help: "Total number of model cache lookups",
	}, []string{"result"})
)

// Status labels used with StoreOperations.
const (
	StatusOK       = "ok"
	StatusNotFound = "not_found"
	StatusError    = "error"
)
