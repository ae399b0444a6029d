// Package metrics holds the prometheus collectors for the masters domain.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ImportRows counts per-row import outcomes.
	ImportRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "masters_import_rows_total",
		Help: "Import rows processed, labelled by outcome",
	}, []string{"outcome"})

	// RepositoryOps counts repository operations by name and result.
	RepositoryOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "masters_repository_ops_total",
		Help: "Repository operations, labelled by operation and result",
	}, []string{"op", "result"})
)
