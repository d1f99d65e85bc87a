/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package registry

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sethvargo/go-envconfig"
)

var env = envconfig.MustProcess(context.Background(), &struct {
	// https://cloud.google.com/run/docs/container-contract#services-env-vars
	KnativeServiceName  string `env:"K_SERVICE, default=unknown"`
	KnativeRevisionName string `env:"K_REVISION, default=unknown"`
}{})

const (
	kindBootstrap = "bootstrap"
	kindReconcile = "reconcile"

	resultOK      = "ok"
	resultError   = "error"
	resultDropped = "dropped"
)

var (
	mQueues = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "queue_registry_queues",
			Help: "The number of queues currently in the registry.",
		},
		[]string{"service_name", "revision_name"},
	)
	mRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_registry_refreshes_total",
			Help: "The number of bootstrap and reconcile runs, by outcome.",
		},
		[]string{"kind", "result", "service_name", "revision_name"},
	)
	mAdded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_registry_added_total",
			Help: "The total number of queues added by reconciliation.",
		},
		[]string{"service_name", "revision_name"},
	)
	mRemoved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_registry_removed_total",
			Help: "The total number of queues removed by reconciliation.",
		},
		[]string{"service_name", "revision_name"},
	)
	mBootstrapAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "queue_registry_bootstrap_attempts_total",
			Help: "The total number of bootstrap scans, including retries.",
		},
		[]string{"service_name", "revision_name"},
	)
)

func recordRefresh(kind, result string) {
	mRefreshes.WithLabelValues(kind, result, env.KnativeServiceName, env.KnativeRevisionName).Inc()
}
