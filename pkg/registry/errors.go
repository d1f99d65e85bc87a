/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package registry

import "errors"

var (
	// ErrRefreshInProgress is returned when a Bootstrap or Reconcile is
	// already running. The call did nothing.
	ErrRefreshInProgress = errors.New("refresh already in progress")

	// ErrEmptyDiscovery means a bootstrap scan found no queues. Bootstrap
	// retries on it.
	ErrEmptyDiscovery = errors.New("no queue found")

	// ErrAttemptsExhausted means Bootstrap gave up after its last attempt.
	ErrAttemptsExhausted = errors.New("bootstrap attempts exhausted")
)
