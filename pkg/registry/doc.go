/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package registry keeps an in-memory registry of the queues discoverable in
// redis and mirrors it onto a Board.
//
// An Engine is populated once with Bootstrap, which retries with exponential
// backoff until at least one queue shows up. Afterwards Reconcile rescans the
// keyspace and applies only the delta: new queues are added, vanished queues
// are removed, and everything else is left alone.
//
// At most one Bootstrap or Reconcile runs at a time. A call that finds
// another one in flight returns ErrRefreshInProgress immediately; it is
// dropped, not queued.
package registry
