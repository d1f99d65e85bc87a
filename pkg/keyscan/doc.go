/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package keyscan pages through a redis keyspace with SCAN, collecting every
// key that matches a glob pattern.
package keyscan
