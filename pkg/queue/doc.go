/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package queue contains handles for queues discovered in redis.
//
// A Handle carries nothing beyond a queue's name and the shared connection it
// is bound to. Two backends are supported, BullMQ and the legacy Bull, which
// lay their keys out the same way and so produce interchangeable handles. The
// backend is picked once, when the Factory is constructed.
package queue
