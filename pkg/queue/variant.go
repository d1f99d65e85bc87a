/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package queue

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownVariant is returned when a backend name is not recognized.
var ErrUnknownVariant = errors.New("unknown queue variant")

// Variant selects the queue backend handles are built for.
type Variant string

const (
	// BullMQ is the current generation of the queue library.
	BullMQ Variant = "BULLMQ"

	// Bull is the legacy queue library.
	Bull Variant = "BULL"
)

// String implements fmt.Stringer.
func (v Variant) String() string {
	return string(v)
}

// ParseVariant parses a backend name, ignoring case.
func ParseVariant(s string) (Variant, error) {
	switch Variant(strings.ToUpper(strings.TrimSpace(s))) {
	case BullMQ:
		return BullMQ, nil
	case Bull:
		return Bull, nil
	default:
		return "", fmt.Errorf("%w: %q (want %q or %q)", ErrUnknownVariant, s, BullMQ, Bull)
	}
}
