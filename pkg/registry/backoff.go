/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package registry

import (
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Backoff governs how Bootstrap retries. The delay before retry n is
// InitialDelay * Multiplier^(n-1), capped at MaxDelay, with no jitter.
type Backoff struct {
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64

	// MaxAttempts counts every scan, including the first.
	MaxAttempts int
}

// DefaultBackoff returns the policy used when none is configured.
func DefaultBackoff() Backoff {
	return Backoff{
		InitialDelay: 500 * time.Millisecond,
		MaxDelay:     30 * time.Second,
		Multiplier:   2,
		MaxAttempts:  10,
	}
}

// Validate checks that the policy can make progress.
func (b Backoff) Validate() error {
	var errs []error
	if b.InitialDelay < 0 {
		errs = append(errs, fmt.Errorf("initial delay must not be negative, got %v", b.InitialDelay))
	}
	if b.MaxDelay < b.InitialDelay {
		errs = append(errs, fmt.Errorf("max delay %v is below initial delay %v", b.MaxDelay, b.InitialDelay))
	}
	if b.Multiplier < 1 {
		errs = append(errs, fmt.Errorf("multiplier must be at least 1, got %v", b.Multiplier))
	}
	if b.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("max attempts must be at least 1, got %d", b.MaxAttempts))
	}
	return errors.Join(errs...)
}

// policy returns a fresh delay schedule. The returned value is stateful, so
// every Bootstrap takes its own.
func (b Backoff) policy() *backoff.ExponentialBackOff {
	p := &backoff.ExponentialBackOff{
		InitialInterval:     b.InitialDelay,
		RandomizationFactor: 0,
		Multiplier:          b.Multiplier,
		MaxInterval:         b.MaxDelay,
	}
	p.Reset()
	return p
}
