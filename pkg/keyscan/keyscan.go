/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package keyscan

import (
	"context"
	"errors"
	"fmt"

	"github.com/chainguard-dev/clog"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
	"k8s.io/apimachinery/pkg/util/sets"
)

// ErrStoreUnavailable wraps any failure returned by the store while scanning.
var ErrStoreUnavailable = errors.New("store unavailable")

// Client is the subset of the redis client the scanner needs.
// Both *redis.Client and redis.UniversalClient satisfy it.
type Client interface {
	Scan(ctx context.Context, cursor uint64, match string, count int64) *redis.ScanCmd
}

// Scanner enumerates keys matching a pattern.
type Scanner struct {
	client  Client
	count   int64
	limiter *rate.Limiter
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithCount sets the COUNT hint passed with each SCAN call.
// Zero leaves the server default in place.
func WithCount(n int64) Option {
	return func(s *Scanner) {
		s.count = n
	}
}

// WithLimiter paces SCAN calls so that large keyspaces are not walked in a
// tight loop. A nil limiter disables pacing.
func WithLimiter(l *rate.Limiter) Option {
	return func(s *Scanner) {
		s.limiter = l
	}
}

// New creates a Scanner over the given client.
func New(client Client, opts ...Option) *Scanner {
	s := &Scanner{client: client}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Keys returns the set of keys matching pattern. The scan starts from cursor
// zero and continues until the store hands cursor zero back.
//
// The result is complete but not a snapshot: keys written or deleted while the
// scan is running may or may not be included.
func (s *Scanner) Keys(ctx context.Context, pattern string) (sets.Set[string], error) {
	keys := sets.New[string]()
	var cursor uint64
	pages := 0
	for {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("waiting to scan %q: %w", pattern, err)
			}
		}

		batch, next, err := s.client.Scan(ctx, cursor, pattern, s.count).Result()
		if err != nil {
			return nil, fmt.Errorf("%w: scan(%d, %q): %w", ErrStoreUnavailable, cursor, pattern, err)
		}
		keys.Insert(batch...)
		pages++

		if next == 0 {
			break
		}
		cursor = next
	}
	clog.FromContext(ctx).Debugf("Scanned %d keys matching %q in %d pages", keys.Len(), pattern, pages)
	return keys, nil
}
