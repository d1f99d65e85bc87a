/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package keyscan

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
	"k8s.io/apimachinery/pkg/util/sets"
)

type page struct {
	keys []string
	next uint64
	err  error
}

// pagedClient replays one scripted page per SCAN call, keyed by cursor.
type pagedClient struct {
	pages   map[uint64]page
	cursors []uint64
}

func (p *pagedClient) Scan(ctx context.Context, cursor uint64, _ string, _ int64) *redis.ScanCmd {
	p.cursors = append(p.cursors, cursor)
	pg, ok := p.pages[cursor]
	if !ok {
		return redis.NewScanCmdResult(nil, 0, fmt.Errorf("unexpected cursor %d", cursor))
	}
	return redis.NewScanCmdResult(pg.keys, pg.next, pg.err)
}

func TestKeysPagination(t *testing.T) {
	client := &pagedClient{pages: map[uint64]page{
		0:  {keys: []string{"bull:a:id", "bull:b:id"}, next: 17},
		17: {keys: []string{"bull:b:id", "bull:c:id"}, next: 42},
		42: {keys: nil, next: 5},
		5:  {keys: []string{"bull:d:id"}, next: 0},
	}}

	got, err := New(client).Keys(context.Background(), "bull:*:id")
	if err != nil {
		t.Fatalf("Keys() = %v", err)
	}

	want := []string{"bull:a:id", "bull:b:id", "bull:c:id", "bull:d:id"}
	if diff := cmp.Diff(want, sets.List(got)); diff != "" {
		t.Errorf("Keys() (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]uint64{0, 17, 42, 5}, client.cursors); diff != "" {
		t.Errorf("cursors (-want +got):\n%s", diff)
	}
}

func TestKeysStoreError(t *testing.T) {
	cause := errors.New("connection refused")
	client := &pagedClient{pages: map[uint64]page{
		0: {keys: []string{"bull:a:id"}, next: 3},
		3: {err: cause},
	}}

	_, err := New(client).Keys(context.Background(), "bull:*:id")
	if !errors.Is(err, ErrStoreUnavailable) {
		t.Errorf("Keys() = %v, wanted ErrStoreUnavailable", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("Keys() = %v, wanted it to wrap %v", err, cause)
	}
}

func TestKeysLimiterCancelled(t *testing.T) {
	client := &pagedClient{pages: map[uint64]page{
		0: {keys: []string{"bull:a:id"}, next: 0},
	}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	s := New(client, WithLimiter(rate.NewLimiter(rate.Every(1), 1)))
	if _, err := s.Keys(ctx, "bull:*:id"); !errors.Is(err, context.Canceled) {
		t.Errorf("Keys() = %v, wanted context.Canceled", err)
	}
	if len(client.cursors) != 0 {
		t.Errorf("scanned %d pages after cancellation, wanted 0", len(client.cursors))
	}
}

func TestKeysMiniredis(t *testing.T) {
	mr := miniredis.RunT(t)
	for i := range 50 {
		mr.Set(fmt.Sprintf("bull:queue-%02d:id", i), "1")
		mr.Set(fmt.Sprintf("bull:queue-%02d:wait", i), "x")
	}
	mr.Set("other:queue:id", "1")

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	got, err := New(rdb, WithCount(7)).Keys(context.Background(), "bull:*:id")
	if err != nil {
		t.Fatalf("Keys() = %v", err)
	}
	if got.Len() != 50 {
		t.Errorf("Keys() returned %d keys, wanted 50", got.Len())
	}
	if got.Has("other:queue:id") {
		t.Error("Keys() included a key outside the pattern")
	}
	if got.Has("bull:queue-00:wait") {
		t.Error("Keys() included a key with the wrong suffix")
	}
}
