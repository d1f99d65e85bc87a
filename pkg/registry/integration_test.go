/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package registry_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"

	"github.com/chainguard-dev/queue-registry/pkg/board"
	"github.com/chainguard-dev/queue-registry/pkg/keyscan"
	"github.com/chainguard-dev/queue-registry/pkg/queue"
	"github.com/chainguard-dev/queue-registry/pkg/registry"
)

func TestEndToEnd(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	for _, k := range []string{"myprefix:orders:id", "myprefix:orders:wait", "myprefix:emails:id", "other:x:id"} {
		mr.Set(k, "1")
	}

	factory, err := queue.NewFactory(rdb, "myprefix", queue.Bull)
	if err != nil {
		t.Fatalf("NewFactory() = %v", err)
	}
	b := board.New()
	e := registry.New(keyscan.New(rdb, keyscan.WithCount(2)), factory, b, registry.WithPrefix("myprefix"))

	if err := e.Bootstrap(ctx); err != nil {
		t.Fatalf("Bootstrap() = %v", err)
	}
	want := []board.Queue{
		{Name: "emails", Variant: "BULL", Prefix: "myprefix"},
		{Name: "orders", Variant: "BULL", Prefix: "myprefix"},
	}
	if diff := cmp.Diff(want, b.Queues()); diff != "" {
		t.Errorf("Queues() (-want +got):\n%s", diff)
	}

	mr.Del("myprefix:emails:id")
	mr.Set("myprefix:billing:id", "1")
	got, err := e.Reconcile(ctx)
	if err != nil {
		t.Fatalf("Reconcile() = %v", err)
	}
	if diff := cmp.Diff(registry.Diff{Added: []string{"billing"}, Removed: []string{"emails"}}, got); diff != "" {
		t.Errorf("Reconcile() (-want +got):\n%s", diff)
	}
	want = []board.Queue{
		{Name: "orders", Variant: "BULL", Prefix: "myprefix"},
		{Name: "billing", Variant: "BULL", Prefix: "myprefix"},
	}
	if diff := cmp.Diff(want, b.Queues()); diff != "" {
		t.Errorf("Queues() (-want +got):\n%s", diff)
	}

	mr.Close()
	if _, err := e.Reconcile(ctx); err == nil {
		t.Error("Reconcile() against a closed store succeeded")
	}
	if diff := cmp.Diff([]string{"orders", "billing"}, e.Names()); diff != "" {
		t.Errorf("Names() after store failure (-want +got):\n%s", diff)
	}
}
