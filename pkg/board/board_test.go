/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package board

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"

	"github.com/chainguard-dev/queue-registry/pkg/queue"
)

func handles(t *testing.T, names ...string) []queue.Handle {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	t.Cleanup(func() { rdb.Close() })
	f, err := queue.NewFactory(rdb, "bull", queue.BullMQ)
	if err != nil {
		t.Fatalf("NewFactory() = %v", err)
	}
	out := make([]queue.Handle, 0, len(names))
	for _, n := range names {
		out = append(out, f.Create(n))
	}
	return out
}

func names(qs []Queue) []string {
	out := make([]string, 0, len(qs))
	for _, q := range qs {
		out = append(out, q.Name)
	}
	return out
}

func TestMutations(t *testing.T) {
	hs := handles(t, "a", "b", "c", "d")
	b := New()

	b.ReplaceAll(hs[:2])
	if diff := cmp.Diff([]string{"a", "b"}, names(b.Queues())); diff != "" {
		t.Errorf("after ReplaceAll (-want +got):\n%s", diff)
	}

	b.Add(hs[2])
	b.Add(hs[2])
	if diff := cmp.Diff([]string{"a", "b", "c"}, names(b.Queues())); diff != "" {
		t.Errorf("after Add (-want +got):\n%s", diff)
	}

	b.Remove(hs[0])
	b.Remove(hs[3])
	if diff := cmp.Diff([]string{"b", "c"}, names(b.Queues())); diff != "" {
		t.Errorf("after Remove (-want +got):\n%s", diff)
	}

	b.ReplaceAll(hs[3:])
	if diff := cmp.Diff([]string{"d"}, names(b.Queues())); diff != "" {
		t.Errorf("after second ReplaceAll (-want +got):\n%s", diff)
	}
}

func TestHandler(t *testing.T) {
	b := New()
	b.ReplaceAll(handles(t, "emails"))

	for _, base := range []string{"", "/", "/ui", "/ui/"} {
		h := b.Handler(base)
		prefix := "/"
		if base == "/ui" || base == "/ui/" {
			prefix = "/ui/"
		}
		for _, path := range []string{prefix, prefix + "api/queues"} {
			t.Run(base+"->"+path, func(t *testing.T) {
				rec := httptest.NewRecorder()
				h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
				if rec.Code != http.StatusOK {
					t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
				}

				var got page
				if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
					t.Fatalf("Decode() = %v", err)
				}
				want := page{
					Queues: []Queue{{Name: "emails", Variant: queue.BullMQ, Prefix: "bull"}},
					Links:  []Link{{Text: "refresh", URL: "/refresh"}},
				}
				if diff := cmp.Diff(want, got); diff != "" {
					t.Errorf("body (-want +got):\n%s", diff)
				}
			})
		}
	}
}

func TestHandlerEmpty(t *testing.T) {
	rec := httptest.NewRecorder()
	New(WithLinks()).Handler("/").ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/queues", nil))

	var got map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatalf("Decode() = %v", err)
	}
	if qs, ok := got["queues"].([]any); !ok || len(qs) != 0 {
		t.Errorf("queues = %v, wanted an empty list", got["queues"])
	}
}
