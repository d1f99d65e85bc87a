/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package board is a read-only view of the queue registry. It learns about
// queues only through ReplaceAll, Add and Remove, and never talks to redis.
package board

import (
	"encoding/json"
	"net/http"
	"slices"
	"strings"
	"sync"

	"github.com/chainguard-dev/clog"

	"github.com/chainguard-dev/queue-registry/pkg/queue"
)

// Queue describes one queue on the board.
type Queue struct {
	Name    string        `json:"name"`
	Variant queue.Variant `json:"variant"`
	Prefix  string        `json:"prefix"`
}

// Link is an extra navigation entry rendered alongside the queues.
type Link struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// Board holds the queues currently shown.
type Board struct {
	links []Link

	mu     sync.RWMutex
	queues []Queue
}

// Option configures a Board.
type Option func(*Board)

// WithLinks sets the navigation links. The default is a single refresh link.
func WithLinks(links ...Link) Option {
	return func(b *Board) {
		b.links = links
	}
}

// New creates an empty Board.
func New(opts ...Option) *Board {
	b := &Board{
		links: []Link{{Text: "refresh", URL: "/refresh"}},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func describe(h queue.Handle) Queue {
	return Queue{
		Name:    h.Name(),
		Variant: h.Variant(),
		Prefix:  h.Prefix(),
	}
}

// ReplaceAll swaps the full set of queues.
func (b *Board) ReplaceAll(handles []queue.Handle) {
	queues := make([]Queue, 0, len(handles))
	for _, h := range handles {
		queues = append(queues, describe(h))
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queues = queues
}

// Add appends a queue. A queue already on the board is left in place.
func (b *Board) Add(h queue.Handle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if slices.ContainsFunc(b.queues, func(q Queue) bool { return q.Name == h.Name() }) {
		return
	}
	b.queues = append(b.queues, describe(h))
}

// Remove drops a queue by name.
func (b *Board) Remove(h queue.Handle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queues = slices.DeleteFunc(b.queues, func(q Queue) bool { return q.Name == h.Name() })
}

// Queues returns the queues in display order.
func (b *Board) Queues() []Queue {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.queues)
}

type page struct {
	Queues []Queue `json:"queues"`
	Links  []Link  `json:"links"`
}

// Handler serves the board under basePath: the index at basePath and the
// same listing at basePath + "api/queues".
func (b *Board) Handler(basePath string) http.Handler {
	base := "/" + strings.Trim(basePath, "/")
	if base != "/" {
		base += "/"
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET "+base+"{$}", b.serveQueues)
	mux.HandleFunc("GET "+base+"api/queues", b.serveQueues)
	return mux
}

func (b *Board) serveQueues(w http.ResponseWriter, r *http.Request) {
	p := page{Queues: b.Queues(), Links: b.links}
	if p.Queues == nil {
		p.Queues = []Queue{}
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(p); err != nil {
		clog.FromContext(r.Context()).Warnf("Failed to write board: %v", err)
	}
}
