/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package queue

import (
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"
)

// ErrNoConnection is returned when a Factory is built without a client.
var ErrNoConnection = errors.New("no redis connection")

// Handle is a reference to a single queue.
type Handle interface {
	// Name is the queue name, unique within a registry.
	Name() string

	// Variant is the backend this handle was built for.
	Variant() Variant

	// Prefix is the key prefix the queue lives under.
	Prefix() string

	// Key returns the full redis key for one of the queue's sub-keys,
	// e.g. Key("wait") is "bull:emails:wait".
	Key(parts ...string) string

	// Client is the shared connection the handle is bound to.
	Client() redis.UniversalClient
}

type base struct {
	name   string
	prefix string
	client redis.UniversalClient
}

func (b *base) Name() string                  { return b.name }
func (b *base) Prefix() string                { return b.prefix }
func (b *base) Client() redis.UniversalClient { return b.client }

func (b *base) Key(parts ...string) string {
	return strings.Join(append([]string{b.prefix, b.name}, parts...), ":")
}

type bullMQHandle struct{ base }

var _ Handle = (*bullMQHandle)(nil)

// Variant implements Handle.
func (*bullMQHandle) Variant() Variant { return BullMQ }

// String implements fmt.Stringer.
func (h *bullMQHandle) String() string { return "bullmq:" + h.name }

type bullHandle struct{ base }

var _ Handle = (*bullHandle)(nil)

// Variant implements Handle.
func (*bullHandle) Variant() Variant { return Bull }

// String implements fmt.Stringer.
func (h *bullHandle) String() string { return "bull:" + h.name }

// Factory builds handles bound to one connection, prefix and variant.
type Factory struct {
	client  redis.UniversalClient
	prefix  string
	variant Variant
}

// NewFactory returns a Factory for the given backend. The variant cannot be
// changed afterwards.
func NewFactory(client redis.UniversalClient, prefix string, variant Variant) (*Factory, error) {
	if client == nil {
		return nil, ErrNoConnection
	}
	v, err := ParseVariant(string(variant))
	if err != nil {
		return nil, err
	}
	return &Factory{
		client:  client,
		prefix:  prefix,
		variant: v,
	}, nil
}

// Variant returns the backend this factory builds handles for.
func (f *Factory) Variant() Variant {
	return f.variant
}

// Create returns a handle for the named queue.
func (f *Factory) Create(name string) Handle {
	b := base{
		name:   name,
		prefix: f.prefix,
		client: f.client,
	}
	if f.variant == Bull {
		return &bullHandle{b}
	}
	return &bullMQHandle{b}
}
