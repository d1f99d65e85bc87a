/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

// Package queuename derives logical queue names from the redis keys a Bull
// or BullMQ queue leaves behind.
package queuename

import (
	"fmt"
	"regexp"
	"strings"

	"k8s.io/apimachinery/pkg/util/sets"
)

// MarkerSuffix is the key every queue writes its job id counter to. Its
// presence is what makes a queue discoverable.
const MarkerSuffix = "id"

// globEscaper backslash-escapes the characters redis treats as glob syntax.
var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

// Pattern returns the SCAN glob that matches one marker key per queue. The
// prefix is matched literally, as it is by Extractor.
func Pattern(prefix string) string {
	return fmt.Sprintf("%s:*:%s", globEscaper.Replace(prefix), MarkerSuffix)
}

// Extractor pulls queue names out of keys under a fixed prefix.
type Extractor struct {
	re *regexp.Regexp
}

// NewExtractor compiles the extraction rule for prefix.
func NewExtractor(prefix string) *Extractor {
	return &Extractor{
		// The capture is greedy, so "p:a:b:id" names the queue "a:b".
		re: regexp.MustCompile(`^` + regexp.QuoteMeta(prefix) + `:(.+):[^:]+$`),
	}
}

// Name returns the queue name encoded in key, if any.
func (e *Extractor) Name(key string) (string, bool) {
	m := e.re.FindStringSubmatch(key)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// Names returns the distinct queue names found in keys.
// Keys that don't match are dropped.
func (e *Extractor) Names(keys sets.Set[string]) sets.Set[string] {
	names := sets.New[string]()
	for key := range keys {
		if name, ok := e.Name(key); ok {
			names.Insert(name)
		}
	}
	return names
}

// Extract is a convenience for NewExtractor(prefix).Names(keys).
func Extract(prefix string, keys sets.Set[string]) sets.Set[string] {
	return NewExtractor(prefix).Names(keys)
}
