/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package registry

import (
	"context"
	"errors"
	"net/http"

	"github.com/chainguard-dev/clog"
)

// RefreshHandler returns an http.Handler that runs a Reconcile and then
// redirects to redirectTo. The response does not depend on the outcome:
// failures and dropped requests are only logged.
func (e *Engine) RefreshHandler(redirectTo string) http.Handler {
	if redirectTo == "" {
		redirectTo = "/"
	}
	return &refreshHandler{engine: e, redirectTo: redirectTo}
}

type refreshHandler struct {
	engine     *Engine
	redirectTo string
}

var _ http.Handler = (*refreshHandler)(nil)

// ServeHTTP implements http.Handler
func (h *refreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// A client going away should not abandon a reconcile halfway.
	ctx := context.WithoutCancel(r.Context())
	log := clog.FromContext(ctx)

	switch diff, err := h.engine.Reconcile(ctx); {
	case errors.Is(err, ErrRefreshInProgress):
		log.Infof("Refresh already running, dropping request")
	case err != nil:
		log.Errorf("Refresh failed: %v", err)
	default:
		log.With("added", diff.Added, "removed", diff.Removed).Info("Refresh done")
	}

	http.Redirect(w, r, h.redirectTo, http.StatusFound)
}
