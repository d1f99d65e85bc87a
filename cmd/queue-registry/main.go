/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chainguard-dev/clog"
	_ "github.com/chainguard-dev/clog/gcp/init"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/chainguard-dev/queue-registry/internal/config"
	"github.com/chainguard-dev/queue-registry/pkg/board"
	"github.com/chainguard-dev/queue-registry/pkg/httpmetrics"
	"github.com/chainguard-dev/queue-registry/pkg/keyscan"
	"github.com/chainguard-dev/queue-registry/pkg/queue"
	"github.com/chainguard-dev/queue-registry/pkg/registry"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	log := clog.FromContext(ctx)

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	variant, err := cfg.Variant()
	if err != nil {
		log.Fatalf("Invalid queue variant: %v", err)
	}

	rdb := redis.NewUniversalClient(cfg.Redis.Options())
	defer rdb.Close()

	factory, err := queue.NewFactory(rdb, cfg.BullPrefix, variant)
	if err != nil {
		log.Fatalf("Failed to create queue factory: %v", err)
	}

	scanOpts := []keyscan.Option{keyscan.WithCount(cfg.ScanCount)}
	if cfg.ScanRate > 0 {
		scanOpts = append(scanOpts, keyscan.WithLimiter(rate.NewLimiter(rate.Limit(cfg.ScanRate), 1)))
	}

	b := board.New()
	engine := registry.New(keyscan.New(rdb, scanOpts...), factory, b,
		registry.WithPrefix(cfg.BullPrefix),
		registry.WithBackoff(cfg.Backoff()),
		registry.WithReconcileTimeout(cfg.ReconcileTimeout),
	)

	go httpmetrics.ServeMetrics(ctx, cfg.MetricsPort, cfg.EnablePprof)

	mux := http.NewServeMux()
	mux.Handle("GET /refresh", httpmetrics.Handler("refresh", engine.RefreshHandler(cfg.HomePage)))
	mux.Handle("GET /healthz", httpmetrics.HandlerFunc("healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, "{\"queues\":%d}\n", engine.Status().Queues)
	}))
	mux.Handle("/", httpmetrics.Handler("board", b.Handler(cfg.HomePage)))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		// A failed bootstrap leaves the registry empty until someone hits /refresh.
		if err := engine.Bootstrap(ctx); err != nil {
			clog.FromContext(ctx).Errorf("Bootstrap failed: %v", err)
		}
		return nil
	})
	eg.Go(func() error {
		log.Infof("Serving queue registry on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		sctx, scancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer scancel()
		return srv.Shutdown(sctx)
	})

	if err := eg.Wait(); err != nil {
		log.Errorf("Error group failed: %v", err)
	}
}
