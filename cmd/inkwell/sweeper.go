// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/inkwell/inkwell/internal/observability"
	"github.com/inkwell/inkwell/pkg/errutil"
)

// sessionSweeper removes expired web sessions.
type sessionSweeper interface {
	DeleteExpiredSessions(ctx context.Context) (int64, error)
}

// runSweeper deletes expired sessions every interval until ctx is done.
func runSweeper(ctx context.Context, interval time.Duration, sweeper sessionSweeper, metrics *observability.Metrics, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sweepOnce(ctx, sweeper, metrics, logger)
		}
	}
}

func sweepOnce(ctx context.Context, sweeper sessionSweeper, metrics *observability.Metrics, logger *slog.Logger) {
	n, err := sweeper.DeleteExpiredSessions(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		errutil.LogError(logger, "session sweep failed", err)
		return
	}
	metrics.SessionsSwept(n)
	if n > 0 {
		logger.InfoContext(ctx, "expired sessions removed", "count", n)
	}
}
