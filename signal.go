package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/tonimelisma/gupload/internal/upload"
)

// batchProgress counts finished activities so an interrupted run can say how
// many were left. Results are forwarded to next when it is non-nil.
type batchProgress struct {
	next  upload.Recorder
	total atomic.Int64
	done  atomic.Int64
}

func newBatchProgress(next upload.Recorder) *batchProgress {
	return &batchProgress{next: next}
}

// begin starts a batch of n activities. Anything left over from an earlier
// batch that never ran is forgotten.
func (p *batchProgress) begin(n int) {
	p.total.Store(p.done.Load() + int64(n))
}

func (p *batchProgress) Record(ctx context.Context, r upload.Result) error {
	p.done.Add(1)

	if p.next == nil {
		return nil
	}

	return p.next.Record(ctx, r)
}

// pending counts activities not finished yet, the in-flight one included.
func (p *batchProgress) pending() int {
	return int(p.total.Load() - p.done.Load())
}

// shutdownContext cancels the returned context on the first SIGINT/SIGTERM
// and exits on the second. The upload in flight completes; activities not
// started are reported as canceled.
func shutdownContext(parent context.Context, logger *slog.Logger, progress *batchProgress) context.Context {
	ctx, cancel := context.WithCancel(parent)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	pending := func() int {
		if progress == nil {
			return 0
		}

		return progress.pending()
	}

	go func() {
		defer signal.Stop(sigCh)

		var sig os.Signal

		select {
		case sig = <-sigCh:
		case <-ctx.Done():
			return
		}

		logger.Info("interrupted, finishing the current upload",
			slog.String("signal", sig.String()),
			slog.Int("pending", pending()),
		)
		cancel()

		select {
		case sig = <-sigCh:
		case <-parent.Done():
			return
		}

		logger.Warn("interrupted again, exiting without waiting",
			slog.String("signal", sig.String()),
			slog.Int("pending", pending()),
		)
		os.Exit(1)
	}()

	return ctx
}
