// Package location periodically reports the driver's position to the
// backend while the driver is online.
package location

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/roaddasher/dasher/internal/logger"
)

// DefaultInterval is how often the position is reported.
const DefaultInterval = 30 * time.Second

// Source yields the driver's current position. ok is false when no fix
// is available yet; such ticks are skipped.
type Source func() (latitude, longitude float64, ok bool)

// Sink receives position reports.
type Sink interface {
	UpdateLocation(ctx context.Context, latitude, longitude float64) error
}

// Reporter runs a ticker loop pushing positions to the sink. Report
// failures are logged and the loop keeps going; the next tick retries.
type Reporter struct {
	sink     Sink
	source   Source
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New builds a Reporter. interval <= 0 selects DefaultInterval.
func New(sink Sink, source Source, interval time.Duration) *Reporter {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Reporter{sink: sink, source: source, interval: interval}
}

// Start launches the reporting loop. Calling Start while a loop is
// running stops the old loop first, so at most one loop exists.
func (r *Reporter) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	r.cancel = cancel
	r.done = done

	go r.run(loopCtx, done)
}

// Stop halts the reporting loop and waits for it to exit. Safe to call
// when the loop is not running.
func (r *Reporter) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()
}

func (r *Reporter) stopLocked() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done
	r.cancel = nil
	r.done = nil
}

func (r *Reporter) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.report(ctx)
		}
	}
}

func (r *Reporter) report(ctx context.Context) {
	lat, lon, ok := r.source()
	if !ok {
		return
	}
	if err := r.sink.UpdateLocation(ctx, lat, lon); err != nil {
		logger.Log.Warn("location report failed", zap.Error(err))
	}
}
