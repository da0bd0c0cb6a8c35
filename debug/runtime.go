package debug

// Runtime metrics logger. Started only when config.Debug is true.
// Emits goroutine count, stack usage, heap and resident set size at a fixed
// interval so long polling sessions can be checked for slow growth.

import (
	"context"
	"log/slog"
	"runtime"
	"runtime/metrics"
	"time"

	"github.com/dustin/go-humanize"
)

// StartRuntimeLogger launches a ticker that logs runtime statistics until ctx
// is cancelled.
func StartRuntimeLogger(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if logger == nil {
		return
	}

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		samples := []metrics.Sample{{Name: "/sched/goroutines:goroutines"}}
		rssErrLogged := false
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
			}
			metrics.Read(samples)
			var ms runtime.MemStats
			runtime.ReadMemStats(&ms)
			attrs := []any{
				slog.Uint64("goroutines", samples[0].Value.Uint64()),
				slog.String("stack_inuse", humanize.Bytes(ms.StackInuse)),
				slog.String("heap_alloc", humanize.Bytes(ms.HeapAlloc)),
				slog.Uint64("num_gc", uint64(ms.NumGC)),
			}
			if rss, err := residentSetSize(); err == nil {
				attrs = append(attrs, slog.String("rss", humanize.Bytes(rss)))
			} else if !rssErrLogged {
				logger.Warn("runtime: resident set size unavailable", slog.String("err", err.Error()))
				rssErrLogged = true
			}
			logger.Info("runtime-stats", attrs...)
		}
	}()
}
