package telemetry

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// processStats are the gauges recorded for a running command, a long
// download spends most of its time streaming and extracting archives.
type processStats struct {
	cpu        metric.Float64Gauge
	heap       metric.Int64Gauge
	goroutines metric.Int64Gauge
}

func newProcessStats(meter metric.Meter) (processStats, error) {
	var stats processStats
	var err error
	stats.cpu, err = meter.Float64Gauge("process.cpu.percent")
	if err != nil {
		return stats, err
	}
	stats.heap, err = meter.Int64Gauge("process.heap.bytes", metric.WithUnit("By"))
	if err != nil {
		return stats, err
	}
	stats.goroutines, err = meter.Int64Gauge("process.goroutines")
	return stats, err
}

// record takes one sample, cpu usage is measured over `window`.
func (s processStats) record(ctx context.Context, window time.Duration) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)
	s.heap.Record(ctx, int64(mem.HeapAlloc))
	s.goroutines.Record(ctx, int64(runtime.NumGoroutine()))

	usage, err := cpu.PercentWithContext(ctx, window, false)
	if err != nil {
		slog.WarnContext(ctx, "failed to read cpu usage", "err", err)
		return
	}
	if len(usage) > 0 {
		s.cpu.Record(ctx, usage[0])
	}
}

// InstrumentPerfStats samples process gauges every 30 seconds until ctx is
// done.
func InstrumentPerfStats(ctx context.Context) {
	stats, err := newProcessStats(otel.Meter("esic.lib.telemetry/process"))
	if err != nil {
		slog.Warn("failed to create process gauges", "err", err)
		return
	}

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				stats.record(ctx, time.Second)
			case <-ctx.Done():
				return
			}
		}
	}()
}
