package tagseek

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
//
// Example Prometheus integration:
//
//	type PrometheusCollector struct {
//	    sketchCounter  prometheus.Counter
//	    queryHistogram prometheus.Histogram
//	}
//
//	func (p *PrometheusCollector) RecordSketch(duration time.Duration, err error) {
//	    p.sketchCounter.Inc()
//	    // ... record error state, duration, etc.
//	}
type MetricsCollector interface {
	// RecordSketch is called after sketching one input unit.
	// duration is the total time taken, err is nil if successful.
	RecordSketch(duration time.Duration, err error)

	// RecordSketchBatch is called after each batch sketching run.
	// count is the number of units attempted, failed is the number that
	// failed, duration is the total time taken.
	RecordSketchBatch(count, failed int, duration time.Duration)

	// RecordQuery is called after querying one sample.
	RecordQuery(duration time.Duration, err error)

	// RecordProfile is called after profiling one sample.
	RecordProfile(duration time.Duration, err error)

	// RecordPersist is called after writing a sketch or database file.
	RecordPersist(duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordSketch(time.Duration, error)         {}
func (NoopMetricsCollector) RecordSketchBatch(int, int, time.Duration) {}
func (NoopMetricsCollector) RecordQuery(time.Duration, error)          {}
func (NoopMetricsCollector) RecordProfile(time.Duration, error)        {}
func (NoopMetricsCollector) RecordPersist(time.Duration, error)        {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	SketchCount       atomic.Int64
	SketchErrors      atomic.Int64
	SketchTotalNanos  atomic.Int64
	SketchBatchCount  atomic.Int64
	SketchBatchUnits  atomic.Int64
	SketchBatchFailed atomic.Int64
	QueryCount        atomic.Int64
	QueryErrors       atomic.Int64
	QueryTotalNanos   atomic.Int64
	ProfileCount      atomic.Int64
	ProfileErrors     atomic.Int64
	ProfileTotalNanos atomic.Int64
	PersistCount      atomic.Int64
	PersistErrors     atomic.Int64
}

// RecordSketch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSketch(duration time.Duration, err error) {
	b.SketchCount.Add(1)
	b.SketchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SketchErrors.Add(1)
	}
}

// RecordSketchBatch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSketchBatch(count, failed int, duration time.Duration) {
	b.SketchBatchCount.Add(1)
	b.SketchBatchUnits.Add(int64(count))
	b.SketchBatchFailed.Add(int64(failed))
}

// RecordQuery implements MetricsCollector.
func (b *BasicMetricsCollector) RecordQuery(duration time.Duration, err error) {
	b.QueryCount.Add(1)
	b.QueryTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.QueryErrors.Add(1)
	}
}

// RecordProfile implements MetricsCollector.
func (b *BasicMetricsCollector) RecordProfile(duration time.Duration, err error) {
	b.ProfileCount.Add(1)
	b.ProfileTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.ProfileErrors.Add(1)
	}
}

// RecordPersist implements MetricsCollector.
func (b *BasicMetricsCollector) RecordPersist(duration time.Duration, err error) {
	b.PersistCount.Add(1)
	if err != nil {
		b.PersistErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		SketchCount:       b.SketchCount.Load(),
		SketchErrors:      b.SketchErrors.Load(),
		SketchAvgNanos:    b.getAvgSketchNanos(),
		SketchBatchCount:  b.SketchBatchCount.Load(),
		SketchBatchUnits:  b.SketchBatchUnits.Load(),
		SketchBatchFailed: b.SketchBatchFailed.Load(),
		QueryCount:        b.QueryCount.Load(),
		QueryErrors:       b.QueryErrors.Load(),
		QueryAvgNanos:     b.getAvgQueryNanos(),
		ProfileCount:      b.ProfileCount.Load(),
		ProfileErrors:     b.ProfileErrors.Load(),
		PersistCount:      b.PersistCount.Load(),
		PersistErrors:     b.PersistErrors.Load(),
	}
}

func (b *BasicMetricsCollector) getAvgSketchNanos() int64 {
	count := b.SketchCount.Load()
	if count == 0 {
		return 0
	}
	return b.SketchTotalNanos.Load() / count
}

func (b *BasicMetricsCollector) getAvgQueryNanos() int64 {
	count := b.QueryCount.Load()
	if count == 0 {
		return 0
	}
	return b.QueryTotalNanos.Load() / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	SketchCount       int64
	SketchErrors      int64
	SketchAvgNanos    int64
	SketchBatchCount  int64
	SketchBatchUnits  int64
	SketchBatchFailed int64
	QueryCount        int64
	QueryErrors       int64
	QueryAvgNanos     int64
	ProfileCount      int64
	ProfileErrors     int64
	PersistCount      int64
	PersistErrors     int64
}
