package resource

import (
	"context"
	"errors"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrMemoryLimit is returned when a reservation would exceed the
// configured sketch memory budget.
var ErrMemoryLimit = errors.New("sketch memory limit exceeded")

// Config holds run-wide resource limits.
type Config struct {
	// MemoryLimitBytes caps the memory held by in-flight sketches.
	// If 0, usage is tracked but not limited.
	MemoryLimitBytes int64

	// MaxUnitWorkers is the number of input units (genomes, samples)
	// processed concurrently. If 0, defaults to 1.
	MaxUnitWorkers int64

	// IOLimitBytesPerSec throttles uploads to remote stores so bulk
	// publishes do not starve the sketching workers. If 0, unlimited.
	IOLimitBytesPerSec int64
}

// Controller enforces the budgets shared by all workers of a run. All
// methods are safe for concurrent use, and every method tolerates a
// nil receiver so limiting stays optional.
type Controller struct {
	cfg Config

	memSem  *semaphore.Weighted // nil if unlimited
	memUsed atomic.Int64

	unitSem *semaphore.Weighted

	ioLimiter *rate.Limiter
}

// NewController creates a controller for the given limits.
func NewController(cfg Config) *Controller {
	if cfg.MaxUnitWorkers <= 0 {
		cfg.MaxUnitWorkers = 1
	}

	c := &Controller{
		cfg:     cfg,
		unitSem: semaphore.NewWeighted(cfg.MaxUnitWorkers),
	}

	if cfg.MemoryLimitBytes > 0 {
		c.memSem = semaphore.NewWeighted(cfg.MemoryLimitBytes)
	}

	if cfg.IOLimitBytesPerSec > 0 {
		c.ioLimiter = rate.NewLimiter(rate.Limit(cfg.IOLimitBytesPerSec), int(cfg.IOLimitBytesPerSec))
	}

	return c
}

// AcquireMemory reserves bytes against the sketch budget. It never
// blocks: callers get ErrMemoryLimit immediately and decide whether to
// spill, retry, or fail the unit.
func (c *Controller) AcquireMemory(bytes int64) error {
	if c == nil || bytes <= 0 {
		return nil
	}

	if c.memSem != nil {
		if !c.memSem.TryAcquire(bytes) {
			return ErrMemoryLimit
		}
	}

	c.memUsed.Add(bytes)
	return nil
}

// ReleaseMemory returns a reservation to the budget.
func (c *Controller) ReleaseMemory(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}

	if c.memSem != nil {
		c.memSem.Release(bytes)
	}
	c.memUsed.Add(-bytes)
}

// MemoryUsage returns the bytes currently reserved.
func (c *Controller) MemoryUsage() int64 {
	if c == nil {
		return 0
	}
	return c.memUsed.Load()
}

// MemoryLimit returns the configured budget (0 if unlimited).
func (c *Controller) MemoryLimit() int64 {
	if c == nil {
		return 0
	}
	return c.cfg.MemoryLimitBytes
}

// AcquireUnit reserves a unit worker slot, blocking until one frees up
// or ctx is canceled.
func (c *Controller) AcquireUnit(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.unitSem.Acquire(ctx, 1)
}

// TryAcquireUnit reserves a unit worker slot without blocking.
func (c *Controller) TryAcquireUnit() bool {
	if c == nil {
		return true
	}
	return c.unitSem.TryAcquire(1)
}

// ReleaseUnit releases a unit worker slot.
func (c *Controller) ReleaseUnit() {
	if c == nil {
		return
	}
	c.unitSem.Release(1)
}

// AcquireIO waits until the upload limiter allows bytes more bytes.
func (c *Controller) AcquireIO(ctx context.Context, bytes int) error {
	if c == nil || c.ioLimiter == nil {
		return nil
	}
	return c.ioLimiter.WaitN(ctx, bytes)
}
