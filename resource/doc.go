// Package resource enforces the budgets a sketching run shares across
// its workers.
//
// Three budgets are managed:
//
//   - Memory: bytes held by finished sketches waiting to be written.
//     AcquireMemory is fail-fast so the sketch store can react to
//     pressure by spilling to disk instead of blocking every worker.
//   - Units: the number of input units (genomes, read sets) processed
//     at once. This is the outer of the two parallelism dimensions;
//     record-level workers inside a unit are bounded separately.
//   - IO: a token bucket on upload throughput so publishing finished
//     sketches to a remote store cannot starve extraction.
//
// A nil *Controller disables all limiting, so callers thread one
// through without guarding every call site:
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes: 4 << 30,
//	    MaxUnitWorkers:   8,
//	})
//
//	if err := rc.AcquireUnit(ctx); err != nil {
//	    return err
//	}
//	defer rc.ReleaseUnit()
package resource
