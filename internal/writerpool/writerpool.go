// Package writerpool implements the bounded concurrent tile writer: a
// fixed-degree-N worker pool gated by a counting semaphore, so the
// compositor cannot run more than N tile rasters ahead of persistence.
package writerpool

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/geoframe/tilepyramid/internal/levelset"
	"github.com/geoframe/tilepyramid/internal/raster"
)

// Sink persists one finished tile raster. Implementations (a directory-tree
// writer, a packaged archive writer) must be safe for concurrent use from
// up to N goroutines.
type Sink interface {
	WriteTile(tile levelset.Tile, r raster.Raster) error
}

// Pool is a bounded concurrent writer with fixed degree N (default 2).
// InstallTileRasterLater blocks the caller (the compositor) when N
// tiles are already outstanding, giving the whole pipeline backpressure.
type Pool struct {
	sink Sink
	sem  *semaphore.Weighted
	wg   sync.WaitGroup

	closed      atomic.Bool
	outstanding atomic.Int64

	mu   sync.Mutex
	errs []error
}

// New returns a Pool with degree n writing through sink.
func New(sink Sink, n int) *Pool {
	if n < 1 {
		n = 1
	}
	return &Pool{sink: sink, sem: semaphore.NewWeighted(int64(n))}
}

// InstallTileRasterLater acquires one permit (blocking if all N are in
// use), then enqueues a goroutine that writes the tile and releases the
// permit on completion, success or failure.
func (p *Pool) InstallTileRasterLater(tile levelset.Tile, r raster.Raster) {
	if p.closed.Load() {
		log.Printf("writerpool: SEVERE: %s: install after shutdown, dropped", tile)
		return
	}
	_ = p.sem.Acquire(context.Background(), 1)
	p.wg.Add(1)
	p.outstanding.Add(1)
	go func() {
		defer p.wg.Done()
		defer p.sem.Release(1)
		defer p.outstanding.Add(-1)

		if err := p.sink.WriteTile(tile, r); err != nil {
			// Logged at severe and non-fatal per tile; the dataset is
			// then incomplete at that tile but the run continues.
			log.Printf("writerpool: SEVERE: %s: write failed: %v", tile, err)
			p.recordErr(err)
		}
	}()
}

func (p *Pool) recordErr(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errs = append(p.errs, err)
}

// WaitForInstallTileTasks shuts the pool down to new tasks and blocks the
// caller until every outstanding write completes. In-flight writes
// always run to completion; there is no hard interrupt. The wait wakes
// every second to report drain status, so a stuck writer does not wedge
// the process silently.
func (p *Pool) WaitForInstallTileTasks() {
	p.closed.Store(true)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			log.Printf("writerpool: draining, %d write(s) still in flight", p.outstanding.Load())
		}
	}
}

// Errors returns every write error observed so far, for the driver's
// end-of-run reporting. The dataset is recoverable by re-running;
// these are not re-raised as a fatal failure.
func (p *Pool) Errors() []error {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]error, len(p.errs))
	copy(out, p.errs)
	return out
}
