// Package rastercache implements the cached raster proxy: a
// source-keyed cache of decoded Rasters with a soft-threshold/hard-capacity
// LRU eviction pair, negative-entry caching for failed decodes,
// at-most-one-decode-per-source locking, and one-retry OOM recovery.
package rastercache

import (
	"container/list"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/geoframe/tilepyramid/internal/pipelineerr"
	"github.com/geoframe/tilepyramid/internal/raster"
)

// entry is one cache slot: either a decoded raster list with its byte cost,
// or a negative entry recording that the last decode attempt failed.
type entry struct {
	key     string
	rasters []raster.Raster
	cost    int64
	err     error
}

// Loader decodes the raster(s) for a cache miss and reports their
// in-memory byte cost.
type Loader func() (rasters []raster.Raster, cost int64, err error)

// Cache is a concurrency-safe, byte-budgeted LRU cache of decoded source
// rasters
type Cache struct {
	hardCapacity  int64
	softThreshold int64

	mu    sync.Mutex
	total int64
	order *list.List // front = most recently used
	index map[string]*list.Element

	group singleflight.Group
}

// New returns a Cache with the given hard capacity in bytes. The soft
// eviction threshold is fixed at 80% of hardCapacity
func New(hardCapacityBytes int64) *Cache {
	return &Cache{
		hardCapacity:  hardCapacityBytes,
		softThreshold: int64(float64(hardCapacityBytes) * 0.8),
		order:         list.New(),
		index:         make(map[string]*list.Element),
	}
}

// Get returns the cached rasters for key and whether the last decode for it
// failed, if key is present. ok is false on a cache miss.
func (c *Cache) Get(key string) (rasters []raster.Raster, negErr error, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	elem, found := c.index[key]
	if !found {
		return nil, nil, false
	}
	c.order.MoveToFront(elem)
	e := elem.Value.(*entry)
	return e.rasters, e.err, true
}

// GetOrLoad returns the cached rasters for key, decoding via load on a
// miss. Concurrent calls for the same key block behind a single decode so a
// reader runs only once; a previously cached decode failure is returned
// again without retrying load.
func (c *Cache) GetOrLoad(key string, load Loader) ([]raster.Raster, error) {
	if rasters, negErr, ok := c.Get(key); ok {
		if negErr != nil {
			return nil, negErr
		}
		return rasters, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		if rasters, negErr, ok := c.Get(key); ok {
			return rasters, negErr
		}
		rasters, cost, loadErr := c.loadWithOOMRetry(load)
		c.insert(key, rasters, cost, loadErr)
		return rasters, loadErr
	})
	if err != nil {
		return nil, err
	}
	return v.([]raster.Raster), nil
}

func (c *Cache) loadWithOOMRetry(load Loader) ([]raster.Raster, int64, error) {
	rasters, cost, err := load()
	if err == nil || !errors.Is(err, pipelineerr.ResourceExhausted) {
		return rasters, cost, err
	}
	c.Clear()
	runtime.GC()
	rasters, cost, err = load()
	if err != nil {
		return nil, 0, fmt.Errorf("rastercache: fatal after OOM retry: %w", err)
	}
	return rasters, cost, nil
}

func (c *Cache) insert(key string, rasters []raster.Raster, cost int64, loadErr error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.index[key]; ok {
		old := existing.Value.(*entry)
		c.total -= old.cost
		c.order.Remove(existing)
		delete(c.index, key)
	}

	e := &entry{key: key, rasters: rasters, cost: cost, err: loadErr}
	elem := c.order.PushFront(e)
	c.index[key] = elem
	c.total += cost

	c.evictIfNeeded()
}

// evictIfNeeded drops least-recently-used entries until total is at or
// below softThreshold, but only once total has exceeded hardCapacity
//. Must be called with mu held.
func (c *Cache) evictIfNeeded() {
	if c.total <= c.hardCapacity {
		return
	}
	for c.total > c.softThreshold {
		back := c.order.Back()
		if back == nil {
			break
		}
		c.order.Remove(back)
		e := back.Value.(*entry)
		delete(c.index, e.key)
		c.total -= e.cost
		disposeEntry(e)
	}
}

// Clear evicts every entry, disposing each, per the OOM-recovery path.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for elem := c.order.Front(); elem != nil; elem = elem.Next() {
		disposeEntry(elem.Value.(*entry))
	}
	c.order.Init()
	c.index = make(map[string]*list.Element)
	c.total = 0
}

func disposeEntry(e *entry) {
	for _, r := range e.rasters {
		if img, ok := r.(*raster.ImageRaster); ok {
			raster.DisposeMipmap(img)
		}
	}
}
