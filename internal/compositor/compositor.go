// Package compositor implements the recursive tile compositor: the
// depth-first traversal that builds the pyramid, drawing intersecting
// sources onto the deepest level and quadtree children onto every coarser
// level.
package compositor

import (
	"context"
	"fmt"
	"log"
	"sync/atomic"

	"github.com/geoframe/tilepyramid/internal/catalog"
	"github.com/geoframe/tilepyramid/internal/levelset"
	"github.com/geoframe/tilepyramid/internal/pipelineerr"
	"github.com/geoframe/tilepyramid/internal/raster"
)

// Sink accepts a finished tile raster for persistence, under backpressure.
// Implemented by writerpool.Pool.
type Sink interface {
	InstallTileRasterLater(tile levelset.Tile, r raster.Raster)
	WaitForInstallTileTasks()
}

// ProgressFunc is called after each composed tile with the strictly
// monotonic (oldProgress, newProgress) fraction pair.
type ProgressFunc func(oldProgress, newProgress float64)

// CanvasSpec controls how fresh tile canvases are allocated: the raster
// kind, the scalar sample type and byte order, the missing-data value
// pre-filled into empty scalar pixels, and the band permutation applied to
// composed image tiles.
type CanvasSpec struct {
	Kind      raster.Kind
	DataType  raster.DataType
	ByteOrder raster.ByteOrder

	MissingDataReplacement float64
	HasMissingData         bool

	BandsOrder []int
}

// Compositor owns the pyramid recursion.
type Compositor struct {
	Catalog  *catalog.Catalog
	Levels   *levelset.LevelSet
	Sink     Sink
	Canvas   CanvasSpec
	Progress ProgressFunc

	stopped atomic.Bool

	tileCount     int64
	tilesComposed int64
}

// New constructs a Compositor. progress may be nil.
func New(cat *catalog.Catalog, levels *levelset.LevelSet, sink Sink, canvas CanvasSpec, progress ProgressFunc) *Compositor {
	if progress == nil {
		progress = func(float64, float64) {}
	}
	return &Compositor{
		Catalog:   cat,
		Levels:    levels,
		Sink:      sink,
		Canvas:    canvas,
		Progress:  progress,
		tileCount: levels.TileCount(),
	}
}

// TilesComposed returns the number of tiles visited so far. The count
// includes tiles with no intersecting source and tiles on empty levels,
// neither of which is handed to the writer pool.
func (c *Compositor) TilesComposed() int64 {
	return atomic.LoadInt64(&c.tilesComposed)
}

// Stop sets the cooperative stop flag: the compositor checks it
// at every top-level tile boundary, every recursion entry, and between
// every written tile.
func (c *Compositor) Stop() { c.stopped.Store(true) }

func (c *Compositor) isStopped() bool { return c.stopped.Load() }

// Run executes the depth-first, row-major traversal over level-zero tiles,
// then drains the writer pool. An observed stop drains the pool and returns
// nil — cancellation is not an error. Run fails on a destination canvas
// allocation that fails even after the cache's OOM-retry path, and on a
// bandsOrder permutation that does not fit a composed tile.
func (c *Compositor) Run(ctx context.Context) error {
	level0 := c.Levels.Levels[0]
	firstRow, lastRow := c.Levels.RowRange(level0)
	firstCol, lastCol := c.Levels.ColumnRange(level0)

	for row := firstRow; row <= lastRow; row++ {
		for col := firstCol; col <= lastCol; col++ {
			if c.isStopped() {
				c.Sink.WaitForInstallTileTasks()
				return nil
			}
			select {
			case <-ctx.Done():
				c.stopped.Store(true)
				c.Sink.WaitForInstallTileTasks()
				return nil
			default:
			}

			tile := levelset.NewTile(c.Levels, 0, row, col)
			if !tile.Sector().Intersects(c.Levels.Coverage) {
				continue
			}

			r, err := c.createTileRaster(level0, tile)
			if err != nil {
				return err
			}
			if r != nil && !level0.Empty {
				c.Sink.InstallTileRasterLater(tile, r)
			}
			c.advance()
		}
	}

	c.Sink.WaitForInstallTileTasks()
	return nil
}

func (c *Compositor) advance() {
	old := float64(atomic.LoadInt64(&c.tilesComposed)) / float64(c.tileCount)
	n := atomic.AddInt64(&c.tilesComposed, 1)
	c.Progress(old, float64(n)/float64(c.tileCount))
}

// createTileRaster is the recursive step. At the deepest level it
// draws intersecting catalog sources onto a fresh canvas; otherwise it
// builds (up to) four children and draws them onto a fresh parent canvas,
// scheduling each child for writing along the way.
func (c *Compositor) createTileRaster(level levelset.Level, tile levelset.Tile) (raster.Raster, error) {
	if c.isStopped() {
		return nil, nil
	}

	if level.Index == c.Levels.Final().Index {
		return c.createLeafRaster(level, tile)
	}
	return c.createInteriorRaster(level, tile)
}

func (c *Compositor) createLeafRaster(level levelset.Level, tile levelset.Tile) (raster.Raster, error) {
	sources := c.Catalog.Intersecting(tile.Sector())
	if len(sources) == 0 || level.Empty {
		return nil, nil
	}

	canvas, err := c.newCanvas(tile, level)
	if err != nil {
		return nil, fmt.Errorf("compositor: %s: %w: %v", tile, pipelineerr.ResourceExhausted, err)
	}

	for _, entry := range sources {
		if err := entry.Proxy.DrawOnTo(canvas); err != nil {
			// A single source's I/O or decode failure skips that
			// contribution and is logged at severe; it does not abort
			// the tile.
			log.Printf("compositor: SEVERE: %s: source %s failed to draw: %v", tile, entry.Ref, err)
			continue
		}
	}

	if img, ok := canvas.(*raster.ImageRaster); ok && len(c.Canvas.BandsOrder) > 0 {
		if err := img.PermuteBands(c.Canvas.BandsOrder); err != nil {
			return nil, err
		}
	}
	return canvas, nil
}

// childRaster pairs a composed child raster with its tile, so the drawing
// pass below can log a failing child's coordinates.
type childRaster struct {
	tile levelset.Tile
	r    raster.Raster
}

func (c *Compositor) createInteriorRaster(level levelset.Level, tile levelset.Tile) (raster.Raster, error) {
	nextLevel := c.Levels.Levels[level.Index+1]
	children := tile.Children(c.Levels)

	var childRasters []childRaster
	for _, child := range children {
		if c.isStopped() {
			break
		}
		if !child.Sector().Intersects(c.Levels.Coverage) {
			continue
		}
		r, err := c.createTileRaster(nextLevel, child)
		if err != nil {
			return nil, err
		}
		if r != nil {
			if !nextLevel.Empty {
				c.Sink.InstallTileRasterLater(child, r)
			}
			childRasters = append(childRasters, childRaster{tile: child, r: r})
		}
		c.advance()
	}

	if len(childRasters) == 0 || level.Empty {
		return nil, nil
	}

	canvas, err := c.newCanvas(tile, level)
	if err != nil {
		return nil, fmt.Errorf("compositor: %s: %w: %v", tile, pipelineerr.ResourceExhausted, err)
	}
	for _, cr := range childRasters {
		if err := cr.r.DrawOnTo(canvas); err != nil {
			log.Printf("compositor: SEVERE: %s: child %s failed to draw: %v", tile, cr.tile, err)
		}
	}
	return canvas, nil
}

// newCanvas allocates a fresh tile canvas per c.Canvas. Scalar canvases are
// pre-filled with the missing-data replacement so pixels no source reaches
// carry the dataset's "no data" signal rather than a spurious zero.
func (c *Compositor) newCanvas(tile levelset.Tile, level levelset.Level) (raster.Raster, error) {
	if c.Canvas.Kind == raster.KindImage {
		return raster.NewImageRaster(tile.Sector(), level.TileWidth, level.TileHeight)
	}
	sr, err := raster.NewScalarRaster(tile.Sector(), level.TileWidth, level.TileHeight, c.Canvas.DataType, c.Canvas.ByteOrder)
	if err != nil {
		return nil, err
	}
	if c.Canvas.HasMissingData {
		samples := sr.Samples()
		for i := range samples {
			samples[i] = c.Canvas.MissingDataReplacement
		}
		sr.SetTransparentValue(c.Canvas.MissingDataReplacement)
	}
	return sr, nil
}
