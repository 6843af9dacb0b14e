package raster

import (
	"math"
	"sync"

	"github.com/geoframe/tilepyramid/internal/geo"
)

// Mipmap wraps an ImageRaster with a precomputed chain of downsampled
// copies, each half the resolution of the one before. Construction of the
// chain is an external collaborator's concern; this package
// only consumes one to bound per-tile resampling cost.
type Mipmap struct {
	levels []*ImageRaster // levels[0] is full resolution
}

// NewMipmap wraps full as level 0 of a chain, with levels[1:] its
// successively half-resolution downsamples, coarsest last.
func NewMipmap(full *ImageRaster, downsamples ...*ImageRaster) *Mipmap {
	levels := make([]*ImageRaster, 0, len(downsamples)+1)
	levels = append(levels, full)
	levels = append(levels, downsamples...)
	return &Mipmap{levels: levels}
}

func (m *Mipmap) level(i int) *ImageRaster {
	if i < 0 {
		i = 0
	}
	if i >= len(m.levels) {
		i = len(m.levels) - 1
	}
	return m.levels[i]
}

func (m *Mipmap) maxLevel() int { return len(m.levels) - 1 }

// mipmapRegistry associates an ImageRaster with its Mipmap chain, if any. Readers
// that decode a mipmap chain register it here; ordinary rasters are simply
// absent from the map.
var mipmapRegistry = struct {
	mu     sync.RWMutex
	chains map[*ImageRaster]*Mipmap
}{chains: make(map[*ImageRaster]*Mipmap)}

// AttachMipmap associates chain with base, so the resampler picks a coarser
// level automatically when drawing base onto a much smaller destination.
func AttachMipmap(base *ImageRaster, chain *Mipmap) {
	mipmapRegistry.mu.Lock()
	defer mipmapRegistry.mu.Unlock()
	mipmapRegistry.chains[base] = chain
}

func mipmapOf(r *ImageRaster) (*Mipmap, bool) {
	mipmapRegistry.mu.RLock()
	defer mipmapRegistry.mu.RUnlock()
	m, ok := mipmapRegistry.chains[r]
	return m, ok
}

// DisposeMipmap forgets base's mipmap chain. The cache calls this
// when it evicts or releases the last reference to base, so the registry
// does not retain rasters past their cache lifetime.
func DisposeMipmap(base *ImageRaster) {
	mipmapRegistry.mu.Lock()
	defer mipmapRegistry.mu.Unlock()
	delete(mipmapRegistry.chains, base)
}

// selectImageLevel picks the coarsest mipmap level, if any, whose scale
// factor relative to dst is still >= 1. It returns the
// raster to sample from along with its own width, height and sector.
func selectImageLevel(src *ImageRaster, dstSector geo.Sector, dstW, dstH int) (*ImageRaster, int, int, geo.Sector) {
	mm, ok := mipmapOf(src)
	if !ok || mm.maxLevel() == 0 {
		return src, src.Width(), src.Height(), src.sector
	}

	srcDeltaLon := src.sector.DeltaLon().Degrees()
	srcDeltaLat := src.sector.DeltaLat().Degrees()
	dstDeltaLon := dstSector.DeltaLon().Degrees()
	dstDeltaLat := dstSector.DeltaLat().Degrees()

	scaleX := float64(src.Width()) * dstDeltaLon / (float64(dstW) * srcDeltaLon)
	scaleY := float64(src.Height()) * dstDeltaLat / (float64(dstH) * srcDeltaLat)
	scale := math.Max(scaleX, scaleY)
	if scale < 1 {
		return src, src.Width(), src.Height(), src.sector
	}

	level := int(math.Floor(math.Log2(scale)))
	if level < 0 {
		level = 0
	}
	if level > mm.maxLevel() {
		level = mm.maxLevel()
	}
	chosen := mm.level(level)
	return chosen, chosen.Width(), chosen.Height(), chosen.sector
}
