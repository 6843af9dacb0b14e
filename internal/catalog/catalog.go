// Package catalog holds the append-only-during-offer, read-only-during-
// production collection of source entries the compositor and the mosaic
// server both draw from.
package catalog

import (
	"fmt"

	"github.com/geoframe/tilepyramid/internal/geo"
	"github.com/geoframe/tilepyramid/internal/pipelineerr"
	"github.com/geoframe/tilepyramid/internal/raster"
	"github.com/geoframe/tilepyramid/internal/rastercache"
	"github.com/geoframe/tilepyramid/internal/source"
)

// Entry is one catalogued source: its reference, its decoded-on-demand
// raster (via the cached proxy), and the metadata readMetadata populated.
type Entry struct {
	Ref    source.Ref
	Proxy  *rastercache.Proxy
	Meta   *raster.MetadataBag
}

func (e Entry) Sector() geo.Sector { return e.Proxy.Sector() }
func (e Entry) Kind() raster.Kind  { return e.Proxy.Kind() }

// Catalog is the append-only (during offer) collection of Entries sharing
// one Cache. A catalog is homogeneous: every entry is the same raster.Kind,
// enforced at Add time.
type Catalog struct {
	entries []Entry
	kind    raster.Kind
	hasKind bool
}

// New returns an empty Catalog.
func New() *Catalog {
	return &Catalog{}
}

// Add validates ref against registry (finding and running ReadMetadata on
// a Reader), wraps it in a cached proxy, and appends it. params, if
// non-nil, seeds the entry's metadata before the reader runs — this is how
// an offer supplies the sector for formats that carry no georeferencing of
// their own. It returns a human-readable rejection reason instead of an
// error so a caller offering many sources can report per-source failures
// without aborting the whole offer.
func Add(cat *Catalog, ref source.Ref, params *raster.MetadataBag, registry *source.ReaderRegistry, cache *rastercache.Cache) (rejectReason string) {
	meta := raster.NewMetadataBag()
	if params != nil {
		params.CopyInto(meta)
	}
	reader, ok := registry.Select(ref, meta)
	if !ok {
		return fmt.Sprintf("%s: %v: no reader accepts this source", ref, pipelineerr.UnreadableSource)
	}
	if err := reader.ReadMetadata(ref, meta); err != nil {
		return fmt.Sprintf("%s: %v", ref, err)
	}
	proxy, err := rastercache.NewProxy(ref, reader, meta, cache)
	if err != nil {
		return fmt.Sprintf("%s: %v", ref, err)
	}
	kind := proxy.Kind()
	if cat.hasKind && cat.kind != kind {
		return fmt.Sprintf("%s: %v: catalog is %s, source is %s", ref, pipelineerr.InvalidArgument, cat.kind, kind)
	}
	cat.kind = kind
	cat.hasKind = true
	cat.entries = append(cat.entries, Entry{Ref: ref, Proxy: proxy, Meta: meta})
	return ""
}

// Entries returns every catalogued entry.
func (c *Catalog) Entries() []Entry { return c.entries }

// Kind returns the catalog's homogeneous raster kind, and false if the
// catalog is empty.
func (c *Catalog) Kind() (raster.Kind, bool) { return c.kind, c.hasKind }

// Len returns the number of catalogued entries.
func (c *Catalog) Len() int { return len(c.entries) }

// Coverage returns the union of every entry's sector.
func (c *Catalog) Coverage() geo.Sector {
	cov := geo.Empty
	for _, e := range c.entries {
		cov = geo.Union(cov, e.Sector())
	}
	return cov
}

// Intersecting returns every entry whose sector has non-zero-area
// intersection with sector, the selection rule both the compositor
// and the mosaic server use.
func (c *Catalog) Intersecting(sector geo.Sector) []Entry {
	var out []Entry
	for _, e := range c.entries {
		if e.Sector().Intersects(sector) {
			out = append(out, e)
		}
	}
	return out
}

// SmallestSourcePixelSize returns the finest per-pixel degree span (lat,
// lon) among every catalogued entry, used to derive the deepest pyramid
// level.
func (c *Catalog) SmallestSourcePixelSize() (lat, lon geo.Angle) {
	var minLat, minLon float64 = -1, -1
	for _, e := range c.entries {
		sec := e.Sector()
		w, h := e.Proxy.Width(), e.Proxy.Height()
		if w <= 0 || h <= 0 {
			continue
		}
		perPixelLat := sec.DeltaLat().Degrees() / float64(h)
		perPixelLon := sec.DeltaLon().Degrees() / float64(w)
		if minLat < 0 || perPixelLat < minLat {
			minLat = perPixelLat
		}
		if minLon < 0 || perPixelLon < minLon {
			minLon = perPixelLon
		}
	}
	if minLat < 0 {
		minLat = 0
	}
	if minLon < 0 {
		minLon = 0
	}
	return geo.Angle(minLat), geo.Angle(minLon)
}

// ElevationBounds scans every scalar catalog entry's decoded samples for
// the dataset's overall elevation min/max, for the dataset descriptor's
// ElevationMin/ElevationMax fields. ok is false if the catalog is
// empty, non-scalar, or every sample is the transparent/missing-data
// value.
func (c *Catalog) ElevationBounds() (min, max float64, ok bool) {
	if c.kind != raster.KindScalar {
		return 0, 0, false
	}
	first := true
	for _, e := range c.entries {
		sr, isScalar := rasterAsScalar(e)
		if !isScalar {
			continue
		}
		transparent, hasTransparent := sr.TransparentValue()
		for _, v := range sr.Samples() {
			if hasTransparent && v == transparent {
				continue
			}
			if first {
				min, max = v, v
				first = false
				continue
			}
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
	}
	return min, max, !first
}

// rasterAsScalar materializes e's underlying raster and type-asserts it to
// *raster.ScalarRaster, skipping entries whose proxy fails to decode (the
// descriptor's elevation bounds are best-effort, not a hard requirement).
func rasterAsScalar(e Entry) (*raster.ScalarRaster, bool) {
	r, err := e.Proxy.Materialize()
	if err != nil {
		return nil, false
	}
	sr, ok := r.(*raster.ScalarRaster)
	return sr, ok
}

// LargestSourcePixelCount returns the largest width/height seen among
// catalogued entries, used against largeDatasetThreshold.
func (c *Catalog) LargestSourcePixelCount() int {
	max := 0
	for _, e := range c.entries {
		if w := e.Proxy.Width(); w > max {
			max = w
		}
		if h := e.Proxy.Height(); h > max {
			max = h
		}
	}
	return max
}
