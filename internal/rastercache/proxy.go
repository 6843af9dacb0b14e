package rastercache

import (
	"fmt"

	"github.com/geoframe/tilepyramid/internal/geo"
	"github.com/geoframe/tilepyramid/internal/pipelineerr"
	"github.com/geoframe/tilepyramid/internal/raster"
	"github.com/geoframe/tilepyramid/internal/source"
)

// Proxy wraps a (sourceRef, reader, metadata) tuple and implements
// raster.Raster by materializing the underlying raster lazily, on first
// DrawOnTo or GetSubRaster, through a shared Cache. The Cache
// itself provides the at-most-one-decode-per-source locking, so Proxy
// needs no synchronization of its own.
type Proxy struct {
	ref    source.Ref
	reader source.Reader
	meta   *raster.MetadataBag
	cache  *Cache
}

// NewProxy constructs a Proxy. meta must already carry WIDTH, HEIGHT, and
// SECTOR (typically populated by reader.ReadMetadata beforehand); these
// are required so the proxy can answer Sector/Width/Height without
// decoding.
func NewProxy(ref source.Ref, reader source.Reader, meta *raster.MetadataBag, cache *Cache) (*Proxy, error) {
	sector, ok := meta.Sector(raster.KeySector)
	if !ok || sector.IsEmpty() {
		return nil, fmt.Errorf("rastercache: %s: %w: missing sector metadata", ref, pipelineerr.InvalidArgument)
	}
	if _, ok := meta.Int(raster.KeyWidth); !ok {
		return nil, fmt.Errorf("rastercache: %s: %w: missing width metadata", ref, pipelineerr.InvalidArgument)
	}
	if _, ok := meta.Int(raster.KeyHeight); !ok {
		return nil, fmt.Errorf("rastercache: %s: %w: missing height metadata", ref, pipelineerr.InvalidArgument)
	}
	return &Proxy{ref: ref, reader: reader, meta: meta, cache: cache}, nil
}

func (p *Proxy) Kind() raster.Kind {
	if p.reader.IsElevationsRaster() {
		return raster.KindScalar
	}
	return raster.KindImage
}

func (p *Proxy) Sector() geo.Sector {
	sec, _ := p.meta.Sector(raster.KeySector)
	return sec
}

func (p *Proxy) Width() int {
	w, _ := p.meta.Int(raster.KeyWidth)
	return w
}

func (p *Proxy) Height() int {
	h, _ := p.meta.Int(raster.KeyHeight)
	return h
}

func (p *Proxy) Metadata() *raster.MetadataBag { return p.meta }

// underlying materializes (decoding through the cache on first use) and
// returns the concrete raster this proxy stands in for.
func (p *Proxy) underlying() (raster.Raster, error) {
	rasters, err := p.cache.GetOrLoad(p.ref.Path, func() ([]raster.Raster, int64, error) {
		rs, loadErr := p.reader.Read(p.ref, p.meta)
		if loadErr != nil {
			return nil, 0, loadErr
		}
		return rs, estimateCost(rs), nil
	})
	if err != nil {
		return nil, err
	}
	if len(rasters) == 0 {
		return nil, fmt.Errorf("rastercache: %s: %w: reader produced no rasters", p.ref, pipelineerr.DecodeError)
	}
	return rasters[0], nil
}

func estimateCost(rasters []raster.Raster) int64 {
	var total int64
	for _, r := range rasters {
		switch rr := r.(type) {
		case *raster.ImageRaster:
			total += int64(rr.Width()) * int64(rr.Height()) * 4
		case *raster.ScalarRaster:
			total += int64(rr.Width()) * int64(rr.Height()) * int64(rr.DataType().Size())
		}
	}
	return total
}

// Materialize decodes (through the shared cache) and returns the concrete
// underlying raster this proxy stands in for, for callers that need direct
// access rather than a resampled draw (e.g. scanning elevation samples for
// the dataset descriptor's min/max).
func (p *Proxy) Materialize() (raster.Raster, error) {
	return p.underlying()
}

// DrawOnTo materializes the underlying raster and delegates.
func (p *Proxy) DrawOnTo(dst raster.Raster) error {
	u, err := p.underlying()
	if err != nil {
		return err
	}
	return u.DrawOnTo(dst)
}

// GetSubRaster materializes the underlying raster and delegates.
func (p *Proxy) GetSubRaster(sector geo.Sector, width, height int) (raster.Raster, error) {
	u, err := p.underlying()
	if err != nil {
		return nil, err
	}
	return u.GetSubRaster(sector, width, height)
}

var _ raster.Raster = (*Proxy)(nil)
