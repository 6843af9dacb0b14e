// Package mosaic implements the on-demand mosaic server: composing a
// raster covering an arbitrary region of interest from a catalog of
// georeferenced sources, and optionally encoding it to a byte sequence in
// a requested wire format.
package mosaic

import (
	"bytes"
	"fmt"

	"github.com/geoframe/tilepyramid/internal/catalog"
	"github.com/geoframe/tilepyramid/internal/geo"
	"github.com/geoframe/tilepyramid/internal/pipelineerr"
	"github.com/geoframe/tilepyramid/internal/raster"
	"github.com/geoframe/tilepyramid/internal/source"
)

// Composer composes ad-hoc mosaics from a catalog not bound to a pyramid
// run.
type Composer struct {
	Catalog *catalog.Catalog
}

// New returns a Composer over cat.
func New(cat *catalog.Catalog) *Composer {
	return &Composer{Catalog: cat}
}

// Request describes one composeRaster call. DataType and ByteOrder
// apply only to scalar catalogs and default to FLOAT32 big-endian when the
// corresponding Has flag is false. A Request carries no pixel format: the
// raster kind is always the catalog's homogeneous kind.
type Request struct {
	Width, Height int
	Sector        geo.Sector

	DataType    raster.DataType
	HasDataType bool

	ByteOrder    raster.ByteOrder
	HasByteOrder bool
}

func (r Request) dataType() raster.DataType {
	if r.HasDataType {
		return r.DataType
	}
	return raster.Float32
}

func (r Request) byteOrder() raster.ByteOrder {
	if r.HasByteOrder {
		return r.ByteOrder
	}
	return raster.BigEndian
}

// ComposeRaster draws every catalogued source intersecting req.Sector onto
// a fresh destination raster of the catalog's homogeneous kind. It
// rejects requests whose sector does not intersect the catalog's coverage,
// and fails with OutsideCoverage if, despite that, nothing actually
// contributed (e.g. only edge-touching entries).
func (c *Composer) ComposeRaster(req Request) (raster.Raster, error) {
	if req.Width < 1 || req.Height < 1 {
		return nil, fmt.Errorf("mosaic: %w: width and height must be >= 1", pipelineerr.InvalidArgument)
	}
	kind, ok := c.Catalog.Kind()
	if !ok {
		return nil, fmt.Errorf("mosaic: %w: catalog has no sources", pipelineerr.OutsideCoverage)
	}
	if !req.Sector.Intersects(c.Catalog.Coverage()) {
		return nil, fmt.Errorf("mosaic: %s: %w", req.Sector, pipelineerr.OutsideCoverage)
	}

	var dst raster.Raster
	var err error
	if kind == raster.KindImage {
		dst, err = raster.NewImageRaster(req.Sector, req.Width, req.Height)
	} else {
		dst, err = raster.NewScalarRaster(req.Sector, req.Width, req.Height, req.dataType(), req.byteOrder())
	}
	if err != nil {
		return nil, fmt.Errorf("mosaic: allocating destination: %w", err)
	}

	numIntersected := 0
	for _, entry := range c.Catalog.Intersecting(req.Sector) {
		if err := entry.Proxy.DrawOnTo(dst); err != nil {
			continue
		}
		numIntersected++
	}
	if numIntersected == 0 {
		return nil, fmt.Errorf("mosaic: %s: %w", req.Sector, pipelineerr.OutsideCoverage)
	}
	return dst, nil
}

// GetRasterAsByteBuffer composes req then encodes the result to suffix's
// wire format: image/png, image/jpeg, image/webp, or the raw scalar buffer
// for elevation mosaics.
func (c *Composer) GetRasterAsByteBuffer(req Request, suffix string) ([]byte, error) {
	r, err := c.ComposeRaster(req)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := source.EncodeToBuffer(&buf, r, suffix); err != nil {
		return nil, fmt.Errorf("mosaic: encoding: %w", err)
	}
	return buf.Bytes(), nil
}
