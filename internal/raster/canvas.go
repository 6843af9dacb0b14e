package raster

import "github.com/geoframe/tilepyramid/internal/geo"

// NewBlankCanvas allocates an empty destination raster of the same Kind as
// template, covering sector at the given dimensions. It is the "create an
// empty canvas" half of GetSubRaster's "equivalent to" definition.
func NewBlankCanvas(template Raster, sector geo.Sector, width, height int) (Raster, error) {
	if template.Kind() == KindImage {
		return NewImageRaster(sector, width, height)
	}
	dataType, order := Float32, BigEndian
	var transparent float64
	hasTransparent := false
	if t, ok := template.(*ScalarRaster); ok {
		dataType, order = t.dataType, t.byteOrder
		transparent, hasTransparent = t.TransparentValue()
	}
	dst, err := NewScalarRaster(sector, width, height, dataType, order)
	if err != nil {
		return nil, err
	}
	if hasTransparent {
		dst.SetTransparentValue(transparent)
	}
	return dst, nil
}
