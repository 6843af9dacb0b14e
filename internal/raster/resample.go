package raster

import (
	"image/color"
	"math"

	"github.com/geoframe/tilepyramid/internal/geo"
)

// affine holds the destination-pixel-to-source-pixel transform along one
// axis: srcIndex = dstIndex * scale + translate.
type affine struct {
	sx, tx float64
	sy, ty float64
}

// interpIndex is one entry of a per-axis interpolation table: the sample
// sits between floor and ceil, at fractional distance frac in [0, 1).
type interpIndex struct {
	floor, ceil int
	frac        float64
}

// buildAxisTable precomputes, for each destination index in [0, dstLen), the
// straddling source indices and fractional weight, clamped to the source's
// valid range.
func buildAxisTable(dstLen int, scale, translate float64, srcLen int) []interpIndex {
	table := make([]interpIndex, dstLen)
	for i := 0; i < dstLen; i++ {
		srcPos := float64(i)*scale + translate
		f := math.Floor(srcPos)
		frac := srcPos - f
		floor := clampInt(int(f), 0, srcLen-1)
		ceil := clampInt(floor+1, 0, srcLen-1)
		table[i] = interpIndex{floor: floor, ceil: ceil, frac: frac}
	}
	return table
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// imageTransform computes the finite-area affine: a pixel covers an
// area whose edges align with the sector's edges, so scale is W/srcW
// inverted, with no -1 adjustment.
func imageTransform(srcW, srcH int, srcSector, dstSector geo.Sector, dstW, dstH int) affine {
	srcDeltaLon := srcSector.DeltaLon().Degrees()
	srcDeltaLat := srcSector.DeltaLat().Degrees()
	dstDeltaLon := dstSector.DeltaLon().Degrees()
	dstDeltaLat := dstSector.DeltaLat().Degrees()

	scaleX := (float64(srcW) / float64(dstW)) * (dstDeltaLon / srcDeltaLon)
	transX := float64(srcW) * (dstSector.MinLon().Degrees() - srcSector.MinLon().Degrees()) / srcDeltaLon

	// Row 0 is the top (max-latitude) row, so row->lat is the mirror of
	// column->lon.
	scaleY := (float64(srcH) / float64(dstH)) * (dstDeltaLat / srcDeltaLat)
	transY := float64(srcH) * (srcSector.MaxLat().Degrees() - dstSector.MaxLat().Degrees()) / srcDeltaLat

	return affine{sx: scaleX, tx: transX, sy: scaleY, ty: transY}
}

// scalarTransform computes the point-pixel affine: samples sit at
// cell centers, so scale uses (len-1) on both sides.
func scalarTransform(srcW, srcH int, srcSector, dstSector geo.Sector, dstW, dstH int) affine {
	srcDeltaLon := srcSector.DeltaLon().Degrees()
	srcDeltaLat := srcSector.DeltaLat().Degrees()
	dstDeltaLon := dstSector.DeltaLon().Degrees()
	dstDeltaLat := dstSector.DeltaLat().Degrees()

	var scaleX, transX, scaleY, transY float64
	if dstW > 1 {
		scaleX = (float64(srcW-1) / float64(dstW-1)) * (dstDeltaLon / srcDeltaLon)
		transX = float64(srcW-1) * (dstSector.MinLon().Degrees() - srcSector.MinLon().Degrees()) / srcDeltaLon
	}
	if dstH > 1 {
		scaleY = (float64(srcH-1) / float64(dstH-1)) * (dstDeltaLat / srcDeltaLat)
		transY = float64(srcH-1) * (srcSector.MaxLat().Degrees() - dstSector.MaxLat().Degrees()) / srcDeltaLat
	}
	return affine{sx: scaleX, tx: transX, sy: scaleY, ty: transY}
}

// clipRange returns [min, max) of the destination row or column indices
// whose cell falls inside inter, the intersection of the src and dst
// sectors, relative to dst's own sector and dimensions.
func clipRange(dstSector, inter geo.Sector, dstW, dstH int, columns bool) (int, int) {
	if columns {
		deltaLon := dstSector.DeltaLon().Degrees()
		lo := int(math.Floor(float64(dstW) * (inter.MinLon().Degrees() - dstSector.MinLon().Degrees()) / deltaLon))
		hi := int(math.Ceil(float64(dstW) * (inter.MaxLon().Degrees() - dstSector.MinLon().Degrees()) / deltaLon))
		return clampInt(lo, 0, dstW), clampInt(hi, 0, dstW)
	}
	deltaLat := dstSector.DeltaLat().Degrees()
	lo := int(math.Floor(float64(dstH) * (dstSector.MaxLat().Degrees() - inter.MaxLat().Degrees()) / deltaLat))
	hi := int(math.Ceil(float64(dstH) * (dstSector.MaxLat().Degrees() - inter.MinLat().Degrees()) / deltaLat))
	return clampInt(lo, 0, dstH), clampInt(hi, 0, dstH)
}

// DrawOnTo resamples src into dst using bilinear interpolation, clipping to
// the intersection of their sectors. src and dst must share a Kind.
func DrawOnTo(src, dst Raster) error {
	return src.DrawOnTo(dst)
}

// GetSubRaster produces a new raster of the requested dimensions and sector,
// equivalent to allocating a blank canvas and calling DrawOnTo.
func GetSubRaster(src Raster, sector geo.Sector, width, height int) (Raster, error) {
	return src.GetSubRaster(sector, width, height)
}

// DrawOnTo resamples r into dst. dst must be a *ImageRaster.
func (r *ImageRaster) DrawOnTo(dst Raster) error {
	if dst.Kind() != KindImage {
		return ErrKindMismatch
	}
	d, ok := dst.(*ImageRaster)
	if !ok {
		return ErrKindMismatch
	}
	return drawImageOnTo(r, d)
}

// GetSubRaster allocates a new ImageRaster and draws r onto it.
func (r *ImageRaster) GetSubRaster(sector geo.Sector, width, height int) (Raster, error) {
	dst, err := NewImageRaster(sector, width, height)
	if err != nil {
		return nil, err
	}
	if err := drawImageOnTo(r, dst); err != nil {
		return nil, err
	}
	return dst, nil
}

// DrawOnTo resamples r into dst. dst must be a *ScalarRaster.
func (r *ScalarRaster) DrawOnTo(dst Raster) error {
	if dst.Kind() != KindScalar {
		return ErrKindMismatch
	}
	d, ok := dst.(*ScalarRaster)
	if !ok {
		return ErrKindMismatch
	}
	return drawScalarOnTo(r, d)
}

// GetSubRaster allocates a new ScalarRaster and draws r onto it.
func (r *ScalarRaster) GetSubRaster(sector geo.Sector, width, height int) (Raster, error) {
	dst, err := NewScalarRaster(sector, width, height, r.dataType, r.byteOrder)
	if err != nil {
		return nil, err
	}
	if v, ok := r.TransparentValue(); ok {
		dst.SetTransparentValue(v)
	}
	if err := drawScalarOnTo(r, dst); err != nil {
		return nil, err
	}
	return dst, nil
}

func drawImageOnTo(src, dst *ImageRaster) error {
	inter, ok := src.sector.Intersection(dst.sector)
	if !ok || inter.IsEmpty() {
		return nil // disjoint sectors: silent no-op
	}

	srcRaster, srcW, srcH, srcSec := selectImageLevel(src, dst.sector, dst.Width(), dst.Height())

	a := imageTransform(srcW, srcH, srcSec, dst.sector, dst.Width(), dst.Height())
	colTable := buildAxisTable(dst.Width(), a.sx, a.tx, srcW)
	rowTable := buildAxisTable(dst.Height(), a.sy, a.ty, srcH)

	minCol, maxCol := clipRange(dst.sector, inter, dst.Width(), dst.Height(), true)
	minRow, maxRow := clipRange(dst.sector, inter, dst.Width(), dst.Height(), false)

	for row := minRow; row < maxRow; row++ {
		ri := rowTable[row]
		for col := minCol; col < maxCol; col++ {
			ci := colTable[col]
			c := bilinearColor(srcRaster, ci, ri)
			if c.A == 0 {
				continue
			}
			sourceOverBlend(dst, col, row, c)
		}
	}
	return nil
}

func bilinearColor(src *ImageRaster, ci, ri interpIndex) color.RGBA {
	c00 := src.at(ci.floor, ri.floor)
	c10 := src.at(ci.ceil, ri.floor)
	c01 := src.at(ci.floor, ri.ceil)
	c11 := src.at(ci.ceil, ri.ceil)

	mix := func(a, b uint8, t float64) float64 { return float64(a)*(1-t) + float64(b)*t }
	blend := func(a00, a10, a01, a11 uint8) uint8 {
		top := mix(a00, a10, ci.frac)
		bot := mix(a01, a11, ci.frac)
		return uint8(math.Round(top*(1-ri.frac) + bot*ri.frac))
	}
	return color.RGBA{
		R: blend(c00.R, c10.R, c01.R, c11.R),
		G: blend(c00.G, c10.G, c01.G, c11.G),
		B: blend(c00.B, c10.B, c01.B, c11.B),
		A: blend(c00.A, c10.A, c01.A, c11.A),
	}
}

// sourceOverBlend composites src "over" the existing destination pixel,
// both already in pre-multiplied form.
func sourceOverBlend(dst *ImageRaster, x, y int, src color.RGBA) {
	if src.A == 255 {
		dst.set(x, y, src)
		return
	}
	bg := dst.at(x, y)
	inv := 255 - uint32(src.A)
	blend := func(s, b uint8) uint8 {
		return uint8((uint32(s)*255 + uint32(b)*inv) / 255)
	}
	dst.set(x, y, color.RGBA{
		R: blend(src.R, bg.R),
		G: blend(src.G, bg.G),
		B: blend(src.B, bg.B),
		A: uint8((uint32(src.A)*255 + uint32(bg.A)*inv) / 255),
	})
}

func drawScalarOnTo(src, dst *ScalarRaster) error {
	inter, ok := src.sector.Intersection(dst.sector)
	if !ok || inter.IsEmpty() {
		return nil
	}
	a := scalarTransform(src.width, src.height, src.sector, dst.sector, dst.width, dst.height)
	colTable := buildAxisTable(dst.width, a.sx, a.tx, src.width)
	rowTable := buildAxisTable(dst.height, a.sy, a.ty, src.height)

	minCol, maxCol := clipRange(dst.sector, inter, dst.width, dst.height, true)
	minRow, maxRow := clipRange(dst.sector, inter, dst.width, dst.height, false)

	for row := minRow; row < maxRow; row++ {
		ri := rowTable[row]
		for col := minCol; col < maxCol; col++ {
			ci := colTable[col]
			v00 := src.at(ci.floor, ri.floor)
			v10 := src.at(ci.ceil, ri.floor)
			v01 := src.at(ci.floor, ri.ceil)
			v11 := src.at(ci.ceil, ri.ceil)
			if src.isTransparent(v00) || src.isTransparent(v10) || src.isTransparent(v01) || src.isTransparent(v11) {
				continue // missing data must not erode into valid data
			}
			top := v00*(1-ci.frac) + v10*ci.frac
			bot := v01*(1-ci.frac) + v11*ci.frac
			dst.set(col, row, top*(1-ri.frac)+bot*ri.frac)
		}
	}
	return nil
}
