// Package raster implements the in-memory typed raster and its bilinear
// resampler: the two raster kinds (image, scalar), blank-canvas allocation,
// and drawOnTo/getSubRaster for compositing one georeferenced raster onto
// another.
package raster

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/geoframe/tilepyramid/internal/geo"
)

// Kind distinguishes the two raster variants. Resampling never crosses
// kinds: an ImageRaster can only be drawn onto another ImageRaster, and
// likewise for ScalarRaster.
type Kind int

const (
	KindImage Kind = iota
	KindScalar
)

func (k Kind) String() string {
	if k == KindImage {
		return "image"
	}
	return "scalar"
}

// ErrKindMismatch is returned by drawOnTo when the source and destination
// rasters are of different Kinds.
var ErrKindMismatch = errors.New("raster: cannot draw across raster kinds")

// Raster is the common surface both raster variants satisfy. DrawOnTo and
// GetSubRaster are interface methods, not free functions, so a decorator in
// another package (the cached raster proxy) can implement Raster by
// materializing lazily and delegating to the real underlying raster.
type Raster interface {
	Kind() Kind
	Sector() geo.Sector
	Width() int
	Height() int
	Metadata() *MetadataBag

	// DrawOnTo resamples the receiver into dst using bilinear
	// interpolation, clipping to the intersection of their sectors. dst
	// must be a concrete canvas (*ImageRaster or *ScalarRaster) of the
	// same Kind as the receiver.
	DrawOnTo(dst Raster) error

	// GetSubRaster produces a new raster of the requested sector and
	// dimensions, equivalent to allocating a blank canvas of the same
	// Kind and calling DrawOnTo.
	GetSubRaster(sector geo.Sector, width, height int) (Raster, error)
}

// ImageRaster is a width x height grid of 8-bit-per-channel, pre-multiplied
// RGBA pixels, the "finite-area pixel" convention: a pixel covers an area,
// not a point.
type ImageRaster struct {
	sector geo.Sector
	pix    *image.RGBA
	meta   *MetadataBag
}

// NewImageRaster allocates a transparent width x height ImageRaster covering
// sector. width and height must be >= 1.
func NewImageRaster(sector geo.Sector, width, height int) (*ImageRaster, error) {
	if width < 1 || height < 1 {
		return nil, errInvalidDims(width, height)
	}
	meta := NewMetadataBag()
	meta.Set(KeyWidth, width)
	meta.Set(KeyHeight, height)
	meta.Set(KeySector, sector)
	return &ImageRaster{
		sector: sector,
		pix:    image.NewRGBA(image.Rect(0, 0, width, height)),
		meta:   meta,
	}, nil
}

// WrapImage wraps an existing *image.RGBA as an ImageRaster without copying.
func WrapImage(sector geo.Sector, pix *image.RGBA) *ImageRaster {
	b := pix.Bounds()
	meta := NewMetadataBag()
	meta.Set(KeyWidth, b.Dx())
	meta.Set(KeyHeight, b.Dy())
	meta.Set(KeySector, sector)
	return &ImageRaster{sector: sector, pix: pix, meta: meta}
}

func (r *ImageRaster) Kind() Kind            { return KindImage }
func (r *ImageRaster) Sector() geo.Sector    { return r.sector }
func (r *ImageRaster) Width() int            { return r.pix.Bounds().Dx() }
func (r *ImageRaster) Height() int           { return r.pix.Bounds().Dy() }
func (r *ImageRaster) Metadata() *MetadataBag { return r.meta }

// RGBA returns the underlying *image.RGBA. Callers that received this
// raster through the cache must treat it as read-only.
func (r *ImageRaster) RGBA() *image.RGBA { return r.pix }

func (r *ImageRaster) at(x, y int) color.RGBA {
	return r.pix.RGBAAt(x, y)
}

func (r *ImageRaster) set(x, y int, c color.RGBA) {
	r.pix.SetRGBA(x, y, c)
}

// ScalarRaster is a width x height grid of typed scalar samples (elevation
// or other single-band data), the "point pixel" convention: a sample sits
// at the center of its cell. An optional transparentValue marks missing
// data that must not blend into valid neighbors.
type ScalarRaster struct {
	sector     geo.Sector
	width      int
	height     int
	dataType   DataType
	byteOrder  ByteOrder
	samples    []float64 // decoded to float64 regardless of on-disk DataType
	hasMissing bool
	missing    float64
	meta       *MetadataBag
}

// NewScalarRaster allocates a zero-filled ScalarRaster, to be populated by
// a Reader or the compositor.
func NewScalarRaster(sector geo.Sector, width, height int, dataType DataType, order ByteOrder) (*ScalarRaster, error) {
	if width < 1 || height < 1 {
		return nil, errInvalidDims(width, height)
	}
	meta := NewMetadataBag()
	meta.Set(KeyWidth, width)
	meta.Set(KeyHeight, height)
	meta.Set(KeySector, sector)
	meta.Set(KeyDataType, dataType)
	meta.Set(KeyByteOrder, order)
	return &ScalarRaster{
		sector:    sector,
		width:     width,
		height:    height,
		dataType:  dataType,
		byteOrder: order,
		samples:   make([]float64, width*height),
		meta:      meta,
	}, nil
}

func (r *ScalarRaster) Kind() Kind             { return KindScalar }
func (r *ScalarRaster) Sector() geo.Sector     { return r.sector }
func (r *ScalarRaster) Width() int             { return r.width }
func (r *ScalarRaster) Height() int            { return r.height }
func (r *ScalarRaster) Metadata() *MetadataBag { return r.meta }
func (r *ScalarRaster) DataType() DataType     { return r.dataType }
func (r *ScalarRaster) ByteOrder() ByteOrder   { return r.byteOrder }

// SetTransparentValue marks value as the "no data" sentinel for this raster.
func (r *ScalarRaster) SetTransparentValue(value float64) {
	r.hasMissing = true
	r.missing = value
	r.meta.Set(KeyTransparentVal, value)
}

// TransparentValue returns the missing-data sentinel and whether one is set.
func (r *ScalarRaster) TransparentValue() (float64, bool) {
	return r.missing, r.hasMissing
}

func (r *ScalarRaster) at(x, y int) float64 {
	return r.samples[y*r.width+x]
}

func (r *ScalarRaster) set(x, y int, v float64) {
	r.samples[y*r.width+x] = v
}

// Samples exposes the raw backing slice, row-major, for use by readers
// populating a freshly allocated raster. Callers outside this package
// should treat a raster obtained from the cache as read-only.
func (r *ScalarRaster) Samples() []float64 { return r.samples }

// isTransparent reports whether v bit-for-bit equals the transparent value.
func (r *ScalarRaster) isTransparent(v float64) bool {
	return r.hasMissing && v == r.missing
}

func errInvalidDims(width, height int) error {
	return &InvalidArgumentError{Msg: fmt.Sprintf("raster: width and height must each be >= 1, got %dx%d", width, height)}
}

// InvalidArgumentError reports a constructor precondition violation.
type InvalidArgumentError struct{ Msg string }

func (e *InvalidArgumentError) Error() string { return e.Msg }
