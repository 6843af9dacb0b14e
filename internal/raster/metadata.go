package raster

import (
	"github.com/geoframe/tilepyramid/internal/geo"
)

// Well-known MetadataBag keys shared by readers, writers, and the
// producer's configuration surface.
const (
	KeyWidth           = "WIDTH"
	KeyHeight          = "HEIGHT"
	KeySector          = "SECTOR"
	KeyPixelFormat     = "PIXEL_FORMAT"
	KeyDataType        = "DATA_TYPE"
	KeyByteOrder       = "BYTE_ORDER"
	KeyTransparentVal  = "MISSING_DATA_SIGNAL"
	KeyBandsOrder      = "BANDS_ORDER"
	KeyDisplayName     = "DISPLAY_NAME"
	KeyDatasetName     = "DATASET_NAME"
)

// ByteOrder enumerates the two supported sample byte orders.
type ByteOrder int

const (
	BigEndian ByteOrder = iota
	LittleEndian
)

// DataType enumerates the supported scalar sample encodings.
type DataType int

const (
	Int8 DataType = iota
	Int16
	Int32
	Float32
)

// Size returns the size in bytes of one sample of this type.
func (t DataType) Size() int {
	switch t {
	case Int8:
		return 1
	case Int16:
		return 2
	case Int32, Float32:
		return 4
	default:
		return 0
	}
}

// MetadataBag is an insertion-order-irrelevant mapping from a fixed string
// key to a tagged value. Readers and writers communicate through
// MetadataBags rather than strongly typed records. Once WIDTH or
// HEIGHT is set, further writes to that key are silently ignored; every
// other key is last-writer-wins.
type MetadataBag struct {
	values map[string]any
	fixed  map[string]bool
}

// NewMetadataBag returns an empty bag.
func NewMetadataBag() *MetadataBag {
	return &MetadataBag{values: make(map[string]any), fixed: make(map[string]bool)}
}

// Set stores a value under key. WIDTH and HEIGHT become immutable after
// their first successful write; all other keys are last-writer-wins.
func (b *MetadataBag) Set(key string, value any) {
	if b.fixed[key] {
		return
	}
	b.values[key] = value
	if key == KeyWidth || key == KeyHeight {
		b.fixed[key] = true
	}
}

// CopyInto writes every key in b into dst, subject to dst's own write-once
// rules for WIDTH and HEIGHT.
func (b *MetadataBag) CopyInto(dst *MetadataBag) {
	for k, v := range b.values {
		dst.Set(k, v)
	}
}

// Get returns the raw value stored under key, and whether it was present.
func (b *MetadataBag) Get(key string) (any, bool) {
	v, ok := b.values[key]
	return v, ok
}

// Int returns the value under key as an int, or 0, false if absent or of
// the wrong type.
func (b *MetadataBag) Int(key string) (int, bool) {
	v, ok := b.values[key]
	if !ok {
		return 0, false
	}
	i, ok := v.(int)
	return i, ok
}

// Float returns the value under key as a float64.
func (b *MetadataBag) Float(key string) (float64, bool) {
	v, ok := b.values[key]
	if !ok {
		return 0, false
	}
	f, ok := v.(float64)
	return f, ok
}

// String returns the value under key as a string.
func (b *MetadataBag) String(key string) (string, bool) {
	v, ok := b.values[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Sector returns the value under key as a geo.Sector.
func (b *MetadataBag) Sector(key string) (geo.Sector, bool) {
	v, ok := b.values[key]
	if !ok {
		return geo.Empty, false
	}
	s, ok := v.(geo.Sector)
	return s, ok
}

// DataType returns the value under key as a DataType.
func (b *MetadataBag) DataType(key string) (DataType, bool) {
	v, ok := b.values[key]
	if !ok {
		return 0, false
	}
	d, ok := v.(DataType)
	return d, ok
}

// ByteOrder returns the value under key as a ByteOrder.
func (b *MetadataBag) ByteOrder(key string) (ByteOrder, bool) {
	v, ok := b.values[key]
	if !ok {
		return 0, false
	}
	o, ok := v.(ByteOrder)
	return o, ok
}
