// Package scalarraw implements a small self-describing binary container for
// ScalarRaster data: a fixed header (dimensions, sector, data type, byte
// order, optional transparent value) followed by raw row-major samples.
// Concrete formats with embedded georeferencing (GeoTIFF, DTED, BIL) are
// out-of-scope external collaborators; this format exists so
// the module owns one scalar format end-to-end, for elevation fixtures and
// tests.
package scalarraw

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/geoframe/tilepyramid/internal/geo"
	"github.com/geoframe/tilepyramid/internal/raster"
)

const magic = "SCLR"

// Header mirrors the fields a ScalarRaster needs to be reconstructed
// without re-deriving them from the caller's MetadataBag.
type Header struct {
	Width, Height                  int
	MinLat, MaxLat, MinLon, MaxLon float64
	DataType                       raster.DataType
	ByteOrder                      raster.ByteOrder
	HasMissing                     bool
	Missing                        float64
}

// Write serializes hdr followed by samples (row-major, len ==
// hdr.Width*hdr.Height) to w.
func Write(w io.Writer, hdr Header, samples []float64) error {
	if len(samples) != hdr.Width*hdr.Height {
		return fmt.Errorf("scalarraw: sample count %d does not match %dx%d", len(samples), hdr.Width, hdr.Height)
	}
	if _, err := io.WriteString(w, magic); err != nil {
		return err
	}
	fields := []float64{
		float64(hdr.Width), float64(hdr.Height),
		hdr.MinLat, hdr.MaxLat, hdr.MinLon, hdr.MaxLon,
		float64(hdr.DataType), float64(hdr.ByteOrder),
		boolToFloat(hdr.HasMissing), hdr.Missing,
	}
	buf := make([]byte, 8)
	for _, f := range fields {
		binary.BigEndian.PutUint64(buf, math.Float64bits(f))
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	for _, s := range samples {
		binary.BigEndian.PutUint64(buf, math.Float64bits(s))
		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	return nil
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Read parses a scalarraw stream back into a header and its samples.
func Read(r io.Reader) (Header, []float64, error) {
	magicBuf := make([]byte, 4)
	if _, err := io.ReadFull(r, magicBuf); err != nil {
		return Header{}, nil, fmt.Errorf("scalarraw: reading magic: %w", err)
	}
	if string(magicBuf) != magic {
		return Header{}, nil, fmt.Errorf("scalarraw: bad magic %q", magicBuf)
	}
	fields := make([]float64, 10)
	buf := make([]byte, 8)
	for i := range fields {
		if _, err := io.ReadFull(r, buf); err != nil {
			return Header{}, nil, fmt.Errorf("scalarraw: reading header field %d: %w", i, err)
		}
		fields[i] = math.Float64frombits(binary.BigEndian.Uint64(buf))
	}
	hdr := Header{
		Width: int(fields[0]), Height: int(fields[1]),
		MinLat: fields[2], MaxLat: fields[3], MinLon: fields[4], MaxLon: fields[5],
		DataType: raster.DataType(int(fields[6])), ByteOrder: raster.ByteOrder(int(fields[7])),
		HasMissing: fields[8] != 0, Missing: fields[9],
	}
	if hdr.Width < 1 || hdr.Height < 1 {
		return Header{}, nil, fmt.Errorf("scalarraw: invalid dimensions %dx%d", hdr.Width, hdr.Height)
	}
	samples := make([]float64, hdr.Width*hdr.Height)
	for i := range samples {
		if _, err := io.ReadFull(r, buf); err != nil {
			return Header{}, nil, fmt.Errorf("scalarraw: reading sample %d: %w", i, err)
		}
		samples[i] = math.Float64frombits(binary.BigEndian.Uint64(buf))
	}
	return hdr, samples, nil
}

// Sector reconstructs the header's geographic sector.
func (h Header) Sector() (geo.Sector, error) {
	return geo.NewSector(h.MinLat, h.MaxLat, h.MinLon, h.MaxLon)
}
