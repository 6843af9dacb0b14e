package source

import (
	"fmt"
	"os"
	"slices"

	"github.com/geoframe/tilepyramid/internal/pipelineerr"
	"github.com/geoframe/tilepyramid/internal/raster"
	"github.com/geoframe/tilepyramid/internal/rasterio/scalarraw"
)

// scalarRawReader implements Reader for the module's own self-describing
// scalar container. Unlike the image codecs, it
// embeds its own Sector, so ReadMetadata overwrites whatever Sector the
// caller pre-populated — this is the one format that owns its
// georeferencing end-to-end.
type scalarRawReader struct{}

func NewScalarRawReader() Reader { return scalarRawReader{} }

func (scalarRawReader) Suffixes() []string  { return []string{".sraw"} }
func (scalarRawReader) MimeTypes() []string { return []string{"application/x-scalarraw"} }

func (scalarRawReader) CanRead(ref Ref, meta *raster.MetadataBag) bool {
	if ref.Suffix() != ".sraw" {
		return false
	}
	f, err := ref.Open()
	if err != nil {
		return false
	}
	defer f.Close()
	magicBuf := make([]byte, 4)
	n, _ := f.Read(magicBuf)
	return n == 4 && string(magicBuf) == "SCLR"
}

func (scalarRawReader) ReadMetadata(ref Ref, meta *raster.MetadataBag) error {
	f, err := ref.Open()
	if err != nil {
		return fmt.Errorf("source: %s: %w: %v", ref, pipelineerr.UnreadableSource, err)
	}
	defer f.Close()
	hdr, _, err := scalarraw.Read(f)
	if err != nil {
		return fmt.Errorf("source: %s: %w: %v", ref, pipelineerr.UnreadableSource, err)
	}
	sector, err := hdr.Sector()
	if err != nil {
		return fmt.Errorf("source: %s: %w: %v", ref, pipelineerr.UnreadableSource, err)
	}
	meta.Set(raster.KeyWidth, hdr.Width)
	meta.Set(raster.KeyHeight, hdr.Height)
	meta.Set(raster.KeySector, sector)
	meta.Set(raster.KeyDataType, hdr.DataType)
	meta.Set(raster.KeyByteOrder, hdr.ByteOrder)
	return nil
}

func (scalarRawReader) Read(ref Ref, meta *raster.MetadataBag) ([]raster.Raster, error) {
	f, err := ref.Open()
	if err != nil {
		return nil, fmt.Errorf("source: %s: %w: %v", ref, pipelineerr.DecodeError, err)
	}
	defer f.Close()
	hdr, samples, err := scalarraw.Read(f)
	if err != nil {
		return nil, fmt.Errorf("source: %s: %w: %v", ref, pipelineerr.DecodeError, err)
	}
	sector, err := hdr.Sector()
	if err != nil {
		return nil, fmt.Errorf("source: %s: %w: %v", ref, pipelineerr.DecodeError, err)
	}
	out, err := raster.NewScalarRaster(sector, hdr.Width, hdr.Height, hdr.DataType, hdr.ByteOrder)
	if err != nil {
		return nil, fmt.Errorf("source: %s: %w: %v", ref, pipelineerr.DecodeError, err)
	}
	copy(out.Samples(), samples)
	if hdr.HasMissing {
		out.SetTransparentValue(hdr.Missing)
	}
	return []raster.Raster{out}, nil
}

func (scalarRawReader) IsImageryRaster() bool    { return false }
func (scalarRawReader) IsElevationsRaster() bool { return true }

// scalarRawWriter implements Writer for the same container format.
type scalarRawWriter struct{}

func NewScalarRawWriter() Writer { return scalarRawWriter{} }

func (scalarRawWriter) Suffixes() []string  { return []string{".sraw"} }
func (scalarRawWriter) MimeTypes() []string { return []string{"application/x-scalarraw"} }

func (scalarRawWriter) CanWrite(r raster.Raster, suffix, destination string) bool {
	if r.Kind() != raster.KindScalar {
		return false
	}
	return slices.Contains([]string{".sraw"}, suffix)
}

func (scalarRawWriter) Write(r raster.Raster, suffix, destination string) error {
	sr, ok := r.(*raster.ScalarRaster)
	if !ok {
		return fmt.Errorf("source: %w: scalarraw writer received non-scalar raster", raster.ErrKindMismatch)
	}
	sec := sr.Sector()
	hdr := scalarraw.Header{
		Width: sr.Width(), Height: sr.Height(),
		MinLat: sec.MinLat().Degrees(), MaxLat: sec.MaxLat().Degrees(),
		MinLon: sec.MinLon().Degrees(), MaxLon: sec.MaxLon().Degrees(),
		DataType: sr.DataType(), ByteOrder: sr.ByteOrder(),
	}
	if v, ok := sr.TransparentValue(); ok {
		hdr.HasMissing = true
		hdr.Missing = v
	}
	f, err := os.Create(destination)
	if err != nil {
		return fmt.Errorf("source: %s: %w: %v", destination, pipelineerr.IOError, err)
	}
	defer f.Close()
	if err := scalarraw.Write(f, hdr, sr.Samples()); err != nil {
		return fmt.Errorf("source: %s: %w: %v", destination, pipelineerr.IOError, err)
	}
	return nil
}
