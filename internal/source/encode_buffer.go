package source

import (
	"fmt"
	"io"

	"github.com/geoframe/tilepyramid/internal/pipelineerr"
	"github.com/geoframe/tilepyramid/internal/raster"
	"github.com/geoframe/tilepyramid/internal/rasterio/scalarraw"
)

// EncodeToBuffer encodes r directly to w by suffix, without touching the
// filesystem. It backs both the mosaic server's getRasterAsByteBuffer
// and the packaged archive writer, which both need
// an encoded tile as bytes rather than a file on disk.
func EncodeToBuffer(w io.Writer, r raster.Raster, suffix string) error {
	switch suffix {
	case pngCodec.suffixes[0]:
		return encodeImageCodec(w, r, pngCodec)
	case jpegCodec.suffixes[0], ".jpeg":
		return encodeImageCodec(w, r, jpegCodec)
	case webpCodec.suffixes[0]:
		return encodeImageCodec(w, r, webpCodec)
	case ".sraw":
		return encodeScalarRaw(w, r)
	default:
		return fmt.Errorf("source: %w: no buffer encoder for suffix %q", pipelineerr.InvalidArgument, suffix)
	}
}

func encodeImageCodec(w io.Writer, r raster.Raster, codec imageCodec) error {
	img, ok := r.(*raster.ImageRaster)
	if !ok {
		return fmt.Errorf("source: %w: %s encoder received non-image raster", raster.ErrKindMismatch, codec.format)
	}
	return codec.encode(w, img.RGBA())
}

func encodeScalarRaw(w io.Writer, r raster.Raster) error {
	sr, ok := r.(*raster.ScalarRaster)
	if !ok {
		return fmt.Errorf("source: %w: scalarraw encoder received non-scalar raster", raster.ErrKindMismatch)
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
	return scalarraw.Write(w, hdr, sr.Samples())
}
