package source

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"slices"

	"github.com/gen2brain/webp"

	"github.com/geoframe/tilepyramid/internal/pipelineerr"
	"github.com/geoframe/tilepyramid/internal/raster"
)

// imageCodec is the narrow per-format surface the shared imageReader and
// imageWriter delegate to: one small struct per format behind the common
// decode/encode pair.
type imageCodec struct {
	format    string
	suffixes  []string
	mimeTypes []string
	decode    func(io.Reader) (image.Image, error)
	encode    func(io.Writer, image.Image) error
}

var pngCodec = imageCodec{
	format:    "png",
	suffixes:  []string{".png"},
	mimeTypes: []string{"image/png"},
	decode:    png.Decode,
	encode: func(w io.Writer, img image.Image) error {
		enc := &png.Encoder{CompressionLevel: png.BestSpeed}
		return enc.Encode(w, img)
	},
}

var jpegCodec = imageCodec{
	format:    "jpeg",
	suffixes:  []string{".jpg", ".jpeg"},
	mimeTypes: []string{"image/jpeg"},
	decode:    jpeg.Decode,
	encode: func(w io.Writer, img image.Image) error {
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 90})
	},
}

// webpCodec decodes and encodes through gen2brain/webp, a pure-Go (wazero
// WASM backed) codec, so the reader/writer registry carries no cgo
// requirement.
var webpCodec = imageCodec{
	format:    "webp",
	suffixes:  []string{".webp"},
	mimeTypes: []string{"image/webp"},
	decode:    webp.Decode,
	encode: func(w io.Writer, img image.Image) error {
		return webp.Encode(w, img, webp.Options{Quality: 90})
	},
}

// imageReader implements Reader for one image codec.
type imageReader struct {
	codec imageCodec
}

func NewPNGReader() Reader  { return imageReader{codec: pngCodec} }
func NewJPEGReader() Reader { return imageReader{codec: jpegCodec} }
func NewWebPReader() Reader { return imageReader{codec: webpCodec} }

func (r imageReader) Suffixes() []string  { return r.codec.suffixes }
func (r imageReader) MimeTypes() []string { return r.codec.mimeTypes }

func (r imageReader) CanRead(ref Ref, meta *raster.MetadataBag) bool {
	if !slices.Contains(r.codec.suffixes, ref.Suffix()) {
		return false
	}
	f, err := ref.Open()
	if err != nil {
		return false
	}
	defer f.Close()
	_, _, err = image.DecodeConfig(f)
	return err == nil
}

func (r imageReader) ReadMetadata(ref Ref, meta *raster.MetadataBag) error {
	f, err := ref.Open()
	if err != nil {
		return fmt.Errorf("source: %s: %w: %v", ref, pipelineerr.UnreadableSource, err)
	}
	defer f.Close()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return fmt.Errorf("source: %s: %w: %v", ref, pipelineerr.UnreadableSource, err)
	}
	meta.Set(raster.KeyWidth, cfg.Width)
	meta.Set(raster.KeyHeight, cfg.Height)
	meta.Set(raster.KeyPixelFormat, r.codec.format)

	// Image formats carry no georeferencing of their own; when the caller
	// did not supply a sector (offer params, catalog descriptor), a
	// world-file sidecar next to the source is the remaining option.
	if _, ok := meta.Sector(raster.KeySector); !ok {
		sec, found, err := lookupWorldFileSector(ref, cfg.Width, cfg.Height)
		if err != nil {
			return fmt.Errorf("source: %s: %w: %v", ref, pipelineerr.UnreadableSource, err)
		}
		if found {
			meta.Set(raster.KeySector, sec)
		}
	}
	return nil
}

func (r imageReader) Read(ref Ref, meta *raster.MetadataBag) ([]raster.Raster, error) {
	data, err := ref.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("source: %s: %w: %v", ref, pipelineerr.DecodeError, err)
	}
	img, err := r.codec.decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("source: %s: %w: %v", ref, pipelineerr.DecodeError, err)
	}

	sector, ok := meta.Sector(raster.KeySector)
	if !ok {
		return nil, fmt.Errorf("source: %s: %w: missing sector in metadata", ref, pipelineerr.InvalidArgument)
	}

	rgba := toRGBA(img)
	out := raster.WrapImage(sector, rgba)
	return []raster.Raster{out}, nil
}

func (r imageReader) IsImageryRaster() bool    { return true }
func (r imageReader) IsElevationsRaster() bool { return false }

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	rgba := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			rgba.Set(x, y, img.At(x, y))
		}
	}
	return rgba
}

// imageWriter implements Writer for one image codec.
type imageWriter struct {
	codec imageCodec
}

func NewPNGWriter() Writer  { return imageWriter{codec: pngCodec} }
func NewJPEGWriter() Writer { return imageWriter{codec: jpegCodec} }
func NewWebPWriter() Writer { return imageWriter{codec: webpCodec} }

func (w imageWriter) Suffixes() []string  { return w.codec.suffixes }
func (w imageWriter) MimeTypes() []string { return w.codec.mimeTypes }

func (w imageWriter) CanWrite(r raster.Raster, suffix, destination string) bool {
	if r.Kind() != raster.KindImage {
		return false
	}
	return slices.Contains(w.codec.suffixes, suffix)
}

func (w imageWriter) Write(r raster.Raster, suffix, destination string) error {
	img, ok := r.(*raster.ImageRaster)
	if !ok {
		return fmt.Errorf("source: %w: %s writer received non-image raster", raster.ErrKindMismatch, w.codec.format)
	}
	f, err := os.Create(destination)
	if err != nil {
		return fmt.Errorf("source: %s: %w: %v", destination, pipelineerr.IOError, err)
	}
	defer f.Close()
	if err := w.codec.encode(f, img.RGBA()); err != nil {
		return fmt.Errorf("source: %s: %w: %v", destination, pipelineerr.IOError, err)
	}
	return nil
}
