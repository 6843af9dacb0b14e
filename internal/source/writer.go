package source

import "github.com/geoframe/tilepyramid/internal/raster"

// Writer encodes a Raster to a concrete destination format.
type Writer interface {
	Suffixes() []string
	MimeTypes() []string
	// CanWrite is a cheap check: true iff Write would succeed for this
	// raster, suffix, and destination.
	CanWrite(r raster.Raster, suffix, destination string) bool
	// Write encodes r and persists it at destination.
	Write(r raster.Raster, suffix, destination string) error
}

// WriterRegistry selects a Writer by suffix, trying registered writers in
// order and returning the first whose CanWrite agrees.
type WriterRegistry struct {
	writers []Writer
}

// NewWriterRegistry builds a registry trying writers in the given order.
func NewWriterRegistry(writers ...Writer) *WriterRegistry {
	return &WriterRegistry{writers: writers}
}

// Select returns the first writer that can write r to destination with the
// given suffix, or false if none can.
func (reg *WriterRegistry) Select(r raster.Raster, suffix, destination string) (Writer, bool) {
	for _, w := range reg.writers {
		if w.CanWrite(r, suffix, destination) {
			return w, true
		}
	}
	return nil, false
}
