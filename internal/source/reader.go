package source

import "github.com/geoframe/tilepyramid/internal/raster"

// Reader decodes one concrete source format. Implementations must be
// stateless and safe to call from multiple goroutines concurrently:
// the registry and the cache both invoke readers without synchronizing
// around a specific reader instance.
type Reader interface {
	// Suffixes lists the file extensions (with leading dot, lowercase)
	// this reader advertises.
	Suffixes() []string
	// MimeTypes lists the MIME types this reader advertises.
	MimeTypes() []string
	// CanRead is a cheap check: true iff a subsequent Read would
	// succeed for this source.
	CanRead(ref Ref, meta *raster.MetadataBag) bool
	// ReadMetadata populates width, height, pixel-format, data-type,
	// and byte-order into meta, as available. It must not overwrite a
	// Sector the caller has already placed in meta unless the format
	// embeds its own georeferencing.
	ReadMetadata(ref Ref, meta *raster.MetadataBag) error
	// Read produces one or more Rasters for ref.
	Read(ref Ref, meta *raster.MetadataBag) ([]raster.Raster, error)
	// IsImageryRaster reports whether this reader produces ImageRasters.
	IsImageryRaster() bool
	// IsElevationsRaster reports whether this reader produces
	// ScalarRasters.
	IsElevationsRaster() bool
}

// ReaderRegistry selects a Reader for a source in a fixed priority order:
// the first reader whose CanRead returns true wins.
type ReaderRegistry struct {
	readers []Reader
}

// NewReaderRegistry builds a registry trying readers in the given order.
func NewReaderRegistry(readers ...Reader) *ReaderRegistry {
	return &ReaderRegistry{readers: readers}
}

// Select returns the first reader that can read ref, or false if none can.
func (reg *ReaderRegistry) Select(ref Ref, meta *raster.MetadataBag) (Reader, bool) {
	for _, r := range reg.readers {
		if r.CanRead(ref, meta) {
			return r, true
		}
	}
	return nil, false
}
