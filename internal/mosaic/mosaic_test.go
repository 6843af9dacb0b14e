package mosaic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoframe/tilepyramid/internal/catalog"
	"github.com/geoframe/tilepyramid/internal/geo"
	"github.com/geoframe/tilepyramid/internal/pipelineerr"
	"github.com/geoframe/tilepyramid/internal/raster"
	"github.com/geoframe/tilepyramid/internal/rastercache"
	"github.com/geoframe/tilepyramid/internal/source"
)

func mustSector(t *testing.T, minLat, maxLat, minLon, maxLon float64) geo.Sector {
	t.Helper()
	s, err := geo.NewSector(minLat, maxLat, minLon, maxLon)
	require.NoError(t, err)
	return s
}

// fakeReader always reports the sector/width/height it was built with, and
// hands back a blank raster of that shape, so tests don't need real image
// files on disk.
type fakeReader struct {
	sector        geo.Sector
	width, height int
}

func (fakeReader) Suffixes() []string   { return []string{".fake"} }
func (fakeReader) MimeTypes() []string  { return []string{"application/x-fake"} }
func (fakeReader) CanRead(ref source.Ref, meta *raster.MetadataBag) bool { return true }

func (r fakeReader) ReadMetadata(ref source.Ref, meta *raster.MetadataBag) error {
	meta.Set(raster.KeySector, r.sector)
	meta.Set(raster.KeyWidth, r.width)
	meta.Set(raster.KeyHeight, r.height)
	return nil
}

func (r fakeReader) Read(ref source.Ref, meta *raster.MetadataBag) ([]raster.Raster, error) {
	ir, err := raster.NewImageRaster(r.sector, r.width, r.height)
	if err != nil {
		return nil, err
	}
	return []raster.Raster{ir}, nil
}

func (fakeReader) IsImageryRaster() bool    { return true }
func (fakeReader) IsElevationsRaster() bool { return false }

func addFake(t *testing.T, cat *catalog.Catalog, cache *rastercache.Cache, path string, sec geo.Sector) {
	t.Helper()
	registry := source.NewReaderRegistry(fakeReader{sector: sec, width: 10, height: 10})
	rejected := catalog.Add(cat, source.Ref{Path: path}, nil, registry, cache)
	require.Empty(t, rejected)
}

// A request sector disjoint from every catalogued source must fail with
// OutsideCoverage.
func TestOutsideCoverage(t *testing.T) {
	cat := catalog.New()
	cache := rastercache.New(1 << 30)
	addFake(t, cat, cache, "fake-a", mustSector(t, 0, 10, 0, 10))

	composer := New(cat)
	_, err := composer.ComposeRaster(Request{
		Width: 10, Height: 10,
		Sector: mustSector(t, 40, 50, 40, 50),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, pipelineerr.OutsideCoverage)
}

// Overlapping sources both draw onto the composed mosaic without error.
func TestComposeRasterDrawsIntersectingSources(t *testing.T) {
	cat := catalog.New()
	cache := rastercache.New(1 << 30)
	addFake(t, cat, cache, "fake-a", mustSector(t, 0, 10, 0, 10))
	addFake(t, cat, cache, "fake-b", mustSector(t, 5, 15, 5, 15))

	composer := New(cat)
	dst, err := composer.ComposeRaster(Request{
		Width: 20, Height: 20,
		Sector: mustSector(t, 0, 15, 0, 15),
	})
	require.NoError(t, err)
	require.NotNil(t, dst)
}
