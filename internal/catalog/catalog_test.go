package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoframe/tilepyramid/internal/geo"
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

type fakeReader struct {
	sector        geo.Sector
	width, height int
	scalar        bool
}

func (fakeReader) Suffixes() []string                                    { return []string{".fake"} }
func (fakeReader) MimeTypes() []string                                   { return []string{"application/x-fake"} }
func (fakeReader) CanRead(ref source.Ref, meta *raster.MetadataBag) bool { return true }

func (r fakeReader) ReadMetadata(ref source.Ref, meta *raster.MetadataBag) error {
	meta.Set(raster.KeySector, r.sector)
	meta.Set(raster.KeyWidth, r.width)
	meta.Set(raster.KeyHeight, r.height)
	return nil
}

func (r fakeReader) Read(ref source.Ref, meta *raster.MetadataBag) ([]raster.Raster, error) {
	if r.scalar {
		sr, err := raster.NewScalarRaster(r.sector, r.width, r.height, raster.Int16, raster.BigEndian)
		return []raster.Raster{sr}, err
	}
	ir, err := raster.NewImageRaster(r.sector, r.width, r.height)
	return []raster.Raster{ir}, err
}

func (r fakeReader) IsImageryRaster() bool    { return !r.scalar }
func (r fakeReader) IsElevationsRaster() bool { return r.scalar }

func add(t *testing.T, cat *Catalog, cache *rastercache.Cache, path string, r fakeReader) string {
	t.Helper()
	return Add(cat, source.Ref{Path: path}, nil, source.NewReaderRegistry(r), cache)
}

// the invariant: a catalog is homogeneous; mixing image and scalar
// sources is rejected at load time.
func TestCatalogRejectsMixedKinds(t *testing.T) {
	cat := New()
	cache := rastercache.New(1 << 20)

	require.Empty(t, add(t, cat, cache, "a.fake", fakeReader{sector: mustSector(t, 0, 10, 0, 10), width: 8, height: 8}))
	reason := add(t, cat, cache, "b.fake", fakeReader{sector: mustSector(t, 0, 10, 0, 10), width: 8, height: 8, scalar: true})
	assert.Contains(t, reason, "catalog is image")
	assert.Equal(t, 1, cat.Len())
}

func TestCoverageIsUnionOfEntrySectors(t *testing.T) {
	cat := New()
	cache := rastercache.New(1 << 20)
	require.Empty(t, add(t, cat, cache, "a.fake", fakeReader{sector: mustSector(t, 0, 10, 0, 10), width: 8, height: 8}))
	require.Empty(t, add(t, cat, cache, "b.fake", fakeReader{sector: mustSector(t, 5, 30, 5, 30), width: 8, height: 8}))

	assert.True(t, cat.Coverage().Equal(mustSector(t, 0, 30, 0, 30)))
}

func TestIntersectingExcludesEdgeOnlyContact(t *testing.T) {
	cat := New()
	cache := rastercache.New(1 << 20)
	require.Empty(t, add(t, cat, cache, "a.fake", fakeReader{sector: mustSector(t, 0, 10, 0, 10), width: 8, height: 8}))

	// Touching along the lon=10 edge only: zero-area intersection.
	assert.Empty(t, cat.Intersecting(mustSector(t, 0, 10, 10, 20)))
	assert.Len(t, cat.Intersecting(mustSector(t, 5, 15, 5, 15)), 1)
}

func TestSmallestSourcePixelSize(t *testing.T) {
	cat := New()
	cache := rastercache.New(1 << 20)
	// 10 degrees over 100 pixels = 0.1 deg/px; 10 over 20 = 0.5 deg/px.
	require.Empty(t, add(t, cat, cache, "fine.fake", fakeReader{sector: mustSector(t, 0, 10, 0, 10), width: 100, height: 100}))
	require.Empty(t, add(t, cat, cache, "coarse.fake", fakeReader{sector: mustSector(t, 0, 10, 0, 10), width: 20, height: 20}))

	lat, lon := cat.SmallestSourcePixelSize()
	assert.InDelta(t, 0.1, lat.Degrees(), 1e-12)
	assert.InDelta(t, 0.1, lon.Degrees(), 1e-12)
}

func TestLargestSourcePixelCount(t *testing.T) {
	cat := New()
	cache := rastercache.New(1 << 20)
	require.Empty(t, add(t, cat, cache, "a.fake", fakeReader{sector: mustSector(t, 0, 10, 0, 10), width: 100, height: 40}))
	require.Empty(t, add(t, cat, cache, "b.fake", fakeReader{sector: mustSector(t, 0, 10, 0, 10), width: 30, height: 250}))

	assert.Equal(t, 250, cat.LargestSourcePixelCount())
}
