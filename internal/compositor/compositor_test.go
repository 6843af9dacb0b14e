package compositor

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoframe/tilepyramid/internal/catalog"
	"github.com/geoframe/tilepyramid/internal/geo"
	"github.com/geoframe/tilepyramid/internal/levelset"
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

// fakeReader hands back a constant-valued raster of the configured kind
// and shape, so compositor tests need no files on disk.
type fakeReader struct {
	sector        geo.Sector
	width, height int
	scalar        bool
	value         float64
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
		if err != nil {
			return nil, err
		}
		samples := sr.Samples()
		for i := range samples {
			samples[i] = r.value
		}
		return []raster.Raster{sr}, nil
	}
	ir, err := raster.NewImageRaster(r.sector, r.width, r.height)
	if err != nil {
		return nil, err
	}
	return []raster.Raster{ir}, nil
}

func (r fakeReader) IsImageryRaster() bool    { return !r.scalar }
func (r fakeReader) IsElevationsRaster() bool { return r.scalar }

func buildCatalog(t *testing.T, readers ...fakeReader) *catalog.Catalog {
	t.Helper()
	cat := catalog.New()
	cache := rastercache.New(1 << 30)
	for i, r := range readers {
		registry := source.NewReaderRegistry(r)
		rejected := catalog.Add(cat, source.Ref{Path: string(rune('a' + i)) + ".fake"}, nil, registry, cache)
		require.Empty(t, rejected)
	}
	return cat
}

// recordSink captures every installed tile in place of a real writer pool.
type recordSink struct {
	mu       sync.Mutex
	installs []levelset.Tile
	rasters  []raster.Raster
	drained  bool
}

func (s *recordSink) InstallTileRasterLater(tile levelset.Tile, r raster.Raster) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.installs = append(s.installs, tile)
	s.rasters = append(s.rasters, r)
}

func (s *recordSink) WaitForInstallTileTasks() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drained = true
}

func buildLevels(t *testing.T, cov geo.Sector, numLevels int) *levelset.LevelSet {
	t.Helper()
	ls, err := levelset.Build(levelset.Params{
		Coverage:          cov,
		TileWidth:         16,
		TileHeight:        16,
		ExplicitNumLevels: numLevels,
	})
	require.NoError(t, err)
	return ls
}

// A single-level dataset with one source yields exactly one composed tile
// covering the whole coverage sector.
func TestSingleLevelComposesOneTile(t *testing.T) {
	cov := mustSector(t, 0, 10, 0, 10)
	cat := buildCatalog(t, fakeReader{sector: cov, width: 100, height: 100})
	ls := buildLevels(t, cov, 1)
	sink := &recordSink{}

	var events int
	c := New(cat, ls, sink, CanvasSpec{Kind: raster.KindImage}, func(old, new float64) {
		assert.Less(t, old, new)
		events++
	})
	require.NoError(t, c.Run(context.Background()))

	require.Len(t, sink.installs, 1)
	tile := sink.installs[0]
	assert.Equal(t, 0, tile.Level())
	assert.True(t, tile.Sector().Equal(cov))
	assert.Equal(t, 1, events)
	assert.True(t, sink.drained)
	assert.Equal(t, int64(1), c.TilesComposed())
}

// A two-level pyramid installs every leaf and every parent exactly once.
func TestPyramidInstallsEveryTileOnce(t *testing.T) {
	cov := mustSector(t, 0, 10, 0, 10)
	cat := buildCatalog(t, fakeReader{sector: cov, width: 100, height: 100})
	ls := buildLevels(t, cov, 2)
	sink := &recordSink{}

	c := New(cat, ls, sink, CanvasSpec{Kind: raster.KindImage}, nil)
	require.NoError(t, c.Run(context.Background()))

	assert.Equal(t, ls.TileCount(), int64(len(sink.installs)))
	seen := map[[3]int]bool{}
	for _, tile := range sink.installs {
		key := [3]int{tile.Level(), tile.Row(), tile.Col()}
		assert.False(t, seen[key], "tile %v installed twice", tile)
		seen[key] = true
	}
}

// Once the stop flag is observed no new tile canvas is allocated.
func TestStopBeforeRunComposesNothing(t *testing.T) {
	cov := mustSector(t, 0, 10, 0, 10)
	cat := buildCatalog(t, fakeReader{sector: cov, width: 100, height: 100})
	ls := buildLevels(t, cov, 3)
	sink := &recordSink{}

	c := New(cat, ls, sink, CanvasSpec{Kind: raster.KindImage}, nil)
	c.Stop()
	require.NoError(t, c.Run(context.Background()))

	assert.Empty(t, sink.installs)
	assert.True(t, sink.drained)
}

// Pixels no source reaches keep the configured missing-data replacement,
// and the covered region takes the source's samples.
func TestScalarCanvasKeepsMissingDataWhereUncovered(t *testing.T) {
	cov := mustSector(t, 0, 10, 0, 10)
	half := mustSector(t, 0, 10, 0, 5)
	cat := buildCatalog(t, fakeReader{sector: half, width: 50, height: 100, scalar: true, value: 7})
	ls := buildLevels(t, cov, 1)
	sink := &recordSink{}

	spec := CanvasSpec{
		Kind:                   raster.KindScalar,
		DataType:               raster.Int16,
		ByteOrder:              raster.BigEndian,
		MissingDataReplacement: -9999,
		HasMissingData:         true,
	}
	c := New(cat, ls, sink, spec, nil)
	require.NoError(t, c.Run(context.Background()))

	require.Len(t, sink.rasters, 1)
	sr, ok := sink.rasters[0].(*raster.ScalarRaster)
	require.True(t, ok)

	samples := sr.Samples()
	// Column 0 lies inside the covered west half, the last column in the
	// uncovered east half.
	assert.Equal(t, 7.0, samples[0])
	assert.Equal(t, -9999.0, samples[sr.Width()-1])

	v, hasTransparent := sr.TransparentValue()
	require.True(t, hasTransparent)
	assert.Equal(t, -9999.0, v)
}

// Empty levels are composed (to feed coarser levels) but never persisted.
func TestEmptyLevelIsNotPersisted(t *testing.T) {
	cov := mustSector(t, 0, 10, 0, 10)
	cat := buildCatalog(t, fakeReader{sector: cov, width: 100, height: 100})
	ls, err := levelset.Build(levelset.Params{
		Coverage:          cov,
		TileWidth:         16,
		TileHeight:        16,
		ExplicitNumLevels: 2,
		NumEmptyLevels:    1,
	})
	require.NoError(t, err)
	sink := &recordSink{}

	c := New(cat, ls, sink, CanvasSpec{Kind: raster.KindImage}, nil)
	require.NoError(t, c.Run(context.Background()))

	for _, tile := range sink.installs {
		assert.NotEqual(t, 0, tile.Level(), "level 0 is empty and must not be installed")
	}
	assert.NotEmpty(t, sink.installs)
}
