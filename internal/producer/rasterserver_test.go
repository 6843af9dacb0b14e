package producer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoframe/tilepyramid/internal/pipelineerr"
)

func writeCatalogFixture(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "Test.RasterServer.xml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestReadRasterServerConfigFileDegrees(t *testing.T) {
	path := writeCatalogFixture(t, `<?xml version="1.0"?>
<RasterServer>
  <DisplayName>Test Imagery</DisplayName>
  <CacheName>TestData</CacheName>
  <Source path="/data/a.png">
    <Sector>
      <SouthWest><LatLon units="degrees" latitude="0" longitude="10"/></SouthWest>
      <NorthEast><LatLon units="degrees" latitude="20" longitude="30"/></NorthEast>
    </Sector>
  </Source>
</RasterServer>`)

	rsc, err := ReadRasterServerConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Test Imagery", rsc.DisplayName)
	assert.Equal(t, "TestData", rsc.CacheName)
	require.Len(t, rsc.Sources, 1)
	sec := rsc.Sources[0].Sector
	assert.Equal(t, 0.0, sec.MinLat().Degrees())
	assert.Equal(t, 20.0, sec.MaxLat().Degrees())
	assert.Equal(t, 10.0, sec.MinLon().Degrees())
	assert.Equal(t, 30.0, sec.MaxLon().Degrees())
}

// The unit tag on each LatLon element selects radians or degrees.
func TestReadRasterServerConfigFileRadians(t *testing.T) {
	path := writeCatalogFixture(t, `<?xml version="1.0"?>
<RasterServer>
  <CacheName>TestData</CacheName>
  <Source path="/data/b.png">
    <Sector>
      <SouthWest><LatLon units="radians" latitude="0" longitude="-3.14159265358979323846"/></SouthWest>
      <NorthEast><LatLon units="radians" latitude="1.57079632679489661923" longitude="0"/></NorthEast>
    </Sector>
  </Source>
</RasterServer>`)

	rsc, err := ReadRasterServerConfigFile(path)
	require.NoError(t, err)
	require.Len(t, rsc.Sources, 1)
	sec := rsc.Sources[0].Sector
	assert.InDelta(t, 0, sec.MinLat().Degrees(), 1e-9)
	assert.InDelta(t, 90, sec.MaxLat().Degrees(), 1e-9)
	assert.InDelta(t, -180, sec.MinLon().Degrees(), 1e-9)
	assert.InDelta(t, 0, sec.MaxLon().Degrees(), 1e-9)
}

func TestReadRasterServerConfigFileRejectsUnknownUnits(t *testing.T) {
	path := writeCatalogFixture(t, `<?xml version="1.0"?>
<RasterServer>
  <CacheName>TestData</CacheName>
  <Source path="/data/c.png">
    <Sector>
      <SouthWest><LatLon units="gradians" latitude="0" longitude="0"/></SouthWest>
      <NorthEast><LatLon units="degrees" latitude="10" longitude="10"/></NorthEast>
    </Sector>
  </Source>
</RasterServer>`)

	_, err := ReadRasterServerConfigFile(path)
	require.Error(t, err)
	assert.ErrorIs(t, err, pipelineerr.InvalidArgument)
}
