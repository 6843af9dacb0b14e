package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoframe/tilepyramid/internal/geo"
	"github.com/geoframe/tilepyramid/internal/raster"
)

func TestScalarRawRoundTrip(t *testing.T) {
	sector, err := geo.NewSector(0, 10, 0, 10)
	require.NoError(t, err)
	src, err := raster.NewScalarRaster(sector, 3, 2, raster.Int16, raster.BigEndian)
	require.NoError(t, err)
	src.SetTransparentValue(-32768)
	copy(src.Samples(), []float64{1, 2, 3, 4, 5, -32768})

	dir := t.TempDir()
	path := filepath.Join(dir, "test.sraw")

	w := NewScalarRawWriter()
	require.True(t, w.CanWrite(src, ".sraw", path))
	require.NoError(t, w.Write(src, ".sraw", path))

	ref := Ref{Path: path}
	r := NewScalarRawReader()
	require.True(t, r.CanRead(ref, raster.NewMetadataBag()))

	meta := raster.NewMetadataBag()
	require.NoError(t, r.ReadMetadata(ref, meta))
	width, ok := meta.Int(raster.KeyWidth)
	require.True(t, ok)
	assert.Equal(t, 3, width)

	rasters, err := r.Read(ref, meta)
	require.NoError(t, err)
	require.Len(t, rasters, 1)
	got := rasters[0].(*raster.ScalarRaster)
	assert.Equal(t, src.Samples(), got.Samples())
	v, ok := got.TransparentValue()
	require.True(t, ok)
	assert.Equal(t, -32768.0, v)
}

func TestReaderRegistrySelectsBySuffix(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "x.unknown")
	require.NoError(t, os.WriteFile(path, []byte("not a format"), 0o644))

	reg := DefaultReaderRegistry()
	_, ok := reg.Select(Ref{Path: path}, raster.NewMetadataBag())
	assert.False(t, ok)
}
