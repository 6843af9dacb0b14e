package producer

import (
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoframe/tilepyramid/internal/config"
	"github.com/geoframe/tilepyramid/internal/geo"
	"github.com/geoframe/tilepyramid/internal/pipelineerr"
	"github.com/geoframe/tilepyramid/internal/raster"
	"github.com/geoframe/tilepyramid/internal/source"
)

func TestSetStoreParametersReportsEveryMissingKey(t *testing.T) {
	drv := New()
	err := drv.SetStoreParameters(config.Config{})
	require.Error(t, err)
	assert.ErrorIs(t, err, pipelineerr.InvalidArgument)
	assert.Contains(t, err.Error(), "fileStoreLocation")
	assert.Contains(t, err.Error(), "dataCacheName")
	assert.Contains(t, err.Error(), "datasetName")
}

func storeConfig(t *testing.T, extra func(*config.Config)) config.Config {
	t.Helper()
	cfg := config.Config{
		FileStoreLocation: t.TempDir(),
		DataCacheName:     "TestData",
		DatasetName:       "test-dataset",
		TileWidth:         16,
		TileHeight:        16,
	}
	if extra != nil {
		extra(&cfg)
	}
	return cfg
}

// writeElevationFixture persists a width x height scalarraw source covering
// sec, every sample set to value.
func writeElevationFixture(t *testing.T, path string, sec geo.Sector, width, height int, value float64) {
	t.Helper()
	sr, err := raster.NewScalarRaster(sec, width, height, raster.Int16, raster.BigEndian)
	require.NoError(t, err)
	samples := sr.Samples()
	for i := range samples {
		samples[i] = value
	}
	w := source.NewScalarRawWriter()
	require.NoError(t, w.Write(sr, ".sraw", path))
}

func TestElevationProductionEndToEnd(t *testing.T) {
	sec, err := geo.NewSector(0, 10, 0, 10)
	require.NoError(t, err)

	srcDir := t.TempDir()
	srcPath := filepath.Join(srcDir, "dem.sraw")
	writeElevationFixture(t, srcPath, sec, 100, 100, 42)

	cfg := storeConfig(t, func(c *config.Config) {
		c.PixelFormat = "ELEVATION"
		c.DataType = "INT16"
		c.FormatSuffix = ".sraw"
		c.MissingDataReplacement = -9999
		c.HasMissingData = true
		c.ServiceName = "Offline"
	})
	drv := New()
	require.NoError(t, drv.SetStoreParameters(cfg))
	require.Empty(t, drv.OfferAllDataSources([]source.Ref{{Path: srcPath}}))

	result, err := drv.StartProduction(context.Background())
	require.NoError(t, err)
	assert.False(t, result.Cancelled)
	assert.Empty(t, result.WriteErrors)
	assert.Equal(t, int64(1), result.TilesComposed)
	assert.NotEmpty(t, result.ProductionID)

	// 100x100 source under the default 3000-pixel threshold: one level,
	// one tile at (0,0), persisted at the layout.
	tilePath := filepath.Join(cfg.FileStoreLocation, cfg.DataCacheName, "0", "0000", "0000_0000.sraw")
	_, statErr := os.Stat(tilePath)
	require.NoError(t, statErr, "expected tile at %s", tilePath)

	// Tile samples come from the single source.
	reader := source.NewScalarRawReader()
	meta := raster.NewMetadataBag()
	rasters, err := reader.Read(source.Ref{Path: tilePath}, meta)
	require.NoError(t, err)
	require.Len(t, rasters, 1)
	tileRaster := rasters[0].(*raster.ScalarRaster)
	assert.Equal(t, 42.0, tileRaster.Samples()[0])

	// Both descriptors land next to the data cache directory.
	descriptor, err := os.ReadFile(filepath.Join(cfg.FileStoreLocation, cfg.DataCacheName+".xml"))
	require.NoError(t, err)
	assert.Contains(t, string(descriptor), "<DatasetName>test-dataset</DatasetName>")
	assert.Contains(t, string(descriptor), "<DataType>INT16</DataType>")
	assert.Contains(t, string(descriptor), "<MissingDataSignal>-9999</MissingDataSignal>")
	assert.Contains(t, string(descriptor), result.ProductionID)

	rsPath := filepath.Join(cfg.FileStoreLocation, cfg.DataCacheName+".RasterServer.xml")
	rsc, err := ReadRasterServerConfigFile(rsPath)
	require.NoError(t, err)
	assert.Equal(t, cfg.DataCacheName, rsc.CacheName)
	require.Len(t, rsc.Sources, 1)
	assert.Equal(t, srcPath, rsc.Sources[0].Path)
	assert.True(t, rsc.Sources[0].Sector.Equal(sec))
}

func TestImageProductionWithWorldFile(t *testing.T) {
	srcDir := t.TempDir()
	imgPath := filepath.Join(srcDir, "ortho.png")

	img := image.NewRGBA(image.Rect(0, 0, 40, 40))
	for y := 0; y < 40; y++ {
		for x := 0; x < 40; x++ {
			img.SetRGBA(x, y, color.RGBA{R: 200, G: 10, B: 30, A: 255})
		}
	}
	f, err := os.Create(imgPath)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, img))
	require.NoError(t, f.Close())

	// 0.25 degrees per pixel anchored at (10N, 0E): sector (0,10,0,10).
	worldFile := "0.25\n0\n0\n-0.25\n0.125\n9.875\n"
	require.NoError(t, os.WriteFile(filepath.Join(srcDir, "ortho.pgw"), []byte(worldFile), 0o644))

	cfg := storeConfig(t, nil)
	drv := New()
	require.NoError(t, drv.SetStoreParameters(cfg))
	require.Empty(t, drv.OfferAllDataSources([]source.Ref{{Path: imgPath}}))

	result, err := drv.StartProduction(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.TilesComposed)

	tilePath := filepath.Join(cfg.FileStoreLocation, cfg.DataCacheName, "0", "0000", "0000_0000.png")
	tf, err := os.Open(tilePath)
	require.NoError(t, err)
	defer tf.Close()
	decoded, err := png.Decode(tf)
	require.NoError(t, err)
	assert.Equal(t, 16, decoded.Bounds().Dx())
	r, _, _, a := decoded.At(8, 8).RGBA()
	assert.EqualValues(t, 0xffff, a)
	assert.EqualValues(t, 200, r>>8)
}

func TestImageWithoutGeoreferencingIsRejected(t *testing.T) {
	srcDir := t.TempDir()
	imgPath := filepath.Join(srcDir, "plain.png")
	f, err := os.Create(imgPath)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	require.NoError(t, f.Close())

	drv := New()
	require.NoError(t, drv.SetStoreParameters(storeConfig(t, nil)))
	reason := drv.OfferDataSource(source.Ref{Path: imgPath}, nil)
	assert.Contains(t, reason, "sector")
}

func TestOfferParamsSupplySector(t *testing.T) {
	srcDir := t.TempDir()
	imgPath := filepath.Join(srcDir, "plain.png")
	f, err := os.Create(imgPath)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	require.NoError(t, f.Close())

	sec, err := geo.NewSector(0, 5, 0, 5)
	require.NoError(t, err)
	params := raster.NewMetadataBag()
	params.Set(raster.KeySector, sec)

	drv := New()
	require.NoError(t, drv.SetStoreParameters(storeConfig(t, nil)))
	assert.Empty(t, drv.OfferDataSource(source.Ref{Path: imgPath}, params))
}

func TestStopBeforeStartCancelsCleanly(t *testing.T) {
	sec, err := geo.NewSector(0, 10, 0, 10)
	require.NoError(t, err)
	srcPath := filepath.Join(t.TempDir(), "dem.sraw")
	writeElevationFixture(t, srcPath, sec, 100, 100, 1)

	cfg := storeConfig(t, func(c *config.Config) {
		c.PixelFormat = "ELEVATION"
		c.DataType = "INT16"
		c.FormatSuffix = ".sraw"
	})
	drv := New()
	require.NoError(t, drv.SetStoreParameters(cfg))
	require.Empty(t, drv.OfferAllDataSources([]source.Ref{{Path: srcPath}}))

	drv.StopProduction()
	result, err := drv.StartProduction(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Cancelled)
	assert.Zero(t, result.TilesComposed)
}

func TestEmptyCatalogProducesNothing(t *testing.T) {
	drv := New()
	require.NoError(t, drv.SetStoreParameters(storeConfig(t, nil)))
	result, err := drv.StartProduction(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.TilesComposed)
}
