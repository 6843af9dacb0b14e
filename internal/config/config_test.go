package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoframe/tilepyramid/internal/pipelineerr"
	"github.com/geoframe/tilepyramid/internal/raster"
)

func TestValidateConcatenatesEveryProblem(t *testing.T) {
	err := Config{PixelFormat: "ELEVATION"}.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, pipelineerr.InvalidArgument)
	for _, want := range []string{"fileStoreLocation", "dataCacheName", "datasetName", "dataType"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestValidateAcceptsCompleteConfig(t *testing.T) {
	cfg := Config{
		FileStoreLocation: "/tmp/store",
		DataCacheName:     "Earth",
		DatasetName:       "earth",
		PixelFormat:       "IMAGE",
	}
	assert.NoError(t, cfg.Validate())
}

func TestResolvedFormatSuffixDerivation(t *testing.T) {
	assert.Equal(t, ".png", Config{}.ResolvedFormatSuffix())
	assert.Equal(t, ".jpg", Config{ImageFormat: "image/jpeg"}.ResolvedFormatSuffix())
	assert.Equal(t, ".webp", Config{ImageFormat: "image/webp"}.ResolvedFormatSuffix())
	// An explicit suffix wins over the MIME derivation.
	assert.Equal(t, ".dds", Config{FormatSuffix: ".dds", ImageFormat: "image/png"}.ResolvedFormatSuffix())
}

func TestResolvedSectorAndOrigin(t *testing.T) {
	sec, err := Config{Sector: "0, 10, -5, 5"}.ResolvedSector()
	require.NoError(t, err)
	assert.Equal(t, 0.0, sec.MinLat().Degrees())
	assert.Equal(t, 5.0, sec.MaxLon().Degrees())

	_, err = Config{Sector: "10,0,0,5"}.ResolvedSector()
	assert.Error(t, err)

	origin, has, err := Config{TileOrigin: "-90,-180"}.ResolvedTileOrigin()
	require.NoError(t, err)
	require.True(t, has)
	assert.Equal(t, -90.0, origin.Lat.Degrees())

	_, has, err = Config{}.ResolvedTileOrigin()
	require.NoError(t, err)
	assert.False(t, has)
}

func TestResolvedDataTypeAndByteOrder(t *testing.T) {
	dt, err := Config{DataType: "INT16"}.ResolvedDataType()
	require.NoError(t, err)
	assert.Equal(t, raster.Int16, dt)

	dt, err = Config{}.ResolvedDataType()
	require.NoError(t, err)
	assert.Equal(t, raster.Float32, dt)

	_, err = Config{DataType: "INT64"}.ResolvedDataType()
	assert.ErrorIs(t, err, pipelineerr.InvalidArgument)

	bo, err := Config{ByteOrder: "LITTLE_ENDIAN"}.ResolvedByteOrder()
	require.NoError(t, err)
	assert.Equal(t, raster.LittleEndian, bo)
}

func TestResolvedBandsOrder(t *testing.T) {
	order, err := Config{BandsOrder: "2,1,0"}.ResolvedBandsOrder()
	require.NoError(t, err)
	assert.Equal(t, []int{2, 1, 0}, order)

	order, err = Config{}.ResolvedBandsOrder()
	require.NoError(t, err)
	assert.Nil(t, order)

	_, err = Config{BandsOrder: "r,g,b"}.ResolvedBandsOrder()
	assert.ErrorIs(t, err, pipelineerr.InvalidArgument)
}

func TestFromViperReadsRecognizedKeys(t *testing.T) {
	v := viper.New()
	v.Set("fileStoreLocation", "/data/store")
	v.Set("dataCacheName", "Earth")
	v.Set("datasetName", "earth")
	v.Set("pixelFormat", "elevation")
	v.Set("dataType", "int16")
	v.Set("missingDataReplacement", -9999.0)
	v.Set("maxLevelLimit", "Auto")
	v.Set("archiveOutput", true)

	cfg := FromViper(v)
	assert.Equal(t, "/data/store", cfg.FileStoreLocation)
	assert.Equal(t, "ELEVATION", cfg.PixelFormat)
	assert.Equal(t, "INT16", cfg.DataType)
	assert.True(t, cfg.HasMissingData)
	assert.Equal(t, -9999.0, cfg.MissingDataReplacement)
	assert.Equal(t, "Auto", cfg.MaxLevelLimit)
	assert.True(t, cfg.ArchiveOutput)
	assert.Equal(t, raster.KindScalar, cfg.Kind())
}
