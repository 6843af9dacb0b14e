// Package config binds a viper instance to the producer driver's recognized
// configuration keys: cobra flags, config-file entries, and environment
// variables all merge into one typed settings struct.
package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/geoframe/tilepyramid/internal/geo"
	"github.com/geoframe/tilepyramid/internal/levelset"
	"github.com/geoframe/tilepyramid/internal/pipelineerr"
	"github.com/geoframe/tilepyramid/internal/raster"
)

// Config is the raw, string/primitive-typed form of every recognized
// configuration key. Geometry fields are kept as strings because several are
// legitimately absent (derived by internal/levelset); Resolve* helpers below
// parse the ones that were supplied.
type Config struct {
	FileStoreLocation string
	DataCacheName     string
	DatasetName       string
	DisplayName       string

	TileWidth  int
	TileHeight int

	// Sector is "minLat,maxLat,minLon,maxLon"; empty means the union of
	// the offered sources' sectors.
	Sector string
	// TileOrigin is "lat,lon"; empty means derived.
	TileOrigin string
	// LevelZeroTileDelta is "latDelta,lonDelta"; empty means derived.
	LevelZeroTileDelta string
	NumLevels          int
	NumEmptyLevels     int

	LargeDatasetThreshold int
	MaxLevelLimit         string

	PixelFormat string // IMAGE | ELEVATION
	DataType    string // INT8 | INT16 | INT32 | FLOAT32
	ByteOrder   string // BIG_ENDIAN | LITTLE_ENDIAN

	MissingDataReplacement float64
	HasMissingData         bool

	ImageFormat  string
	FormatSuffix string
	ServiceName  string

	// BandsOrder is "r,g,b,a"-style comma-separated band indices; empty
	// means identity order.
	BandsOrder string

	// ArchiveOutput packages the pyramid as a single sqlite tile archive
	// instead of the loose directory tree.
	ArchiveOutput bool

	WriterDegree int
	CacheBytes   int64
}

// FromViper reads every recognized key from v into a Config. Missing
// keys simply come back zero/empty; validation happens in Validate.
func FromViper(v *viper.Viper) Config {
	return Config{
		FileStoreLocation:       v.GetString("fileStoreLocation"),
		DataCacheName:           v.GetString("dataCacheName"),
		DatasetName:             v.GetString("datasetName"),
		DisplayName:             v.GetString("displayName"),
		TileWidth:               v.GetInt("tileWidth"),
		TileHeight:              v.GetInt("tileHeight"),
		Sector:                  v.GetString("sector"),
		TileOrigin:              v.GetString("tileOrigin"),
		LevelZeroTileDelta:      v.GetString("levelZeroTileDelta"),
		NumLevels:               v.GetInt("numLevels"),
		NumEmptyLevels:          v.GetInt("numEmptyLevels"),
		LargeDatasetThreshold:   v.GetInt("largeDatasetThreshold"),
		MaxLevelLimit:           v.GetString("maxLevelLimit"),
		PixelFormat:             strings.ToUpper(v.GetString("pixelFormat")),
		DataType:                strings.ToUpper(v.GetString("dataType")),
		ByteOrder:               strings.ToUpper(v.GetString("byteOrder")),
		MissingDataReplacement:  v.GetFloat64("missingDataReplacement"),
		HasMissingData:          v.IsSet("missingDataReplacement"),
		ImageFormat:             v.GetString("imageFormat"),
		FormatSuffix:            v.GetString("formatSuffix"),
		ServiceName:             v.GetString("serviceName"),
		BandsOrder:              v.GetString("bandsOrder"),
		ArchiveOutput:           v.GetBool("archiveOutput"),
		WriterDegree:            v.GetInt("writerDegree"),
		CacheBytes:              v.GetInt64("cacheBytes"),
	}
}

// Validate enforces SetStoreParameters's required-key check, concatenating
// every missing/invalid reason into one error so the caller gets a complete
// picture in one shot instead of a fail-fast single reason.
func (c Config) Validate() error {
	var problems []string
	if strings.TrimSpace(c.FileStoreLocation) == "" {
		problems = append(problems, "fileStoreLocation is required")
	}
	if strings.TrimSpace(c.DataCacheName) == "" {
		problems = append(problems, "dataCacheName is required")
	}
	if strings.TrimSpace(c.DatasetName) == "" {
		problems = append(problems, "datasetName is required")
	}
	if c.PixelFormat != "" && c.PixelFormat != "IMAGE" && c.PixelFormat != "ELEVATION" {
		problems = append(problems, fmt.Sprintf("pixelFormat %q must be IMAGE or ELEVATION", c.PixelFormat))
	}
	if c.PixelFormat == "ELEVATION" && c.DataType == "" {
		problems = append(problems, "dataType is required for ELEVATION datasets")
	}
	if len(problems) > 0 {
		return fmt.Errorf("config: %w: %s", pipelineerr.InvalidArgument, strings.Join(problems, "; "))
	}
	return nil
}

// Kind resolves PixelFormat to a raster.Kind, defaulting to KindImage.
func (c Config) Kind() raster.Kind {
	if c.PixelFormat == "ELEVATION" {
		return raster.KindScalar
	}
	return raster.KindImage
}

// ResolvedDataType parses DataType, defaulting to Float32.
func (c Config) ResolvedDataType() (raster.DataType, error) {
	switch c.DataType {
	case "", "FLOAT32":
		return raster.Float32, nil
	case "INT8":
		return raster.Int8, nil
	case "INT16":
		return raster.Int16, nil
	case "INT32":
		return raster.Int32, nil
	default:
		return 0, fmt.Errorf("config: %w: unknown dataType %q", pipelineerr.InvalidArgument, c.DataType)
	}
}

// ResolvedByteOrder parses ByteOrder, defaulting to BigEndian.
func (c Config) ResolvedByteOrder() (raster.ByteOrder, error) {
	switch c.ByteOrder {
	case "", "BIG_ENDIAN":
		return raster.BigEndian, nil
	case "LITTLE_ENDIAN":
		return raster.LittleEndian, nil
	default:
		return 0, fmt.Errorf("config: %w: unknown byteOrder %q", pipelineerr.InvalidArgument, c.ByteOrder)
	}
}

// ResolvedSector parses Sector, defaulting to the full sphere.
func (c Config) ResolvedSector() (geo.Sector, error) {
	if strings.TrimSpace(c.Sector) == "" {
		return geo.FullSphere, nil
	}
	vals, err := parseFloats(c.Sector, 4)
	if err != nil {
		return geo.Empty, fmt.Errorf("config: sector: %w", err)
	}
	sec, err := geo.NewSector(vals[0], vals[1], vals[2], vals[3])
	if err != nil {
		return geo.Empty, fmt.Errorf("config: sector: %w: %v", pipelineerr.InvalidArgument, err)
	}
	return sec, nil
}

// ResolvedTileOrigin parses TileOrigin, reporting hasOrigin=false if absent
// (the caller then lets internal/levelset derive it).
func (c Config) ResolvedTileOrigin() (origin geo.LatLon, hasOrigin bool, err error) {
	if strings.TrimSpace(c.TileOrigin) == "" {
		return geo.LatLon{}, false, nil
	}
	vals, err := parseFloats(c.TileOrigin, 2)
	if err != nil {
		return geo.LatLon{}, false, fmt.Errorf("config: tileOrigin: %w", err)
	}
	ll, err := geo.NewLatLon(vals[0], vals[1])
	if err != nil {
		return geo.LatLon{}, false, fmt.Errorf("config: tileOrigin: %w: %v", pipelineerr.InvalidArgument, err)
	}
	return ll, true, nil
}

// ResolvedLevelZeroDelta parses LevelZeroTileDelta, reporting hasDelta=false
// if absent.
func (c Config) ResolvedLevelZeroDelta() (delta levelset.Delta, hasDelta bool, err error) {
	if strings.TrimSpace(c.LevelZeroTileDelta) == "" {
		return levelset.Delta{}, false, nil
	}
	vals, err := parseFloats(c.LevelZeroTileDelta, 2)
	if err != nil {
		return levelset.Delta{}, false, fmt.Errorf("config: levelZeroTileDelta: %w", err)
	}
	return levelset.Delta{Lat: geo.Angle(vals[0]), Lon: geo.Angle(vals[1])}, true, nil
}

// ResolvedBandsOrder parses BandsOrder into a band-index permutation, nil if
// absent (identity order).
func (c Config) ResolvedBandsOrder() ([]int, error) {
	if strings.TrimSpace(c.BandsOrder) == "" {
		return nil, nil
	}
	parts := strings.Split(c.BandsOrder, ",")
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("config: bandsOrder: %w: %v", pipelineerr.InvalidArgument, err)
		}
		out[i] = n
	}
	return out, nil
}

// ResolvedFormatSuffix returns FormatSuffix when set, otherwise derives it
// from ImageFormat, defaulting to PNG when neither was supplied.
// ImageFormat is never derived from FormatSuffix.
func (c Config) ResolvedFormatSuffix() string {
	if c.FormatSuffix != "" {
		return c.FormatSuffix
	}
	switch c.ImageFormat {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "application/x-scalarraw":
		return ".sraw"
	case "image/png", "":
		return ".png"
	default:
		return ".png"
	}
}

func parseFloats(s string, n int) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("%w: expected %d comma-separated values, got %q", pipelineerr.InvalidArgument, n, s)
	}
	out := make([]float64, n)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", pipelineerr.InvalidArgument, err)
		}
		out[i] = v
	}
	return out, nil
}
