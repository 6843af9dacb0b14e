package producer

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"

	"github.com/geoframe/tilepyramid/internal/geo"
	"github.com/geoframe/tilepyramid/internal/levelset"
	"github.com/geoframe/tilepyramid/internal/raster"
)

// datasetDescriptor is the XML document written at
// {fileStoreLocation}/{dataCacheName}.xml: the dataset name, display
// name, sector, pyramid geometry, sample format, format suffix, and (for
// scalar datasets) elevation bounds and the missing-data signal.
type datasetDescriptor struct {
	XMLName        xml.Name `xml:"DataSet"`
	ProductionID   string   `xml:"productionId,attr"`
	DatasetName    string   `xml:"DatasetName"`
	DisplayName    string   `xml:"DisplayName"`
	Sector         xmlSector `xml:"Sector"`
	NumLevels      int      `xml:"NumLevels"`
	LevelZeroDelta xmlDelta `xml:"LevelZeroTileDelta"`
	TileOrigin     xmlLatLon `xml:"TileOrigin"`
	TileWidth      int      `xml:"TileWidth"`
	TileHeight     int      `xml:"TileHeight"`
	PixelFormat    string   `xml:"PixelFormat"`
	DataType       string   `xml:"DataType,omitempty"`
	ByteOrder      string   `xml:"ByteOrder,omitempty"`
	FormatSuffix   string   `xml:"FormatSuffix"`
	ServiceName    string   `xml:"ServiceName,omitempty"`

	ElevationMin     *float64 `xml:"ElevationMin,omitempty"`
	ElevationMax     *float64 `xml:"ElevationMax,omitempty"`
	MissingDataValue *float64 `xml:"MissingDataSignal,omitempty"`
}

type xmlSector struct {
	MinLat float64 `xml:"minLat,attr"`
	MaxLat float64 `xml:"maxLat,attr"`
	MinLon float64 `xml:"minLon,attr"`
	MaxLon float64 `xml:"maxLon,attr"`
}

type xmlDelta struct {
	Lat float64 `xml:"lat,attr"`
	Lon float64 `xml:"lon,attr"`
}

type xmlLatLon struct {
	Lat float64 `xml:"lat,attr"`
	Lon float64 `xml:"lon,attr"`
}

// installConfigFile writes the dataset descriptor. Elevation bounds are scanned from the catalog's
// sources when the dataset is a scalar (elevation) dataset.
func (d *Driver) installConfigFile(ls *levelset.LevelSet, productionID string) error {
	dataType, _ := d.cfg.ResolvedDataType()
	byteOrder, _ := d.cfg.ResolvedByteOrder()

	desc := datasetDescriptor{
		ProductionID:   productionID,
		DatasetName:    d.cfg.DatasetName,
		DisplayName:    displayNameOrDefault(d.cfg.DisplayName, d.cfg.DatasetName),
		Sector:         sectorToXML(ls.Coverage),
		NumLevels:      len(ls.Levels),
		LevelZeroDelta: xmlDelta{Lat: ls.LevelZeroDelta.Lat.Degrees(), Lon: ls.LevelZeroDelta.Lon.Degrees()},
		TileOrigin:     xmlLatLon{Lat: ls.TileOrigin.Lat.Degrees(), Lon: ls.TileOrigin.Lon.Degrees()},
		TileWidth:      d.cfg.TileWidth,
		TileHeight:     d.cfg.TileHeight,
		PixelFormat:    d.cfg.Kind().String(),
		FormatSuffix:   d.cfg.ResolvedFormatSuffix(),
		ServiceName:    d.cfg.ServiceName,
	}

	if d.cfg.Kind() == raster.KindScalar {
		desc.DataType = dataTypeName(dataType)
		desc.ByteOrder = byteOrderName(byteOrder)
		if d.cfg.HasMissingData {
			v := d.cfg.MissingDataReplacement
			desc.MissingDataValue = &v
		}
		if min, max, ok := d.catalog.ElevationBounds(); ok {
			desc.ElevationMin = &min
			desc.ElevationMax = &max
		}
	}

	path := filepath.Join(d.cfg.FileStoreLocation, d.cfg.DataCacheName+".xml")
	return writeXMLFile(path, desc)
}

func writeXMLFile(path string, v any) error {
	data, err := xml.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("producer: marshaling %s: %w", path, err)
	}
	data = append([]byte(xml.Header), data...)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("producer: %s: %w", path, err)
	}
	return os.WriteFile(path, data, 0o644)
}

func sectorToXML(sec geo.Sector) xmlSector {
	return xmlSector{
		MinLat: sec.MinLat().Degrees(),
		MaxLat: sec.MaxLat().Degrees(),
		MinLon: sec.MinLon().Degrees(),
		MaxLon: sec.MaxLon().Degrees(),
	}
}

func displayNameOrDefault(displayName, datasetName string) string {
	if displayName != "" {
		return displayName
	}
	return datasetName
}

func dataTypeName(t raster.DataType) string {
	switch t {
	case raster.Int8:
		return "INT8"
	case raster.Int16:
		return "INT16"
	case raster.Int32:
		return "INT32"
	default:
		return "FLOAT32"
	}
}

func byteOrderName(o raster.ByteOrder) string {
	if o == raster.LittleEndian {
		return "LITTLE_ENDIAN"
	}
	return "BIG_ENDIAN"
}
