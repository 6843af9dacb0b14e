package producer

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/geoframe/tilepyramid/internal/geo"
	"github.com/geoframe/tilepyramid/internal/pipelineerr"
)

// rasterServerDescriptor is the raster-server catalog descriptor: the
// XML document {dataCacheName}.RasterServer.xml listing {path, sector} per
// catalogued source plus per-dataset serving properties. Sector corners
// are LatLon elements carrying a units attribute; the writer always emits
// degrees, the parser accepts radians too.
type rasterServerDescriptor struct {
	XMLName     xml.Name           `xml:"RasterServer"`
	DisplayName string             `xml:"DisplayName"`
	CacheName   string             `xml:"CacheName"`
	Sources     []rasterServerItem `xml:"Source"`
}

type rasterServerItem struct {
	Path   string          `xml:"path,attr"`
	Sector xmlCornerSector `xml:"Sector"`
}

type xmlCornerSector struct {
	SouthWest xmlUnitLatLon `xml:"SouthWest>LatLon"`
	NorthEast xmlUnitLatLon `xml:"NorthEast>LatLon"`
}

type xmlUnitLatLon struct {
	Units     string  `xml:"units,attr"`
	Latitude  float64 `xml:"latitude,attr"`
	Longitude float64 `xml:"longitude,attr"`
}

func cornerSectorToXML(sec geo.Sector) xmlCornerSector {
	return xmlCornerSector{
		SouthWest: xmlUnitLatLon{Units: "degrees", Latitude: sec.MinLat().Degrees(), Longitude: sec.MinLon().Degrees()},
		NorthEast: xmlUnitLatLon{Units: "degrees", Latitude: sec.MaxLat().Degrees(), Longitude: sec.MaxLon().Degrees()},
	}
}

// latLon resolves the element's units tag: "radians" converts, "degrees"
// (or an absent tag) passes through.
func (l xmlUnitLatLon) latLon() (geo.LatLon, error) {
	lat, lon := l.Latitude, l.Longitude
	switch strings.ToLower(strings.TrimSpace(l.Units)) {
	case "", "degrees", "degree":
		// already degrees
	case "radians", "radian":
		// The conversion can overshoot the poles/antimeridian by an ulp;
		// clamp that jitter rather than rejecting the corner.
		lat = clampJitter(geo.FromRadians(lat).Degrees(), 90)
		lon = clampJitter(geo.FromRadians(lon).Degrees(), 180)
	default:
		return geo.LatLon{}, fmt.Errorf("%w: unknown LatLon units %q", pipelineerr.InvalidArgument, l.Units)
	}
	return geo.NewLatLon(lat, lon)
}

func clampJitter(v, limit float64) float64 {
	const eps = 1e-9
	if v > limit && v < limit+eps {
		return limit
	}
	if v < -limit && v > -limit-eps {
		return -limit
	}
	return v
}

func (s xmlCornerSector) sector() (geo.Sector, error) {
	sw, err := s.SouthWest.latLon()
	if err != nil {
		return geo.Empty, fmt.Errorf("SouthWest corner: %w", err)
	}
	ne, err := s.NorthEast.latLon()
	if err != nil {
		return geo.Empty, fmt.Errorf("NorthEast corner: %w", err)
	}
	return geo.NewSector(sw.Lat.Degrees(), ne.Lat.Degrees(), sw.Lon.Degrees(), ne.Lon.Degrees())
}

// installRasterServerConfigFile writes {dataCacheName}.RasterServer.xml,
// only when a serviceName is configured (i.e. the dataset is network-backed
// rather than offline-only).
func (d *Driver) installRasterServerConfigFile(_ string) error {
	items := make([]rasterServerItem, 0, d.catalog.Len())
	for _, e := range d.catalog.Entries() {
		items = append(items, rasterServerItem{
			Path:   e.Ref.String(),
			Sector: cornerSectorToXML(e.Sector()),
		})
	}
	desc := rasterServerDescriptor{
		DisplayName: displayNameOrDefault(d.cfg.DisplayName, d.cfg.DatasetName),
		CacheName:   d.cfg.DataCacheName,
		Sources:     items,
	}
	path := filepath.Join(d.cfg.FileStoreLocation, d.cfg.DataCacheName+".RasterServer.xml")
	return writeXMLFile(path, desc)
}

// RasterServerSource is one parsed {path, sector} catalog entry.
type RasterServerSource struct {
	Path   string
	Sector geo.Sector
}

// RasterServerCatalog is the parsed form of a RasterServer.xml document.
type RasterServerCatalog struct {
	DisplayName string
	CacheName   string
	Sources     []RasterServerSource
}

// ReadRasterServerConfigFile parses a {dataCacheName}.RasterServer.xml
// document. Sector corners may be expressed in radians or degrees via the
// units tag on each LatLon element.
func ReadRasterServerConfigFile(path string) (*RasterServerCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("producer: %s: %w", path, err)
	}
	var desc rasterServerDescriptor
	if err := xml.Unmarshal(data, &desc); err != nil {
		return nil, fmt.Errorf("producer: %s: %w: %v", path, pipelineerr.InvalidArgument, err)
	}
	out := &RasterServerCatalog{DisplayName: desc.DisplayName, CacheName: desc.CacheName}
	for i, item := range desc.Sources {
		sec, err := item.Sector.sector()
		if err != nil {
			return nil, fmt.Errorf("producer: %s: source %d (%s): %w", path, i, item.Path, err)
		}
		out.Sources = append(out.Sources, RasterServerSource{Path: item.Path, Sector: sec})
	}
	return out, nil
}
