package geo

import (
	"fmt"

	"github.com/paulmach/orb"
)

// LatLon is an immutable geographic point.
type LatLon struct {
	Lat Angle
	Lon Angle
}

// NewLatLon validates and constructs a LatLon. Latitude must be in
// [-90, 90] and longitude in [-180, 180].
func NewLatLon(lat, lon float64) (LatLon, error) {
	a, err := NewAngle(lat)
	if err != nil {
		return LatLon{}, fmt.Errorf("geo: invalid latitude: %w", err)
	}
	if a < -90 || a > 90 {
		return LatLon{}, fmt.Errorf("geo: latitude %v out of range [-90, 90]", lat)
	}
	o, err := NewAngle(lon)
	if err != nil {
		return LatLon{}, fmt.Errorf("geo: invalid longitude: %w", err)
	}
	if o < -180 || o > 180 {
		return LatLon{}, fmt.Errorf("geo: longitude %v out of range [-180, 180]", lon)
	}
	return LatLon{Lat: a, Lon: o}, nil
}

// point converts to an orb.Point (X=lon, Y=lat), the convention orb uses
// for geographic coordinates.
func (p LatLon) point() orb.Point {
	return orb.Point{p.Lon.Degrees(), p.Lat.Degrees()}
}

func (p LatLon) String() string {
	return fmt.Sprintf("(%v, %v)", p.Lat, p.Lon)
}

// Equal compares both angles bit-for-bit.
func (p LatLon) Equal(other LatLon) bool {
	return p.Lat == other.Lat && p.Lon == other.Lon
}
