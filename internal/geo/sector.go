package geo

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// Sector is an immutable axis-aligned latitude/longitude rectangle.
// Internally it is backed by an orb.Bound (X=longitude, Y=latitude), reusing
// paulmach/orb's point type for the corners while this package owns the
// degree-exact invariants orb itself does not enforce (latitude range,
// antimeridian handling, bit-exact equality).
type Sector struct {
	bound orb.Bound
}

// Empty is the designated zero-area sector representing "no coverage".
// It sorts as having zero delta on both axes and never intersects anything,
// including itself at a different location.
var Empty = Sector{bound: orb.Bound{Min: orb.Point{0, 0}, Max: orb.Point{0, 0}}}

// FullSphere is the sector spanning the entire globe.
var FullSphere = mustNewSector(-90, 90, -180, 180)

// NewSector validates and constructs a Sector from min/max lat/lon in
// degrees. Returns an error if min > max on either axis or any angle is
// invalid.
func NewSector(minLat, maxLat, minLon, maxLon float64) (Sector, error) {
	lo, err := NewLatLon(minLat, minLon)
	if err != nil {
		return Sector{}, fmt.Errorf("geo: sector min corner: %w", err)
	}
	hi, err := NewLatLon(maxLat, maxLon)
	if err != nil {
		return Sector{}, fmt.Errorf("geo: sector max corner: %w", err)
	}
	if minLat > maxLat {
		return Sector{}, fmt.Errorf("geo: sector minLat %v > maxLat %v", minLat, maxLat)
	}
	if minLon > maxLon {
		return Sector{}, fmt.Errorf("geo: sector minLon %v > maxLon %v", minLon, maxLon)
	}
	return Sector{bound: orb.Bound{Min: lo.point(), Max: hi.point()}}, nil
}

func mustNewSector(minLat, maxLat, minLon, maxLon float64) Sector {
	s, err := NewSector(minLat, maxLat, minLon, maxLon)
	if err != nil {
		panic(err)
	}
	return s
}

// MinLat, MaxLat, MinLon, MaxLon are the four rectangle edges in degrees.
func (s Sector) MinLat() Angle { return Angle(s.bound.Min[1]) }
func (s Sector) MaxLat() Angle { return Angle(s.bound.Max[1]) }
func (s Sector) MinLon() Angle { return Angle(s.bound.Min[0]) }
func (s Sector) MaxLon() Angle { return Angle(s.bound.Max[0]) }

// DeltaLat returns maxLat - minLat in degrees.
func (s Sector) DeltaLat() Angle { return s.MaxLat().Sub(s.MinLat()) }

// DeltaLon returns maxLon - minLon in degrees.
func (s Sector) DeltaLon() Angle { return s.MaxLon().Sub(s.MinLon()) }

// IsEmpty reports whether the sector has zero area on either axis.
func (s Sector) IsEmpty() bool {
	return s.DeltaLat() <= 0 || s.DeltaLon() <= 0
}

// CrossesAntimeridian reports whether the sector's longitude span, taken
// literally (minLon, maxLon with minLon <= maxLon by construction), would
// represent a wrap if re-expressed the other way around the sphere. Under
// this model (no reprojection) a Sector never straddles the
// antimeridian implicitly — minLon <= maxLon always holds by construction —
// so this reports the degenerate case of a sector touching both edges of
// the full longitude range, which callers should treat as "spans the whole
// sphere in longitude", not as a wrap.
func (s Sector) CrossesAntimeridian() bool {
	return s.MinLon() <= -180 && s.MaxLon() >= 180
}

// Intersects returns true iff both axes of the intersection have strictly
// positive extent. Edge-only contact (touching but zero-area) returns
// false.
func (s Sector) Intersects(other Sector) bool {
	inter, ok := s.Intersection(other)
	if !ok {
		return false
	}
	return inter.DeltaLat() > 0 && inter.DeltaLon() > 0
}

// Intersection returns the coordinate-wise clamp of the two sectors, and
// false if the axes do not overlap at all (disjoint).
func (s Sector) Intersection(other Sector) (Sector, bool) {
	minLat := math.Max(s.MinLat().Degrees(), other.MinLat().Degrees())
	maxLat := math.Min(s.MaxLat().Degrees(), other.MaxLat().Degrees())
	minLon := math.Max(s.MinLon().Degrees(), other.MinLon().Degrees())
	maxLon := math.Min(s.MaxLon().Degrees(), other.MaxLon().Degrees())
	if minLat > maxLat || minLon > maxLon {
		return Empty, false
	}
	sec, err := NewSector(minLat, maxLat, minLon, maxLon)
	if err != nil {
		return Empty, false
	}
	return sec, true
}

// Union returns the smallest enclosing Sector. Union(Empty, s) == s.
func Union(a, b Sector) Sector {
	if a == Empty {
		return b
	}
	if b == Empty {
		return a
	}
	minLat := math.Min(a.MinLat().Degrees(), b.MinLat().Degrees())
	maxLat := math.Max(a.MaxLat().Degrees(), b.MaxLat().Degrees())
	minLon := math.Min(a.MinLon().Degrees(), b.MinLon().Degrees())
	maxLon := math.Max(a.MaxLon().Degrees(), b.MaxLon().Degrees())
	return mustNewSector(minLat, maxLat, minLon, maxLon)
}

// Equal compares the four corner angles bit-for-bit (exact, not within
// tolerance).
func (s Sector) Equal(other Sector) bool {
	return s.bound == other.bound
}

func (s Sector) String() string {
	return fmt.Sprintf("Sector[lat %v..%v, lon %v..%v]", s.MinLat(), s.MaxLat(), s.MinLon(), s.MaxLon())
}

// computeIndex returns floor((value - origin) / delta), the row or column index
// whose sector spans [row*delta, (row+1)*delta) relative to origin.
func computeIndex(value, origin, delta float64) int {
	return int(math.Floor((value - origin) / delta))
}

// ComputeRow returns the row index for a latitude under the given tile
// delta and origin.
func ComputeRow(tileDeltaLat Angle, lat Angle, originLat Angle) int {
	return computeIndex(lat.Degrees(), originLat.Degrees(), tileDeltaLat.Degrees())
}

// ComputeColumn returns the column index for a longitude under the given
// tile delta and origin.
func ComputeColumn(tileDeltaLon Angle, lon Angle, originLon Angle) int {
	return computeIndex(lon.Degrees(), originLon.Degrees(), tileDeltaLon.Degrees())
}
