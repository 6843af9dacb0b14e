// Package geo implements exact interval arithmetic over the sphere in
// degrees: angles, lat/lon points, and axis-aligned sectors.
package geo

import (
	"fmt"
	"math"
)

// Angle is a latitude or longitude value in degrees. It carries no unit
// ambiguity: every Angle in this package is always degrees.
type Angle float64

// NewAngle validates and constructs an Angle, rejecting NaN and infinities.
func NewAngle(degrees float64) (Angle, error) {
	if math.IsNaN(degrees) || math.IsInf(degrees, 0) {
		return 0, fmt.Errorf("geo: invalid angle %v", degrees)
	}
	return Angle(degrees), nil
}

// Degrees returns the angle's value in degrees.
func (a Angle) Degrees() float64 { return float64(a) }

// Radians returns the angle's value in radians.
func (a Angle) Radians() float64 { return float64(a) * math.Pi / 180.0 }

// Add returns a + b.
func (a Angle) Add(b Angle) Angle { return a + b }

// Sub returns a - b.
func (a Angle) Sub(b Angle) Angle { return a - b }

// MidAngle returns the exact midpoint between a and b, used by the
// compositor to split a tile into quadrant children.
func MidAngle(a, b Angle) Angle {
	return (a + b) / 2
}

// FromRadians constructs an Angle from a radian value.
func FromRadians(radians float64) Angle {
	return Angle(radians * 180.0 / math.Pi)
}

func (a Angle) String() string {
	return fmt.Sprintf("%g°", float64(a))
}
