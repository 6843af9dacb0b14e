package source

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/geoframe/tilepyramid/internal/geo"
)

// worldFileSuffixes maps an image suffix to its conventional world-file
// sidecar suffix. The generic ".wld" is tried as a fallback for every
// format.
var worldFileSuffixes = map[string]string{
	".png":  ".pgw",
	".jpg":  ".jgw",
	".jpeg": ".jgw",
	".webp": ".wld",
}

// lookupWorldFileSector finds and parses a world-file sidecar next to ref,
// returning the sector it implies for a width x height image. ok is false
// when ref is not a local file or no sidecar exists; a sidecar that exists
// but fails to parse is an error, since a malformed world file means the
// source's georeferencing cannot be trusted.
func lookupWorldFileSector(ref Ref, width, height int) (geo.Sector, bool, error) {
	if !ref.isFile() {
		return geo.Empty, false, nil
	}
	base := strings.TrimSuffix(ref.Path, ref.Suffix())
	candidates := []string{base + ".wld"}
	if s, ok := worldFileSuffixes[ref.Suffix()]; ok && s != ".wld" {
		candidates = []string{base + s, base + ".wld"}
	}
	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		sec, err := parseWorldFile(string(data), width, height)
		if err != nil {
			return geo.Empty, false, fmt.Errorf("source: %s: %w", path, err)
		}
		return sec, true, nil
	}
	return geo.Empty, false, nil
}

// parseWorldFile evaluates the six-line ESRI world-file affine against the
// image dimensions. Lines are: x pixel size (A), y rotation (D), x rotation
// (B), y pixel size (E, negative for north-up), and the center coordinates
// of the upper-left pixel (C, F). Rotation terms must be zero — the
// resampler's affine is translation + scale only.
func parseWorldFile(text string, width, height int) (geo.Sector, error) {
	var coeffs []float64
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		v, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return geo.Empty, fmt.Errorf("world file: bad coefficient %q: %v", line, err)
		}
		coeffs = append(coeffs, v)
	}
	if len(coeffs) != 6 {
		return geo.Empty, fmt.Errorf("world file: expected 6 coefficients, got %d", len(coeffs))
	}
	a, d, b, e, c, f := coeffs[0], coeffs[1], coeffs[2], coeffs[3], coeffs[4], coeffs[5]
	if b != 0 || d != 0 {
		return geo.Empty, fmt.Errorf("world file: rotation terms must be zero, got %v/%v", b, d)
	}
	if a <= 0 || e >= 0 {
		return geo.Empty, fmt.Errorf("world file: expected positive x and negative y pixel size, got %v/%v", a, e)
	}

	// C/F locate the center of the upper-left pixel; the sector spans the
	// pixels' outer edges.
	minLon := c - a/2
	maxLon := minLon + a*float64(width)
	maxLat := f - e/2
	minLat := maxLat + e*float64(height)
	return geo.NewSector(minLat, maxLat, minLon, maxLon)
}
