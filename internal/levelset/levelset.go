// Package levelset computes the geographic tile grid: the number of
// pyramid levels, the level-zero tile delta, tile dimensions, tile origin,
// and the row/column integer coordinates of every tile at every level.
package levelset

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/geoframe/tilepyramid/internal/geo"
	"github.com/geoframe/tilepyramid/internal/pipelineerr"
)

// Delta is a per-axis tile extent in degrees. Most datasets use square
// tiles (Lat == Lon), but the two axes are tracked independently because a
// non-square coverage sector can legitimately need different per-axis
// spans, mirroring the source system's LatLon-valued tile delta.
type Delta struct {
	Lat, Lon geo.Angle
}

func (d Delta) Halved() Delta {
	return Delta{Lat: d.Lat / 2, Lon: d.Lon / 2}
}

// Level is one rung of the pyramid.
type Level struct {
	Index                 int
	TileWidth, TileHeight int
	TileDelta             Delta
	// Empty marks a level whose tiles are composed (to feed the next level
	// up) but never persisted to the writer pool.
	Empty bool
}

// LevelSet is the complete, immutable pyramid description for a dataset.
type LevelSet struct {
	Levels         []Level
	Coverage       geo.Sector
	TileOrigin     geo.LatLon
	LevelZeroDelta Delta
}

// Final returns the deepest level, the one the compositor draws source
// rasters onto directly.
func (ls *LevelSet) Final() Level { return ls.Levels[len(ls.Levels)-1] }

// divisorLadder lists integral divisors of both 180 and 360, descending,
// used by the global-limit repair to snap a non-dividing
// levelZeroDelta down to one that tiles the whole sphere exactly.
var divisorLadder = []geo.Angle{180, 90, 60, 45, 36, 30, 20, 18, 15, 12, 10, 9, 6, 5, 4, 3, 2, 1}

// level0TileSpanDegrees bounds the default level-zero tile span so a
// full-sphere dataset gets a reasonably fine starting grid (5 rows x 10
// columns at 36 degrees) instead of one giant degenerate tile.
const level0TileSpanDegrees = 36

func snapToLadder(guess geo.Angle) geo.Angle {
	for _, d := range divisorLadder {
		if d <= guess {
			return d
		}
	}
	return divisorLadder[len(divisorLadder)-1]
}

// Params are the inputs to Build.
type Params struct {
	Coverage   geo.Sector
	TileWidth  int
	TileHeight int

	// TileOrigin is used only when HasOrigin is set; otherwise the origin
	// is Coverage's min corner. A Coverage spanning the full sphere is
	// always anchored at (-90,-180), whatever TileOrigin holds.
	TileOrigin geo.LatLon
	HasOrigin  bool

	// LevelZeroDelta is used only when HasLevelZero is set; otherwise it is
	// derived from Coverage. For a full-sphere Coverage the delta, given or
	// derived, is snapped to the divisor ladder.
	LevelZeroDelta Delta
	HasLevelZero   bool

	// ExplicitNumLevels, if > 0, is used as-is (no derivation).
	ExplicitNumLevels int

	// LargeDataset is true iff any source's pixel count on either axis
	// exceeds LargeDatasetThreshold (computed by the caller from the
	// offered sources).
	LargeDataset bool

	// SmallestSourcePixelSize is the finest per-pixel degree span among
	// offered sources, used to derive the deepest level's tile delta.
	SmallestSourcePixelSize Delta

	// PointPixel selects the "elevations are at cell centers" convention
	// (len-1 denominator) over the finite-area image convention when
	// deriving the last-level delta from pixel size x tile dimension.
	PointPixel bool

	// MaxLevelLimit is "", an integer string, "Auto", or "N%".
	MaxLevelLimit string

	NumEmptyLevels int
}

// Build constructs a LevelSet
func Build(p Params) (*LevelSet, error) {
	if p.Coverage.IsEmpty() {
		return nil, fmt.Errorf("levelset: %w: coverage sector is empty", pipelineerr.InvalidArgument)
	}
	if p.TileWidth < 1 || p.TileHeight < 1 {
		return nil, fmt.Errorf("levelset: %w: tile dimensions must be >= 1", pipelineerr.InvalidArgument)
	}

	isFullSphere := p.Coverage.MinLat() <= -90 && p.Coverage.MaxLat() >= 90 &&
		p.Coverage.MinLon() <= -180 && p.Coverage.MaxLon() >= 180

	levelZero := p.LevelZeroDelta
	if !p.HasLevelZero {
		guessLat := p.Coverage.DeltaLat()
		guessLon := p.Coverage.DeltaLon()
		divLat := math.Ceil(guessLat.Degrees() / level0TileSpanDegrees)
		divLon := math.Ceil(guessLon.Degrees() / level0TileSpanDegrees)
		if divLat < 1 {
			divLat = 1
		}
		if divLon < 1 {
			divLon = 1
		}
		levelZero = Delta{
			Lat: geo.Angle(guessLat.Degrees() / divLat),
			Lon: geo.Angle(guessLon.Degrees() / divLon),
		}
	}

	origin := p.TileOrigin
	if isFullSphere {
		// Global-limit repair: snap to an integral divisor of
		// 180/360 and re-anchor at the canonical corner.
		levelZero = Delta{Lat: snapToLadder(levelZero.Lat), Lon: snapToLadder(levelZero.Lon)}
		origin = geo.LatLon{Lat: -90, Lon: -180}
	} else if !p.HasOrigin {
		origin = geo.LatLon{Lat: p.Coverage.MinLat(), Lon: p.Coverage.MinLon()}
	}

	numLevels := p.ExplicitNumLevels
	if numLevels <= 0 {
		numLevels = 1
		if p.LargeDataset {
			tileDimLon, tileDimLat := float64(p.TileWidth), float64(p.TileHeight)
			if p.PointPixel {
				tileDimLon, tileDimLat = float64(p.TileWidth-1), float64(p.TileHeight-1)
				if tileDimLon < 1 {
					tileDimLon = 1
				}
				if tileDimLat < 1 {
					tileDimLat = 1
				}
			}
			lastLon := p.SmallestSourcePixelSize.Lon.Degrees() * tileDimLon
			lastLat := p.SmallestSourcePixelSize.Lat.Degrees() * tileDimLat
			halvingsLat, halvingsLon := 0.0, 0.0
			if lastLat > 0 {
				halvingsLat = math.Ceil(math.Log2(levelZero.Lat.Degrees() / lastLat))
			}
			if lastLon > 0 {
				halvingsLon = math.Ceil(math.Log2(levelZero.Lon.Degrees() / lastLon))
			}
			n := int(math.Max(halvingsLat, halvingsLon)) + 1
			if n > numLevels {
				numLevels = n
			}
		}
	}

	numLevels, err := applyMaxLevelLimit(numLevels, p.MaxLevelLimit)
	if err != nil {
		return nil, err
	}
	if numLevels < 1 {
		numLevels = 1
	}

	levels := make([]Level, numLevels)
	delta := levelZero
	for i := 0; i < numLevels; i++ {
		levels[i] = Level{
			Index:      i,
			TileWidth:  p.TileWidth,
			TileHeight: p.TileHeight,
			TileDelta:  delta,
			Empty:      i < p.NumEmptyLevels,
		}
		delta = delta.Halved()
	}

	return &LevelSet{
		Levels:         levels,
		Coverage:       p.Coverage,
		TileOrigin:     origin,
		LevelZeroDelta: levelZero,
	}, nil
}

// applyMaxLevelLimit parses and applies the maxLevelLimit config key: a
// bare integer is the most specific form and wins over a percentage; "Auto"
// is treated as a 50% cap.
func applyMaxLevelLimit(computed int, limit string) (int, error) {
	limit = strings.TrimSpace(limit)
	if limit == "" {
		return computed, nil
	}
	if strings.EqualFold(limit, "Auto") {
		return capByPercent(computed, 50), nil
	}
	if strings.HasSuffix(limit, "%") {
		pctStr := strings.TrimSuffix(limit, "%")
		pct, err := strconv.Atoi(strings.TrimSpace(pctStr))
		if err != nil {
			return 0, fmt.Errorf("levelset: %w: invalid maxLevelLimit percentage %q", pipelineerr.InvalidArgument, limit)
		}
		return capByPercent(computed, pct), nil
	}
	n, err := strconv.Atoi(limit)
	if err != nil {
		return 0, fmt.Errorf("levelset: %w: invalid maxLevelLimit %q", pipelineerr.InvalidArgument, limit)
	}
	if n < computed {
		return n, nil
	}
	return computed, nil
}

func capByPercent(computed, pct int) int {
	capped := int(math.Round(float64(computed) * float64(pct) / 100.0))
	if capped < 1 {
		capped = 1
	}
	if capped > computed {
		return computed
	}
	return capped
}

// RowRange returns the inclusive [firstRow, lastRow] of tiles at level
// covering ls.Coverage.
func (ls *LevelSet) RowRange(level Level) (first, last int) {
	first = geo.ComputeRow(level.TileDelta.Lat, ls.Coverage.MinLat(), ls.TileOrigin.Lat)
	last = geo.ComputeRow(level.TileDelta.Lat, ls.Coverage.MaxLat(), ls.TileOrigin.Lat)
	// A coverage edge that lands exactly on a tile boundary must not pull
	// in an extra empty row beyond the edge.
	edgeMinLat := ls.TileOrigin.Lat.Degrees() + float64(last)*level.TileDelta.Lat.Degrees()
	if edgeMinLat >= ls.Coverage.MaxLat().Degrees() && last > first {
		last--
	}
	return first, last
}

// ColumnRange returns the inclusive [firstCol, lastCol] of tiles at level
// covering ls.Coverage.
func (ls *LevelSet) ColumnRange(level Level) (first, last int) {
	first = geo.ComputeColumn(level.TileDelta.Lon, ls.Coverage.MinLon(), ls.TileOrigin.Lon)
	last = geo.ComputeColumn(level.TileDelta.Lon, ls.Coverage.MaxLon(), ls.TileOrigin.Lon)
	edgeMinLon := ls.TileOrigin.Lon.Degrees() + float64(last)*level.TileDelta.Lon.Degrees()
	if edgeMinLon >= ls.Coverage.MaxLon().Degrees() && last > first {
		last--
	}
	return first, last
}

func (ls *LevelSet) tileSector(level Level, row, col int) (geo.Sector, bool) {
	minLat := ls.TileOrigin.Lat.Degrees() + float64(row)*level.TileDelta.Lat.Degrees()
	minLon := ls.TileOrigin.Lon.Degrees() + float64(col)*level.TileDelta.Lon.Degrees()
	maxLat := minLat + level.TileDelta.Lat.Degrees()
	maxLon := minLon + level.TileDelta.Lon.Degrees()
	sec, err := geo.NewSector(minLat, maxLat, minLon, maxLon)
	return sec, err == nil
}

// TileCount returns the total number of tiles across every level in ls, the
// compositor's progress denominator.
func (ls *LevelSet) TileCount() int64 {
	var total int64
	for _, lvl := range ls.Levels {
		firstRow, lastRow := ls.RowRange(lvl)
		firstCol, lastCol := ls.ColumnRange(lvl)
		total += int64(lastRow-firstRow+1) * int64(lastCol-firstCol+1)
	}
	return total
}
