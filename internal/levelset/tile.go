package levelset

import (
	"fmt"

	"github.com/geoframe/tilepyramid/internal/geo"
)

// Tile is (Sector, level index, row, column), a unit of pyramid
// composition. Its sector is the rectangle its row/column span at its
// level; row and column are non-negative integers relative to the
// LevelSet's tile origin.
type Tile struct {
	sector geo.Sector
	level  int
	row    int
	col    int
}

// NewTile constructs the Tile at (level, row, col) within ls.
func NewTile(ls *LevelSet, level, row, col int) Tile {
	lvl := ls.Levels[level]
	minLat := ls.TileOrigin.Lat.Degrees() + float64(row)*lvl.TileDelta.Lat.Degrees()
	minLon := ls.TileOrigin.Lon.Degrees() + float64(col)*lvl.TileDelta.Lon.Degrees()
	maxLat := minLat + lvl.TileDelta.Lat.Degrees()
	maxLon := minLon + lvl.TileDelta.Lon.Degrees()
	sec, err := geo.NewSector(minLat, maxLat, minLon, maxLon)
	if err != nil {
		// Tile coordinates are always derived from a validated LevelSet,
		// so a construction failure here indicates a caller bug, not bad
		// input data.
		panic(fmt.Sprintf("levelset: invalid tile sector at level %d (%d,%d): %v", level, row, col, err))
	}
	return Tile{sector: sec, level: level, row: row, col: col}
}

func (t Tile) Sector() geo.Sector { return t.sector }
func (t Tile) Level() int         { return t.level }
func (t Tile) Row() int           { return t.row }
func (t Tile) Col() int           { return t.col }

// Children returns t's four quadrant children at level+1, in the
// traversal order the compositor uses: NW, NE, SE, SW. Ties
// between quadrants are broken in this fixed order; it is stable but not
// otherwise observable.
func (t Tile) Children(ls *LevelSet) [4]Tile {
	childLevel := t.level + 1
	r0, c0 := 2*t.row, 2*t.col
	return [4]Tile{
		NewTile(ls, childLevel, r0+1, c0),   // NW
		NewTile(ls, childLevel, r0+1, c0+1), // NE
		NewTile(ls, childLevel, r0, c0+1),   // SE
		NewTile(ls, childLevel, r0, c0),     // SW
	}
}

// Path returns the tile's deterministic persistence path, relative to the
// dataset's cache directory: {level}/{row}/{row}_{col}.{suffix}, with
// zero-padded ASCII row/column integers.
func (t Tile) Path(suffix string) string {
	return fmt.Sprintf("%d/%04d/%04d_%04d%s", t.level, t.row, t.row, t.col, suffix)
}

func (t Tile) String() string {
	return fmt.Sprintf("Tile(level=%d, row=%d, col=%d)", t.level, t.row, t.col)
}
