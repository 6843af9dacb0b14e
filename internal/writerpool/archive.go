package writerpool

import (
	"bytes"
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/geoframe/tilepyramid/internal/levelset"
	"github.com/geoframe/tilepyramid/internal/pipelineerr"
	"github.com/geoframe/tilepyramid/internal/raster"
	"github.com/geoframe/tilepyramid/internal/source"
)

// ArchiveSink packages the whole pyramid as a single MBTiles-style sqlite
// file (`{dataCacheName}.tiles.db`), an alternative to DirTreeSink's loose
// directory layout. A single *sql.DB connection is shared
// by every writer-pool goroutine, serialized by a mutex, since sqlite does
// not allow concurrent writers on one connection.
type ArchiveSink struct {
	suffix string

	mu sync.Mutex
	db *sql.DB
}

// NewArchiveSink opens (creating if absent) a tiles archive at path and
// prepares its schema.
func NewArchiveSink(path, suffix string) (*ArchiveSink, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("writerpool: %s: %w: %v", path, pipelineerr.IOError, err)
	}
	const schema = `
CREATE TABLE IF NOT EXISTS tiles (
	level INTEGER NOT NULL,
	row INTEGER NOT NULL,
	col INTEGER NOT NULL,
	data BLOB NOT NULL,
	PRIMARY KEY (level, row, col)
);
CREATE TABLE IF NOT EXISTS metadata (name TEXT PRIMARY KEY, value TEXT);
`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("writerpool: %s: %w: creating schema: %v", path, pipelineerr.IOError, err)
	}
	return &ArchiveSink{suffix: suffix, db: db}, nil
}

// SetMetadata stores a dataset-level key/value pair (display name, format,
// bounds, ...), mirroring MBTiles' own metadata table.
func (a *ArchiveSink) SetMetadata(name, value string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, err := a.db.Exec(`INSERT INTO metadata(name, value) VALUES(?, ?)
		ON CONFLICT(name) DO UPDATE SET value = excluded.value`, name, value)
	return err
}

func (a *ArchiveSink) WriteTile(tile levelset.Tile, r raster.Raster) error {
	buf, err := a.encode(r)
	if err != nil {
		return fmt.Errorf("writerpool: archive: %s: %w: %v", tile, pipelineerr.IOError, err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	_, err = a.db.Exec(
		`INSERT INTO tiles(level, row, col, data) VALUES(?, ?, ?, ?)
		 ON CONFLICT(level, row, col) DO UPDATE SET data = excluded.data`,
		tile.Level(), tile.Row(), tile.Col(), buf)
	if err != nil {
		return fmt.Errorf("writerpool: archive: %s: %w: %v", tile, pipelineerr.IOError, err)
	}
	return nil
}

// encode serializes r through source.EncodeToBuffer rather than the
// filesystem-oriented Writer interface, since the archive stores encoded
// bytes as a blob rather than a file on disk.
func (a *ArchiveSink) encode(r raster.Raster) ([]byte, error) {
	var buf bytes.Buffer
	if err := source.EncodeToBuffer(&buf, r, a.suffix); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Close flushes and closes the underlying sqlite connection.
func (a *ArchiveSink) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.db.Close()
}
