package writerpool

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/geoframe/tilepyramid/internal/levelset"
	"github.com/geoframe/tilepyramid/internal/pipelineerr"
	"github.com/geoframe/tilepyramid/internal/raster"
	"github.com/geoframe/tilepyramid/internal/source"
)

// DirTreeSink is the default Sink: it persists tiles at
// {root}/{level}/{row}/{row}_{col}.{suffix}, finding a source.Writer
// by the dataset's format suffix. Parent directories are created under a
// single mutex per sink, held only
// long enough to mkdir; tile content I/O runs unsynchronized outside it.
type DirTreeSink struct {
	root     string
	suffix   string
	registry *source.WriterRegistry

	mkdirMu sync.Mutex
	made    map[string]bool
}

// NewDirTreeSink returns a DirTreeSink rooted at root, writing tiles with
// the given suffix (e.g. ".png") via registry.
func NewDirTreeSink(root, suffix string, registry *source.WriterRegistry) *DirTreeSink {
	return &DirTreeSink{root: root, suffix: suffix, registry: registry, made: make(map[string]bool)}
}

func (d *DirTreeSink) WriteTile(tile levelset.Tile, r raster.Raster) error {
	rel := tile.Path(d.suffix)
	dest := filepath.Join(d.root, rel)

	if err := d.ensureParentDir(filepath.Dir(dest)); err != nil {
		return fmt.Errorf("writerpool: %s: %w: %v", dest, pipelineerr.IOError, err)
	}

	w, ok := d.registry.Select(r, d.suffix, dest)
	if !ok {
		return fmt.Errorf("writerpool: %s: %w: no writer for suffix %q", dest, pipelineerr.IOError, d.suffix)
	}
	if err := w.Write(r, d.suffix, dest); err != nil {
		return fmt.Errorf("writerpool: %s: %w: %v", dest, pipelineerr.IOError, err)
	}
	return nil
}

// ensureParentDir memoizes created-parent directories once mkdir succeeds,
// so the mutex is only ever contended on a genuinely new directory.
func (d *DirTreeSink) ensureParentDir(dir string) error {
	d.mkdirMu.Lock()
	defer d.mkdirMu.Unlock()
	if d.made[dir] {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	d.made[dir] = true
	return nil
}
