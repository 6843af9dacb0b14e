// Package producer implements the production driver: the top-level
// lifecycle that validates store parameters, offers data sources into a
// catalog, builds a level set, runs the compositor against a writer pool,
// and writes the dataset's XML descriptors.
package producer

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/geoframe/tilepyramid/internal/catalog"
	"github.com/geoframe/tilepyramid/internal/compositor"
	"github.com/geoframe/tilepyramid/internal/config"
	"github.com/geoframe/tilepyramid/internal/geo"
	"github.com/geoframe/tilepyramid/internal/levelset"
	"github.com/geoframe/tilepyramid/internal/raster"
	"github.com/geoframe/tilepyramid/internal/rastercache"
	"github.com/geoframe/tilepyramid/internal/source"
	"github.com/geoframe/tilepyramid/internal/writerpool"
)

const (
	defaultTileSize            = 512
	defaultLargeDatasetPixels  = 3000
	defaultWriterDegree        = 2
	defaultCacheBytes    int64 = 256 << 20
)

// Driver runs one production. It is owned by a single goroutine: Offer and
// StartProduction calls must not race.
type Driver struct {
	cfg      config.Config
	catalog  *catalog.Catalog
	cache    *rastercache.Cache
	registry *source.ReaderRegistry
	writers  *source.WriterRegistry

	rejections []string

	compositor *compositor.Compositor
	stopped    atomic.Bool

	// ProgressFunc, if set before StartProduction, receives the
	// compositor's progress callbacks.
	ProgressFunc compositor.ProgressFunc
}

// New returns an unconfigured Driver using the default reader/writer
// registries.
func New() *Driver {
	return &Driver{
		catalog:  catalog.New(),
		registry: source.DefaultReaderRegistry(),
		writers:  source.DefaultWriterRegistry(),
	}
}

// SetStoreParameters validates and stores cfg. The cache budget, if unset,
// defaults to 256 MiB.
func (d *Driver) SetStoreParameters(cfg config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if cfg.TileWidth <= 0 {
		cfg.TileWidth = defaultTileSize
	}
	if cfg.TileHeight <= 0 {
		cfg.TileHeight = defaultTileSize
	}
	if cfg.LargeDatasetThreshold <= 0 {
		cfg.LargeDatasetThreshold = defaultLargeDatasetPixels
	}
	if cfg.WriterDegree <= 0 {
		cfg.WriterDegree = defaultWriterDegree
	}
	cacheBytes := cfg.CacheBytes
	if cacheBytes <= 0 {
		cacheBytes = defaultCacheBytes
	}
	d.cfg = cfg
	d.cache = rastercache.New(cacheBytes)
	return nil
}

// OfferDataSource validates ref by finding a reader for it and, if
// successful, appends it to the catalog. params, if non-nil, seeds the
// source's metadata — the sector for formats without embedded
// georeferencing, a per-source missing-data signal, and so on. A rejected
// source is reported as a human-readable reason rather than an error, so
// OfferAllDataSources can continue past it.
func (d *Driver) OfferDataSource(ref source.Ref, params *raster.MetadataBag) (rejectReason string) {
	return catalog.Add(d.catalog, ref, params, d.registry, d.cache)
}

// OfferAllDataSources offers every ref with no per-source params,
// collecting rejection reasons without aborting.
func (d *Driver) OfferAllDataSources(refs []source.Ref) []string {
	var reasons []string
	for _, ref := range refs {
		if reason := d.OfferDataSource(ref, nil); reason != "" {
			reasons = append(reasons, reason)
			d.rejections = append(d.rejections, reason)
		}
	}
	return reasons
}

// Rejections returns every source-offer rejection reason accumulated so
// far.
func (d *Driver) Rejections() []string { return d.rejections }

// Catalog exposes the underlying catalog, e.g. for wiring a mosaic.Composer
// over the same sources.
func (d *Driver) Catalog() *catalog.Catalog { return d.catalog }

// StopProduction sets the monotonic stopped flag the compositor observes.
// Safe to call at any time, including before StartProduction.
func (d *Driver) StopProduction() {
	d.stopped.Store(true)
	if d.compositor != nil {
		d.compositor.Stop()
	}
}

// Result summarizes a completed (or cancelled) production run.
type Result struct {
	ProductionID   string
	LevelSet       *levelset.LevelSet
	TilesComposed  int64
	WriteErrors    []error
	Cancelled      bool
}

// StartProduction runs the production lifecycle: derive the large-dataset
// policy from the offered catalog, build the level set, run the compositor,
// wait for outstanding tile writes, clear the cache, and write the XML
// descriptors. On a failure of the compositor or of a descriptor write it
// rolls back by deleting the dataset's install location
// ({fileStoreLocation}/{dataCacheName}); a sqlite archive written beside it
// is not deleted.
func (d *Driver) StartProduction(ctx context.Context) (*Result, error) {
	if d.catalog.Len() == 0 {
		return &Result{ProductionID: uuid.NewString()}, nil
	}

	productionID := uuid.NewString()
	installDir := filepath.Join(d.cfg.FileStoreLocation, d.cfg.DataCacheName)

	ls, err := d.buildLevelSet()
	if err != nil {
		return nil, err
	}

	sink, closeSink, err := d.buildSink(installDir)
	if err != nil {
		return nil, err
	}
	pool := writerpool.New(sink, d.cfg.WriterDegree)

	spec, err := d.canvasSpec()
	if err != nil {
		return nil, err
	}

	d.compositor = compositor.New(d.catalog, ls, pool, spec, d.ProgressFunc)
	if d.stopped.Load() {
		d.compositor.Stop()
	}

	if err := d.compositor.Run(ctx); err != nil {
		closeSink()
		if rmErr := os.RemoveAll(installDir); rmErr != nil {
			log.Printf("producer: SEVERE: rollback of %s failed: %v", installDir, rmErr)
		}
		return nil, fmt.Errorf("producer: %w", err)
	}
	closeSink()

	d.cache.Clear()

	if err := d.installConfigFile(ls, productionID); err != nil {
		if rmErr := os.RemoveAll(installDir); rmErr != nil {
			log.Printf("producer: SEVERE: rollback of %s failed: %v", installDir, rmErr)
		}
		return nil, fmt.Errorf("producer: installing dataset descriptor: %w", err)
	}
	if d.cfg.ServiceName != "" {
		if err := d.installRasterServerConfigFile(productionID); err != nil {
			if rmErr := os.RemoveAll(installDir); rmErr != nil {
				log.Printf("producer: SEVERE: rollback of %s failed: %v", installDir, rmErr)
			}
			return nil, fmt.Errorf("producer: installing raster-server descriptor: %w", err)
		}
	}

	return &Result{
		ProductionID:  productionID,
		LevelSet:      ls,
		TilesComposed: d.compositor.TilesComposed(),
		WriteErrors:   pool.Errors(),
		Cancelled:     d.stopped.Load(),
	}, nil
}

// buildSink selects the persistence target: the loose directory tree by
// default, or the single-file sqlite archive when archiveOutput is set.
func (d *Driver) buildSink(installDir string) (writerpool.Sink, func(), error) {
	suffix := d.cfg.ResolvedFormatSuffix()
	if !d.cfg.ArchiveOutput {
		return writerpool.NewDirTreeSink(installDir, suffix, d.writers), func() {}, nil
	}
	archivePath := filepath.Join(d.cfg.FileStoreLocation, d.cfg.DataCacheName+".tiles.db")
	if err := os.MkdirAll(d.cfg.FileStoreLocation, 0o755); err != nil {
		return nil, nil, fmt.Errorf("producer: %s: %w", archivePath, err)
	}
	archive, err := writerpool.NewArchiveSink(archivePath, suffix)
	if err != nil {
		return nil, nil, err
	}
	for name, value := range map[string]string{
		"name":   d.cfg.DatasetName,
		"format": suffix,
	} {
		if err := archive.SetMetadata(name, value); err != nil {
			archive.Close()
			return nil, nil, fmt.Errorf("producer: %s: writing metadata: %w", archivePath, err)
		}
	}
	return archive, func() {
		if err := archive.Close(); err != nil {
			log.Printf("producer: SEVERE: closing %s: %v", archivePath, err)
		}
	}, nil
}

// canvasSpec resolves the compositor's canvas parameters from the store
// configuration.
func (d *Driver) canvasSpec() (compositor.CanvasSpec, error) {
	dataType, err := d.cfg.ResolvedDataType()
	if err != nil {
		return compositor.CanvasSpec{}, err
	}
	byteOrder, err := d.cfg.ResolvedByteOrder()
	if err != nil {
		return compositor.CanvasSpec{}, err
	}
	bandsOrder, err := d.cfg.ResolvedBandsOrder()
	if err != nil {
		return compositor.CanvasSpec{}, err
	}
	return compositor.CanvasSpec{
		Kind:                   d.cfg.Kind(),
		DataType:               dataType,
		ByteOrder:              byteOrder,
		MissingDataReplacement: d.cfg.MissingDataReplacement,
		HasMissingData:         d.cfg.HasMissingData,
		BandsOrder:             bandsOrder,
	}, nil
}

// BuildLevelSet runs the assembleDataRasters/initLevelSetParameters
// steps in isolation, so a caller (the CLI's progress bar) can learn the
// planned tile count before StartProduction actually runs the compositor.
// StartProduction calls this again internally; it is a pure function of
// the catalog and config, safe to call more than once.
func (d *Driver) BuildLevelSet() (*levelset.LevelSet, error) {
	return d.buildLevelSet()
}

func (d *Driver) buildLevelSet() (*levelset.LevelSet, error) {
	var sector geo.Sector
	if d.cfg.Sector == "" {
		// No explicit coverage configured: derive it from the offered
		// sources' union, the default (an explicit "sector" key
		// still wins, including an explicit full-sphere request).
		sector = d.catalog.Coverage()
	} else {
		var err error
		sector, err = d.cfg.ResolvedSector()
		if err != nil {
			return nil, err
		}
	}

	origin, hasOrigin, err := d.cfg.ResolvedTileOrigin()
	if err != nil {
		return nil, err
	}
	levelZero, hasLevelZero, err := d.cfg.ResolvedLevelZeroDelta()
	if err != nil {
		return nil, err
	}

	_, pointPixel := pixelConvention(d.cfg.Kind())
	minLat, minLon := d.catalog.SmallestSourcePixelSize()

	return levelset.Build(levelset.Params{
		Coverage:                sector,
		TileWidth:               d.cfg.TileWidth,
		TileHeight:              d.cfg.TileHeight,
		TileOrigin:              origin,
		HasOrigin:               hasOrigin,
		LevelZeroDelta:          levelZero,
		HasLevelZero:            hasLevelZero,
		ExplicitNumLevels:       d.cfg.NumLevels,
		LargeDataset:            d.catalog.LargestSourcePixelCount() > d.cfg.LargeDatasetThreshold,
		SmallestSourcePixelSize: levelset.Delta{Lat: minLat, Lon: minLon},
		PointPixel:              pointPixel,
		MaxLevelLimit:           d.cfg.MaxLevelLimit,
		NumEmptyLevels:          d.cfg.NumEmptyLevels,
	})
}

func pixelConvention(kind raster.Kind) (finiteArea, pointPixel bool) {
	if kind == raster.KindScalar {
		return false, true
	}
	return true, false
}
