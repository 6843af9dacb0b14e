package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/geoframe/tilepyramid/internal/config"
	"github.com/geoframe/tilepyramid/internal/producer"
	"github.com/geoframe/tilepyramid/internal/progress"
	"github.com/geoframe/tilepyramid/internal/source"
)

var produceCmd = &cobra.Command{
	Use:   "produce <source-file>...",
	Short: "Build a tile pyramid from one or more georeferenced sources",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runProduce,
}

func init() {
	rootCmd.AddCommand(produceCmd)

	flags := produceCmd.Flags()
	flags.String("file-store-location", "", "root directory the dataset is written under (required)")
	flags.String("data-cache-name", "", "dataset's cache directory name, relative to file-store-location (required)")
	flags.String("dataset-name", "", "dataset name recorded in the descriptor (required)")
	flags.String("display-name", "", "human-readable display name (defaults to dataset-name)")
	flags.Int("tile-width", 0, "output tile width in pixels (default 512)")
	flags.Int("tile-height", 0, "output tile height in pixels (default 512)")
	flags.String("sector", "", "coverage sector as minLat,maxLat,minLon,maxLon (default: union of sources)")
	flags.String("tile-origin", "", "tile origin as lat,lon (default: derived)")
	flags.String("level-zero-tile-delta", "", "level-0 tile delta as latDelta,lonDelta (default: derived)")
	flags.Int("num-levels", 0, "explicit pyramid depth (default: derived from source resolution)")
	flags.Int("num-empty-levels", 0, "number of coarsest levels composed but not persisted")
	flags.Int("large-dataset-threshold", 0, "pixel-per-axis threshold that triggers a multi-level pyramid (default 3000)")
	flags.String("max-level-limit", "", "cap on pyramid depth: an integer, \"N%\", or \"Auto\" (50%)")
	flags.String("pixel-format", "IMAGE", "IMAGE or ELEVATION")
	flags.String("data-type", "", "INT8, INT16, INT32, or FLOAT32 (required for ELEVATION)")
	flags.String("byte-order", "", "BIG_ENDIAN or LITTLE_ENDIAN (default BIG_ENDIAN)")
	flags.Float64("missing-data-replacement", 0, "scalar written into empty elevation tile pixels")
	flags.String("image-format", "", "wire MIME type for output tiles (e.g. image/png)")
	flags.String("format-suffix", "", "filesystem extension for output tiles (derived from image-format if absent)")
	flags.String("service-name", "", "marks the dataset network-backed and triggers the raster-server descriptor")
	flags.String("bands-order", "", "comma-separated band permutation applied to each composed image tile")
	flags.Bool("archive", false, "package tiles into a single sqlite archive instead of a directory tree")
	flags.Int("writer-degree", 0, "writer pool concurrency (default 2)")
	flags.Int64("cache-bytes", 0, "decoded-raster cache hard capacity in bytes (default 256MiB)")
	flags.Bool("quiet", false, "suppress the progress bar")

	for _, key := range []string{
		"file-store-location", "data-cache-name", "dataset-name", "display-name",
		"tile-width", "tile-height", "sector", "tile-origin", "level-zero-tile-delta",
		"num-levels", "num-empty-levels", "large-dataset-threshold", "max-level-limit",
		"pixel-format", "data-type", "byte-order", "missing-data-replacement",
		"image-format", "format-suffix", "service-name", "bands-order",
		"archive", "writer-degree", "cache-bytes", "quiet",
	} {
		if err := viper.BindPFlag(key, flags.Lookup(key)); err != nil {
			panic(fmt.Sprintf("produce: binding flag %s: %v", key, err))
		}
	}
}

func runProduce(cmd *cobra.Command, args []string) error {
	cfg := config.Config{
		FileStoreLocation:      viper.GetString("file-store-location"),
		DataCacheName:          viper.GetString("data-cache-name"),
		DatasetName:            viper.GetString("dataset-name"),
		DisplayName:            viper.GetString("display-name"),
		TileWidth:              viper.GetInt("tile-width"),
		TileHeight:             viper.GetInt("tile-height"),
		Sector:                 viper.GetString("sector"),
		TileOrigin:             viper.GetString("tile-origin"),
		LevelZeroTileDelta:     viper.GetString("level-zero-tile-delta"),
		NumLevels:              viper.GetInt("num-levels"),
		NumEmptyLevels:         viper.GetInt("num-empty-levels"),
		LargeDatasetThreshold:  viper.GetInt("large-dataset-threshold"),
		MaxLevelLimit:          viper.GetString("max-level-limit"),
		PixelFormat:            viper.GetString("pixel-format"),
		DataType:               viper.GetString("data-type"),
		ByteOrder:              viper.GetString("byte-order"),
		MissingDataReplacement: viper.GetFloat64("missing-data-replacement"),
		HasMissingData:         viper.IsSet("missing-data-replacement"),
		ImageFormat:            viper.GetString("image-format"),
		FormatSuffix:           viper.GetString("format-suffix"),
		ServiceName:            viper.GetString("service-name"),
		BandsOrder:             viper.GetString("bands-order"),
		ArchiveOutput:          viper.GetBool("archive"),
		WriterDegree:           viper.GetInt("writer-degree"),
		CacheBytes:             viper.GetInt64("cache-bytes"),
	}

	drv := producer.New()
	if err := drv.SetStoreParameters(cfg); err != nil {
		return err
	}

	refs := make([]source.Ref, len(args))
	for i, path := range args {
		refs[i] = source.Ref{Path: path}
	}
	if reasons := drv.OfferAllDataSources(refs); len(reasons) > 0 {
		for _, reason := range reasons {
			fmt.Fprintln(os.Stderr, "tilepyramid: rejected source:", reason)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		drv.StopProduction()
	}()

	var bar *progress.Bar
	if !viper.GetBool("quiet") {
		total := int64(0)
		if ls, err := drv.BuildLevelSet(); err == nil {
			total = ls.TileCount()
		}
		bar = progress.New(cfg.DatasetName, total)
		drv.ProgressFunc = bar.Update
	}

	result, err := drv.StartProduction(ctx)
	if bar != nil {
		bar.Finish()
	}
	if err != nil {
		return err
	}

	fmt.Printf("tilepyramid: production %s complete: %d tiles composed, %d write errors\n",
		result.ProductionID, result.TilesComposed, len(result.WriteErrors))
	if result.Cancelled {
		fmt.Println("tilepyramid: production was cancelled; dataset is partial")
	}
	return nil
}
