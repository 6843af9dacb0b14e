package main

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/geoframe/tilepyramid/internal/catalog"
	"github.com/geoframe/tilepyramid/internal/mosaic"
	"github.com/geoframe/tilepyramid/internal/producer"
	"github.com/geoframe/tilepyramid/internal/raster"
	"github.com/geoframe/tilepyramid/internal/rastercache"
	"github.com/geoframe/tilepyramid/internal/source"
)

var mosaicServeCmd = &cobra.Command{
	Use:   "mosaic-serve [<source-file>...]",
	Short: "Serve ad-hoc region-of-interest mosaics over HTTP",
	RunE:  runMosaicServe,
}

func init() {
	rootCmd.AddCommand(mosaicServeCmd)

	flags := mosaicServeCmd.Flags()
	flags.String("addr", ":8080", "listen address")
	flags.Int64("cache-bytes", 256<<20, "decoded-raster cache hard capacity in bytes")
	flags.String("catalog", "", "RasterServer.xml catalog descriptor to load sources from")

	for _, key := range []string{"addr", "cache-bytes", "catalog"} {
		if err := viper.BindPFlag("mosaic."+key, flags.Lookup(key)); err != nil {
			panic(fmt.Sprintf("mosaic-serve: binding flag %s: %v", key, err))
		}
	}
}

func runMosaicServe(cmd *cobra.Command, args []string) error {
	cache := rastercache.New(viper.GetInt64("mosaic.cache-bytes"))
	registry := source.DefaultReaderRegistry()
	cat := catalog.New()

	if catalogPath := viper.GetString("mosaic.catalog"); catalogPath != "" {
		rsc, err := producer.ReadRasterServerConfigFile(catalogPath)
		if err != nil {
			return fmt.Errorf("mosaic-serve: %w", err)
		}
		for _, src := range rsc.Sources {
			params := raster.NewMetadataBag()
			params.Set(raster.KeySector, src.Sector)
			if reason := catalog.Add(cat, source.Ref{Path: src.Path}, params, registry, cache); reason != "" {
				return fmt.Errorf("mosaic-serve: %s", reason)
			}
		}
	}
	for _, path := range args {
		if reason := catalog.Add(cat, source.Ref{Path: path}, nil, registry, cache); reason != "" {
			return fmt.Errorf("mosaic-serve: %s", reason)
		}
	}
	if cat.Len() == 0 {
		return fmt.Errorf("mosaic-serve: no sources offered")
	}

	composer := mosaic.New(cat)
	server := mosaic.NewServer(composer)

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	server.Routes(r)

	addr := viper.GetString("mosaic.addr")
	fmt.Printf("tilepyramid: serving mosaics for %d source(s) on %s\n", cat.Len(), addr)
	return http.ListenAndServe(addr, r)
}
