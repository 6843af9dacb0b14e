// Command tilepyramid is the CLI driver for the tile pyramid producer and
// the ad-hoc mosaic server: a cobra root with one subcommand per operation.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "tilepyramid",
	Short: "Builds lat/lon tile pyramids from georeferenced sources",
	Long: `tilepyramid assembles georeferenced source rasters into a common
geographic coverage and produces a multi-resolution pyramid of fixed-size
tiles on disk, plus an on-demand mosaic server for ad-hoc region requests.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./tilepyramid.yaml)")
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName("tilepyramid")
	}
	viper.SetEnvPrefix("TILEPYRAMID")
	viper.AutomaticEnv()
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
