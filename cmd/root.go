package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/deploymenttheory/go-btrfs/internal/config"
	"github.com/deploymenttheory/go-btrfs/pkg/app"
)

var (
	// Global output flags
	verbose    bool
	quiet      bool
	configFile string

	settings = config.New()
	appCtx   *app.Context
)

var rootCmd = &cobra.Command{
	Use:   "btrfs-examine",
	Short: "Read-only forensic examiner for btrfs metadata",
	Long: `btrfs-examine reconstructs the metadata trees of a btrfs filesystem directly
from disk images, without mounting and without trusting the kernel.

Multi-device pools are assembled from one image per device; raw, qcow2 and
split (.001, .002, ...) images are accepted. Damaged nodes can be reported
and skipped instead of aborting the scan.

Commands:
  examine     Validate the pool and decode the root tree
  ls          List a directory of the FS tree or a subvolume
  partitions  List the GPT of an image and locate btrfs partitions`,
	Version:       "0.1.0-dev",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadContext()
	},
}

// Execute runs the root command and exits with a status reflecting the error kind
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(app.ExitCode(err))
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	flags.BoolVarP(&quiet, "quiet", "q", false, "suppress output except errors")
	flags.StringVar(&configFile, "config", "", "config file (default: search for btrfs-examine.yaml)")
	flags.StringP("output", "o", "table", "output format (table, json, yaml)")
	flags.Uint64("offset", 0, "start of the filesystem inside each image, in sectors")
	flags.Uint64("sector-size", config.DefaultSectorSize, "sector size used by --offset")
	flags.String("byte-order", "little", "byte order of on-disk structures (little, big)")
	flags.Bool("continue-on-damage", false, "report and skip damaged nodes instead of stopping")
	flags.Int("max-depth", config.DefaultMaxTreeDepth, "maximum tree depth to descend")
	flags.Int("cache-size", config.DefaultNodeCacheSize, "number of decoded nodes to cache")
	flags.Int("prefetch", config.DefaultPrefetchWorkers, "concurrent child reads while walking a tree")
	rootCmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	bind(settings, map[string]string{
		"output_format":      "output",
		"image_offset":       "offset",
		"sector_size":        "sector-size",
		"byte_order":         "byte-order",
		"continue_on_damage": "continue-on-damage",
		"max_tree_depth":     "max-depth",
		"node_cache_size":    "cache-size",
		"prefetch_workers":   "prefetch",
	})
}

func bind(v *viper.Viper, keys map[string]string) {
	for key, flag := range keys {
		if err := v.BindPFlag(key, rootCmd.PersistentFlags().Lookup(flag)); err != nil {
			panic(fmt.Sprintf("binding flag %s: %v", flag, err))
		}
	}
}

func loadContext() error {
	if configFile != "" {
		settings.SetConfigFile(configFile)
	}
	cfg, err := config.Load(settings)
	if err != nil {
		return app.NewError(app.ErrCodeInvalidInput, "invalid configuration", err)
	}

	appCtx = app.NewContext(cfg)
	appCtx.Verbose = verbose
	appCtx.Quiet = quiet
	appCtx.ConfigureLogging()
	return nil
}

// imageTarget builds the image selection shared by pool commands
func imageTarget(paths []string) app.ImageTarget {
	return app.ImageTarget{
		Paths:         paths,
		OffsetSectors: appCtx.Config.ImageOffset,
		SectorSize:    appCtx.Config.SectorSize,
	}
}
