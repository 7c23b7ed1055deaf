package config

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config holds settings shared by every command
type Config struct {
	// Start of the filesystem inside each image, in sectors
	ImageOffset uint64 `mapstructure:"image_offset" yaml:"image_offset"`
	SectorSize  uint64 `mapstructure:"sector_size" yaml:"sector_size"`

	// "little" or "big"
	ByteOrder string `mapstructure:"byte_order" yaml:"byte_order"`

	ContinueOnDamage bool   `mapstructure:"continue_on_damage" yaml:"continue_on_damage"`
	MaxTreeDepth     int    `mapstructure:"max_tree_depth" yaml:"max_tree_depth"`
	NodeCacheSize    int    `mapstructure:"node_cache_size" yaml:"node_cache_size"`
	PrefetchWorkers  int    `mapstructure:"prefetch_workers" yaml:"prefetch_workers"`
	LogLevel         string `mapstructure:"log_level" yaml:"log_level"`
	OutputFormat     string `mapstructure:"output_format" yaml:"output_format"`
}

// Defaults.
const (
	DefaultSectorSize      = 512
	DefaultMaxTreeDepth    = 8
	DefaultNodeCacheSize   = 1024
	DefaultPrefetchWorkers = 4
	ConfigName             = "btrfs-examine"
	EnvPrefix              = "BTRFS_EXAMINE"
)

// New returns a viper instance with defaults, search paths and environment binding set
func New() *viper.Viper {
	v := viper.New()
	v.SetConfigName(ConfigName)
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("$HOME/.btrfs-examine")
	v.AddConfigPath("/etc/btrfs-examine")

	v.SetDefault("image_offset", 0)
	v.SetDefault("sector_size", DefaultSectorSize)
	v.SetDefault("byte_order", "little")
	v.SetDefault("continue_on_damage", false)
	v.SetDefault("max_tree_depth", DefaultMaxTreeDepth)
	v.SetDefault("node_cache_size", DefaultNodeCacheSize)
	v.SetDefault("prefetch_workers", DefaultPrefetchWorkers)
	v.SetDefault("log_level", "warn")
	v.SetDefault("output_format", "table")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the config file if one exists and decodes the merged settings
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		logrus.Debugf("using config file %s", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges
func (c *Config) Validate() error {
	if c.SectorSize == 0 || c.SectorSize&(c.SectorSize-1) != 0 {
		return fmt.Errorf("sector_size must be a power of two, got %d", c.SectorSize)
	}
	if _, err := c.Endian(); err != nil {
		return err
	}
	if c.MaxTreeDepth < 1 || c.MaxTreeDepth > DefaultMaxTreeDepth {
		return fmt.Errorf("max_tree_depth must be between 1 and %d, got %d", DefaultMaxTreeDepth, c.MaxTreeDepth)
	}
	if c.NodeCacheSize < 0 {
		return fmt.Errorf("node_cache_size must not be negative, got %d", c.NodeCacheSize)
	}
	if c.PrefetchWorkers < 0 {
		return fmt.Errorf("prefetch_workers must not be negative, got %d", c.PrefetchWorkers)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("invalid log_level: %w", err)
	}
	switch c.OutputFormat {
	case "table", "json", "yaml":
	default:
		return fmt.Errorf("unsupported output_format %q (valid: table, json, yaml)", c.OutputFormat)
	}
	return nil
}

// Endian returns the byte order named by ByteOrder
func (c *Config) Endian() (binary.ByteOrder, error) {
	switch strings.ToLower(c.ByteOrder) {
	case "", "little", "le":
		return binary.LittleEndian, nil
	case "big", "be":
		return binary.BigEndian, nil
	}
	return nil, fmt.Errorf("unsupported byte_order %q (valid: little, big)", c.ByteOrder)
}

// ImageOffsetBytes returns the image offset converted from sectors to bytes
func (c *Config) ImageOffsetBytes() uint64 {
	return c.ImageOffset * c.SectorSize
}
