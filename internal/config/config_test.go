package config

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate runs the test from an empty directory with no home config.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	t.Setenv("HOME", dir)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(New())
	require.NoError(t, err)

	assert.Equal(t, uint64(0), cfg.ImageOffset)
	assert.Equal(t, uint64(DefaultSectorSize), cfg.SectorSize)
	assert.Equal(t, DefaultMaxTreeDepth, cfg.MaxTreeDepth)
	assert.Equal(t, DefaultNodeCacheSize, cfg.NodeCacheSize)
	assert.Equal(t, DefaultPrefetchWorkers, cfg.PrefetchWorkers)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "table", cfg.OutputFormat)
	assert.False(t, cfg.ContinueOnDamage)
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigName+".yaml"), []byte(
		"image_offset: 2048\ncontinue_on_damage: true\noutput_format: json\n"), 0o600))
	t.Setenv("BTRFS_EXAMINE_SECTOR_SIZE", "4096")

	cfg, err := Load(New())
	require.NoError(t, err)

	assert.Equal(t, uint64(2048), cfg.ImageOffset)
	assert.Equal(t, uint64(4096), cfg.SectorSize)
	assert.Equal(t, uint64(2048*4096), cfg.ImageOffsetBytes())
	assert.True(t, cfg.ContinueOnDamage)
	assert.Equal(t, "json", cfg.OutputFormat)
}

func TestLoad_MalformedFile(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigName+".yaml"), []byte("image_offset: [\n"), 0o600))

	_, err := Load(New())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error reading config file")
}

func validConfig() Config {
	return Config{
		SectorSize:      512,
		ByteOrder:       "little",
		MaxTreeDepth:    8,
		NodeCacheSize:   16,
		PrefetchWorkers: 2,
		LogLevel:        "info",
		OutputFormat:    "table",
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "sector size zero", mutate: func(c *Config) { c.SectorSize = 0 }, wantErr: "sector_size"},
		{name: "sector size not power of two", mutate: func(c *Config) { c.SectorSize = 520 }, wantErr: "sector_size"},
		{name: "bad byte order", mutate: func(c *Config) { c.ByteOrder = "middle" }, wantErr: "byte_order"},
		{name: "depth too large", mutate: func(c *Config) { c.MaxTreeDepth = 9 }, wantErr: "max_tree_depth"},
		{name: "depth zero", mutate: func(c *Config) { c.MaxTreeDepth = 0 }, wantErr: "max_tree_depth"},
		{name: "negative cache", mutate: func(c *Config) { c.NodeCacheSize = -1 }, wantErr: "node_cache_size"},
		{name: "negative workers", mutate: func(c *Config) { c.PrefetchWorkers = -1 }, wantErr: "prefetch_workers"},
		{name: "bad log level", mutate: func(c *Config) { c.LogLevel = "loud" }, wantErr: "log_level"},
		{name: "bad output", mutate: func(c *Config) { c.OutputFormat = "xml" }, wantErr: "output_format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_Endian(t *testing.T) {
	tests := []struct {
		order string
		want  binary.ByteOrder
	}{
		{"little", binary.LittleEndian},
		{"LE", binary.LittleEndian},
		{"", binary.LittleEndian},
		{"big", binary.BigEndian},
		{"be", binary.BigEndian},
	}
	for _, tt := range tests {
		t.Run(tt.order, func(t *testing.T) {
			cfg := Config{ByteOrder: tt.order}
			got, err := cfg.Endian()
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
