package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/brettbedarf/dictfs/internal/util"
	"gopkg.in/yaml.v3"
)

// Default configuration constants. See [Config] for field descriptions.
const (
	// DefaultMode opens stores read-only
	DefaultMode = "r"

	// DefaultCacheSize is the number of entries kept by a store's own cache
	DefaultCacheSize = 128

	// DefaultCodec is the registry name of the serialization codec
	DefaultCodec = "cbor"

	// DefaultCompression is the compression algorithm applied to leaf files
	DefaultCompression = "gzip"

	// DefaultCompressLevel mirrors gzip's best compression. 0 disables compression.
	DefaultCompressLevel = 9

	// MaxCompressLevel is the highest level accepted by every supported algorithm
	MaxCompressLevel = 9

	DefaultLogLvl = util.InfoLevel
)

// Config contains runtime configuration values for opening a store.
type Config struct {
	Mode          string        // Access mode: "r" read-only, "w" writable, "c" writable and create root (Default "r")
	CacheSize     int           // Max cached entries per owned cache (Default 128)
	Codec         string        // Serialization codec name from the codec registry (Default "cbor")
	Compression   string        // Compression algorithm: none, gzip, zstd, lz4 (Default "gzip")
	CompressLevel int           // 0 disables compression, 1-9 (Default 9)
	LogLvl        util.LogLevel // Log level (Default info)
}

// ConfigOverride uses pointer fields to distinguish between unset and zero values
// when loading partial configuration. See [Config] for field descriptions.
type ConfigOverride struct {
	Mode          *string        `yaml:"mode,omitempty" json:"mode,omitempty"`
	CacheSize     *int           `yaml:"cache_size,omitempty" json:"cache_size,omitempty"`
	Codec         *string        `yaml:"codec,omitempty" json:"codec,omitempty"`
	Compression   *string        `yaml:"compression,omitempty" json:"compression,omitempty"`
	CompressLevel *int           `yaml:"compress_level,omitempty" json:"compress_level,omitempty"`
	LogLvl        *util.LogLevel `yaml:"log_level,omitempty" json:"log_level,omitempty"`
}

// NewDefaultConfig creates a new Config with all default values.
func NewDefaultConfig() *Config {
	return &Config{
		Mode:          DefaultMode,
		CacheSize:     DefaultCacheSize,
		Codec:         DefaultCodec,
		Compression:   DefaultCompression,
		CompressLevel: DefaultCompressLevel,
		LogLvl:        DefaultLogLvl,
	}
}

// NewConfig creates a default Config and applies override if it is not nil.
func NewConfig(override *ConfigOverride) *Config {
	cfg := NewDefaultConfig()
	if override != nil {
		cfg.Merge(override)
	}
	return cfg
}

// Merge applies non-nil values from override onto this Config.
// This allows partial configuration updates while preserving existing values.
// Out of range compression levels are clamped to [0, MaxCompressLevel].
func (c *Config) Merge(override *ConfigOverride) {
	if override.Mode != nil {
		c.Mode = *override.Mode
	}
	if override.CacheSize != nil {
		c.CacheSize = *override.CacheSize
	}
	if override.Codec != nil {
		c.Codec = *override.Codec
	}
	if override.Compression != nil {
		c.Compression = *override.Compression
	}
	if override.CompressLevel != nil {
		c.CompressLevel = util.Clamp(*override.CompressLevel, 0, MaxCompressLevel)
	}
	if override.LogLvl != nil {
		c.LogLvl = *override.LogLvl
	}
}

// Validate reports obviously unusable values. Codec and compression names are
// resolved (and validated) when the store is opened.
func (c *Config) Validate() error {
	if c.CacheSize < 1 {
		return fmt.Errorf("cache size must be positive: %d", c.CacheSize)
	}
	if c.Codec == "" {
		return fmt.Errorf("codec name is required")
	}
	return nil
}

// LoadConfigOverrideFile loads configuration overrides from a file without merging.
// Supports both YAML (.yaml, .yml) and JSON (.json) formats.
func LoadConfigOverrideFile(path string) (*ConfigOverride, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var override ConfigOverride

	// Determine format by file extension
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &override); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown config file extension: %s", path)
	}

	return &override, nil
}

// NewConfigFromFile creates a new Config by merging file overrides with defaults.
func NewConfigFromFile(path string) (*Config, error) {
	override, err := LoadConfigOverrideFile(path)
	if err != nil {
		return nil, err
	}
	return NewConfig(override), nil
}
