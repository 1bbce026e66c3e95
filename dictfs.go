package dictfs

import (
	"fmt"

	"github.com/brettbedarf/dictfs/compress"
	"github.com/brettbedarf/dictfs/config"
	"github.com/brettbedarf/dictfs/internal/util"
	"github.com/brettbedarf/dictfs/store"
)

// Open opens the store rooted at root as described by cfg. A nil cfg uses
// the defaults.
func Open(root string, cfg *config.Config) (*store.Store, error) {
	opts, err := Options(cfg)
	if err != nil {
		return nil, err
	}
	return store.Open(root, opts)
}

// OpenFile is Open with the configuration read from a yaml or json override
// file applied over the defaults.
func OpenFile(root, configPath string) (*store.Store, error) {
	cfg, err := config.NewConfigFromFile(configPath)
	if err != nil {
		return nil, err
	}
	return Open(root, cfg)
}

// Options translates cfg into store options.
func Options(cfg *config.Config) (store.Options, error) {
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return store.Options{}, fmt.Errorf("invalid config: %w", err)
	}

	mode, create, err := store.ParseMode(cfg.Mode)
	if err != nil {
		return store.Options{}, err
	}
	alg, err := compress.Parse(cfg.Compression)
	if err != nil {
		return store.Options{}, err
	}
	return store.Options{
		Mode:          mode,
		Create:        create,
		CacheSize:     cfg.CacheSize,
		CodecName:     cfg.Codec,
		Compression:   alg,
		CompressLevel: cfg.CompressLevel,
	}, nil
}

// InitLogger configures the process wide logger shared by every package.
func InitLogger(cfg *config.Config) {
	level := config.DefaultLogLvl
	if cfg != nil {
		level = cfg.LogLvl
	}
	util.InitializeLogger(level)
}
