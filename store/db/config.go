package db

import (
	"path/filepath"

	"github.com/pkg/errors"
)

// Backend names.
const (
	BackendLevelDB = "leveldb"
	BackendBolt    = "bolt"
	BackendPebble  = "pebble"
	BackendMem     = "memdb"
)

// Config is the config for the state database
type Config struct {
	Backend string `yaml:"backend"`
	// Dir is the directory the backend files live under. Ignored by memdb.
	Dir string `yaml:"dir"`
	// Sync forces every batch write to be flushed to stable storage.
	Sync bool `yaml:"sync"`
	// ReadOnly opens the database without write access.
	ReadOnly bool `yaml:"readOnly"`
}

// DefaultConfig is the default config
var DefaultConfig = Config{
	Backend: BackendLevelDB,
	Sync:    true,
}

// Path returns the on-disk location of the backend.
func (cfg Config) Path() string {
	if cfg.Backend == BackendBolt {
		return filepath.Join(cfg.Dir, "state.db")
	}
	return filepath.Join(cfg.Dir, cfg.Backend)
}

// New opens the backend named by cfg.Backend.
func New(cfg Config) (KVStore, error) {
	switch cfg.Backend {
	case BackendLevelDB:
		return NewLevelDB(cfg)
	case BackendBolt:
		return NewBoltDB(cfg)
	case BackendPebble:
		return NewPebbleDB(cfg)
	case BackendMem:
		return NewMemDB(), nil
	default:
		return nil, errors.Wrapf(ErrUnknownBackend, "%q", cfg.Backend)
	}
}
