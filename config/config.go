// Package config loads the node configuration from YAML files layered
// over the defaults, with ${VAR} expansion from the environment.
package config

import (
	"net"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"github.com/pkg/errors"
	uconfig "go.uber.org/config"
	"gopkg.in/yaml.v2"

	"github.com/blockberries/appcore/log"
	"github.com/blockberries/appcore/sdk"
	"github.com/blockberries/appcore/store/db"
)

// Home layout.
const (
	ConfigDir   = "config"
	DataDir     = "data"
	ConfigFile  = "config.yaml"
	GenesisFile = "genesis.json"
)

// ErrInvalidCfg indicates the invalid config value
var ErrInvalidCfg = errors.New("invalid config value")

type (
	// Config is the node configuration.
	Config struct {
		Log     log.GlobalConfig `yaml:"log"`
		Store   Store            `yaml:"store"`
		RPC     RPC              `yaml:"rpc"`
		Metrics Metrics          `yaml:"metrics"`
		App     App              `yaml:"app"`
	}

	// Store configures the state database.
	Store struct {
		DB db.Config `yaml:"db"`
		// KeepRecent is the number of committed versions kept in memory
		// for historical queries.
		KeepRecent int `yaml:"keepRecent"`
	}

	// RPC configures the protocol endpoint the consensus engine dials.
	RPC struct {
		ListenAddr string `yaml:"listenAddr"`
	}

	// Metrics configures the prometheus endpoint.
	Metrics struct {
		Enabled    bool   `yaml:"enabled"`
		ListenAddr string `yaml:"listenAddr"`
	}

	// App configures the application.
	App struct {
		// MinGasPrice is the price per gas unit mempool checks demand,
		// e.g. "1stake". Empty disables the check.
		MinGasPrice string `yaml:"minGasPrice"`
		// ChainID, if set, must match the chain the engine initializes.
		ChainID string `yaml:"chainID"`
	}

	// Validate is the interface of validating the config
	Validate func(Config) error
)

// Default is the default config
var Default = Config{
	Store: Store{
		DB:         db.DefaultConfig,
		KeepRecent: 10,
	},
	RPC: RPC{
		ListenAddr: "127.0.0.1:26658",
	},
	Metrics: Metrics{
		Enabled:    false,
		ListenAddr: "127.0.0.1:26660",
	},
}

// Validates is the collection config validation functions
var Validates = []Validate{
	ValidateStore,
	ValidateRPC,
	ValidateMetrics,
	ValidateApp,
}

// New creates a config instance. It first loads the default configs. If
// the config paths are not empty, it will read from the files and
// override the default configs. By default, it will apply all validation
// functions. To bypass validation, use DoNotValidate instead.
func New(configPaths []string, validates ...Validate) (Config, error) {
	opts := make([]uconfig.YAMLOption, 0)
	opts = append(opts, uconfig.Static(Default))
	opts = append(opts, uconfig.Expand(os.LookupEnv))
	for _, path := range configPaths {
		if path != "" {
			opts = append(opts, uconfig.File(path))
		}
	}
	provider, err := uconfig.NewYAML(opts...)
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to init config")
	}

	var cfg Config
	if err := provider.Get(uconfig.Root).Populate(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "failed to unmarshal YAML config to struct")
	}

	if len(validates) == 0 {
		validates = Validates
	}
	for _, validate := range validates {
		if err := validate(cfg); err != nil {
			return Config{}, errors.Wrap(err, "failed to validate config")
		}
	}
	return cfg, nil
}

// Load reads <home>/config/config.yaml and roots relative paths at home.
func Load(home string, validates ...Validate) (Config, error) {
	cfg, err := New([]string{filepath.Join(home, ConfigDir, ConfigFile)}, validates...)
	if err != nil {
		return Config{}, err
	}
	return cfg.WithHome(home), nil
}

// WithHome returns a copy with the data directory resolved under home.
func (cfg Config) WithHome(home string) Config {
	switch {
	case cfg.Store.DB.Dir == "":
		cfg.Store.DB.Dir = filepath.Join(home, DataDir)
	case !filepath.IsAbs(cfg.Store.DB.Dir):
		cfg.Store.DB.Dir = filepath.Join(home, cfg.Store.DB.Dir)
	}
	return cfg
}

// Write atomically replaces path with cfg encoded as YAML.
func Write(path string, cfg Config) error {
	bz, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "failed to encode config")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "failed to create %s", filepath.Dir(path))
	}
	if err := renameio.WriteFile(path, bz, 0o644); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	return nil
}

// DoNotValidate validates the given config
func DoNotValidate(cfg Config) error { return nil }

// ValidateStore validates the store config
func ValidateStore(cfg Config) error {
	switch cfg.Store.DB.Backend {
	case db.BackendLevelDB, db.BackendBolt, db.BackendPebble, db.BackendMem:
	default:
		return errors.Wrapf(ErrInvalidCfg, "unknown store backend %q", cfg.Store.DB.Backend)
	}
	if cfg.Store.KeepRecent <= 0 {
		return errors.Wrap(ErrInvalidCfg, "store keepRecent should be greater than 0")
	}
	return nil
}

// ValidateRPC validates the rpc config
func ValidateRPC(cfg Config) error {
	if _, _, err := net.SplitHostPort(cfg.RPC.ListenAddr); err != nil {
		return errors.Wrapf(ErrInvalidCfg, "rpc listen address %q: %v", cfg.RPC.ListenAddr, err)
	}
	return nil
}

// ValidateMetrics validates the metrics config
func ValidateMetrics(cfg Config) error {
	if !cfg.Metrics.Enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(cfg.Metrics.ListenAddr); err != nil {
		return errors.Wrapf(ErrInvalidCfg, "metrics listen address %q: %v", cfg.Metrics.ListenAddr, err)
	}
	if cfg.Metrics.ListenAddr == cfg.RPC.ListenAddr {
		return errors.Wrap(ErrInvalidCfg, "metrics and rpc cannot share a listen address")
	}
	return nil
}

// ValidateApp validates the application config
func ValidateApp(cfg Config) error {
	if cfg.App.MinGasPrice == "" {
		return nil
	}
	if _, err := sdk.ParseCoin(cfg.App.MinGasPrice); err != nil {
		return errors.Wrapf(ErrInvalidCfg, "min gas price %q: %v", cfg.App.MinGasPrice, err)
	}
	return nil
}
