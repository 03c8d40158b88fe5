// Package log holds the process-wide zap loggers. Components accept an
// explicit *zap.Logger and fall back to L() when none is given.
package log

import (
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// GlobalConfig defines the global logger configuration.
type GlobalConfig struct {
	Zap *zap.Config `json:"zap" yaml:"zap"`
	// SubLoggers maps a component name to its own level, e.g. "store": "debug".
	SubLoggers map[string]string `json:"subLoggers" yaml:"subLoggers"`
}

var (
	_logMu      sync.RWMutex
	_logger     = zap.NewNop()
	_subLoggers = map[string]*zap.Logger{}
)

func init() {
	zapCfg := zap.NewProductionConfig()
	l, err := zapCfg.Build()
	if err != nil {
		return
	}
	_logger = l
}

// L returns the global logger.
func L() *zap.Logger {
	_logMu.RLock()
	defer _logMu.RUnlock()
	return _logger
}

// S returns the global sugared logger.
func S() *zap.SugaredLogger { return L().Sugar() }

// Logger returns the named sub logger, or a named child of the global
// logger if no sub logger with that name was configured.
func Logger(name string) *zap.Logger {
	_logMu.RLock()
	defer _logMu.RUnlock()
	if l, ok := _subLoggers[name]; ok {
		return l
	}
	return _logger.Named(name)
}

// InitLoggers replaces the global logger and builds the configured sub
// loggers. It is called once by the command line before anything logs.
func InitLoggers(cfg GlobalConfig) error {
	zapCfg := zap.NewProductionConfig()
	if cfg.Zap != nil {
		zapCfg = *cfg.Zap
	}
	global, err := zapCfg.Build()
	if err != nil {
		return errors.Wrap(err, "failed to build global logger")
	}
	subs := make(map[string]*zap.Logger, len(cfg.SubLoggers))
	for name, lvl := range cfg.SubLoggers {
		var level zapcore.Level
		if err := level.UnmarshalText([]byte(lvl)); err != nil {
			return errors.Wrapf(err, "invalid level %q for sub logger %s", lvl, name)
		}
		subCfg := zapCfg
		subCfg.Level = zap.NewAtomicLevelAt(level)
		l, err := subCfg.Build()
		if err != nil {
			return errors.Wrapf(err, "failed to build sub logger %s", name)
		}
		subs[name] = l.Named(name)
	}

	_logMu.Lock()
	_logger = global
	_subLoggers = subs
	_logMu.Unlock()
	zap.ReplaceGlobals(global)
	return nil
}

// Sync flushes every logger. Errors from syncing stdout/stderr are ignored.
func Sync() {
	_logMu.RLock()
	defer _logMu.RUnlock()
	_ = _logger.Sync()
	for _, l := range _subLoggers {
		_ = l.Sync()
	}
}
