package module

import (
	"encoding/json"
	"sort"
	"strconv"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/blockberries/appcore"
	"github.com/blockberries/appcore/registry"
	"github.com/blockberries/appcore/sdk"
	"github.com/blockberries/appcore/types"
)

// Event kinds emitted when a hook fails with a business error.
const (
	EventTypeBeginBlockError = "begin_block_error"
	EventTypeEndBlockError   = "end_block_error"
)

// Manager holds the modules of an application and runs their hooks in the
// configured order.
type Manager struct {
	modules      map[string]AppModule
	orderGenesis []string
	orderBegin   []string
	orderEnd     []string
}

// NewManager returns a manager; hooks and genesis run in argument order
// until overridden.
func NewManager(modules ...AppModule) *Manager {
	m := &Manager{modules: map[string]AppModule{}}
	var names []string
	for _, mod := range modules {
		if _, ok := m.modules[mod.Name()]; ok {
			panic("duplicate module " + mod.Name())
		}
		m.modules[mod.Name()] = mod
		names = append(names, mod.Name())
	}
	m.orderGenesis = names
	m.orderBegin = names
	m.orderEnd = names
	return m
}

func (m *Manager) checkOrder(names []string) {
	for _, name := range names {
		if _, ok := m.modules[name]; !ok {
			panic("unknown module " + name)
		}
	}
}

// SetOrderInitGenesis sets the order genesis is loaded in. Every module
// must be listed.
func (m *Manager) SetOrderInitGenesis(names ...string) {
	m.checkOrder(names)
	if len(names) != len(m.modules) {
		panic("all modules must be listed in the genesis order")
	}
	m.orderGenesis = names
}

// SetOrderBeginBlockers sets the begin-block hook order.
func (m *Manager) SetOrderBeginBlockers(names ...string) {
	m.checkOrder(names)
	m.orderBegin = names
}

// SetOrderEndBlockers sets the end-block hook order.
func (m *Manager) SetOrderEndBlockers(names ...string) {
	m.checkOrder(names)
	m.orderEnd = names
}

// Module returns a module by name.
func (m *Manager) Module(name string) (AppModule, bool) {
	mod, ok := m.modules[name]
	return mod, ok
}

// Names returns the module names in sorted order.
func (m *Manager) Names() []string {
	names := make([]string, 0, len(m.modules))
	for name := range m.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RegisterServices registers every module's handlers and querier.
func (m *Manager) RegisterServices(r *registry.Registry) error {
	for _, name := range m.Names() {
		if err := m.modules[name].RegisterServices(r); err != nil {
			return errors.Wrapf(err, "failed to register services of module %s", name)
		}
	}
	return nil
}

// DefaultGenesis returns the default genesis of every module.
func (m *Manager) DefaultGenesis() map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(m.modules))
	for name, mod := range m.modules {
		out[name] = mod.DefaultGenesis()
	}
	return out
}

// ValidateGenesis validates the genesis of every module present in data.
func (m *Manager) ValidateGenesis(data map[string]json.RawMessage) error {
	for name := range data {
		if _, ok := m.modules[name]; !ok {
			return errors.Errorf("genesis contains unknown module %s", name)
		}
	}
	for _, name := range m.orderGenesis {
		raw, ok := data[name]
		if !ok {
			continue
		}
		if err := m.modules[name].ValidateGenesis(raw); err != nil {
			return errors.Wrapf(err, "invalid genesis for module %s", name)
		}
	}
	return nil
}

// InitGenesis loads the genesis of every module. Modules absent from data
// start from their default genesis.
func (m *Manager) InitGenesis(ctx sdk.Context, data map[string]json.RawMessage) ([]types.ValidatorUpdate, error) {
	var (
		updates []types.ValidatorUpdate
		source  string
	)
	for _, name := range m.orderGenesis {
		mod := m.modules[name]
		raw, ok := data[name]
		if !ok {
			raw = mod.DefaultGenesis()
		}
		vals, err := mod.InitGenesis(ctx, raw)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to init genesis of module %s", name)
		}
		if len(vals) > 0 {
			if source != "" {
				return nil, errors.Errorf("validator updates returned by both %s and %s", source, name)
			}
			updates, source = vals, name
		}
	}
	return updates, nil
}

// ExportGenesis exports the state of every module.
func (m *Manager) ExportGenesis(ctx sdk.Context) (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, len(m.modules))
	for _, name := range m.orderGenesis {
		raw, err := m.modules[name].ExportGenesis(ctx)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to export genesis of module %s", name)
		}
		out[name] = raw
	}
	return out, nil
}

// BeginBlock runs the begin-block hooks. Each hook runs in its own scope:
// a business error discards that hook's writes and becomes an event; a
// HaltError aborts the block.
func (m *Manager) BeginBlock(ctx sdk.Context) ([]types.Event, error) {
	for _, name := range m.orderBegin {
		hook, ok := m.modules[name].(BeginBlocker)
		if !ok {
			continue
		}
		cacheCtx, write := ctx.CacheContext()
		if err := hook.BeginBlock(cacheCtx); err != nil {
			if _, halt := appcore.IsHalt(err); halt {
				return nil, err
			}
			ctx.Logger().Warn("Begin-block hook failed.", zap.String("module", name), zap.Error(err))
			ctx.EventManager().Emit(hookErrorEvent(EventTypeBeginBlockError, name, err))
			continue
		}
		write()
	}
	return ctx.EventManager().Events(), nil
}

// EndBlock runs the end-block hooks with the same failure policy as
// BeginBlock and collects validator updates.
func (m *Manager) EndBlock(ctx sdk.Context) ([]types.ValidatorUpdate, []types.Event, error) {
	var (
		updates []types.ValidatorUpdate
		source  string
	)
	for _, name := range m.orderEnd {
		hook, ok := m.modules[name].(EndBlocker)
		if !ok {
			continue
		}
		cacheCtx, write := ctx.CacheContext()
		vals, err := hook.EndBlock(cacheCtx)
		if err != nil {
			if _, halt := appcore.IsHalt(err); halt {
				return nil, nil, err
			}
			ctx.Logger().Warn("End-block hook failed.", zap.String("module", name), zap.Error(err))
			ctx.EventManager().Emit(hookErrorEvent(EventTypeEndBlockError, name, err))
			continue
		}
		write()
		if len(vals) > 0 {
			if source != "" {
				return nil, nil, appcore.NewHaltError(ctx.BlockHeight(),
					"validator updates returned by both "+source+" and "+name)
			}
			updates, source = vals, name
		}
	}
	return updates, ctx.EventManager().Events(), nil
}

func hookErrorEvent(kind, module string, err error) types.Event {
	codespace, code, log := appcore.ResultInfo(err)
	return sdk.NewEvent(kind,
		sdk.NewAttribute(sdk.AttributeKeyModule, module),
		sdk.NewAttribute("codespace", codespace),
		sdk.NewAttribute("code", strconv.FormatUint(uint64(code), 10)),
		sdk.NewAttribute("log", log),
	)
}
