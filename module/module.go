// Package module defines the capability interface business modules
// implement and the manager that orders their hooks and genesis.
package module

import (
	"encoding/json"

	"github.com/blockberries/appcore/registry"
	"github.com/blockberries/appcore/sdk"
	"github.com/blockberries/appcore/types"
)

// AppModule is implemented by every business module.
type AppModule interface {
	// Name is the module name. It is also the module's query route.
	Name() string
	// RegisterServices registers message handlers and the querier.
	RegisterServices(r *registry.Registry) error
	DefaultGenesis() json.RawMessage
	ValidateGenesis(data json.RawMessage) error
	// InitGenesis writes the module's genesis state. Only one module may
	// return validator updates.
	InitGenesis(ctx sdk.Context, data json.RawMessage) ([]types.ValidatorUpdate, error)
	ExportGenesis(ctx sdk.Context) (json.RawMessage, error)
}

// BeginBlocker is implemented by modules with a begin-block hook.
type BeginBlocker interface {
	BeginBlock(ctx sdk.Context) error
}

// EndBlocker is implemented by modules with an end-block hook.
type EndBlocker interface {
	EndBlock(ctx sdk.Context) ([]types.ValidatorUpdate, error)
}
