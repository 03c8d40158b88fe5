// Package auth keeps accounts: their public key, account number and
// sequence, plus the parameters of the signature and fee checks.
package auth

import (
	"github.com/blockberries/appcore"
	"github.com/blockberries/appcore/sdk"
	"github.com/blockberries/appcore/types"
)

// ModuleName is the module name, store name and query route.
const ModuleName = "auth"

// Account is the on-chain record of an address.
type Account struct {
	Address       sdk.AccAddress   `cramberry:"1"`
	PubKey        *types.PublicKey `cramberry:"2"`
	AccountNumber uint64           `cramberry:"3"`
	Sequence      uint64           `cramberry:"4"`
}

// Params are the parameters of the pre-processing pipeline.
type Params struct {
	MaxMemoCharacters      uint64 `cramberry:"1" json:"max_memo_characters"`
	TxSizeCostPerByte      uint64 `cramberry:"2" json:"tx_size_cost_per_byte"`
	SigVerifyCostEd25519   uint64 `cramberry:"3" json:"sig_verify_cost_ed25519"`
	SigVerifyCostSecp256k1 uint64 `cramberry:"4" json:"sig_verify_cost_secp256k1"`
}

// DefaultParams returns the default parameters.
func DefaultParams() Params {
	return Params{
		MaxMemoCharacters:      256,
		TxSizeCostPerByte:      10,
		SigVerifyCostEd25519:   590,
		SigVerifyCostSecp256k1: 1000,
	}
}

// Validate checks the parameters.
func (p Params) Validate() error {
	if p.TxSizeCostPerByte == 0 || p.SigVerifyCostEd25519 == 0 || p.SigVerifyCostSecp256k1 == 0 {
		return appcore.ErrInvalidRequest.Wrap("gas costs must be positive")
	}
	return nil
}

// GenesisAccount is an account listed in genesis.
type GenesisAccount struct {
	Address string `json:"address"`
}

// GenesisState is the module's genesis.
type GenesisState struct {
	Params   Params           `json:"params"`
	Accounts []GenesisAccount `json:"accounts"`
}
