// Package bank holds balances and moves coins between accounts and
// module accounts.
package bank

import (
	"github.com/blockberries/appcore"
	"github.com/blockberries/appcore/sdk"
)

// ModuleName is the module name, store name and query route.
const ModuleName = "bank"

// Event kinds and attribute keys emitted by the module.
const (
	EventTypeTransfer = "transfer"
	EventTypeMint     = "mint"

	AttributeKeyRecipient = "recipient"
	AttributeKeySender    = "sender"
)

// MsgSend moves coins from one account to another.
type MsgSend struct {
	FromAddress sdk.AccAddress `cramberry:"1"`
	ToAddress   sdk.AccAddress `cramberry:"2"`
	Amount      sdk.Coins      `cramberry:"3"`
}

var _ sdk.Msg = (*MsgSend)(nil)

// TypeURL implements sdk.Msg.
func (*MsgSend) TypeURL() string { return "/bank.MsgSend" }

// ValidateBasic implements sdk.Msg.
func (m *MsgSend) ValidateBasic() error {
	if m.FromAddress.Empty() {
		return appcore.ErrInvalidAddress.Wrap("missing sender")
	}
	if m.ToAddress.Empty() {
		return appcore.ErrInvalidAddress.Wrap("missing recipient")
	}
	if len(m.Amount) == 0 {
		return appcore.ErrInvalidCoins.Wrap("empty amount")
	}
	return m.Amount.Validate()
}

// Signers implements sdk.Msg.
func (m *MsgSend) Signers() []sdk.AccAddress { return []sdk.AccAddress{m.FromAddress} }

// BalancesResponse answers /bank/balances.
type BalancesResponse struct {
	Balances sdk.Coins `cramberry:"1"`
}

// Balance is the genesis balance of one address.
type Balance struct {
	Address string    `json:"address"`
	Coins   sdk.Coins `json:"coins"`
}

// GenesisState is the module's genesis.
type GenesisState struct {
	Balances []Balance `json:"balances"`
}
