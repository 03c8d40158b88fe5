package apptest

import (
	"encoding/json"
	"encoding/hex"
	"testing"

	"github.com/blockberries/appcore/crypto"
	"github.com/blockberries/appcore/sdk"
	"github.com/blockberries/appcore/tx"
	"github.com/blockberries/appcore/types"
	"github.com/blockberries/appcore/x/auth"
	"github.com/blockberries/appcore/x/bank"
	"github.com/blockberries/appcore/x/poa"
)

// Denom is the fee denomination used by the helpers.
const Denom = "stake"

// Account is a test key together with the account number and sequence
// the chain is expected to hold for it.
type Account struct {
	Key      crypto.PrivKey
	Address  sdk.AccAddress
	Number   uint64
	Sequence uint64
}

// NewAccount derives a deterministic ed25519 account from name.
func NewAccount(name string) *Account {
	key := crypto.Ed25519FromSecret([]byte(name))
	return &Account{Key: key, Address: key.PubKey().Address()}
}

// NewSecp256k1Account derives a deterministic secp256k1 account from name.
func NewSecp256k1Account(name string) *Account {
	key := crypto.Secp256k1FromSecret([]byte(name))
	return &Account{Key: key, Address: key.PubKey().Address()}
}

// TxOptions tune a transaction built by Account.Tx.
type TxOptions struct {
	Fee      sdk.Coin
	GasLimit uint64
	Memo     string
}

// DefaultTxOptions pays 10stake for 200000 gas.
func DefaultTxOptions() TxOptions {
	return TxOptions{Fee: sdk.NewCoin64(Denom, 10), GasLimit: 200000}
}

// Tx signs msgs at the account's current sequence without advancing it.
func (a *Account) Tx(t testing.TB, chainID string, opts TxOptions, msgs ...sdk.Msg) types.Tx {
	t.Helper()
	b := tx.NewBuilder()
	for _, msg := range msgs {
		if err := b.AddMsg(msg); err != nil {
			t.Fatalf("add msg: %v", err)
		}
	}
	b.SetMemo(opts.Memo).
		SetFee(opts.Fee, opts.GasLimit).
		SetSigner(tx.SignerInfo{PubKey: crypto.ToProto(a.Key.PubKey()), Sequence: a.Sequence})
	raw, err := b.Sign(a.Key, chainID, a.Number)
	if err != nil {
		t.Fatalf("sign tx: %v", err)
	}
	return raw
}

// NextTx signs msgs with the default options and advances the sequence.
func (a *Account) NextTx(t testing.TB, chainID string, msgs ...sdk.Msg) types.Tx {
	t.Helper()
	raw := a.Tx(t, chainID, DefaultTxOptions(), msgs...)
	a.Sequence++
	return raw
}

// Send builds a bank transfer from the account.
func (a *Account) Send(to sdk.AccAddress, amount ...sdk.Coin) *bank.MsgSend {
	return &bank.MsgSend{FromAddress: a.Address, ToAddress: to, Amount: sdk.Coins(amount)}
}

// Genesis builds an app state for the shipped modules. Accounts are
// numbered in the order they are added.
type Genesis struct {
	accounts   []*Account
	balances   []bank.Balance
	validators []poa.GenesisValidator
	authority  string
	extra      map[string]json.RawMessage
}

// NewGenesis starts an empty app state.
func NewGenesis() *Genesis {
	return &Genesis{extra: map[string]json.RawMessage{}}
}

// WithAccount funds an account and assigns its account number.
func (g *Genesis) WithAccount(acc *Account, coins ...sdk.Coin) *Genesis {
	acc.Number = uint64(len(g.accounts))
	g.accounts = append(g.accounts, acc)
	if len(coins) > 0 {
		g.balances = append(g.balances, bank.Balance{Address: acc.Address.String(), Coins: sdk.Coins(coins)})
	}
	return g
}

// WithValidator adds a genesis validator.
func (g *Genesis) WithValidator(key crypto.PubKey, power uint64) *Genesis {
	kt := "ed25519"
	if key.Type() == types.KeyTypeSecp256k1 {
		kt = "secp256k1"
	}
	g.validators = append(g.validators, poa.GenesisValidator{KeyType: kt, PubKey: hex.EncodeToString(key.Bytes()), Power: power})
	return g
}

// WithAuthority sets the account allowed to change the validator set.
func (g *Genesis) WithAuthority(acc *Account) *Genesis {
	g.authority = acc.Address.String()
	return g
}

// WithModule sets the raw genesis of a module.
func (g *Genesis) WithModule(name string, raw json.RawMessage) *Genesis {
	g.extra[name] = raw
	return g
}

// AppState encodes the app state.
func (g *Genesis) AppState(t testing.TB) []byte {
	t.Helper()
	state := map[string]json.RawMessage{}
	authState := auth.GenesisState{Params: auth.DefaultParams()}
	for _, acc := range g.accounts {
		authState.Accounts = append(authState.Accounts, auth.GenesisAccount{Address: acc.Address.String()})
	}
	state[auth.ModuleName] = mustJSON(t, authState)
	state[bank.ModuleName] = mustJSON(t, bank.GenesisState{Balances: g.balances})
	if g.authority != "" || len(g.validators) > 0 {
		authority := g.authority
		if authority == "" {
			authority = sdk.AccAddress{}.String()
		}
		state[poa.ModuleName] = mustJSON(t, poa.GenesisState{Authority: authority, Validators: g.validators})
	}
	for name, raw := range g.extra {
		state[name] = raw
	}
	return mustJSON(t, state)
}

func mustJSON(t testing.TB, v any) json.RawMessage {
	t.Helper()
	bz, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("encode genesis: %v", err)
	}
	return bz
}
