package sdk

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/holiman/uint256"

	"github.com/blockberries/appcore"
)

var _denomRegex = regexp.MustCompile(`^[a-z][a-z0-9/]{2,63}$`)

// ValidateDenom checks a denomination name.
func ValidateDenom(denom string) error {
	if !_denomRegex.MatchString(denom) {
		return appcore.ErrInvalidCoins.Wrapf("invalid denom %q", denom)
	}
	return nil
}

// Coin is an amount of one denomination. The amount travels as a decimal
// string and is parsed into a 256-bit integer for arithmetic.
type Coin struct {
	Denom  string `cramberry:"1" json:"denom"`
	Amount string `cramberry:"2" json:"amount"`
}

// NewCoin builds a coin from an integer amount.
func NewCoin(denom string, amount *uint256.Int) Coin {
	return Coin{Denom: denom, Amount: amount.Dec()}
}

// NewCoin64 builds a coin from a uint64 amount.
func NewCoin64(denom string, amount uint64) Coin {
	return NewCoin(denom, uint256.NewInt(amount))
}

// Int parses the amount.
func (c Coin) Int() (*uint256.Int, error) {
	v, err := uint256.FromDecimal(c.Amount)
	if err != nil {
		return nil, appcore.ErrInvalidCoins.Wrapf("invalid amount %q for %s: %v", c.Amount, c.Denom, err)
	}
	return v, nil
}

// MustInt parses the amount and panics on malformed input. Only use on
// coins that passed Validate.
func (c Coin) MustInt() *uint256.Int {
	v, err := c.Int()
	if err != nil {
		panic(err)
	}
	return v
}

// Validate checks the denom and the amount.
func (c Coin) Validate() error {
	if err := ValidateDenom(c.Denom); err != nil {
		return err
	}
	_, err := c.Int()
	return err
}

// IsZero reports whether the amount is zero. Malformed amounts are not zero.
func (c Coin) IsZero() bool {
	v, err := c.Int()
	return err == nil && v.IsZero()
}

func (c Coin) String() string { return c.Amount + c.Denom }

// Coins is a set of coins sorted by denom with no duplicates.
type Coins []Coin

// NewCoins sorts the coins and validates the result.
func NewCoins(coins ...Coin) (Coins, error) {
	out := make(Coins, len(coins))
	copy(out, coins)
	sort.Slice(out, func(i, j int) bool { return out[i].Denom < out[j].Denom })
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

// Validate checks that every coin is valid and positive and that denoms
// are sorted and unique.
func (cs Coins) Validate() error {
	for i, c := range cs {
		if err := c.Validate(); err != nil {
			return err
		}
		if c.IsZero() {
			return appcore.ErrInvalidCoins.Wrapf("zero amount for %s", c.Denom)
		}
		if i > 0 && cs[i-1].Denom >= c.Denom {
			return appcore.ErrInvalidCoins.Wrapf("denoms not sorted or duplicated: %s, %s", cs[i-1].Denom, c.Denom)
		}
	}
	return nil
}

// AmountOf returns the amount of denom, zero if absent.
func (cs Coins) AmountOf(denom string) *uint256.Int {
	for _, c := range cs {
		if c.Denom == denom {
			if v, err := c.Int(); err == nil {
				return v
			}
		}
	}
	return new(uint256.Int)
}

func (cs Coins) String() string {
	parts := make([]string, len(cs))
	for i, c := range cs {
		parts[i] = c.String()
	}
	return strings.Join(parts, ",")
}

// ParseCoin parses "<amount><denom>", e.g. "100stake".
func ParseCoin(s string) (Coin, error) {
	i := strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' })
	if i <= 0 {
		return Coin{}, appcore.ErrInvalidCoins.Wrapf("invalid coin expression %q", s)
	}
	c := Coin{Denom: s[i:], Amount: s[:i]}
	if err := c.Validate(); err != nil {
		return Coin{}, err
	}
	return c, nil
}

// ParseCoins parses a comma separated list of coins.
func ParseCoins(s string) (Coins, error) {
	if s == "" {
		return Coins{}, nil
	}
	parts := strings.Split(s, ",")
	coins := make([]Coin, 0, len(parts))
	for _, p := range parts {
		c, err := ParseCoin(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		coins = append(coins, c)
	}
	return NewCoins(coins...)
}

// FormatAmount renders an integer for logs and events.
func FormatAmount(v *uint256.Int, denom string) string {
	return fmt.Sprintf("%s%s", v.Dec(), denom)
}
