// Package gas implements the meters that bound the work a transaction or a
// block may perform.
package gas

import (
	"fmt"
	"math"
)

// Gas is a unit of work.
type Gas = uint64

// ErrorOutOfGas is the panic value raised when a meter's limit is exceeded.
// It is recovered by the transaction runner.
type ErrorOutOfGas struct {
	Descriptor string
}

func (e ErrorOutOfGas) Error() string { return "out of gas: " + e.Descriptor }

// ErrorGasOverflow is the panic value raised when consumption overflows uint64.
type ErrorGasOverflow struct {
	Descriptor string
}

func (e ErrorGasOverflow) Error() string { return "gas overflow: " + e.Descriptor }

// Meter tracks gas consumption against a limit.
type Meter interface {
	GasConsumed() Gas
	// GasConsumedToLimit returns the consumed gas, capped at the limit.
	GasConsumedToLimit() Gas
	GasRemaining() Gas
	Limit() Gas
	// ConsumeGas adds amount and panics with ErrorOutOfGas once the limit
	// is exceeded. The consumption is recorded before the panic.
	ConsumeGas(amount Gas, descriptor string)
	RefundGas(amount Gas, descriptor string)
	IsPastLimit() bool
	IsOutOfGas() bool
	fmt.Stringer
}

type basicMeter struct {
	limit    Gas
	consumed Gas
}

// NewMeter returns a meter with the given limit.
func NewMeter(limit Gas) Meter {
	return &basicMeter{limit: limit}
}

func (g *basicMeter) GasConsumed() Gas { return g.consumed }

func (g *basicMeter) GasConsumedToLimit() Gas {
	if g.IsPastLimit() {
		return g.limit
	}
	return g.consumed
}

func (g *basicMeter) GasRemaining() Gas {
	if g.IsPastLimit() {
		return 0
	}
	return g.limit - g.consumed
}

func (g *basicMeter) Limit() Gas { return g.limit }

func (g *basicMeter) ConsumeGas(amount Gas, descriptor string) {
	consumed, overflow := addUint64Overflow(g.consumed, amount)
	if overflow {
		g.consumed = math.MaxUint64
		panic(ErrorGasOverflow{Descriptor: descriptor})
	}
	g.consumed = consumed
	if g.consumed > g.limit {
		panic(ErrorOutOfGas{Descriptor: descriptor})
	}
}

func (g *basicMeter) RefundGas(amount Gas, descriptor string) {
	if g.consumed < amount {
		panic(fmt.Sprintf("negative gas consumed: %s", descriptor))
	}
	g.consumed -= amount
}

func (g *basicMeter) IsPastLimit() bool { return g.consumed > g.limit }

func (g *basicMeter) IsOutOfGas() bool { return g.consumed >= g.limit }

func (g *basicMeter) String() string {
	return fmt.Sprintf("BasicGasMeter:\n  limit: %d\n  consumed: %d", g.limit, g.consumed)
}

type infiniteMeter struct {
	consumed Gas
}

// NewInfiniteMeter returns a meter without a limit. It still counts.
func NewInfiniteMeter() Meter {
	return &infiniteMeter{}
}

func (g *infiniteMeter) GasConsumed() Gas { return g.consumed }

func (g *infiniteMeter) GasConsumedToLimit() Gas { return g.consumed }

func (g *infiniteMeter) GasRemaining() Gas { return math.MaxUint64 }

func (g *infiniteMeter) Limit() Gas { return math.MaxUint64 }

func (g *infiniteMeter) ConsumeGas(amount Gas, descriptor string) {
	consumed, overflow := addUint64Overflow(g.consumed, amount)
	if overflow {
		panic(ErrorGasOverflow{Descriptor: descriptor})
	}
	g.consumed = consumed
}

func (g *infiniteMeter) RefundGas(amount Gas, descriptor string) {
	if g.consumed < amount {
		panic(fmt.Sprintf("negative gas consumed: %s", descriptor))
	}
	g.consumed -= amount
}

func (g *infiniteMeter) IsPastLimit() bool { return false }

func (g *infiniteMeter) IsOutOfGas() bool { return false }

func (g *infiniteMeter) String() string {
	return fmt.Sprintf("InfiniteGasMeter:\n  consumed: %d", g.consumed)
}

func addUint64Overflow(a, b uint64) (uint64, bool) {
	if math.MaxUint64-a < b {
		return 0, true
	}
	return a + b, false
}

// Config holds the costs charged by gas-metered stores.
type Config struct {
	HasCost          Gas `yaml:"hasCost"`
	DeleteCost       Gas `yaml:"deleteCost"`
	ReadCostFlat     Gas `yaml:"readCostFlat"`
	ReadCostPerByte  Gas `yaml:"readCostPerByte"`
	WriteCostFlat    Gas `yaml:"writeCostFlat"`
	WriteCostPerByte Gas `yaml:"writeCostPerByte"`
	IterNextCostFlat Gas `yaml:"iterNextCostFlat"`
}

// DefaultConfig is the cost table applied to transaction scopes.
var DefaultConfig = Config{
	HasCost:          1000,
	DeleteCost:       1000,
	ReadCostFlat:     1000,
	ReadCostPerByte:  3,
	WriteCostFlat:    2000,
	WriteCostPerByte: 30,
	IterNextCostFlat: 30,
}

// Descriptors passed to ConsumeGas by the metered store.
const (
	DescHas          = "HasCost"
	DescDelete       = "DeleteCost"
	DescReadFlat     = "ReadFlat"
	DescReadPerByte  = "ReadPerByte"
	DescWriteFlat    = "WriteFlat"
	DescWritePerByte = "WritePerByte"
	DescIterNext     = "IterNextFlat"
	DescValuePerByte = "ValuePerByte"
)
