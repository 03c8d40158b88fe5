// Package gaskv wraps a KVStore and charges every access to a gas meter.
package gaskv

import (
	"github.com/blockberries/appcore/gas"
	"github.com/blockberries/appcore/store"
)

// Store charges gas for every operation on parent. Out-of-gas surfaces as
// a gas.ErrorOutOfGas panic raised by the meter.
type Store struct {
	meter  gas.Meter
	config gas.Config
	parent store.KVStore
}

var _ store.KVStore = (*Store)(nil)

// NewStore returns a metered view of parent.
func NewStore(parent store.KVStore, meter gas.Meter, config gas.Config) *Store {
	return &Store{meter: meter, config: config, parent: parent}
}

// Get implements store.KVStore.
func (gs *Store) Get(key []byte) []byte {
	gs.meter.ConsumeGas(gs.config.ReadCostFlat, gas.DescReadFlat)
	value := gs.parent.Get(key)
	gs.meter.ConsumeGas(gs.config.ReadCostPerByte*gas.Gas(len(key)), gas.DescReadPerByte)
	gs.meter.ConsumeGas(gs.config.ReadCostPerByte*gas.Gas(len(value)), gas.DescReadPerByte)
	return value
}

// Has implements store.KVStore.
func (gs *Store) Has(key []byte) bool {
	gs.meter.ConsumeGas(gs.config.HasCost, gas.DescHas)
	return gs.parent.Has(key)
}

// Set implements store.KVStore.
func (gs *Store) Set(key, value []byte) {
	store.AssertValidValue(value)
	gs.meter.ConsumeGas(gs.config.WriteCostFlat, gas.DescWriteFlat)
	gs.meter.ConsumeGas(gs.config.WriteCostPerByte*gas.Gas(len(key)), gas.DescWritePerByte)
	gs.meter.ConsumeGas(gs.config.WriteCostPerByte*gas.Gas(len(value)), gas.DescWritePerByte)
	gs.parent.Set(key, value)
}

// Delete implements store.KVStore.
func (gs *Store) Delete(key []byte) {
	gs.meter.ConsumeGas(gs.config.DeleteCost, gas.DescDelete)
	gs.parent.Delete(key)
}

// Iterator implements store.KVStore.
func (gs *Store) Iterator(start, end []byte) store.Iterator {
	return newGasIterator(gs, gs.parent.Iterator(start, end))
}

// ReverseIterator implements store.KVStore.
func (gs *Store) ReverseIterator(start, end []byte) store.Iterator {
	return newGasIterator(gs, gs.parent.ReverseIterator(start, end))
}

type gasIterator struct {
	gs     *Store
	parent store.Iterator
}

func newGasIterator(gs *Store, parent store.Iterator) store.Iterator {
	it := &gasIterator{gs: gs, parent: parent}
	it.consumeSeekGas()
	return it
}

func (gi *gasIterator) Valid() bool { return gi.parent.Valid() }

// Next charges for the entry it moves onto.
func (gi *gasIterator) Next() {
	gi.parent.Next()
	gi.consumeSeekGas()
}

func (gi *gasIterator) Key() []byte { return gi.parent.Key() }

func (gi *gasIterator) Value() []byte { return gi.parent.Value() }

func (gi *gasIterator) Close() error { return gi.parent.Close() }

func (gi *gasIterator) consumeSeekGas() {
	if gi.Valid() {
		key, value := gi.Key(), gi.Value()
		gi.gs.meter.ConsumeGas(gi.gs.config.ReadCostPerByte*gas.Gas(len(key)), gas.DescValuePerByte)
		gi.gs.meter.ConsumeGas(gi.gs.config.ReadCostPerByte*gas.Gas(len(value)), gas.DescValuePerByte)
	}
	gi.gs.meter.ConsumeGas(gi.gs.config.IterNextCostFlat, gas.DescIterNext)
}
