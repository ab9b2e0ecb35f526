package oracle

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"tradeplane/pkg/poolstore"
)

// MemoryMetadataOracle is a fixed lookup table, useful for tests and for
// deployments that resolve pool metadata from a static config file rather
// than a live chain query.
type MemoryMetadataOracle struct {
	mu    sync.RWMutex
	pools map[common.Address]poolstore.Metadata
}

// NewMemoryMetadataOracle returns an oracle with no pools registered.
func NewMemoryMetadataOracle() *MemoryMetadataOracle {
	return &MemoryMetadataOracle{pools: make(map[common.Address]poolstore.Metadata)}
}

// Set registers metadata for a pool address.
func (o *MemoryMetadataOracle) Set(address common.Address, meta poolstore.Metadata) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pools[address] = meta
}

func (o *MemoryMetadataOracle) GetPool(_ context.Context, address common.Address) (poolstore.Metadata, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	meta, ok := o.pools[address]
	if !ok {
		return poolstore.Metadata{}, ErrPoolUnknown
	}
	return meta, nil
}

// MemoryPriceOracle is a mutable in-memory USD price table. Prices not set
// report ok=false, matching the "missing price is not assumed" contract.
type MemoryPriceOracle struct {
	mu     sync.RWMutex
	prices map[common.Address]decimal.Decimal
}

// NewMemoryPriceOracle returns an oracle with no prices set.
func NewMemoryPriceOracle() *MemoryPriceOracle {
	return &MemoryPriceOracle{prices: make(map[common.Address]decimal.Decimal)}
}

// Set records token's current USD price.
func (o *MemoryPriceOracle) Set(token common.Address, price decimal.Decimal) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.prices[token] = price
}

// Clear removes token's price, simulating a stale/unavailable oracle feed.
func (o *MemoryPriceOracle) Clear(token common.Address) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.prices, token)
}

func (o *MemoryPriceOracle) GetUSDPrice(_ context.Context, token common.Address) (decimal.Decimal, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	price, ok := o.prices[token]
	return price, ok
}
