package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"tradeplane/pkg/oracle"
	"tradeplane/pkg/poolstore"
)

// poolFixture is one entry in the --pools JSON file: static metadata for a
// pool the detector should track. There is no on-chain metadata fetch in
// this build — pools.json stands in for the metadata oracle §6.5 describes,
// the same way a static config file would in a deployment that doesn't want
// a live chain dependency.
type poolFixture struct {
	Pool      string `json:"pool"`
	Token0    string `json:"token0"`
	Token1    string `json:"token1"`
	Decimals0 uint8  `json:"decimals0"`
	Decimals1 uint8  `json:"decimals1"`
	Kind      string `json:"kind"` // "constant_product" | "concentrated_liquidity"
	FeeBps    uint32 `json:"fee_bps"`
}

func loadPools(path string, store *poolstore.Store) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("pools: read %s: %w", path, err)
	}
	var fixtures []poolFixture
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return fmt.Errorf("pools: parse %s: %w", path, err)
	}
	for _, f := range fixtures {
		kind := poolstore.KindConstantProduct
		if f.Kind == "concentrated_liquidity" {
			kind = poolstore.KindConcentratedLiquidity
		}
		meta := poolstore.Metadata{
			Token0:         common.HexToAddress(f.Token0),
			Token1:         common.HexToAddress(f.Token1),
			Decimals0:      f.Decimals0,
			Decimals1:      f.Decimals1,
			Kind:           kind,
			FeeBasisPoints: f.FeeBps,
		}
		if err := store.UpsertPool(common.HexToAddress(f.Pool), meta); err != nil {
			return fmt.Errorf("pools: upsert %s: %w", f.Pool, err)
		}
	}
	return nil
}

// loadPrices reads a JSON object of token address -> USD price string into
// a MemoryPriceOracle.
func loadPrices(path string) (*oracle.MemoryPriceOracle, error) {
	priceOracle := oracle.NewMemoryPriceOracle()
	if path == "" {
		return priceOracle, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("prices: read %s: %w", path, err)
	}
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("prices: parse %s: %w", path, err)
	}
	for token, priceStr := range raw {
		price, err := decimal.NewFromString(priceStr)
		if err != nil {
			return nil, fmt.Errorf("prices: %s: %w", token, err)
		}
		priceOracle.Set(common.HexToAddress(token), price)
	}
	return priceOracle, nil
}
