// Package oracle declares the external collaborator boundaries the
// arbitrage detector depends on but does not implement itself (§6.5):
// pool metadata resolution and USD token pricing. Production
// implementations live outside this module; this package also ships a
// minimal in-memory implementation for tests and local development.
package oracle

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"tradeplane/pkg/poolstore"
)

// MetadataOracle resolves a pool address to its token pair, decimals, and
// kind on first sighting (§3.6, §6.5).
type MetadataOracle interface {
	GetPool(ctx context.Context, address common.Address) (poolstore.Metadata, error)
}

// PriceOracle resolves a token to its current USD price. A missing price is
// not assumed to be anything (notably not $1 for stablecoins) — callers
// must treat a false ok as "hold for next tick", never as zero (§4.6
// Non-goal).
type PriceOracle interface {
	GetUSDPrice(ctx context.Context, token common.Address) (price decimal.Decimal, ok bool)
}

// ErrPoolUnknown is returned by a MetadataOracle when it has no record of
// the requested pool address.
var ErrPoolUnknown = &Error{Message: "pool unknown to metadata oracle"}

// Error is the error type returned by oracle implementations in this
// package; production oracles may return their own error types, the
// detector only needs ok=false / err!=nil from the interface.
type Error struct {
	Message string
}

func (e *Error) Error() string { return "oracle: " + e.Message }
