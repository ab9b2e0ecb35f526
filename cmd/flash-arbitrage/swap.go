package main

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"tradeplane/pkg/poolstore"
	"tradeplane/pkg/protocol"
)

// swapEventFromTLV turns a wire-level pool swap record into the reserve
// update poolstore.ApplyEvent expects. Only constant-product pools are
// supported here: a concentrated-liquidity pool's new sqrt-price/tick isn't
// derivable from amountIn/amountOut alone, so those swaps are skipped with
// an error the caller logs and moves past (§4.5 only prescribes the event
// shapes, not this wire-to-event translation).
func swapEventFromTLV(store *poolstore.Store, tlv protocol.PoolSwapTLV) (common.Address, poolstore.SwapEvent, error) {
	pool := common.BytesToAddress(tlv.Pool[:])
	tokenIn := common.BytesToAddress(tlv.TokenIn[:])

	state, ok := store.Get(pool)
	if !ok {
		return pool, poolstore.SwapEvent{}, fmt.Errorf("swap: unknown pool %s", pool)
	}
	if state.Metadata.Kind != poolstore.KindConstantProduct {
		return pool, poolstore.SwapEvent{}, fmt.Errorf("swap: pool %s is not constant-product", pool)
	}

	amountIn := new(uint256.Int).SetBytes(tlv.AmountIn[:])
	amountOut := new(uint256.Int).SetBytes(tlv.AmountOut[:])

	reserve0 := new(uint256.Int).Set(state.CP.Reserve0)
	reserve1 := new(uint256.Int).Set(state.CP.Reserve1)

	if tokenIn == state.Metadata.Token0 {
		reserve0.Add(reserve0, amountIn)
		reserve1.Sub(reserve1, amountOut)
	} else {
		reserve1.Add(reserve1, amountIn)
		reserve0.Sub(reserve0, amountOut)
	}

	return pool, poolstore.SwapEvent{
		NewReserve0: reserve0,
		NewReserve1: reserve1,
		TimestampNs: tlv.TimestampNs,
	}, nil
}

func addressFromBytes(b [20]byte) common.Address {
	return common.BytesToAddress(b[:])
}
