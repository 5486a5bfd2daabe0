package audit

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MaxDecimals is the largest decimal precision Normalize accepts. SPL mints
// use at most 9; 30 leaves generous headroom for other ledgers.
const MaxDecimals = 30

// Normalize converts raw integer balances into human-readable quantities and
// USD values. The decimals value applies uniformly to every balance of the
// mint. When price is nil, UsdValue is nil and Tier is TierUntiered for
// every holder. Pure function; the input slice is not modified.
func Normalize(holders []HolderBalance, decimals int, price *decimal.Decimal) ([]NormalizedHolder, error) {
	if decimals < 0 || decimals > MaxDecimals {
		return nil, fmt.Errorf("%w: %d (must be 0..%d)", ErrInvalidDecimals, decimals, MaxDecimals)
	}

	out := make([]NormalizedHolder, 0, len(holders))
	for _, h := range holders {
		if h.RawAmount == nil {
			continue
		}
		ui := decimal.NewFromBigInt(h.RawAmount, 0).Shift(-int32(decimals))

		var usd *decimal.Decimal
		if price != nil {
			v := ui.Mul(*price)
			usd = &v
		}

		out = append(out, NormalizedHolder{
			Owner:    h.Owner,
			UIAmount: ui,
			UsdValue: usd,
			Tier:     TierOf(usd),
		})
	}
	return out, nil
}
