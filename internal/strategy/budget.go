package strategy

import (
	"github.com/shopspring/decimal"

	"kujira-mm/pkg/types"
)

// AdjustToBudget filters a proposal down to what the free balances afford,
// walking it in order and keeping the running balances updated as each
// order is admitted. The result is always an order-preserving subset of
// the input; non-affordable orders are skipped silently.
//
// A BUY is admitted while the free quote balance strictly exceeds the
// order amount, a SELL while the free base balance does. The admitted
// amount is then deducted from the corresponding balance.
func AdjustToBudget(proposal []types.CandidateOrder, freeBase, freeQuote decimal.Decimal) []types.CandidateOrder {
	adjusted := make([]types.CandidateOrder, 0, len(proposal))

	for _, order := range proposal {
		switch order.Side {
		case types.BUY:
			if freeQuote.GreaterThan(order.Amount) {
				freeQuote = freeQuote.Sub(order.Amount)
				adjusted = append(adjusted, order)
			}
		case types.SELL:
			if freeBase.GreaterThan(order.Amount) {
				freeBase = freeBase.Sub(order.Amount)
				adjusted = append(adjusted, order)
			}
		}
	}

	return adjusted
}
