package aggregator

import "spinpet-indexer/internal/domain"

// SeedTokenSummary creates the initial Token summary row from a TokenCreated
// event, mirroring the read-modify-write pattern of internal/normalization's
// per-mint running aggregates, applied here to a fresh mint.
func SeedTokenSummary(mint, name, symbol, uri, curveAccount string, createTimestamp int64, slot uint64, signature string, swapFeeBps, borrowFeeBps uint16, feeDiscountFlag uint8) domain.Token {
	return domain.Token{
		Mint:                 mint,
		Name:                 name,
		Symbol:               symbol,
		URI:                  uri,
		CurveAccount:         curveAccount,
		CreateTimestamp:      createTimestamp,
		LatestPrice:          "0",
		LatestTradeTime:      createTimestamp,
		LatestSlot:           slot,
		LatestSignature:      signature,
		TotalSolAmount:       "0",
		TotalMarginSolAmount: "0",
		TotalCloseProfit:     "0",
		SwapFeeBps:           swapFeeBps,
		BorrowFeeBps:         borrowFeeBps,
		FeeDiscountFlag:      feeDiscountFlag,
	}
}

// ApplyTrade folds a BuySell event into an existing Token summary. Sums are
// unconditional; latest_price/latest_trade_time only advance when the event
// is not older, per Rule 3's (slot, signature) ordering.
func ApplyTrade(t domain.Token, slot uint64, signature string, solAmount, price string, timestampMs int64) domain.Token {
	t.TotalSolAmount = AddDecimal(t.TotalSolAmount, solAmount)
	if CompareOrder(slot, signature, t.LatestSlot, t.LatestSignature) >= 0 {
		t.LatestPrice = price
		t.LatestTradeTime = timestampMs / 1000
		t.LatestSlot = slot
		t.LatestSignature = signature
	}
	return t
}

// ApplyMargin folds a LongShort event's margin amount into the running total
// and advances latest_price/latest_trade_time the same way ApplyTrade does,
// since LongShort carries a latest_price like any other trade event.
func ApplyMargin(t domain.Token, slot uint64, signature string, marginSolAmount, price string, timestampMs int64) domain.Token {
	t.TotalMarginSolAmount = AddDecimal(t.TotalMarginSolAmount, marginSolAmount)
	if CompareOrder(slot, signature, t.LatestSlot, t.LatestSignature) >= 0 {
		t.LatestPrice = price
		t.LatestTradeTime = timestampMs / 1000
		t.LatestSlot = slot
		t.LatestSignature = signature
	}
	return t
}

// ApplyCloseProfit folds a FullClose/PartialClose event's realized profit
// into the running total and advances latest_price/latest_trade_time the
// same way ApplyTrade does. userCloseProfit may be negative (a loss); it is
// still a well-formed decimal string per spec.md's amount encoding.
func ApplyCloseProfit(t domain.Token, slot uint64, signature string, userCloseProfit, price string, timestampMs int64) domain.Token {
	t.TotalCloseProfit = AddDecimal(t.TotalCloseProfit, userCloseProfit)
	if CompareOrder(slot, signature, t.LatestSlot, t.LatestSignature) >= 0 {
		t.LatestPrice = price
		t.LatestTradeTime = timestampMs / 1000
		t.LatestSlot = slot
		t.LatestSignature = signature
	}
	return t
}

// IncrementForceLiquidations bumps the running force-liquidation count.
func IncrementForceLiquidations(t domain.Token) domain.Token {
	t.TotalForceLiquidations++
	return t
}

// ApplyMilestoneDiscount updates the fee/discount fields carried by a
// MilestoneDiscount event.
func ApplyMilestoneDiscount(t domain.Token, swapFeeBps, borrowFeeBps uint16, feeDiscountFlag uint8) domain.Token {
	t.SwapFeeBps = swapFeeBps
	t.BorrowFeeBps = borrowFeeBps
	t.FeeDiscountFlag = feeDiscountFlag
	return t
}
