package domain

// Token is the aggregated state of a mint, seeded by TokenCreated and kept
// current by the aggregator. It is never deleted.
type Token struct {
	Mint            string
	Name            string
	Symbol          string
	URI             string
	CurveAccount    string
	CreateTimestamp int64

	LatestPrice     string // decimal string, u128-safe
	LatestTradeTime int64
	LatestSlot      uint64 // paired with LatestSignature for Rule 3 ordering
	LatestSignature string

	TotalSolAmount         string // decimal string, sums unconditionally
	TotalMarginSolAmount   string
	TotalForceLiquidations uint64
	TotalCloseProfit       string

	SwapFeeBps      uint16 // set by TokenCreated, revised by MilestoneDiscount
	BorrowFeeBps    uint16
	FeeDiscountFlag uint8
}
