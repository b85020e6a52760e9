// Package domain holds the entity and event types shared by the codec,
// indexer, aggregator, bus and query layers.
package domain

// EventKind identifies which spinpet program event a payload decodes to.
// Values double as the short tag stored in tr:/us: keys.
type EventKind string

const (
	EventTokenCreated      EventKind = "tc"
	EventBuySell           EventKind = "bs"
	EventLongShort         EventKind = "ls"
	EventForceLiquidate    EventKind = "fl"
	EventFullClose         EventKind = "fc"
	EventPartialClose      EventKind = "pc"
	EventMilestoneDiscount EventKind = "md"
)

// Envelope carries the fields common to every decoded event, regardless of
// variant. Signature is the chain transaction signature and is the dedup
// token; Slot is the monotonic block height used for Rule 3 ordering.
type Envelope struct {
	Kind        EventKind
	Payer       string // base58 address that submitted the transaction
	Mint        string // base58 token mint address
	Signature   string
	Slot        uint64
	TimestampMs int64
}

// Event is a decoded spinpet program event: the common envelope plus exactly
// one populated variant payload selected by Kind.
type Event struct {
	Envelope

	TokenCreated      *TokenCreatedPayload
	BuySell           *BuySellPayload
	LongShort         *LongShortPayload
	ForceLiquidate    *ForceLiquidatePayload
	FullClose         *FullClosePayload
	PartialClose      *PartialClosePayload
	MilestoneDiscount *MilestoneDiscountPayload
}

// TokenCreatedPayload is emitted once per mint, at curve initialization.
type TokenCreatedPayload struct {
	CurveAccount      string
	PoolTokenAccount  string
	PoolSolAccount    string
	FeeRecipient      string
	BaseFeeRecipient  string
	ParamsAccount     string
	Name              string
	Symbol            string
	URI               string
	SwapFeeBps        uint16
	BorrowFeeBps      uint16
	FeeDiscountFlag   uint8
}

// BuySellPayload is emitted on every spot trade against the bonding curve.
// Amounts and LatestPrice are decimal strings to preserve u64/u128
// precision across JSON boundaries.
type BuySellPayload struct {
	IsBuy       bool
	TokenAmount string
	SolAmount   string
	LatestPrice string
}

// LongShortPayload opens a leveraged position, identified by (Mint, Side,
// OrderPDA). Side is carried verbatim from the payload ("up"/"dn", encoded
// on the wire as OrderType) per the spec's open question on side-tag
// semantics: never renamed or reinterpreted.
type LongShortPayload struct {
	OrderPDA          string
	LatestPrice       string
	OrderType         uint8
	Side              string // derived from OrderType, "up" or "dn"
	PositionMint      string
	User              string
	LockLPStartPrice  string
	LockLPEndPrice    string
	LockLPSolAmount   string
	LockLPTokenAmount string
	StartTime         int64
	EndTime           int64
	MarginSolAmount   string
	BorrowAmount      string
	PositionAssetAmount string
	BorrowFeeBps      uint16
}

// ForceLiquidatePayload closes a position by liquidation; the order is
// removed and total_force_liquidations increments.
type ForceLiquidatePayload struct {
	OrderPDA string
}

// FullClosePayload closes a position entirely, releasing margin and profit.
type FullClosePayload struct {
	UserSolAccount    string
	IsCloseLong       bool
	FinalTokenAmount  string
	FinalSolAmount    string
	UserCloseProfit   string
	LatestPrice       string
	OrderPDA          string
}

// PartialClosePayload reduces an open position without closing it; the
// trailing fields mirror the LongShort geometry as the on-chain program
// reports the order's post-reduction parameters in the same event.
type PartialClosePayload struct {
	UserSolAccount    string
	IsCloseLong       bool
	FinalTokenAmount  string
	FinalSolAmount    string
	UserCloseProfit   string
	LatestPrice       string
	OrderPDA          string
	OrderType         uint8
	Side              string
	PositionMint      string
	User              string
	LockLPStartPrice  string
	LockLPEndPrice    string
	LockLPSolAmount   string
	LockLPTokenAmount string
	StartTime         int64
	EndTime           int64
	MarginSolAmount   string
	BorrowAmount      string
	PositionAssetAmount string
	BorrowFeeBps      uint16
}

// MilestoneDiscountPayload adjusts fee parameters on a token once a trading
// milestone is reached; it does not touch orders or user activity.
type MilestoneDiscountPayload struct {
	CurveAccount    string
	SwapFeeBps      uint16
	BorrowFeeBps    uint16
	FeeDiscountFlag uint8
}

// SideFromOrderType maps the wire order_type byte to the opaque side tag
// used throughout the store. 0 is "up", any other value is "dn"; the
// program itself defines the mapping and this never reinterprets it beyond
// naming the two buckets it emits.
func SideFromOrderType(orderType uint8) string {
	if orderType == 0 {
		return "up"
	}
	return "dn"
}
