package domain

// Order is an open leveraged position, identified by (Mint, Side, PDA).
// Created on LongShort, mutated by PartialClose, removed by FullClose or
// ForceLiquidate. Side is carried opaque ("up"/"dn") per the producer.
type Order struct {
	Mint            string
	Side            string
	OrderPDA        string
	Payer           string
	Margin          string
	Borrow          string
	RemainAmount    string
	PriceLowerBound string
	PriceUpperBound string
	StartTime       int64
	EndTime         int64
	OpenSlot        uint64
	OpenSignature   string
}

// UserActivity is one append-only log row of a position-affecting event for
// a given user; the primary key includes the user address and slot so the
// log is naturally ordered.
type UserActivity struct {
	User        string
	Mint        string
	Slot        uint64
	Signature   string
	Kind        EventKind
	Side        string
	OrderPDA    string
	TimestampMs int64
}
