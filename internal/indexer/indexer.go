// Package indexer applies decoded events to the Store as atomic batches,
// deduplicating replayed events and emitting the deltas the bus fans out.
package indexer

import (
	"fmt"
	"time"

	"spinpet-indexer/internal/aggregator"
	"spinpet-indexer/internal/domain"
	"spinpet-indexer/internal/observability"
	"spinpet-indexer/internal/record"
	"spinpet-indexer/internal/store"
)

// Indexer owns the Store and applies one decoded event at a time.
// Per-mint serialization is the caller's responsibility (see
// listener.MintRouter);
// Indexer itself performs no locking.
type Indexer struct {
	st store.Store
}

// New builds an Indexer over the given Store.
func New(st store.Store) *Indexer {
	return &Indexer{st: st}
}

// Apply commits one decoded event's effects as a single atomic batch and
// returns the deltas the bus should fan out. If the event's tr: row already
// exists, Apply is a no-op (applied=false, no deltas): replay after a
// reconnect is always safe.
func (ix *Indexer) Apply(ev domain.Event) (applied bool, deltas []domain.Delta, err error) {
	trKey := store.TokenEventKey(ev.Mint, ev.Slot, ev.Kind, ev.Signature)
	existing, err := ix.st.Get(trKey)
	if err != nil && err != store.ErrNotFound {
		return false, nil, err
	}
	if existing != nil {
		observability.RecordDuplicateEvent()
		return false, nil, nil
	}

	var ops []store.Op
	ops = append(ops, store.PutOp(trKey, record.Marshal(ev)))

	switch ev.Kind {
	case domain.EventTokenCreated:
		ops, deltas, err = ix.applyTokenCreated(ev, ops)
	case domain.EventBuySell:
		ops, deltas, err = ix.applyBuySell(ev, ops)
	case domain.EventLongShort:
		ops, deltas, err = ix.applyLongShort(ev, ops)
	case domain.EventPartialClose:
		ops, deltas, err = ix.applyPartialClose(ev, ops)
	case domain.EventFullClose:
		ops, deltas, err = ix.applyFullClose(ev, ops)
	case domain.EventForceLiquidate:
		ops, deltas, err = ix.applyForceLiquidate(ev, ops)
	case domain.EventMilestoneDiscount:
		ops, deltas, err = ix.applyMilestoneDiscount(ev, ops)
	default:
		return false, nil, fmt.Errorf("indexer: unknown event kind %q", ev.Kind)
	}
	if err != nil {
		return false, nil, err
	}

	start := time.Now()
	batchErr := ix.st.BatchApply(ops)
	observability.RecordStoreBatch(time.Since(start).Seconds(), batchErr)
	if batchErr != nil {
		return false, nil, batchErr
	}
	observability.RecordEventApplied(string(ev.Kind))
	deltas = append(deltas, domain.Delta{Kind: domain.DeltaRawEvent, Mint: ev.Mint, Event: &ev})
	return true, deltas, nil
}

func (ix *Indexer) getToken(mint string) (domain.Token, bool, error) {
	b, err := ix.st.Get(store.TokenSummaryKey(mint))
	if err == store.ErrNotFound {
		return domain.Token{}, false, nil
	}
	if err != nil {
		return domain.Token{}, false, err
	}
	tok, err := record.UnmarshalToken(b)
	return tok, true, err
}

func (ix *Indexer) getOrder(mint, side, orderPDA string) (domain.Order, bool, error) {
	b, err := ix.st.Get(store.OrderKey(mint, side, orderPDA))
	if err == store.ErrNotFound {
		return domain.Order{}, false, nil
	}
	if err != nil {
		return domain.Order{}, false, err
	}
	o, err := record.UnmarshalOrder(b)
	return o, true, err
}

func (ix *Indexer) getCandle(mint string, interval domain.Interval, bucketStartTs int64) (domain.Candle, bool, error) {
	b, err := ix.st.Get(store.CandleKey(mint, interval, bucketStartTs))
	if err == store.ErrNotFound {
		return domain.Candle{}, false, nil
	}
	if err != nil {
		return domain.Candle{}, false, err
	}
	c, err := record.UnmarshalCandle(b)
	return c, true, err
}

func (ix *Indexer) applyTokenCreated(ev domain.Event, ops []store.Op) ([]store.Op, []domain.Delta, error) {
	p := ev.TokenCreated
	ops = append(ops, store.PutOp(store.MintKey(ev.Mint, ev.Slot), nil))
	tok := aggregator.SeedTokenSummary(ev.Mint, p.Name, p.Symbol, p.URI, p.CurveAccount, ev.TimestampMs/1000, ev.Slot, ev.Signature, p.SwapFeeBps, p.BorrowFeeBps, p.FeeDiscountFlag)
	ops = append(ops, store.PutOp(store.TokenSummaryKey(ev.Mint), record.Marshal(tok)))
	return ops, nil, nil
}

func (ix *Indexer) applyBuySell(ev domain.Event, ops []store.Op) ([]store.Op, []domain.Delta, error) {
	p := ev.BuySell
	tok, ok, err := ix.getToken(ev.Mint)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		tok = aggregator.SeedTokenSummary(ev.Mint, "", "", "", "", ev.TimestampMs/1000, ev.Slot, ev.Signature, 0, 0, 0)
	}
	tok = aggregator.ApplyTrade(tok, ev.Slot, ev.Signature, p.SolAmount, p.LatestPrice, ev.TimestampMs)
	ops = append(ops, store.PutOp(store.TokenSummaryKey(ev.Mint), record.Marshal(tok)))

	var deltas []domain.Delta
	for interval, seconds := range domain.IntervalSeconds {
		candleOps, d := ix.applyCandleTrade(ev.Mint, interval, seconds, ev.TimestampMs, p.LatestPrice, p.TokenAmount)
		ops = append(ops, candleOps...)
		deltas = append(deltas, d...)
	}
	return ops, deltas, nil
}

// applyCandleTrade folds one trade into the (mint, interval) candle line,
// sealing the previously open bucket if the trade lands in a later one.
func (ix *Indexer) applyCandleTrade(mint string, interval domain.Interval, seconds int64, timestampMs int64, price, amount string) ([]store.Op, []domain.Delta) {
	bucketTs := aggregator.BucketStart(timestampMs, seconds)
	var ops []store.Op
	var deltas []domain.Delta

	existing, ok, err := ix.getCandle(mint, interval, bucketTs)
	if err != nil {
		return nil, nil
	}
	if ok {
		updated := aggregator.ApplyTradeToCandle(existing, price, amount)
		ops = append(ops, store.PutOp(store.CandleKey(mint, interval, bucketTs), record.Marshal(updated)))
		deltas = append(deltas, domain.Delta{Kind: domain.DeltaCandleUpdate, Mint: mint, Interval: interval, Candle: &updated})
		return ops, deltas
	}

	fresh := aggregator.NewCandle(mint, interval, bucketTs, price, amount)
	ops = append(ops, store.PutOp(store.CandleKey(mint, interval, bucketTs), record.Marshal(fresh)))
	deltas = append(deltas, domain.Delta{Kind: domain.DeltaCandleNew, Mint: mint, Interval: interval, Candle: &fresh})

	if prior, found, _ := ix.findOpenPriorCandle(mint, interval, bucketTs); found {
		sealed := aggregator.Seal(prior)
		ops = append(ops, store.PutOp(store.CandleKey(mint, interval, sealed.BucketStartTs), record.Marshal(sealed)))
		deltas = append(deltas, domain.Delta{Kind: domain.DeltaCandleFinal, Mint: mint, Interval: interval, Candle: &sealed})
	}
	return ops, deltas
}

// findOpenPriorCandle looks up the single most recent bucket before
// bucketTs, returning it if present and not yet sealed.
func (ix *Indexer) findOpenPriorCandle(mint string, interval domain.Interval, bucketTs int64) (domain.Candle, bool, error) {
	rows, err := ix.st.Scan(store.CandlePrefix(mint, interval), store.CandleKey(mint, interval, bucketTs), 1, store.Reverse)
	if err != nil || len(rows) == 0 {
		return domain.Candle{}, false, err
	}
	c, err := record.UnmarshalCandle(rows[0].Value)
	if err != nil {
		return domain.Candle{}, false, err
	}
	if c.BucketStartTs == bucketTs || c.IsFinal {
		return domain.Candle{}, false, nil
	}
	return c, true, nil
}

func (ix *Indexer) putUserActivity(ev domain.Event, side, orderPDA string, ops []store.Op) []store.Op {
	act := domain.UserActivity{
		User:        ev.Payer,
		Mint:        ev.Mint,
		Slot:        ev.Slot,
		Signature:   ev.Signature,
		Kind:        ev.Kind,
		Side:        side,
		OrderPDA:    orderPDA,
		TimestampMs: ev.TimestampMs,
	}
	return append(ops, store.PutOp(store.UserActivityKey(ev.Payer, ev.Mint, ev.Slot, ev.Signature), record.Marshal(act)))
}

func (ix *Indexer) applyLongShort(ev domain.Event, ops []store.Op) ([]store.Op, []domain.Delta, error) {
	p := ev.LongShort
	order := domain.Order{
		Mint:            ev.Mint,
		Side:            p.Side,
		OrderPDA:        p.OrderPDA,
		Payer:           ev.Payer,
		Margin:          p.MarginSolAmount,
		Borrow:          p.BorrowAmount,
		RemainAmount:    p.PositionAssetAmount,
		PriceLowerBound: p.LockLPStartPrice,
		PriceUpperBound: p.LockLPEndPrice,
		StartTime:       p.StartTime,
		EndTime:         p.EndTime,
		OpenSlot:        ev.Slot,
		OpenSignature:   ev.Signature,
	}
	ops = append(ops, store.PutOp(store.OrderKey(ev.Mint, p.Side, p.OrderPDA), record.Marshal(order)))
	ops = ix.putUserActivity(ev, p.Side, p.OrderPDA, ops)

	tok, ok, err := ix.getToken(ev.Mint)
	if err != nil {
		return nil, nil, err
	}
	if ok {
		tok = aggregator.ApplyMargin(tok, ev.Slot, ev.Signature, p.MarginSolAmount, p.LatestPrice, ev.TimestampMs)
		ops = append(ops, store.PutOp(store.TokenSummaryKey(ev.Mint), record.Marshal(tok)))
	}

	var deltas []domain.Delta
	for interval, seconds := range domain.IntervalSeconds {
		candleOps, d := ix.applyCandleTrade(ev.Mint, interval, seconds, ev.TimestampMs, p.LatestPrice, p.PositionAssetAmount)
		ops = append(ops, candleOps...)
		deltas = append(deltas, d...)
	}
	return ops, deltas, nil
}

func (ix *Indexer) applyPartialClose(ev domain.Event, ops []store.Op) ([]store.Op, []domain.Delta, error) {
	p := ev.PartialClose
	order, ok, err := ix.getOrder(ev.Mint, p.Side, p.OrderPDA)
	if err != nil {
		return nil, nil, err
	}
	if ok {
		order.RemainAmount = p.PositionAssetAmount
		order.Margin = p.MarginSolAmount
		order.Borrow = p.BorrowAmount
		ops = append(ops, store.PutOp(store.OrderKey(ev.Mint, p.Side, p.OrderPDA), record.Marshal(order)))
	}
	ops = ix.putUserActivity(ev, p.Side, p.OrderPDA, ops)

	tok, ok, err := ix.getToken(ev.Mint)
	if err != nil {
		return nil, nil, err
	}
	if ok {
		tok = aggregator.ApplyCloseProfit(tok, ev.Slot, ev.Signature, p.UserCloseProfit, p.LatestPrice, ev.TimestampMs)
		ops = append(ops, store.PutOp(store.TokenSummaryKey(ev.Mint), record.Marshal(tok)))
	}

	var deltas []domain.Delta
	for interval, seconds := range domain.IntervalSeconds {
		candleOps, d := ix.applyCandleTrade(ev.Mint, interval, seconds, ev.TimestampMs, p.LatestPrice, p.FinalTokenAmount)
		ops = append(ops, candleOps...)
		deltas = append(deltas, d...)
	}
	return ops, deltas, nil
}

func (ix *Indexer) applyFullClose(ev domain.Event, ops []store.Op) ([]store.Op, []domain.Delta, error) {
	p := ev.FullClose
	order, ok, err := ix.getOrder(ev.Mint, sideFromFullClose(p), p.OrderPDA)
	if err != nil {
		return nil, nil, err
	}
	side := sideFromFullClose(p)
	if ok {
		side = order.Side
	}
	ops = append(ops, store.DeleteOp(store.OrderKey(ev.Mint, side, p.OrderPDA)))
	ops = ix.putUserActivity(ev, side, p.OrderPDA, ops)

	tok, ok, err := ix.getToken(ev.Mint)
	if err != nil {
		return nil, nil, err
	}
	if ok {
		tok = aggregator.ApplyCloseProfit(tok, ev.Slot, ev.Signature, p.UserCloseProfit, p.LatestPrice, ev.TimestampMs)
		ops = append(ops, store.PutOp(store.TokenSummaryKey(ev.Mint), record.Marshal(tok)))
	}

	var deltas []domain.Delta
	for interval, seconds := range domain.IntervalSeconds {
		candleOps, d := ix.applyCandleTrade(ev.Mint, interval, seconds, ev.TimestampMs, p.LatestPrice, p.FinalTokenAmount)
		ops = append(ops, candleOps...)
		deltas = append(deltas, d...)
	}
	return ops, deltas, nil
}

// sideFromFullClose derives the order side tag from IsCloseLong, used only
// as a fallback when the order row was not found (e.g. after a partial
// history gap) and its stored Side cannot be consulted.
func sideFromFullClose(p *domain.FullClosePayload) string {
	if p.IsCloseLong {
		return "up"
	}
	return "dn"
}

func (ix *Indexer) applyForceLiquidate(ev domain.Event, ops []store.Op) ([]store.Op, []domain.Delta, error) {
	p := ev.ForceLiquidate
	// The order's side is not carried on ForceLiquidatePayload; look it up
	// on both sides since OrderPDA alone is not enough to build the key.
	side := ""
	for _, candidate := range []string{"up", "dn"} {
		o, ok, err := ix.getOrder(ev.Mint, candidate, p.OrderPDA)
		if err != nil {
			return nil, nil, err
		}
		if ok {
			side = o.Side
			break
		}
	}
	if side != "" {
		ops = append(ops, store.DeleteOp(store.OrderKey(ev.Mint, side, p.OrderPDA)))
	}
	ops = ix.putUserActivity(ev, side, p.OrderPDA, ops)

	tok, ok, err := ix.getToken(ev.Mint)
	if err != nil {
		return nil, nil, err
	}
	if ok {
		tok = aggregator.IncrementForceLiquidations(tok)
		ops = append(ops, store.PutOp(store.TokenSummaryKey(ev.Mint), record.Marshal(tok)))
	}
	return ops, nil, nil
}

func (ix *Indexer) applyMilestoneDiscount(ev domain.Event, ops []store.Op) ([]store.Op, []domain.Delta, error) {
	p := ev.MilestoneDiscount
	tok, ok, err := ix.getToken(ev.Mint)
	if err != nil {
		return nil, nil, err
	}
	if ok {
		tok = aggregator.ApplyMilestoneDiscount(tok, p.SwapFeeBps, p.BorrowFeeBps, p.FeeDiscountFlag)
		ops = append(ops, store.PutOp(store.TokenSummaryKey(ev.Mint), record.Marshal(tok)))
	}
	return ops, nil, nil
}
