package aggregator

import "spinpet-indexer/internal/domain"

// BucketStart computes floor(eventTsMs/1000/intervalSeconds)*intervalSeconds,
// the aligned bucket start for a trade timestamp.
func BucketStart(eventTsMs int64, intervalSeconds int64) int64 {
	eventTsSec := eventTsMs / 1000
	if intervalSeconds <= 0 {
		return eventTsSec
	}
	bucket := (eventTsSec / intervalSeconds) * intervalSeconds
	if eventTsSec < 0 && eventTsSec%intervalSeconds != 0 {
		bucket -= intervalSeconds
	}
	return bucket
}

// NewCandle seeds a fresh candle from the first trade in its bucket.
func NewCandle(mint string, interval domain.Interval, bucketStartTs int64, price, amount string) domain.Candle {
	return domain.Candle{
		Mint:          mint,
		Interval:      interval,
		BucketStartTs: bucketStartTs,
		Open:          price,
		High:          price,
		Low:           price,
		Close:         price,
		Volume:        amount,
		IsFinal:       false,
		UpdateCount:   1,
	}
}

// ApplyTradeToCandle folds one more trade into an existing (still-open) candle.
func ApplyTradeToCandle(c domain.Candle, price, amount string) domain.Candle {
	c.High = MaxDecimal(c.High, price)
	c.Low = MinDecimal(c.Low, price)
	c.Close = price
	c.Volume = AddDecimal(c.Volume, amount)
	c.UpdateCount++
	return c
}

// Seal marks a candle final, called on the previously-open bucket when a
// later bucket sees its first trade.
func Seal(c domain.Candle) domain.Candle {
	c.IsFinal = true
	return c
}
