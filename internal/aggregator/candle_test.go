package aggregator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spinpet-indexer/internal/domain"
)

func TestBucketStartAlignsToInterval(t *testing.T) {
	assert.Equal(t, int64(1_000_000_030), BucketStart(1_000_000_035_000, 30))
	assert.Equal(t, int64(1_000_000_000), BucketStart(1_000_000_029_999, 30))
}

func TestNewCandleSeedsFromFirstTrade(t *testing.T) {
	c := NewCandle("mintA", domain.IntervalS30, 1000, "100", "5")
	require.Equal(t, "100", c.Open)
	require.Equal(t, "100", c.High)
	require.Equal(t, "100", c.Low)
	require.Equal(t, "100", c.Close)
	require.Equal(t, "5", c.Volume)
	require.False(t, c.IsFinal)
	require.Equal(t, uint32(1), c.UpdateCount)
}

func TestApplyTradeCollapsesTwoTradesIntoOneBucket(t *testing.T) {
	c := NewCandle("mintA", domain.IntervalS30, 1000, "100", "5")
	c = ApplyTradeToCandle(c, "90", "3")
	assert.Equal(t, "100", c.Open)
	assert.Equal(t, "100", c.High)
	assert.Equal(t, "90", c.Low)
	assert.Equal(t, "90", c.Close)
	assert.Equal(t, "8", c.Volume)
	assert.Equal(t, uint32(2), c.UpdateCount)
}

func TestSealMarksCandleFinalWithoutTouchingOHLCV(t *testing.T) {
	c := NewCandle("mintA", domain.IntervalS30, 1000, "100", "5")
	sealed := Seal(c)
	assert.True(t, sealed.IsFinal)
	assert.Equal(t, c.Close, sealed.Close)
}

func TestBucketRolloverSealsPreviousBucket(t *testing.T) {
	first := NewCandle("mintA", domain.IntervalS30, 1000, "100", "5")
	bucketOfSecondTrade := BucketStart(1035_000, 30)
	require.NotEqual(t, first.BucketStartTs, bucketOfSecondTrade)
	sealedFirst := Seal(first)
	assert.True(t, sealedFirst.IsFinal)
	second := NewCandle("mintA", domain.IntervalS30, bucketOfSecondTrade, "110", "2")
	assert.False(t, second.IsFinal)
	assert.Equal(t, "110", second.Open)
}
