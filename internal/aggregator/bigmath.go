// Package aggregator maintains the derived Token summary and OHLCV candle
// views described by the indexing engine, keeping every update derivable
// solely from the event payload so replay after reconnect is safe.
package aggregator

import "math/big"

func parseDecimal(s string) *big.Int {
	if s == "" {
		return big.NewInt(0)
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return big.NewInt(0)
	}
	return v
}

// AddDecimal sums two decimal-string amounts without precision loss.
func AddDecimal(a, b string) string {
	return new(big.Int).Add(parseDecimal(a), parseDecimal(b)).String()
}

// MaxDecimal returns the larger of two decimal-string amounts.
func MaxDecimal(a, b string) string {
	av, bv := parseDecimal(a), parseDecimal(b)
	if av.Cmp(bv) >= 0 {
		return a
	}
	return b
}

// MinDecimal returns the smaller of two decimal-string amounts.
func MinDecimal(a, b string) string {
	av, bv := parseDecimal(a), parseDecimal(b)
	if av.Cmp(bv) <= 0 {
		return a
	}
	return b
}
