package store

import (
	"encoding/binary"
	"fmt"

	"spinpet-indexer/internal/domain"
)

// Key prefixes, canonical per the indexing engine's key layout.
const (
	prefixMint        = "mt"
	prefixTokenEvent  = "tr"
	prefixOrder       = "or"
	prefixUserActivity = "us"
	prefixTokenInfo   = "in"
	prefixCandle      = "kl"
)

// beUint64 renders v as 8 fixed-width big-endian bytes, hex-encoded, so
// lexicographic byte-string comparison equals numeric comparison and the
// key stays printable ASCII.
func beUint64(v uint64) string {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return fmt.Sprintf("%x", b)
}

func beInt64(v int64) string {
	return beUint64(uint64(v))
}

// MintKey enumerates a mint at the slot it was touched by TokenCreated.
func MintKey(mint string, slot uint64) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s", prefixMint, mint, beUint64(slot)))
}

// MintPrefix scans every mt: row.
func MintPrefix() []byte {
	return []byte(prefixMint + ":")
}

// TokenEventKey addresses one stored event in a token's log.
func TokenEventKey(mint string, slot uint64, kind domain.EventKind, sig string) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s:%s:%s", prefixTokenEvent, mint, beUint64(slot), kind, sig))
}

// TokenEventPrefix scans a single mint's event log.
func TokenEventPrefix(mint string) []byte {
	return []byte(fmt.Sprintf("%s:%s:", prefixTokenEvent, mint))
}

// OrderKey addresses one open order.
func OrderKey(mint, side, orderPDA string) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s:%s", prefixOrder, mint, side, orderPDA))
}

// OrderPrefix scans open orders on one side of one mint.
func OrderPrefix(mint, side string) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s:", prefixOrder, mint, side))
}

// UserActivityKey addresses one row of a user's activity log.
func UserActivityKey(user, mint string, slot uint64, sig string) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s:%s:%s", prefixUserActivity, user, mint, beUint64(slot), sig))
}

// UserActivityPrefix scans every activity row for a user.
func UserActivityPrefix(user string) []byte {
	return []byte(fmt.Sprintf("%s:%s:", prefixUserActivity, user))
}

// UserMintActivityPrefix scans a user's activity for a single mint.
func UserMintActivityPrefix(user, mint string) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s:", prefixUserActivity, user, mint))
}

// TokenSummaryKey addresses a mint's aggregate summary row.
func TokenSummaryKey(mint string) []byte {
	return []byte(fmt.Sprintf("%s:%s", prefixTokenInfo, mint))
}

// CandleKey addresses one OHLCV bar.
func CandleKey(mint string, interval domain.Interval, bucketStartTs int64) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s:%s", prefixCandle, mint, interval, beInt64(bucketStartTs)))
}

// CandlePrefix scans every bar for (mint, interval).
func CandlePrefix(mint string, interval domain.Interval) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s:", prefixCandle, mint, interval))
}
