package aggregator

// CompareOrder compares two events by (slot, signature) lexicographic
// tiebreak, the ordering Rule 3 requires latest_price/latest_trade_time
// updates to respect. Grounded on the (slot, tx_signature) comparator used
// throughout the teacher's internal/ingestion/ordering.go.
//
// Returns -1 if (slotA, sigA) < (slotB, sigB), 0 if equal, 1 if greater.
func CompareOrder(slotA uint64, sigA string, slotB uint64, sigB string) int {
	switch {
	case slotA < slotB:
		return -1
	case slotA > slotB:
		return 1
	}
	switch {
	case sigA < sigB:
		return -1
	case sigA > sigB:
		return 1
	}
	return 0
}
