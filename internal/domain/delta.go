package domain

// DeltaKind selects what a Delta carries.
type DeltaKind string

const (
	DeltaRawEvent     DeltaKind = "event"
	DeltaCandleNew    DeltaKind = "candle_new"
	DeltaCandleUpdate DeltaKind = "candle_update"
	DeltaCandleFinal  DeltaKind = "candle_final"
)

// Delta is one unit of fanout published by the indexer/aggregator pipeline
// after a Store batch commits, and consumed by the bus.
type Delta struct {
	Kind     DeltaKind
	Mint     string
	Interval Interval // populated for candle deltas
	Event    *Event   // populated for DeltaRawEvent
	Candle   *Candle  // populated for candle deltas
}
