// Package codec decodes spinpet program event payloads emitted as base64
// "Program data:" log lines into typed domain.Event values.
package codec

import "spinpet-indexer/internal/domain"

// Discriminator is the 8-byte tag prefixing every event payload, selecting
// its variant decoder. Values are the ones assigned by the program's IDL.
type Discriminator [8]byte

var (
	discTokenCreated      = Discriminator{96, 122, 113, 138, 50, 227, 149, 57}
	discBuySell           = Discriminator{98, 208, 120, 60, 93, 32, 19, 180}
	discLongShort         = Discriminator{27, 69, 20, 116, 58, 250, 95, 220}
	discForceLiquidate    = Discriminator{234, 196, 183, 105, 40, 26, 206, 48}
	discFullClose         = Discriminator{22, 244, 113, 245, 154, 168, 109, 139}
	discPartialClose      = Discriminator{133, 94, 3, 222, 24, 68, 69, 155}
	discMilestoneDiscount = Discriminator{130, 232, 11, 37, 34, 185, 136, 128}
)

type variantDecoder func(data []byte) (domain.Event, error)

var decoders = map[Discriminator]struct {
	kind    domain.EventKind
	decode  variantDecoder
}{
	discTokenCreated:      {domain.EventTokenCreated, decodeTokenCreated},
	discBuySell:           {domain.EventBuySell, decodeBuySell},
	discLongShort:         {domain.EventLongShort, decodeLongShort},
	discForceLiquidate:    {domain.EventForceLiquidate, decodeForceLiquidate},
	discFullClose:         {domain.EventFullClose, decodeFullClose},
	discPartialClose:      {domain.EventPartialClose, decodePartialClose},
	discMilestoneDiscount: {domain.EventMilestoneDiscount, decodeMilestoneDiscount},
}
