package stub

import "context"

// RPCClient implements solana.RPCClient for testing: a seedable table of
// block times, since getBlockTime is the only call the listener makes.
type RPCClient struct {
	BlockTimes map[int64]*int64
}

// NewRPCClient creates a new stub RPC client.
func NewRPCClient() *RPCClient {
	return &RPCClient{
		BlockTimes: make(map[int64]*int64),
	}
}

// GetBlockTime retrieves the estimated production time of a slot from the
// stub store. Returns (nil, nil) for an unseeded slot, matching the real
// RPC's behavior for a slot with no confirmed block time yet.
func (c *RPCClient) GetBlockTime(_ context.Context, slot int64) (*int64, error) {
	return c.BlockTimes[slot], nil
}

// AddBlockTime seeds the block time returned for slot.
func (c *RPCClient) AddBlockTime(slot int64, unixSeconds int64) {
	c.BlockTimes[slot] = &unixSeconds
}
