package solana

import "context"

// RPCClient defines the unary Solana RPC surface the listener needs. Unlike
// the teacher's ingestion pipeline, spinpet never walks transaction history
// or account state on its own: logsSubscribe carries everything but the
// block's wall-clock time, so getBlockTime is the only call this interface
// exposes.
type RPCClient interface {
	// GetBlockTime retrieves the estimated production time of a block, used
	// by the listener to backfill an event timestamp when a logsSubscribe
	// notification doesn't carry one.
	GetBlockTime(ctx context.Context, slot int64) (*int64, error)
}
