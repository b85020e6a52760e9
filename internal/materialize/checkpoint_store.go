package materialize

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5"

	"spinpet-indexer/internal/observability"
)

// Checkpoint is the ingestion position the CheckpointStore persists.
type Checkpoint struct {
	ProgramID     string
	LastSlot      uint64
	LastSignature string
	UpdatedAt     time.Time
}

// CheckpointStore periodically upserts a single-row ingestion checkpoint
// so an operator can see progress from SQL tooling without opening the
// embedded Store file. It is advisory only: replay safety comes from the
// Store's own tr: dedup, never from this table.
//
// Grounded on the teacher's internal/storage/postgres.SwapStore for the
// pgx query/exec idiom.
type CheckpointStore struct {
	pool *PostgresPool
}

// NewCheckpointStore builds a CheckpointStore over an already-connected pool.
func NewCheckpointStore(pool *PostgresPool) *CheckpointStore {
	return &CheckpointStore{pool: pool}
}

// Upsert writes the current position, replacing any prior row for programID.
func (s *CheckpointStore) Upsert(ctx context.Context, cp Checkpoint) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO ingestion_checkpoint (program_id, last_slot, last_signature, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (program_id) DO UPDATE
		SET last_slot = EXCLUDED.last_slot,
		    last_signature = EXCLUDED.last_signature,
		    updated_at = EXCLUDED.updated_at
	`, cp.ProgramID, cp.LastSlot, cp.LastSignature, cp.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert checkpoint: %w", err)
	}
	return nil
}

// Get reads the last-persisted checkpoint for programID, for a
// startup-time "roughly where we left off" log line. Returns ok=false if
// no checkpoint has ever been written.
func (s *CheckpointStore) Get(ctx context.Context, programID string) (cp Checkpoint, ok bool, err error) {
	row := s.pool.QueryRow(ctx, `
		SELECT program_id, last_slot, last_signature, updated_at
		FROM ingestion_checkpoint WHERE program_id = $1
	`, programID)
	err = row.Scan(&cp.ProgramID, &cp.LastSlot, &cp.LastSignature, &cp.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Checkpoint{}, false, nil
	}
	if err != nil {
		return Checkpoint{}, false, fmt.Errorf("get checkpoint: %w", err)
	}
	return cp, true, nil
}

// PositionFunc reports the Listener's current (slot, signature) position.
type PositionFunc func() (slot uint64, signature string)

// RunPeriodicUpserts upserts the checkpoint returned by position every
// interval until ctx is cancelled. Failures are logged and counted; they
// never propagate to the caller.
func (s *CheckpointStore) RunPeriodicUpserts(ctx context.Context, programID string, interval time.Duration, position PositionFunc) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			slot, sig := position()
			if slot == 0 {
				continue
			}
			err := s.Upsert(ctx, Checkpoint{ProgramID: programID, LastSlot: slot, LastSignature: sig, UpdatedAt: time.Now()})
			observability.RecordCheckpointWrite(err)
			if err != nil {
				log.Printf("materialize: checkpoint upsert failed: %v", err)
			}
		}
	}
}
