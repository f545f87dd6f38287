package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// lockAgentPairForUpdate takes row locks on both agents in a stable order so
// that concurrent operations on the same unordered pair serialize instead of
// deadlocking.
func lockAgentPairForUpdate(ctx context.Context, q DBConn, agentA, agentB uuid.UUID) error {
	first := agentA
	second := agentB

	if bytes.Compare(first[:], second[:]) > 0 {
		first, second = second, first
	}

	if err := lockAgentForUpdate(ctx, q, first); err != nil {
		return err
	}
	if first == second {
		return nil
	}
	if err := lockAgentForUpdate(ctx, q, second); err != nil {
		return err
	}
	return nil
}

func lockAgentForUpdate(ctx context.Context, q DBConn, agentID uuid.UUID) error {
	var lockedID uuid.UUID
	err := q.QueryRow(ctx, `SELECT id FROM agents WHERE id = $1 FOR UPDATE`, agentID).Scan(&lockedID)
	if errors.Is(err, pgx.ErrNoRows) {
		return err
	}
	if err != nil {
		return fmt.Errorf("lock agent: %w", err)
	}
	return nil
}
