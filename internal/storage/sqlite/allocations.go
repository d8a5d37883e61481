package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/splitit-app/splitit/internal/ledger"
	"github.com/splitit-app/splitit/internal/models"
)

// ReplaceAllocations atomically replaces all allocation rows for the given
// items and applies the per-participant running-total deltas in the same
// transaction. No reader ever observes the rows without the matching
// aggregate change, and no partial allocation state exists at any point.
func (s *SQLiteStore) ReplaceAllocations(ctx context.Context, itemIDs []string, allocations []models.Allocation) error {
	if len(itemIDs) == 0 {
		return &ledger.ValidationError{Reason: "no items in replacement set"}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapTxError(fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback()

	prices, err := itemPrices(ctx, tx, itemIDs)
	if err != nil {
		return err
	}

	// Validate the whole set before touching a single row.
	if err := ledger.ValidateAllocations(allocations, prices); err != nil {
		return err
	}
	if err := participantsExist(ctx, tx, allocations); err != nil {
		return err
	}

	old, err := allocationsForItems(ctx, tx, itemIDs)
	if err != nil {
		return err
	}

	query := fmt.Sprintf("DELETE FROM allocations WHERE item_id IN (%s)", placeholders(len(itemIDs)))
	if _, err := tx.ExecContext(ctx, query, toArgs(itemIDs)...); err != nil {
		return mapTxError(fmt.Errorf("failed to delete allocations: %w", err))
	}

	for _, a := range allocations {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO allocations (participant_id, item_id, amount_cents) VALUES (?, ?, ?)",
			a.ParticipantID, a.ItemID, a.AmountCents,
		)
		if err != nil {
			return mapTxError(fmt.Errorf("failed to insert allocation: %w", err))
		}
	}

	if err := applyDeltas(ctx, tx, ledger.Deltas(old, allocations)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return mapTxError(fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

// ListAllocationsByReceipt returns the allocation rows for a receipt's items.
func (s *SQLiteStore) ListAllocationsByReceipt(ctx context.Context, receiptID string) ([]models.Allocation, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT a.participant_id, a.item_id, a.amount_cents
		 FROM allocations a
		 JOIN items i ON i.id = a.item_id
		 WHERE i.receipt_id = ?
		 ORDER BY a.item_id, a.participant_id`,
		receiptID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list allocations: %w", err)
	}
	defer rows.Close()

	var allocs []models.Allocation
	for rows.Next() {
		var a models.Allocation
		if err := rows.Scan(&a.ParticipantID, &a.ItemID, &a.AmountCents); err != nil {
			return nil, fmt.Errorf("failed to scan allocation: %w", err)
		}
		allocs = append(allocs, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate allocations: %w", err)
	}
	return allocs, nil
}

// Outstanding derives running_total minus settlements at read time.
func (s *SQLiteStore) Outstanding(ctx context.Context, participantID string) (int64, error) {
	var outstanding int64
	err := s.db.QueryRowContext(ctx,
		`SELECT p.running_total_cents - COALESCE(
		    (SELECT SUM(amount_cents) FROM settlements WHERE participant_id = p.id), 0)
		 FROM participants p WHERE p.id = ?`,
		participantID,
	).Scan(&outstanding)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("participant %s: %w", participantID, ledger.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to compute outstanding: %w", err)
	}
	return outstanding, nil
}

// itemPrices loads the price of every item in ids, failing with ErrNotFound
// when any id does not exist.
func itemPrices(ctx context.Context, tx *sql.Tx, ids []string) (map[string]int64, error) {
	query := fmt.Sprintf("SELECT id, price_cents FROM items WHERE id IN (%s)", placeholders(len(ids)))
	rows, err := tx.QueryContext(ctx, query, toArgs(ids)...)
	if err != nil {
		return nil, mapTxError(fmt.Errorf("failed to load items: %w", err))
	}
	defer rows.Close()

	prices := make(map[string]int64, len(ids))
	for rows.Next() {
		var id string
		var price int64
		if err := rows.Scan(&id, &price); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		prices[id] = price
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}

	for _, id := range ids {
		if _, ok := prices[id]; !ok {
			return nil, fmt.Errorf("item %s: %w", id, ledger.ErrNotFound)
		}
	}
	return prices, nil
}

// participantsExist rejects allocations referencing unknown participants
// before any write, so the FK never fires mid-replace.
func participantsExist(ctx context.Context, tx *sql.Tx, allocs []models.Allocation) error {
	seen := make(map[string]bool)
	for _, a := range allocs {
		if seen[a.ParticipantID] {
			continue
		}
		seen[a.ParticipantID] = true

		var one int
		err := tx.QueryRowContext(ctx, "SELECT 1 FROM participants WHERE id = ?", a.ParticipantID).Scan(&one)
		if err == sql.ErrNoRows {
			return &ledger.ValidationError{ParticipantID: a.ParticipantID, Reason: "unknown participant"}
		}
		if err != nil {
			return fmt.Errorf("failed to check participant: %w", err)
		}
	}
	return nil
}

// allocationsForItems loads the current allocation rows for the item set.
func allocationsForItems(ctx context.Context, tx *sql.Tx, itemIDs []string) ([]models.Allocation, error) {
	query := fmt.Sprintf(
		"SELECT participant_id, item_id, amount_cents FROM allocations WHERE item_id IN (%s)",
		placeholders(len(itemIDs)),
	)
	rows, err := tx.QueryContext(ctx, query, toArgs(itemIDs)...)
	if err != nil {
		return nil, mapTxError(fmt.Errorf("failed to load allocations: %w", err))
	}
	defer rows.Close()

	var allocs []models.Allocation
	for rows.Next() {
		var a models.Allocation
		if err := rows.Scan(&a.ParticipantID, &a.ItemID, &a.AmountCents); err != nil {
			return nil, fmt.Errorf("failed to scan allocation: %w", err)
		}
		allocs = append(allocs, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate allocations: %w", err)
	}
	return allocs, nil
}

// applyDeltas increments each participant's running total inside the
// transaction. The relative UPDATE serializes concurrent replaces touching
// the same participant without explicit locking.
func applyDeltas(ctx context.Context, tx *sql.Tx, deltas map[string]int64) error {
	for participantID, delta := range deltas {
		res, err := tx.ExecContext(ctx,
			"UPDATE participants SET running_total_cents = running_total_cents + ? WHERE id = ?",
			delta, participantID,
		)
		if err != nil {
			return mapTxError(fmt.Errorf("failed to update running total: %w", err))
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read rows affected: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("participant %s: %w", participantID, ledger.ErrNotFound)
		}
	}
	return nil
}

func toArgs(ids []string) []interface{} {
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
