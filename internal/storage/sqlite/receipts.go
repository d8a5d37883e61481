package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/splitit-app/splitit/internal/ledger"
	"github.com/splitit-app/splitit/internal/models"
)

// CreateReceipt persists a new receipt with its items.
func (s *SQLiteStore) CreateReceipt(ctx context.Context, receipt *models.Receipt) error {
	if receipt.ID == "" {
		receipt.ID = uuid.New().String()
	}
	if receipt.CreatedAt == 0 {
		receipt.CreatedAt = time.Now().Unix()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapTxError(fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback()

	var owner interface{}
	if receipt.OwnerID != "" {
		owner = receipt.OwnerID
	}
	_, err = tx.ExecContext(ctx,
		"INSERT INTO receipts (id, owner_id, description, created_at) VALUES (?, ?, ?, ?)",
		receipt.ID, owner, receipt.Description, receipt.CreatedAt,
	)
	if err != nil {
		return mapTxError(fmt.Errorf("failed to insert receipt: %w", err))
	}

	for i := range receipt.Items {
		item := &receipt.Items[i]
		if item.PriceCents < 0 {
			return &ledger.ValidationError{ItemID: item.ID, Reason: "negative price"}
		}
		if item.ID == "" {
			item.ID = uuid.New().String()
		}
		item.ReceiptID = receipt.ID

		_, err = tx.ExecContext(ctx,
			"INSERT INTO items (id, receipt_id, description, price_cents) VALUES (?, ?, ?, ?)",
			item.ID, receipt.ID, item.Description, item.PriceCents,
		)
		if err != nil {
			return mapTxError(fmt.Errorf("failed to insert item: %w", err))
		}
	}

	if err := tx.Commit(); err != nil {
		return mapTxError(fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

// GetReceipt retrieves a receipt with its items.
func (s *SQLiteStore) GetReceipt(ctx context.Context, receiptID string) (*models.Receipt, error) {
	receipt := &models.Receipt{}
	var owner sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT id, owner_id, description, created_at FROM receipts WHERE id = ?",
		receiptID,
	).Scan(&receipt.ID, &owner, &receipt.Description, &receipt.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("receipt %s: %w", receiptID, ledger.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get receipt: %w", err)
	}
	if owner.Valid {
		receipt.OwnerID = owner.String
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, description, price_cents FROM items WHERE receipt_id = ? ORDER BY rowid",
		receiptID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		item := models.Item{ReceiptID: receiptID}
		if err := rows.Scan(&item.ID, &item.Description, &item.PriceCents); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}
		receipt.Items = append(receipt.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate items: %w", err)
	}

	return receipt, nil
}

// ReplaceReceiptItems swaps out a receipt's items. Existing allocations for
// the old items are reversed out of the affected running totals and removed
// in the same transaction, returning the receipt to the unsplit state.
func (s *SQLiteStore) ReplaceReceiptItems(ctx context.Context, receiptID string, items []models.Item) error {
	for i := range items {
		if items[i].PriceCents < 0 {
			return &ledger.ValidationError{ItemID: items[i].ID, Reason: "negative price"}
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapTxError(fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer tx.Rollback()

	var one int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM receipts WHERE id = ?", receiptID).Scan(&one)
	if err == sql.ErrNoRows {
		return fmt.Errorf("receipt %s: %w", receiptID, ledger.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to check receipt: %w", err)
	}

	oldItemIDs, err := receiptItemIDs(ctx, tx, receiptID)
	if err != nil {
		return err
	}

	// Reverse prior allocations before the cascade removes the rows, so
	// running_total stays equal to the sum of surviving allocations.
	if len(oldItemIDs) > 0 {
		old, err := allocationsForItems(ctx, tx, oldItemIDs)
		if err != nil {
			return err
		}
		if err := applyDeltas(ctx, tx, ledger.Deltas(old, nil)); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM items WHERE receipt_id = ?", receiptID); err != nil {
		return mapTxError(fmt.Errorf("failed to delete items: %w", err))
	}

	for i := range items {
		item := &items[i]
		if item.ID == "" {
			item.ID = uuid.New().String()
		}
		item.ReceiptID = receiptID

		_, err = tx.ExecContext(ctx,
			"INSERT INTO items (id, receipt_id, description, price_cents) VALUES (?, ?, ?, ?)",
			item.ID, receiptID, item.Description, item.PriceCents,
		)
		if err != nil {
			return mapTxError(fmt.Errorf("failed to insert item: %w", err))
		}
	}

	if err := tx.Commit(); err != nil {
		return mapTxError(fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

func receiptItemIDs(ctx context.Context, tx *sql.Tx, receiptID string) ([]string, error) {
	rows, err := tx.QueryContext(ctx, "SELECT id FROM items WHERE receipt_id = ?", receiptID)
	if err != nil {
		return nil, fmt.Errorf("failed to list item ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan item id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate item ids: %w", err)
	}
	return ids, nil
}
