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

// RecordSettlement appends a settlement row. Settlements never touch
// allocations or running totals; the outstanding balance is derived at read
// time by Outstanding.
func (s *SQLiteStore) RecordSettlement(ctx context.Context, settlement *models.Settlement) error {
	if settlement.AmountCents < 0 {
		return &ledger.ValidationError{ParticipantID: settlement.ParticipantID, Reason: "negative settlement amount"}
	}
	if settlement.ID == "" {
		settlement.ID = uuid.New().String()
	}
	if settlement.CreatedAt == 0 {
		settlement.CreatedAt = time.Now().Unix()
	}

	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM participants WHERE id = ?", settlement.ParticipantID).Scan(&one)
	if err == sql.ErrNoRows {
		return fmt.Errorf("participant %s: %w", settlement.ParticipantID, ledger.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("failed to check participant: %w", err)
	}

	var note interface{}
	if settlement.Note != "" {
		note = settlement.Note
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO settlements (id, participant_id, amount_cents, note, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		settlement.ID, settlement.ParticipantID, settlement.AmountCents, note, settlement.CreatedAt,
	)
	if err != nil {
		return mapTxError(fmt.Errorf("failed to insert settlement: %w", err))
	}
	return nil
}

// ListSettlements returns a participant's settlements, newest first.
func (s *SQLiteStore) ListSettlements(ctx context.Context, participantID string) ([]*models.Settlement, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, participant_id, amount_cents, note, created_at
		 FROM settlements WHERE participant_id = ? ORDER BY created_at DESC, id`,
		participantID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list settlements: %w", err)
	}
	defer rows.Close()

	var settlements []*models.Settlement
	for rows.Next() {
		settlement := &models.Settlement{}
		var note sql.NullString
		if err := rows.Scan(&settlement.ID, &settlement.ParticipantID, &settlement.AmountCents,
			&note, &settlement.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan settlement: %w", err)
		}
		if note.Valid {
			settlement.Note = note.String
		}
		settlements = append(settlements, settlement)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate settlements: %w", err)
	}
	return settlements, nil
}
