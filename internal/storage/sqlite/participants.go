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

// UpsertParticipant returns the participant with the given display name,
// creating it with a zero running total when it does not exist yet.
// Display names are the deduplication key, mirroring how receipts name
// people before any accounts exist.
func (s *SQLiteStore) UpsertParticipant(ctx context.Context, displayName string) (*models.Participant, error) {
	if displayName == "" {
		return nil, &ledger.ValidationError{Reason: "empty display name"}
	}

	p := &models.Participant{
		ID:          uuid.New().String(),
		DisplayName: displayName,
		CreatedAt:   time.Now().Unix(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO participants (id, display_name, running_total_cents, created_at)
		 VALUES (?, ?, 0, ?)
		 ON CONFLICT (display_name) DO NOTHING`,
		p.ID, p.DisplayName, p.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert participant: %w", err)
	}

	// Read back: either the fresh row or the pre-existing one.
	err = s.db.QueryRowContext(ctx,
		"SELECT id, display_name, running_total_cents, created_at FROM participants WHERE display_name = ?",
		displayName,
	).Scan(&p.ID, &p.DisplayName, &p.RunningTotalCents, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to read participant: %w", err)
	}
	return p, nil
}

// GetParticipant retrieves a participant by ID.
func (s *SQLiteStore) GetParticipant(ctx context.Context, participantID string) (*models.Participant, error) {
	p := &models.Participant{}
	err := s.db.QueryRowContext(ctx,
		"SELECT id, display_name, running_total_cents, created_at FROM participants WHERE id = ?",
		participantID,
	).Scan(&p.ID, &p.DisplayName, &p.RunningTotalCents, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("participant %s: %w", participantID, ledger.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get participant: %w", err)
	}
	return p, nil
}

// ListParticipants returns all participants in creation order. This order is
// stable and serves as the canonical ordering for split tie-breaks.
func (s *SQLiteStore) ListParticipants(ctx context.Context) ([]*models.Participant, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, display_name, running_total_cents, created_at FROM participants ORDER BY created_at, id",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list participants: %w", err)
	}
	defer rows.Close()

	var participants []*models.Participant
	for rows.Next() {
		p := &models.Participant{}
		if err := rows.Scan(&p.ID, &p.DisplayName, &p.RunningTotalCents, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan participant: %w", err)
		}
		participants = append(participants, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate participants: %w", err)
	}
	return participants, nil
}
