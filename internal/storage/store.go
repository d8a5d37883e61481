// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"

	"github.com/splitit-app/splitit/internal/models"
)

// Store defines the interface for SplitIt persistence. This abstraction
// allows swapping storage backends (SQLite, PostgreSQL, etc.) without
// changing the server layer.
//
// Mutating operations involving allocations are transactional end to end:
// either all rows and all running-total adjustments commit, or nothing does.
// Errors use the ledger package taxonomy (ledger.ErrNotFound,
// ledger.ErrConflict, *ledger.ValidationError).
type Store interface {
	// CreateReceipt persists a new receipt with its items.
	// Missing IDs and CreatedAt are populated by the store.
	CreateReceipt(ctx context.Context, receipt *models.Receipt) error

	// GetReceipt retrieves a receipt with its items.
	GetReceipt(ctx context.Context, receiptID string) (*models.Receipt, error)

	// ReplaceReceiptItems replaces all items on a receipt. Prior allocations
	// for the old items are removed and their running-total contributions
	// reversed in the same transaction, leaving the receipt unsplit.
	ReplaceReceiptItems(ctx context.Context, receiptID string, items []models.Item) error

	// UpsertParticipant returns the participant with the given display name,
	// creating it with a zero running total if it does not exist.
	UpsertParticipant(ctx context.Context, displayName string) (*models.Participant, error)

	// GetParticipant retrieves a participant by ID.
	GetParticipant(ctx context.Context, participantID string) (*models.Participant, error)

	// ListParticipants returns all participants in creation order, which is
	// the canonical ordering used for split tie-breaks.
	ListParticipants(ctx context.Context) ([]*models.Participant, error)

	// ReplaceAllocations atomically deletes all allocation rows for the
	// given items and inserts the new set, adjusting each affected
	// participant's running total by the delta. All-or-nothing: any invalid
	// row rejects the entire call with nothing written.
	ReplaceAllocations(ctx context.Context, itemIDs []string, allocations []models.Allocation) error

	// ListAllocationsByReceipt returns the allocation rows for a receipt's
	// items.
	ListAllocationsByReceipt(ctx context.Context, receiptID string) ([]models.Allocation, error)

	// RecordSettlement appends a settlement row. It never touches
	// allocations or running totals.
	RecordSettlement(ctx context.Context, settlement *models.Settlement) error

	// ListSettlements returns a participant's settlements, newest first.
	ListSettlements(ctx context.Context, participantID string) ([]*models.Settlement, error)

	// Outstanding returns running_total minus the sum of the participant's
	// settlements, derived at read time and never stored.
	Outstanding(ctx context.Context, participantID string) (int64, error)

	// CreateUser persists a new user account.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByEmail retrieves a user by email, or (nil, nil) if absent.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByID retrieves a user by ID, or (nil, nil) if absent.
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// Close releases any resources held by the store.
	Close() error
}
