// Package ledger defines the consistency rules for allocation persistence:
// the error taxonomy shared by storage implementations and the pure delta
// computation that keeps participant running totals exact as allocation sets
// are replaced.
package ledger

import (
	"errors"
	"fmt"

	"github.com/splitit-app/splitit/internal/models"
)

var (
	// ErrNotFound indicates an operation referenced a participant, item, or
	// receipt that no longer exists. Callers must re-fetch state before
	// retrying.
	ErrNotFound = errors.New("not found")

	// ErrConflict indicates a concurrent replace on the same receipt was
	// detected by the transactional layer. Callers should retry the whole
	// call.
	ErrConflict = errors.New("concurrent modification, retry")
)

// ValidationError describes caller-correctable bad input: a negative amount,
// an amount exceeding the item price, or a reference to an unknown item or
// participant. The whole operation is rejected before any write.
type ValidationError struct {
	ItemID        string
	ParticipantID string
	Reason        string
}

func (e *ValidationError) Error() string {
	switch {
	case e.ItemID != "" && e.ParticipantID != "":
		return fmt.Sprintf("invalid allocation (participant %s, item %s): %s", e.ParticipantID, e.ItemID, e.Reason)
	case e.ItemID != "":
		return fmt.Sprintf("invalid allocation (item %s): %s", e.ItemID, e.Reason)
	case e.ParticipantID != "":
		return fmt.Sprintf("invalid allocation (participant %s): %s", e.ParticipantID, e.Reason)
	default:
		return fmt.Sprintf("invalid allocation: %s", e.Reason)
	}
}

// Deltas computes the signed per-participant running-total adjustments that
// turn the old allocation set into the new one. Applying these inside the
// same transaction as the row replacement keeps running_total equal to the
// sum of allocations without ever rescanning the table.
//
// Participants whose net change is zero are omitted, so replaying the same
// allocation set yields an empty map (replace idempotence).
func Deltas(old, new []models.Allocation) map[string]int64 {
	deltas := make(map[string]int64)
	for _, a := range old {
		deltas[a.ParticipantID] -= a.AmountCents
	}
	for _, a := range new {
		deltas[a.ParticipantID] += a.AmountCents
	}
	for id, d := range deltas {
		if d == 0 {
			delete(deltas, id)
		}
	}
	return deltas
}

// ValidateAllocations checks a replacement set against the item prices it
// will be written under: every allocation must reference an item in prices
// and carry a non-negative amount, no (participant, item) pair may repeat,
// and per item the amounts must not sum past the price. Participant
// existence is checked by the storage layer, which owns that state.
func ValidateAllocations(allocs []models.Allocation, prices map[string]int64) error {
	seen := make(map[[2]string]bool, len(allocs))
	perItem := make(map[string]int64, len(prices))
	for _, a := range allocs {
		price, ok := prices[a.ItemID]
		if !ok {
			return &ValidationError{ItemID: a.ItemID, ParticipantID: a.ParticipantID, Reason: "item not in replacement set"}
		}
		if a.AmountCents < 0 {
			return &ValidationError{ItemID: a.ItemID, ParticipantID: a.ParticipantID, Reason: "negative amount"}
		}
		if a.AmountCents > price {
			return &ValidationError{
				ItemID:        a.ItemID,
				ParticipantID: a.ParticipantID,
				Reason:        fmt.Sprintf("amount %d exceeds item price %d", a.AmountCents, price),
			}
		}
		key := [2]string{a.ParticipantID, a.ItemID}
		if seen[key] {
			return &ValidationError{ItemID: a.ItemID, ParticipantID: a.ParticipantID, Reason: "duplicate allocation"}
		}
		seen[key] = true
		perItem[a.ItemID] += a.AmountCents
		if perItem[a.ItemID] > price {
			return &ValidationError{
				ItemID: a.ItemID,
				Reason: fmt.Sprintf("allocations sum to %d, exceeding item price %d", perItem[a.ItemID], price),
			}
		}
	}
	return nil
}
