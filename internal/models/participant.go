package models

// Participant represents a person splitting receipts.
// Participants exist independently of any receipt and are deduplicated by
// display name.
type Participant struct {
	// ID is the unique identifier for the participant (UUID format).
	ID string

	// DisplayName is the unique human-readable name.
	DisplayName string

	// RunningTotalCents is the denormalized sum of this participant's
	// allocation amounts across all receipts. It is maintained by delta in
	// the same transaction as every allocation write and never recomputed
	// by rescanning. Settlements do not change it; the outstanding balance
	// is derived at read time.
	RunningTotalCents int64

	// CreatedAt is the Unix timestamp when the participant was created.
	CreatedAt int64
}

// Allocation is the persisted amount one participant owes for one item.
// There is at most one allocation per (participant, item) pair, and the
// amount never exceeds the item's price.
type Allocation struct {
	ParticipantID string
	ItemID        string
	AmountCents   int64
}
