package models

// Settlement represents a payment recorded against a participant's balance.
// Settlements never mutate and never alter historical allocations; they only
// reduce what the participant is considered to owe going forward.
type Settlement struct {
	// ID is the unique identifier for the settlement (UUID format).
	ID string

	// ParticipantID is the participant who paid.
	ParticipantID string

	// AmountCents is the payment amount in minor units. Never negative.
	AmountCents int64

	// Note is an optional description for the settlement.
	Note string

	// CreatedAt is the Unix timestamp when the settlement was recorded.
	CreatedAt int64
}
