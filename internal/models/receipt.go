package models

// Receipt represents one bill whose items get split among participants.
type Receipt struct {
	// ID is the unique identifier for the receipt (UUID format).
	ID string

	// OwnerID is the user who created the receipt.
	OwnerID string

	// Description is a short human-readable label (e.g., "Dinner at Luigi's").
	Description string

	// Items are the priced lines on the receipt.
	Items []Item

	// CreatedAt is the Unix timestamp when the receipt was created.
	CreatedAt int64
}

// Item represents a single priced line on a receipt.
// Once allocations have been computed against an item it is immutable,
// except through the replace-all-items operation on its receipt, which also
// invalidates the prior allocations.
type Item struct {
	// ID is the unique identifier for the item (UUID format).
	ID string

	// ReceiptID is the receipt this item belongs to.
	ReceiptID string

	// Description is the line text (e.g., "Pizza", "Coke").
	Description string

	// PriceCents is the item price in minor units. Never negative.
	PriceCents int64
}
