package models

import "github.com/mmynk/payshare/internal/money"

// Purchase describes a payment one member made on behalf of the collective.
// The price is split evenly among the collective's current members.
type Purchase struct {
	// ID is the unique identifier for the purchase (UUID format).
	ID string

	// CollectiveID is the collective this purchase belongs to.
	CollectiveID string

	// BuyerID is the member who paid.
	BuyerID string

	// Name is a short description (e.g. "Groceries", "Lunch").
	Name string

	// Price is the amount paid.
	Price money.Money

	// Deleted marks a soft-deleted record. It never flips back.
	Deleted bool

	Timestamps
}

// Kind tags the record for combined listings.
func (p *Purchase) Kind() EntryKind { return EntryPurchase }
