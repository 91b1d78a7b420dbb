package models

import "github.com/mmynk/payshare/internal/money"

// Liquidation represents a repayment of one member (debtor) to another (creditor).
type Liquidation struct {
	// ID is the unique identifier for the liquidation (UUID format).
	ID string

	// CollectiveID is the collective this liquidation belongs to.
	CollectiveID string

	// DebtorID is the user who paid back (settling their debt).
	DebtorID string

	// CreditorID is the user who received the payment.
	CreditorID string

	// Name is a short description (e.g. "Rent share March").
	Name string

	// Amount is the repaid amount.
	Amount money.Money

	// Deleted marks a soft-deleted record. It never flips back.
	Deleted bool

	Timestamps
}

// Kind tags the record for combined listings.
func (l *Liquidation) Kind() EntryKind { return EntryLiquidation }
