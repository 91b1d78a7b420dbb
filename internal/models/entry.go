package models

import (
	"time"

	"github.com/mmynk/payshare/internal/money"
)

// EntryKind distinguishes the two kinds of ledger entries.
type EntryKind int

const (
	EntryPurchase EntryKind = iota + 1
	EntryLiquidation
)

func (k EntryKind) String() string {
	switch k {
	case EntryPurchase:
		return "purchase"
	case EntryLiquidation:
		return "liquidation"
	default:
		return "unknown"
	}
}

// Entry is a ledger entry of either kind. Exactly one of Purchase and
// Liquidation is set, matching Kind.
type Entry struct {
	Kind        EntryKind
	Purchase    *Purchase
	Liquidation *Liquidation
}

// PurchaseEntry wraps p as an Entry.
func PurchaseEntry(p *Purchase) Entry {
	return Entry{Kind: p.Kind(), Purchase: p}
}

// LiquidationEntry wraps l as an Entry.
func LiquidationEntry(l *Liquidation) Entry {
	return Entry{Kind: l.Kind(), Liquidation: l}
}

func (e Entry) ID() string {
	if e.Kind == EntryPurchase {
		return e.Purchase.ID
	}
	return e.Liquidation.ID
}

func (e Entry) Name() string {
	if e.Kind == EntryPurchase {
		return e.Purchase.Name
	}
	return e.Liquidation.Name
}

// Amount is the purchase price or the liquidation amount.
func (e Entry) Amount() money.Money {
	if e.Kind == EntryPurchase {
		return e.Purchase.Price
	}
	return e.Liquidation.Amount
}

func (e Entry) CreatedAt() time.Time {
	if e.Kind == EntryPurchase {
		return e.Purchase.CreatedAt
	}
	return e.Liquidation.CreatedAt
}
