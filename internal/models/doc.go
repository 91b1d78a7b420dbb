// Package models defines the core domain models for payshare.
//
// # Entities
//
//   - Collective: a named group sharing expenses, guarded by a password and
//     reachable through an opaque bearer token
//   - Membership: authorizes a User to act within a Collective
//   - Purchase: an expense paid by one member, split evenly across members
//   - Liquidation: a direct repayment from a debtor to a creditor
//   - User: an external identity, referenced but never mutated by the ledger
//
// # Design Principles
//
//  1. **Exact money**: all amounts are money.Money, never float64
//  2. **Soft delete**: ledger entries are never removed, only flagged Deleted
//  3. **Avoid circular references**: relationships are ID strings, not pointers
//  4. **Composed timestamps**: every entity embeds Timestamps
package models

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

// MaxNameLength bounds collective, purchase and liquidation names.
const MaxNameLength = 100

// ErrInvalidInput marks values rejected before anything touches storage.
var ErrInvalidInput = errors.New("invalid input")

// ValidateName checks that a display name is non-blank and at most MaxNameLength runes.
func ValidateName(field, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalidInput, field)
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return fmt.Errorf("%w: %s exceeds %d characters", ErrInvalidInput, field, MaxNameLength)
	}
	return nil
}
