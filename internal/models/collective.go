package models

import "github.com/mmynk/payshare/internal/money"

// DefaultCurrency is used when a collective is created without one.
const DefaultCurrency = "EUR"

// Collective groups users that want to share payments.
//
// Key identifies the collective externally (e.g. in URLs). Token lets a client
// act for the collective without sending key and password every time; it
// changes if and only if PasswordHash changes.
type Collective struct {
	// ID is the unique identifier for the collective (UUID format).
	ID string

	// Name is the display name (e.g. "Flat 3B").
	Name string

	// Key is the opaque external identifier (UUID format).
	Key string

	// PasswordHash is the salted slow hash of the shared password.
	PasswordHash string

	// Token is the opaque bearer secret, rotated with the password.
	Token string

	// Currency is the ISO 4217 code every amount in this collective uses.
	Currency string

	// Version increments on every credential update (optimistic locking).
	Version int64

	Timestamps
}

// CurrencySymbol returns the display symbol of the collective's currency.
func (c *Collective) CurrencySymbol() string {
	return money.Symbol(c.Currency)
}
