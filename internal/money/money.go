// Package money provides an exact decimal amount tagged with a currency.
//
// All arithmetic is done on shopspring/decimal values; amounts never pass
// through binary floating point. Currency metadata (fraction digits, symbol,
// formatting) comes from Rhymond/go-money.
package money

import (
	"errors"
	"fmt"
	"strings"

	gomoney "github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

var (
	ErrUnknownCurrency  = errors.New("unknown currency")
	ErrTooPrecise       = errors.New("amount has more fractional digits than the currency allows")
	ErrCurrencyMismatch = errors.New("currency mismatch")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrTooLarge         = errors.New("amount too large")
)

// MaxDigits bounds the total number of digits, fractional ones included, of
// a recorded amount. For EUR the largest is 99,999,999.99.
const MaxDigits = 10

var maxMinor = decimal.New(1, MaxDigits)

// Money is an exact amount in a single currency.
// The zero value has no currency and is only useful as a placeholder.
type Money struct {
	amount   decimal.Decimal
	currency string
}

// New returns amount in the currency identified by the ISO 4217 code.
// Amounts are not rounded: a value with more fractional digits than the
// currency supports is rejected.
func New(amount decimal.Decimal, code string) (Money, error) {
	cur, err := lookup(code)
	if err != nil {
		return Money{}, err
	}
	if !amount.Equal(amount.Truncate(int32(cur.Fraction))) {
		return Money{}, fmt.Errorf("%w: %s %s", ErrTooPrecise, amount, cur.Code)
	}
	return Money{amount: normalize(amount), currency: cur.Code}, nil
}

// Parse reads a decimal string such as "12.50" as an amount in code.
func Parse(s, code string) (Money, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Money{}, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return New(d, code)
}

// MustParse is like Parse but panics on error. Intended for tests and constants.
func MustParse(s, code string) Money {
	m, err := Parse(s, code)
	if err != nil {
		panic(err)
	}
	return m
}

// Zero returns a zero amount in code.
func Zero(code string) Money {
	return Money{amount: decimal.Zero, currency: strings.ToUpper(code)}
}

// FromMinor builds an amount from integer minor units (cents for EUR).
func FromMinor(units decimal.Decimal, code string) (Money, error) {
	cur, err := lookup(code)
	if err != nil {
		return Money{}, err
	}
	return New(units.Shift(-int32(cur.Fraction)), cur.Code)
}

// Fraction returns the number of fractional digits of the currency.
func Fraction(code string) (int, error) {
	cur, err := lookup(code)
	if err != nil {
		return 0, err
	}
	return cur.Fraction, nil
}

// Symbol returns the display grapheme of the currency, e.g. "€" for EUR.
func Symbol(code string) string {
	cur := gomoney.GetCurrency(strings.ToUpper(code))
	if cur == nil {
		return code
	}
	return cur.Grapheme
}

// ValidCurrency reports whether code is a known ISO 4217 currency.
func ValidCurrency(code string) bool {
	_, err := lookup(code)
	return err == nil
}

func lookup(code string) (*gomoney.Currency, error) {
	cur := gomoney.GetCurrency(strings.ToUpper(code))
	if cur == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCurrency, code)
	}
	return cur, nil
}

// normalize drops a negative sign from zero.
func normalize(d decimal.Decimal) decimal.Decimal {
	if d.IsZero() {
		return decimal.Zero
	}
	return d
}

func (m Money) Amount() decimal.Decimal { return m.amount }
func (m Money) Currency() string        { return m.currency }
func (m Money) IsZero() bool            { return m.amount.IsZero() }
func (m Money) Sign() int               { return m.amount.Sign() }
func (m Money) Cmp(n Money) int         { return m.amount.Cmp(n.amount) }
func (m Money) Equal(n Money) bool      { return m.currency == n.currency && m.amount.Equal(n.amount) }
func (m Money) Neg() Money              { return Money{amount: normalize(m.amount.Neg()), currency: m.currency} }

// Add panics when the currencies differ; callers validate currencies at the
// boundary so that a mismatch here is a programming error.
func (m Money) Add(n Money) Money {
	return Money{amount: normalize(m.amount.Add(n.amount)), currency: cur(m, n)}
}

func (m Money) Sub(n Money) Money {
	return Money{amount: normalize(m.amount.Sub(n.amount)), currency: cur(m, n)}
}

// Minor returns the amount in integer minor units of its currency.
func (m Money) Minor() decimal.Decimal {
	frac, err := Fraction(m.currency)
	if err != nil {
		return m.amount
	}
	return m.amount.Shift(int32(frac))
}

// CheckBounds returns ErrTooLarge if the amount needs more than MaxDigits
// digits in minor units.
func (m Money) CheckBounds() error {
	if m.Minor().Abs().GreaterThanOrEqual(maxMinor) {
		return fmt.Errorf("%w: %s exceeds %d digits", ErrTooLarge, m.StringFixed(), MaxDigits)
	}
	return nil
}

// StringFixed renders the bare amount with the currency's fraction digits, e.g. "12.50".
func (m Money) StringFixed() string {
	frac, err := Fraction(m.currency)
	if err != nil {
		return m.amount.String()
	}
	return m.amount.StringFixed(int32(frac))
}

// String formats the amount with the currency's symbol and separators.
func (m Money) String() string {
	cur := gomoney.GetCurrency(m.currency)
	if cur == nil {
		return m.amount.String() + " " + m.currency
	}
	minor := m.amount.Shift(int32(cur.Fraction)).BigInt()
	if !minor.IsInt64() {
		return m.StringFixed() + " " + m.currency
	}
	return cur.Formatter().Format(minor.Int64())
}

// SameCurrency reports whether every amount is in code.
func SameCurrency(code string, amounts ...Money) error {
	for _, a := range amounts {
		if a.currency != code {
			return fmt.Errorf("%w: %s != %s", ErrCurrencyMismatch, a.currency, code)
		}
	}
	return nil
}

// the empty currency is weak so that sums can start from the zero value.
func cur(a, b Money) string {
	if a.currency == "" {
		return b.currency
	}
	if b.currency == "" {
		return a.currency
	}
	if a.currency != b.currency {
		panic(fmt.Sprintf("%v: %s != %s", ErrCurrencyMismatch, a.currency, b.currency))
	}
	return a.currency
}
