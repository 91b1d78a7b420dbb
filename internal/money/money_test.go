package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		code    string
		want    string
		wantErr error
	}{
		{name: "two digits", in: "12.50", code: "EUR", want: "12.50"},
		{name: "lowercase code", in: "3", code: "eur", want: "3.00"},
		{name: "trailing zeros beyond fraction", in: "1.500", code: "EUR", want: "1.50"},
		{name: "too precise", in: "0.001", code: "EUR", wantErr: ErrTooPrecise},
		{name: "yen has no fraction", in: "100.5", code: "JPY", wantErr: ErrTooPrecise},
		{name: "unknown currency", in: "1", code: "XXY", wantErr: ErrUnknownCurrency},
		{name: "garbage", in: "abc", code: "EUR", wantErr: ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.in, tt.code)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.StringFixed())
			assert.Equal(t, "EUR", got.Currency())
		})
	}
}

func TestArithmeticIsExact(t *testing.T) {
	// 0.1 + 0.2 is the classic float trap.
	sum := MustParse("0.10", "EUR").Add(MustParse("0.20", "EUR"))
	assert.True(t, sum.Equal(MustParse("0.30", "EUR")))

	diff := MustParse("0.30", "EUR").Sub(MustParse("0.30", "EUR"))
	assert.True(t, diff.IsZero())
	assert.Equal(t, 0, diff.Sign())
	assert.Equal(t, "0", diff.Neg().Amount().String())
}

func TestAddStartsFromZeroValue(t *testing.T) {
	var total Money
	total = total.Add(MustParse("5.00", "EUR"))
	assert.Equal(t, "EUR", total.Currency())
	assert.True(t, total.Equal(MustParse("5", "EUR")))
}

func TestAddPanicsOnCurrencyMismatch(t *testing.T) {
	assert.Panics(t, func() {
		MustParse("1", "EUR").Add(MustParse("1", "USD"))
	})
}

func TestSameCurrency(t *testing.T) {
	assert.NoError(t, SameCurrency("EUR", MustParse("1", "EUR"), MustParse("2", "EUR")))
	assert.ErrorIs(t, SameCurrency("EUR", MustParse("1", "USD")), ErrCurrencyMismatch)
}

func TestMinorUnits(t *testing.T) {
	m := MustParse("12.34", "EUR")
	assert.Equal(t, "1234", m.Minor().String())

	back, err := FromMinor(decimal.NewFromInt(-5), "EUR")
	require.NoError(t, err)
	assert.Equal(t, "-0.05", back.StringFixed())
}

func TestSymbol(t *testing.T) {
	assert.Equal(t, "€", Symbol("EUR"))
	assert.Equal(t, "ZZZ", Symbol("ZZZ"))
}

func TestCheckBounds(t *testing.T) {
	tests := []struct {
		in      string
		code    string
		wantErr bool
	}{
		{in: "99999999.99", code: "EUR"},
		{in: "-99999999.99", code: "EUR"},
		{in: "100000000.00", code: "EUR", wantErr: true},
		{in: "-100000000", code: "EUR", wantErr: true},
		{in: "9999999999", code: "JPY"},
		{in: "10000000000", code: "JPY", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.code+" "+tt.in, func(t *testing.T) {
			err := MustParse(tt.in, tt.code).CheckBounds()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrTooLarge)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStringBeyondInt64(t *testing.T) {
	assert.Equal(t, "€1,234.50", MustParse("1234.5", "EUR").String())
	assert.Equal(t, "100000000000000000.00 EUR", MustParse("100000000000000000.00", "EUR").String())
	assert.Equal(t, "-100000000000000000.00 EUR", MustParse("-100000000000000000", "EUR").String())
}
