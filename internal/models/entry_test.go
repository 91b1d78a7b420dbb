package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/mmynk/payshare/internal/money"
)

func TestEntry(t *testing.T) {
	at := time.Date(2024, 3, 2, 18, 30, 0, 0, time.UTC)

	p := PurchaseEntry(&Purchase{
		ID:         "p1",
		Name:       "groceries",
		Price:      money.MustParse("12.40", "EUR"),
		Timestamps: NewTimestamps(at),
	})
	assert.Equal(t, EntryPurchase, p.Kind)
	assert.Equal(t, "purchase", p.Kind.String())
	assert.Equal(t, "p1", p.ID())
	assert.Equal(t, "groceries", p.Name())
	assert.Equal(t, "12.40", p.Amount().StringFixed())
	assert.Equal(t, at, p.CreatedAt())

	l := LiquidationEntry(&Liquidation{
		ID:         "l1",
		Name:       "rent share",
		Amount:     money.MustParse("300", "EUR"),
		Timestamps: NewTimestamps(at.Add(time.Minute)),
	})
	assert.Equal(t, EntryLiquidation, l.Kind)
	assert.Equal(t, "liquidation", l.Kind.String())
	assert.Equal(t, "l1", l.ID())
	assert.Equal(t, "rent share", l.Name())
	assert.Equal(t, "300.00", l.Amount().StringFixed())
	assert.Equal(t, at.Add(time.Minute), l.CreatedAt())

	assert.Equal(t, "unknown", EntryKind(0).String())
}
