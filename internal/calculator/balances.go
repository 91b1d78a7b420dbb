// Package calculator derives member balances from a collective's ledger.
package calculator

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mmynk/payshare/internal/money"
)

// PurchaseForBalance represents a purchase with the minimal information needed for balance calculations.
type PurchaseForBalance struct {
	BuyerID string
	Price   money.Money
	Deleted bool
}

// LiquidationForBalance represents a liquidation with the minimal information needed for balance calculations.
type LiquidationForBalance struct {
	DebtorID   string // Who paid back
	CreditorID string // Who received the payment
	Amount     money.Money
	Deleted    bool
}

// MemberBalance represents the balance information for one member.
type MemberBalance struct {
	MemberID  string
	Balance   money.Money // Positive = owed money by the group, Negative = owes money
	Purchased money.Money // Sum of the member's purchases
	Paid      money.Money // Liquidations the member paid as debtor
	Received  money.Money // Liquidations the member received as creditor
}

// Stats is the financial status of a collective.
type Stats struct {
	OverallPurchased money.Money
	OverallDebt      money.Money
	SortedBalances   []MemberBalance
}

// ComputeStats calculates each member's balance.
//
// Only entries that are not deleted and whose parties are all in members are
// counted. Purchases are split evenly across the current members:
//
//	balance(m) = purchased(m) + paid(m) - received(m) - overallPurchased/len(members)
//
// Balances are exact in the currency's minor units and always sum to zero.
// When the even share is not a whole number of minor units, the leftover
// units go one each to the members whose exact balance was rounded down the
// most (earlier members first on ties).
//
// SortedBalances is ordered by balance descending, keeping member order on ties.
func ComputeStats(currency string, members []string, purchases []PurchaseForBalance, liquidations []LiquidationForBalance) (Stats, error) {
	if !money.ValidCurrency(currency) {
		return Stats{}, fmt.Errorf("%w: %q", money.ErrUnknownCurrency, currency)
	}
	currency = strings.ToUpper(currency)

	zero := money.Zero(currency)
	stats := Stats{
		OverallPurchased: zero,
		OverallDebt:      zero,
		SortedBalances:   []MemberBalance{},
	}
	if len(members) == 0 {
		return stats, nil
	}

	index := make(map[string]int, len(members))
	balances := make([]MemberBalance, 0, len(members))
	for _, m := range members {
		if _, dup := index[m]; dup {
			return Stats{}, fmt.Errorf("duplicate member %s", m)
		}
		index[m] = len(balances)
		balances = append(balances, MemberBalance{
			MemberID:  m,
			Purchased: zero,
			Paid:      zero,
			Received:  zero,
		})
	}

	for _, p := range purchases {
		i, ok := index[p.BuyerID]
		if p.Deleted || !ok {
			continue
		}
		if err := money.SameCurrency(currency, p.Price); err != nil {
			return Stats{}, err
		}
		stats.OverallPurchased = stats.OverallPurchased.Add(p.Price)
		balances[i].Purchased = balances[i].Purchased.Add(p.Price)
	}

	for _, l := range liquidations {
		d, okDebtor := index[l.DebtorID]
		c, okCreditor := index[l.CreditorID]
		if l.Deleted || !okDebtor || !okCreditor {
			continue
		}
		if err := money.SameCurrency(currency, l.Amount); err != nil {
			return Stats{}, err
		}
		stats.OverallDebt = stats.OverallDebt.Add(l.Amount)
		balances[d].Paid = balances[d].Paid.Add(l.Amount)
		balances[c].Received = balances[c].Received.Add(l.Amount)
	}

	// Work in minor units scaled by n so that every intermediate value is an
	// exact integer: n*balance(m) = n*own(m) - overallPurchased.
	n := decimal.NewFromInt(int64(len(members)))
	total := stats.OverallPurchased.Minor()
	quotients := make([]decimal.Decimal, len(balances))
	remainders := make([]decimal.Decimal, len(balances))
	leftover := decimal.Zero
	for i, b := range balances {
		own := b.Purchased.Add(b.Paid).Sub(b.Received).Minor()
		q, r := own.Mul(n).Sub(total).QuoRem(n, 0)
		if r.IsNegative() {
			q = q.Sub(decimal.NewFromInt(1))
			r = r.Add(n)
		}
		quotients[i], remainders[i] = q, r
		leftover = leftover.Add(r)
	}

	// The remainders sum to a multiple of n.
	order := make([]int, len(balances))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return remainders[order[a]].GreaterThan(remainders[order[b]])
	})
	extra := leftover.Div(n).IntPart()
	for _, i := range order[:extra] {
		quotients[i] = quotients[i].Add(decimal.NewFromInt(1))
	}

	for i := range balances {
		bal, err := money.FromMinor(quotients[i], currency)
		if err != nil {
			return Stats{}, err
		}
		balances[i].Balance = bal
	}

	sort.SliceStable(balances, func(a, b int) bool {
		return balances[a].Balance.Cmp(balances[b].Balance) > 0
	})
	stats.SortedBalances = balances

	return stats, nil
}

// Transfer is a suggested repayment that would bring balances towards zero.
type Transfer struct {
	DebtorID   string // Who should pay
	CreditorID string // Who should receive
	Amount     money.Money
}

// SettlePlan suggests transfers that clear all balances.
// It greedily matches the member owing the most with the member owed the most;
// the result has at most len(balances)-1 transfers.
func SettlePlan(balances []MemberBalance) []Transfer {
	var creditors, debtors []MemberBalance
	for _, b := range balances {
		switch b.Balance.Sign() {
		case 1:
			creditors = append(creditors, b)
		case -1:
			debtors = append(debtors, b)
		}
	}
	sort.SliceStable(creditors, func(i, j int) bool {
		return creditors[i].Balance.Cmp(creditors[j].Balance) > 0
	})
	sort.SliceStable(debtors, func(i, j int) bool {
		return debtors[i].Balance.Cmp(debtors[j].Balance) < 0
	})

	debtorOwes := make([]money.Money, len(debtors))
	for i, d := range debtors {
		debtorOwes[i] = d.Balance.Neg()
	}
	creditorOwed := make([]money.Money, len(creditors))
	for i, c := range creditors {
		creditorOwed[i] = c.Balance
	}

	var transfers []Transfer
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		amount := debtorOwes[i]
		if creditorOwed[j].Cmp(amount) < 0 {
			amount = creditorOwed[j]
		}

		if !amount.IsZero() {
			transfers = append(transfers, Transfer{
				DebtorID:   debtors[i].MemberID,
				CreditorID: creditors[j].MemberID,
				Amount:     amount,
			})
		}

		debtorOwes[i] = debtorOwes[i].Sub(amount)
		creditorOwed[j] = creditorOwed[j].Sub(amount)

		if debtorOwes[i].IsZero() {
			i++
		}
		if creditorOwed[j].IsZero() {
			j++
		}
	}

	return transfers
}
