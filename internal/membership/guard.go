// Package membership decides who may act within a collective.
//
// Every ledger write passes through a Guard before it reaches storage. The
// guard is bound to one transaction, so its checks and the write that follows
// see the same snapshot.
package membership

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/payshare/internal/models"
	"github.com/mmynk/payshare/internal/storage"
)

// NotAMemberError is returned when a user acts in a collective without a membership.
type NotAMemberError struct {
	UserID       string
	CollectiveID string
}

func (e *NotAMemberError) Error() string {
	return fmt.Sprintf("user %s is not a member of collective %s", e.UserID, e.CollectiveID)
}

// SameActorError is returned for a liquidation whose debtor and creditor coincide.
type SameActorError struct {
	UserID string
}

func (e *SameActorError) Error() string {
	return fmt.Sprintf("user %s cannot be both debtor and creditor", e.UserID)
}

// Reader answers membership queries.
type Reader interface {
	MembershipExists(ctx context.Context, collectiveID, userID string) (bool, error)
}

// Writer records new memberships.
type Writer interface {
	InsertMembership(ctx context.Context, m *models.Membership) error
}

// Store is what a Guard needs from a transaction. storage.Tx satisfies it.
type Store interface {
	Reader
	Writer
}

// Guard enforces membership rules on top of a transaction.
type Guard struct {
	store Store
	now   func() time.Time
}

// New returns a guard over store. A nil clock means time.Now.
func New(store Store, now func() time.Time) *Guard {
	if now == nil {
		now = time.Now
	}
	return &Guard{store: store, now: now}
}

// IsMember reports whether a membership exists for the pair.
func (g *Guard) IsMember(ctx context.Context, collectiveID, userID string) (bool, error) {
	ok, err := g.store.MembershipExists(ctx, collectiveID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to check membership: %w", err)
	}
	return ok, nil
}

// AddMember creates the membership unless it already exists, and reports
// whether a row was created. Calling it twice leaves exactly one membership.
func (g *Guard) AddMember(ctx context.Context, collectiveID, userID string) (bool, error) {
	ok, err := g.IsMember(ctx, collectiveID, userID)
	if err != nil {
		return false, err
	}
	if ok {
		return false, nil
	}

	m := &models.Membership{
		ID:           uuid.NewString(),
		CollectiveID: collectiveID,
		MemberID:     userID,
		Timestamps:   models.NewTimestamps(g.now()),
	}
	err = g.store.InsertMembership(ctx, m)
	if errors.Is(err, storage.ErrDuplicateMembership) {
		// A concurrent insert won the race.
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to insert membership: %w", err)
	}
	return true, nil
}

// AssertMember fails with *NotAMemberError unless the user belongs to the collective.
func (g *Guard) AssertMember(ctx context.Context, collectiveID, userID string) error {
	ok, err := g.IsMember(ctx, collectiveID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return &NotAMemberError{UserID: userID, CollectiveID: collectiveID}
	}
	return nil
}

// CheckPurchase must pass before a purchase is persisted.
func (g *Guard) CheckPurchase(ctx context.Context, p *models.Purchase) error {
	return g.AssertMember(ctx, p.CollectiveID, p.BuyerID)
}

// CheckLiquidation must pass before a liquidation is persisted.
// The same-actor rule is checked first and needs no store access.
func (g *Guard) CheckLiquidation(ctx context.Context, l *models.Liquidation) error {
	if l.DebtorID == l.CreditorID {
		return &SameActorError{UserID: l.DebtorID}
	}
	if err := g.AssertMember(ctx, l.CollectiveID, l.DebtorID); err != nil {
		return err
	}
	return g.AssertMember(ctx, l.CollectiveID, l.CreditorID)
}

// Reason classifies a guard rejection for metrics and logs.
// It returns "" for errors the guard did not produce.
func Reason(err error) string {
	var notMember *NotAMemberError
	var sameActor *SameActorError
	switch {
	case errors.As(err, &notMember):
		return "not_a_member"
	case errors.As(err, &sameActor):
		return "same_actor"
	default:
		return ""
	}
}
