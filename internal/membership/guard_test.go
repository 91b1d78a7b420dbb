package membership

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/mmynk/payshare/internal/models"
	"github.com/mmynk/payshare/internal/storage"
)

// fakeStore is an in-memory Store. raceOnInsert simulates a concurrent
// insert landing between the existence check and the insert.
type fakeStore struct {
	members      map[string]bool
	inserts      int
	reads        int
	raceOnInsert bool
	failRead     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{members: make(map[string]bool)}
}

func key(collectiveID, userID string) string { return collectiveID + "/" + userID }

func (f *fakeStore) MembershipExists(_ context.Context, collectiveID, userID string) (bool, error) {
	f.reads++
	if f.failRead != nil {
		return false, f.failRead
	}
	return f.members[key(collectiveID, userID)], nil
}

func (f *fakeStore) InsertMembership(_ context.Context, m *models.Membership) error {
	k := key(m.CollectiveID, m.MemberID)
	if f.raceOnInsert {
		f.members[k] = true
	}
	if f.members[k] {
		return fmt.Errorf("insert: %w", storage.ErrDuplicateMembership)
	}
	f.inserts++
	f.members[k] = true
	return nil
}

func TestAddMember(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	g := New(store, nil)

	added, err := g.AddMember(ctx, "c1", "alice")
	if err != nil {
		t.Fatalf("AddMember failed: %v", err)
	}
	if !added {
		t.Error("expected first AddMember to create a membership")
	}

	added, err = g.AddMember(ctx, "c1", "alice")
	if err != nil {
		t.Fatalf("second AddMember failed: %v", err)
	}
	if added {
		t.Error("expected second AddMember to be a no-op")
	}
	if store.inserts != 1 {
		t.Errorf("expected 1 membership, got %d", store.inserts)
	}

	ok, err := g.IsMember(ctx, "c1", "alice")
	if err != nil || !ok {
		t.Errorf("IsMember = %v, %v; want true, nil", ok, err)
	}
	ok, _ = g.IsMember(ctx, "c2", "alice")
	if ok {
		t.Error("membership must not leak to another collective")
	}
}

func TestAddMember_ConcurrentInsert(t *testing.T) {
	store := newFakeStore()
	store.raceOnInsert = true

	added, err := New(store, nil).AddMember(context.Background(), "c1", "bob")
	if err != nil {
		t.Fatalf("expected duplicate to be absorbed, got %v", err)
	}
	if added {
		t.Error("expected added=false when another insert won")
	}
}

func TestAssertMember_StoreFailure(t *testing.T) {
	store := newFakeStore()
	store.failRead = errors.New("disk on fire")

	err := New(store, nil).AssertMember(context.Background(), "c1", "alice")
	if err == nil {
		t.Fatal("expected error")
	}
	var notMember *NotAMemberError
	if errors.As(err, &notMember) {
		t.Error("a store failure must not be reported as a missing membership")
	}
}

func TestCheckPurchase(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.members[key("c1", "alice")] = true
	g := New(store, nil)

	if err := g.CheckPurchase(ctx, &models.Purchase{CollectiveID: "c1", BuyerID: "alice"}); err != nil {
		t.Errorf("member purchase rejected: %v", err)
	}

	err := g.CheckPurchase(ctx, &models.Purchase{CollectiveID: "c1", BuyerID: "mallory"})
	var notMember *NotAMemberError
	if !errors.As(err, &notMember) {
		t.Fatalf("expected *NotAMemberError, got %v", err)
	}
	if notMember.UserID != "mallory" || notMember.CollectiveID != "c1" {
		t.Errorf("unexpected error fields: %+v", notMember)
	}
	if Reason(err) != "not_a_member" {
		t.Errorf("Reason = %q", Reason(err))
	}
}

func TestCheckLiquidation(t *testing.T) {
	store := newFakeStore()
	store.members[key("c1", "alice")] = true
	store.members[key("c1", "bob")] = true

	tests := []struct {
		name       string
		debtor     string
		creditor   string
		wantReason string
		wantUser   string
	}{
		{name: "both members", debtor: "alice", creditor: "bob"},
		{name: "same actor", debtor: "alice", creditor: "alice", wantReason: "same_actor", wantUser: "alice"},
		{name: "same non-member", debtor: "eve", creditor: "eve", wantReason: "same_actor", wantUser: "eve"},
		{name: "debtor outside", debtor: "eve", creditor: "bob", wantReason: "not_a_member", wantUser: "eve"},
		{name: "creditor outside", debtor: "alice", creditor: "eve", wantReason: "not_a_member", wantUser: "eve"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := &models.Liquidation{CollectiveID: "c1", DebtorID: tt.debtor, CreditorID: tt.creditor}
			err := New(store, nil).CheckLiquidation(context.Background(), l)

			if tt.wantReason == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if got := Reason(err); got != tt.wantReason {
				t.Fatalf("Reason = %q, want %q (err %v)", got, tt.wantReason, err)
			}

			var notMember *NotAMemberError
			var sameActor *SameActorError
			switch {
			case errors.As(err, &notMember):
				if notMember.UserID != tt.wantUser {
					t.Errorf("UserID = %q, want %q", notMember.UserID, tt.wantUser)
				}
			case errors.As(err, &sameActor):
				if sameActor.UserID != tt.wantUser {
					t.Errorf("UserID = %q, want %q", sameActor.UserID, tt.wantUser)
				}
			}
		})
	}
}

func TestCheckLiquidation_SameActorSkipsStore(t *testing.T) {
	store := newFakeStore()
	l := &models.Liquidation{CollectiveID: "c1", DebtorID: "alice", CreditorID: "alice"}

	_ = New(store, nil).CheckLiquidation(context.Background(), l)
	if store.reads != 0 {
		t.Errorf("expected no store reads, got %d", store.reads)
	}
}

func TestReason_Unrelated(t *testing.T) {
	if got := Reason(errors.New("boom")); got != "" {
		t.Errorf("Reason = %q, want empty", got)
	}
	if got := Reason(nil); got != "" {
		t.Errorf("Reason(nil) = %q, want empty", got)
	}
}
