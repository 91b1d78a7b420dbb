// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"
	"errors"

	"github.com/mmynk/payshare/internal/models"
)

var (
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateMembership is returned when the (member, collective) pair already exists.
	ErrDuplicateMembership = errors.New("duplicate membership")

	// ErrConflict is returned when an optimistic version check fails because
	// the record changed since it was read.
	ErrConflict = errors.New("concurrent modification")
)

// Store is the datastore behind the ledger.
// This abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
type Store interface {
	// WithTx runs fn inside a single transaction. The transaction commits when
	// fn returns nil and rolls back otherwise; fn's error is returned as is.
	// Reads inside fn see one consistent snapshot.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any resources held by the store.
	Close() error
}

// Tx exposes the datastore operations available inside a transaction.
type Tx interface {
	UserStore
	CollectiveStore
	MembershipStore
	LedgerStore
}

// UserStore is the identity collaborator. The ledger only reads users; the
// create method exists for provisioning.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// CollectiveStore persists collectives and their credentials.
type CollectiveStore interface {
	CreateCollective(ctx context.Context, c *models.Collective) error
	GetCollective(ctx context.Context, id string) (*models.Collective, error)
	GetCollectiveByKey(ctx context.Context, key string) (*models.Collective, error)
	GetCollectiveByToken(ctx context.Context, token string) (*models.Collective, error)

	// LockCollective reads the collective and holds a row lock on it until the
	// transaction ends, where the backend supports row locks.
	LockCollective(ctx context.Context, id string) (*models.Collective, error)

	// UpdateCollectiveCredentials writes PasswordHash, Token and ModifiedAt if
	// the stored version still equals c.Version, then increments c.Version.
	// Returns ErrConflict otherwise.
	UpdateCollectiveCredentials(ctx context.Context, c *models.Collective) error
}

// MembershipStore persists memberships.
type MembershipStore interface {
	// InsertMembership returns ErrDuplicateMembership if the pair exists.
	InsertMembership(ctx context.Context, m *models.Membership) error
	MembershipExists(ctx context.Context, collectiveID, userID string) (bool, error)
	CountMemberships(ctx context.Context, collectiveID, userID string) (int, error)

	// ListMembers returns the active users holding a membership in the
	// collective, in the order they joined.
	ListMembers(ctx context.Context, collectiveID string) ([]*models.User, error)
}

// EntryFilter narrows ledger listings. Zero values do not filter.
type EntryFilter struct {
	IncludeDeleted bool
	BuyerID        string
	DebtorID       string
	CreditorID     string
}

// LedgerStore persists purchases and liquidations.
// Get methods return soft-deleted records too.
type LedgerStore interface {
	InsertPurchase(ctx context.Context, p *models.Purchase) error
	GetPurchase(ctx context.Context, id string) (*models.Purchase, error)
	ListPurchases(ctx context.Context, collectiveID string, filter EntryFilter) ([]*models.Purchase, error)
	MarkPurchaseDeleted(ctx context.Context, p *models.Purchase) error

	InsertLiquidation(ctx context.Context, l *models.Liquidation) error
	GetLiquidation(ctx context.Context, id string) (*models.Liquidation, error)
	ListLiquidations(ctx context.Context, collectiveID string, filter EntryFilter) ([]*models.Liquidation, error)
	MarkLiquidationDeleted(ctx context.Context, l *models.Liquidation) error
}
