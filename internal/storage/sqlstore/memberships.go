package sqlstore

import (
	"context"
	"fmt"

	"github.com/mmynk/payshare/internal/models"
	"github.com/mmynk/payshare/internal/storage"
)

// InsertMembership adds a user to a collective.
// A clash on (member, collective) leaves the transaction usable; PostgreSQL
// would abort it on a raw unique violation.
func (t *sqlTx) InsertMembership(ctx context.Context, m *models.Membership) error {
	res, err := t.exec(ctx,
		`INSERT INTO memberships (id, collective_id, member_id, created_at, modified_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (member_id, collective_id) DO NOTHING`,
		m.ID, m.CollectiveID, m.MemberID, toMillis(m.CreatedAt), toMillis(m.ModifiedAt),
	)
	if err != nil {
		if t.d.isUniqueViolation(err) {
			return fmt.Errorf("%s in %s: %w", m.MemberID, m.CollectiveID, storage.ErrDuplicateMembership)
		}
		return fmt.Errorf("failed to insert membership: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check insert result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s in %s: %w", m.MemberID, m.CollectiveID, storage.ErrDuplicateMembership)
	}
	return nil
}

// MembershipExists reports whether the user is a member of the collective.
func (t *sqlTx) MembershipExists(ctx context.Context, collectiveID, userID string) (bool, error) {
	n, err := t.CountMemberships(ctx, collectiveID, userID)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// CountMemberships counts membership rows for the pair. The unique constraint keeps it at 0 or 1.
func (t *sqlTx) CountMemberships(ctx context.Context, collectiveID, userID string) (int, error) {
	var n int
	err := t.queryRow(ctx,
		"SELECT COUNT(*) FROM memberships WHERE collective_id = ? AND member_id = ?",
		collectiveID, userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count memberships: %w", t.mapErr(err))
	}
	return n, nil
}

// ListMembers returns the active members of a collective in joining order.
func (t *sqlTx) ListMembers(ctx context.Context, collectiveID string) ([]*models.User, error) {
	rows, err := t.query(ctx,
		`SELECT `+selectUserColumns+`
		 FROM memberships m
		 JOIN users u ON u.id = m.member_id
		 WHERE m.collective_id = ? AND u.active = ?
		 ORDER BY m.created_at, m.id`,
		collectiveID, true,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	defer rows.Close()

	var members []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan member: %w", err)
		}
		members = append(members, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate members: %w", err)
	}

	return members, nil
}
