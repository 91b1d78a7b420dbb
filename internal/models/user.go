package models

// User is an identity owned by the identity provider.
// The ledger references users by ID and never mutates them.
type User struct {
	// ID is the unique identifier for the user (UUID format).
	ID string

	// Username is the unique login/display name.
	Username string

	// Active users count towards a collective's member set.
	// Deactivated users keep their history but drop out of balances.
	Active bool

	Timestamps
}

// Membership maps a user to a collective. It is unique per (member, collective)
// and is the only authority on whether a user may act in the collective.
type Membership struct {
	ID           string
	CollectiveID string
	MemberID     string

	Timestamps
}
