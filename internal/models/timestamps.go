package models

import "time"

// Timestamps is embedded into every entity.
// CreatedAt is set once on creation; ModifiedAt moves on every mutation.
type Timestamps struct {
	CreatedAt  time.Time
	ModifiedAt time.Time
}

// NewTimestamps returns a pair stamped at now.
func NewTimestamps(now time.Time) Timestamps {
	return Timestamps{CreatedAt: now, ModifiedAt: now}
}

// Touch records a mutation at now.
func (t *Timestamps) Touch(now time.Time) {
	t.ModifiedAt = now
}
