package sqlstore

import (
	"context"
	"fmt"

	"github.com/mmynk/payshare/internal/models"
)

const selectUserColumns = `u.id, u.username, u.active, u.created_at, u.modified_at`

func scanUser(s scanner) (*models.User, error) {
	user := &models.User{}
	var createdAt, modifiedAt int64
	if err := s.Scan(&user.ID, &user.Username, &user.Active, &createdAt, &modifiedAt); err != nil {
		return nil, err
	}
	user.CreatedAt = fromMillis(createdAt)
	user.ModifiedAt = fromMillis(modifiedAt)
	return user, nil
}

// CreateUser inserts a new user into the database.
func (t *sqlTx) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, username, active, created_at, modified_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := t.exec(ctx, query,
		user.ID,
		user.Username,
		user.Active,
		toMillis(user.CreatedAt),
		toMillis(user.ModifiedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	return nil
}

// GetUser retrieves a user by their ID.
func (t *sqlTx) GetUser(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + selectUserColumns + ` FROM users u WHERE u.id = ?`

	user, err := scanUser(t.queryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err, "user", id)
	}

	return user, nil
}
