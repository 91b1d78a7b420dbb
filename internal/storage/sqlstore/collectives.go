package sqlstore

import (
	"context"
	"fmt"

	"github.com/mmynk/payshare/internal/models"
	"github.com/mmynk/payshare/internal/storage"
)

const selectCollectiveColumns = `
	c.id, c.name, c.access_key, c.password_hash, c.token, c.currency, c.version,
	c.created_at, c.modified_at
`

func scanCollective(s scanner) (*models.Collective, error) {
	c := &models.Collective{}
	var createdAt, modifiedAt int64
	if err := s.Scan(
		&c.ID, &c.Name, &c.Key, &c.PasswordHash, &c.Token, &c.Currency, &c.Version,
		&createdAt, &modifiedAt,
	); err != nil {
		return nil, err
	}
	c.CreatedAt = fromMillis(createdAt)
	c.ModifiedAt = fromMillis(modifiedAt)
	return c, nil
}

// CreateCollective persists a new collective. ID, Key and Token must be set by the caller.
func (t *sqlTx) CreateCollective(ctx context.Context, c *models.Collective) error {
	_, err := t.exec(ctx,
		`INSERT INTO collectives (id, name, access_key, password_hash, token, currency, version, created_at, modified_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.Key, c.PasswordHash, c.Token, c.Currency, c.Version,
		toMillis(c.CreatedAt), toMillis(c.ModifiedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert collective: %w", err)
	}
	return nil
}

// GetCollective retrieves a collective by ID.
func (t *sqlTx) GetCollective(ctx context.Context, id string) (*models.Collective, error) {
	return t.getCollective(ctx, "c.id = ?", id, "")
}

// GetCollectiveByKey retrieves a collective by its external key.
func (t *sqlTx) GetCollectiveByKey(ctx context.Context, key string) (*models.Collective, error) {
	return t.getCollective(ctx, "c.access_key = ?", key, "")
}

// GetCollectiveByToken retrieves the collective currently holding token.
func (t *sqlTx) GetCollectiveByToken(ctx context.Context, token string) (*models.Collective, error) {
	return t.getCollective(ctx, "c.token = ?", token, "")
}

// LockCollective retrieves a collective by ID and locks its row until the transaction ends.
func (t *sqlTx) LockCollective(ctx context.Context, id string) (*models.Collective, error) {
	return t.getCollective(ctx, "c.id = ?", id, t.d.forUpdate)
}

func (t *sqlTx) getCollective(ctx context.Context, where, arg, suffix string) (*models.Collective, error) {
	query := `SELECT ` + selectCollectiveColumns + ` FROM collectives c WHERE ` + where + suffix

	c, err := scanCollective(t.queryRow(ctx, query, arg))
	if err != nil {
		return nil, notFound(t.mapErr(err), "collective", arg)
	}
	return c, nil
}

// UpdateCollectiveCredentials stores a new password hash and token if nobody
// changed the collective since it was read.
func (t *sqlTx) UpdateCollectiveCredentials(ctx context.Context, c *models.Collective) error {
	res, err := t.exec(ctx,
		`UPDATE collectives
		 SET password_hash = ?, token = ?, version = version + 1, modified_at = ?
		 WHERE id = ? AND version = ?`,
		c.PasswordHash, c.Token, toMillis(c.ModifiedAt), c.ID, c.Version,
	)
	if err != nil {
		return fmt.Errorf("failed to update collective credentials: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("collective %s at version %d: %w", c.ID, c.Version, storage.ErrConflict)
	}

	c.Version++
	return nil
}
