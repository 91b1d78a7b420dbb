package sqlstore

import (
	"context"
	"fmt"

	"github.com/mmynk/payshare/internal/models"
	"github.com/mmynk/payshare/internal/storage"
)

const selectPurchaseColumns = `
	p.id, p.collective_id, p.buyer_id, p.name, p.price, p.currency, p.deleted,
	p.created_at, p.modified_at
`

func scanPurchase(s scanner) (*models.Purchase, error) {
	p := &models.Purchase{}
	var price, currency string
	var createdAt, modifiedAt int64
	if err := s.Scan(
		&p.ID, &p.CollectiveID, &p.BuyerID, &p.Name, &price, &currency, &p.Deleted,
		&createdAt, &modifiedAt,
	); err != nil {
		return nil, err
	}

	m, err := parseMoney(price, currency)
	if err != nil {
		return nil, err
	}
	p.Price = m
	p.CreatedAt = fromMillis(createdAt)
	p.ModifiedAt = fromMillis(modifiedAt)
	return p, nil
}

// InsertPurchase persists a new purchase.
func (t *sqlTx) InsertPurchase(ctx context.Context, p *models.Purchase) error {
	_, err := t.exec(ctx,
		`INSERT INTO purchases (id, collective_id, buyer_id, name, price, currency, deleted, created_at, modified_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.CollectiveID, p.BuyerID, p.Name, p.Price.StringFixed(), p.Price.Currency(), p.Deleted,
		toMillis(p.CreatedAt), toMillis(p.ModifiedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert purchase: %w", err)
	}
	return nil
}

// GetPurchase retrieves a purchase by ID, deleted or not.
func (t *sqlTx) GetPurchase(ctx context.Context, id string) (*models.Purchase, error) {
	p, err := scanPurchase(t.queryRow(ctx,
		`SELECT `+selectPurchaseColumns+` FROM purchases p WHERE p.id = ?`, id))
	if err != nil {
		return nil, notFound(err, "purchase", id)
	}
	return p, nil
}

// ListPurchases retrieves the purchases of a collective, newest first.
func (t *sqlTx) ListPurchases(ctx context.Context, collectiveID string, filter storage.EntryFilter) ([]*models.Purchase, error) {
	query := `SELECT ` + selectPurchaseColumns + ` FROM purchases p WHERE p.collective_id = ?`
	args := []any{collectiveID}

	if !filter.IncludeDeleted {
		query += ` AND p.deleted = ?`
		args = append(args, false)
	}
	if filter.BuyerID != "" {
		query += ` AND p.buyer_id = ?`
		args = append(args, filter.BuyerID)
	}
	query += ` ORDER BY p.created_at DESC, p.id`

	rows, err := t.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list purchases: %w", err)
	}
	defer rows.Close()

	var purchases []*models.Purchase
	for rows.Next() {
		p, err := scanPurchase(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan purchase: %w", err)
		}
		purchases = append(purchases, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate purchases: %w", err)
	}

	return purchases, nil
}

// MarkPurchaseDeleted flags a purchase as deleted. There is no way back.
func (t *sqlTx) MarkPurchaseDeleted(ctx context.Context, p *models.Purchase) error {
	res, err := t.exec(ctx,
		"UPDATE purchases SET deleted = ?, modified_at = ? WHERE id = ?",
		true, toMillis(p.ModifiedAt), p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete purchase: %w", err)
	}
	return expectOne(res, "purchase", p.ID)
}

const selectLiquidationColumns = `
	l.id, l.collective_id, l.debtor_id, l.creditor_id, l.name, l.amount, l.currency, l.deleted,
	l.created_at, l.modified_at
`

func scanLiquidation(s scanner) (*models.Liquidation, error) {
	l := &models.Liquidation{}
	var amount, currency string
	var createdAt, modifiedAt int64
	if err := s.Scan(
		&l.ID, &l.CollectiveID, &l.DebtorID, &l.CreditorID, &l.Name, &amount, &currency, &l.Deleted,
		&createdAt, &modifiedAt,
	); err != nil {
		return nil, err
	}

	m, err := parseMoney(amount, currency)
	if err != nil {
		return nil, err
	}
	l.Amount = m
	l.CreatedAt = fromMillis(createdAt)
	l.ModifiedAt = fromMillis(modifiedAt)
	return l, nil
}

// InsertLiquidation persists a new liquidation.
func (t *sqlTx) InsertLiquidation(ctx context.Context, l *models.Liquidation) error {
	_, err := t.exec(ctx,
		`INSERT INTO liquidations (id, collective_id, debtor_id, creditor_id, name, amount, currency, deleted, created_at, modified_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.CollectiveID, l.DebtorID, l.CreditorID, l.Name, l.Amount.StringFixed(), l.Amount.Currency(), l.Deleted,
		toMillis(l.CreatedAt), toMillis(l.ModifiedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert liquidation: %w", err)
	}
	return nil
}

// GetLiquidation retrieves a liquidation by ID, deleted or not.
func (t *sqlTx) GetLiquidation(ctx context.Context, id string) (*models.Liquidation, error) {
	l, err := scanLiquidation(t.queryRow(ctx,
		`SELECT `+selectLiquidationColumns+` FROM liquidations l WHERE l.id = ?`, id))
	if err != nil {
		return nil, notFound(err, "liquidation", id)
	}
	return l, nil
}

// ListLiquidations retrieves the liquidations of a collective, newest first.
func (t *sqlTx) ListLiquidations(ctx context.Context, collectiveID string, filter storage.EntryFilter) ([]*models.Liquidation, error) {
	query := `SELECT ` + selectLiquidationColumns + ` FROM liquidations l WHERE l.collective_id = ?`
	args := []any{collectiveID}

	if !filter.IncludeDeleted {
		query += ` AND l.deleted = ?`
		args = append(args, false)
	}
	if filter.DebtorID != "" {
		query += ` AND l.debtor_id = ?`
		args = append(args, filter.DebtorID)
	}
	if filter.CreditorID != "" {
		query += ` AND l.creditor_id = ?`
		args = append(args, filter.CreditorID)
	}
	query += ` ORDER BY l.created_at DESC, l.id`

	rows, err := t.query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list liquidations: %w", err)
	}
	defer rows.Close()

	var liquidations []*models.Liquidation
	for rows.Next() {
		l, err := scanLiquidation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan liquidation: %w", err)
		}
		liquidations = append(liquidations, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate liquidations: %w", err)
	}

	return liquidations, nil
}

// MarkLiquidationDeleted flags a liquidation as deleted. There is no way back.
func (t *sqlTx) MarkLiquidationDeleted(ctx context.Context, l *models.Liquidation) error {
	res, err := t.exec(ctx,
		"UPDATE liquidations SET deleted = ?, modified_at = ? WHERE id = ?",
		true, toMillis(l.ModifiedAt), l.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete liquidation: %w", err)
	}
	return expectOne(res, "liquidation", l.ID)
}

func expectOne(res interface{ RowsAffected() (int64, error) }, what, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check %s update: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", what, id, storage.ErrNotFound)
	}
	return nil
}
