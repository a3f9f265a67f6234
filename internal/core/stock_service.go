package core

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// StockService reads and adjusts product stock stored in PostgreSQL.
// Vouchers and returns move stock through applyDeltasTx inside their own transaction;
// this service covers lookups and manual corrections.
type StockService interface {
	GetStock(ctx context.Context, companyID, productID int) (decimal.Decimal, error)
	// GetMovements returns the most recent movements of a product, newest first.
	GetMovements(ctx context.Context, companyID, productID int, limit int) ([]StockMovement, error)
	// AdjustStock applies a signed manual correction and returns the resulting movement.
	AdjustStock(ctx context.Context, companyID, productID int, delta decimal.Decimal) (*StockMovement, error)
	// Ledger returns a StockLedger bound to one company.
	Ledger(companyID int) StockLedger
}

type stockService struct {
	pool *pgxpool.Pool
}

func NewStockService(pool *pgxpool.Pool) StockService {
	return &stockService{pool: pool}
}

func (s *stockService) GetStock(ctx context.Context, companyID, productID int) (decimal.Decimal, error) {
	var qty decimal.Decimal
	err := s.pool.QueryRow(ctx,
		"SELECT current_stock FROM products WHERE company_id = $1 AND id = $2",
		companyID, productID,
	).Scan(&qty)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, fmt.Errorf("product %d: %w", productID, ErrNotFound)
		}
		return decimal.Zero, fmt.Errorf("failed to read stock of product %d: %w", productID, err)
	}
	return qty, nil
}

func (s *stockService) GetMovements(ctx context.Context, companyID, productID int, limit int) ([]StockMovement, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, product_id, delta, before_qty, after_qty, reason,
		       COALESCE(document_type, ''), COALESCE(document_id, 0), created_at
		FROM stock_movements
		WHERE company_id = $1 AND product_id = $2
		ORDER BY id DESC
		LIMIT $3
	`, companyID, productID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock movements: %w", err)
	}
	defer rows.Close()

	var movements []StockMovement
	for rows.Next() {
		var m StockMovement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.Delta, &m.Before, &m.After, &m.Reason,
			&m.DocumentType, &m.DocumentID, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan stock movement: %w", err)
		}
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

func (s *stockService) AdjustStock(ctx context.Context, companyID, productID int, delta decimal.Decimal) (*StockMovement, error) {
	if delta.IsZero() {
		return nil, invalidInput("delta", "adjustment must be non-zero")
	}
	movements, err := s.Ledger(companyID).ApplyDeltas(ctx,
		[]StockDelta{{ProductID: productID, Quantity: delta, Reason: StockManualAdjustment}})
	if err != nil {
		return nil, err
	}
	return &movements[0], nil
}

func (s *stockService) Ledger(companyID int) StockLedger {
	return &pgStockLedger{pool: s.pool, companyID: companyID}
}

// pgStockLedger is the StockLedger over the products table. Each call runs in
// its own transaction.
type pgStockLedger struct {
	pool      *pgxpool.Pool
	companyID int
}

func (l *pgStockLedger) ApplyDeltas(ctx context.Context, deltas []StockDelta) ([]StockMovement, error) {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	movements, err := applyDeltasTx(ctx, tx, l.companyID, deltas, "", 0)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit stock adjustment: %w", err)
	}
	return movements, nil
}

func (l *pgStockLedger) ApplyDelta(ctx context.Context, productID int, delta decimal.Decimal, reason StockReason) (decimal.Decimal, error) {
	if delta.IsZero() {
		return l.Stock(ctx, productID)
	}
	movements, err := l.ApplyDeltas(ctx, []StockDelta{{ProductID: productID, Quantity: delta, Reason: reason}})
	if err != nil {
		return decimal.Zero, err
	}
	return movements[0].After, nil
}

func (l *pgStockLedger) Stock(ctx context.Context, productID int) (decimal.Decimal, error) {
	var qty decimal.Decimal
	err := l.pool.QueryRow(ctx,
		"SELECT current_stock FROM products WHERE company_id = $1 AND id = $2",
		l.companyID, productID,
	).Scan(&qty)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return decimal.Zero, fmt.Errorf("product %d: %w", productID, ErrInvalidInput)
		}
		return decimal.Zero, fmt.Errorf("failed to read stock of product %d: %w", productID, err)
	}
	return qty, nil
}

// applyDeltasTx locks every affected product row in ascending id order, checks
// the whole batch against the locked levels and then writes new levels and
// movement rows. Nothing is written if any delta fails.
func applyDeltasTx(ctx context.Context, tx pgx.Tx, companyID int, deltas []StockDelta, docType string, docID int) ([]StockMovement, error) {
	if len(deltas) == 0 {
		return nil, nil
	}

	seen := make(map[int]bool, len(deltas))
	ids := make([]int, 0, len(deltas))
	for _, d := range deltas {
		if !seen[d.ProductID] {
			seen[d.ProductID] = true
			ids = append(ids, d.ProductID)
		}
	}
	sort.Ints(ids)

	rows, err := tx.Query(ctx, `
		SELECT id, current_stock
		FROM products
		WHERE company_id = $1 AND id = ANY($2)
		ORDER BY id
		FOR UPDATE
	`, companyID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to lock products: %w", err)
	}
	current := make(map[int]decimal.Decimal, len(ids))
	for rows.Next() {
		var id int
		var qty decimal.Decimal
		if err := rows.Scan(&id, &qty); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan product stock: %w", err)
		}
		current[id] = qty
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read product stock: %w", err)
	}

	movements, err := CheckDeltas(current, deltas)
	if err != nil {
		return nil, err
	}

	var docTypePtr *string
	var docIDPtr *int
	if docType != "" {
		docTypePtr, docIDPtr = &docType, &docID
	}
	for i := range movements {
		mv := &movements[i]
		if _, err := tx.Exec(ctx,
			"UPDATE products SET current_stock = $1 WHERE id = $2",
			mv.After, mv.ProductID,
		); err != nil {
			return nil, fmt.Errorf("failed to update stock of product %d: %w", mv.ProductID, err)
		}
		err := tx.QueryRow(ctx, `
			INSERT INTO stock_movements (company_id, product_id, delta, before_qty, after_qty, reason, document_type, document_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id, created_at
		`, companyID, mv.ProductID, mv.Delta, mv.Before, mv.After, string(mv.Reason), docTypePtr, docIDPtr,
		).Scan(&mv.ID, &mv.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to record stock movement: %w", err)
		}
		mv.DocumentType, mv.DocumentID = docType, docID
	}
	return movements, nil
}
