package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// ErrNotFound is returned when a looked-up record does not exist.
var ErrNotFound = errors.New("not found")

// pgxQuerier is satisfied by both *pgxpool.Pool and pgx.Tx, enabling shared query helpers.
type pgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// pgxRowQuerier is satisfied by both *pgxpool.Pool and pgx.Tx (for Query).
type pgxRowQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type pgxReader interface {
	pgxQuerier
	pgxRowQuerier
}

// companyByCode loads a company by its code.
func companyByCode(ctx context.Context, q pgxQuerier, companyCode string) (*Company, error) {
	var c Company
	var gstin *string
	err := q.QueryRow(ctx,
		"SELECT id, company_code, name, base_currency, state, gstin FROM companies WHERE company_code = $1",
		companyCode,
	).Scan(&c.ID, &c.CompanyCode, &c.Name, &c.BaseCurrency, &c.State, &gstin)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("company code %s: %w", companyCode, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to resolve company %s: %w", companyCode, err)
	}
	c.GSTIN = deref(gstin)
	return &c, nil
}

func toPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
