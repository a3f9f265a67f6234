package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ErrDuplicatePosting is returned when a posting's idempotency key was already booked.
var ErrDuplicatePosting = errors.New("duplicate posting")

type LedgerService interface {
	// Commit books a standalone posting, such as a manual journal entry, in its own transaction.
	Commit(ctx context.Context, posting JournalPosting) (int, error)
	// CommitInTx books a posting inside the caller's transaction and returns the
	// journal entry id. The caller commits or rolls back.
	CommitInTx(ctx context.Context, tx pgx.Tx, posting JournalPosting) (int, error)
	GetEntry(ctx context.Context, entryID int) (*JournalEntry, error)
	GetBalances(ctx context.Context, companyID int) ([]AccountBalance, error)
}

type Ledger struct {
	pool *pgxpool.Pool
}

func NewLedger(pool *pgxpool.Pool) *Ledger {
	return &Ledger{pool: pool}
}

func (l *Ledger) Commit(ctx context.Context, posting JournalPosting) (int, error) {
	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	entryID, err := l.CommitInTx(ctx, tx, posting)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return entryID, nil
}

func (l *Ledger) CommitInTx(ctx context.Context, tx pgx.Tx, posting JournalPosting) (int, error) {
	if err := posting.Validate(); err != nil {
		return 0, fmt.Errorf("posting validation failed: %w", err)
	}

	documentDate := posting.DocumentDate
	if documentDate == "" {
		documentDate = posting.PostingDate
	}
	var refType, refID *string
	if posting.ReferenceType != "" {
		refType, refID = &posting.ReferenceType, &posting.ReferenceID
	}

	var entryID int
	var err error
	if posting.IdempotencyKey != "" {
		err = tx.QueryRow(ctx, `
			INSERT INTO journal_entries (company_id, narration, posting_date, document_date, reference_type, reference_id, idempotency_key, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
			ON CONFLICT (idempotency_key) DO NOTHING
			RETURNING id
		`, posting.CompanyID, posting.Narration, posting.PostingDate, documentDate, refType, refID, posting.IdempotencyKey).Scan(&entryID)
	} else {
		err = tx.QueryRow(ctx, `
			INSERT INTO journal_entries (company_id, narration, posting_date, document_date, reference_type, reference_id, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, NOW())
			RETURNING id
		`, posting.CompanyID, posting.Narration, posting.PostingDate, documentDate, refType, refID).Scan(&entryID)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("%w: idempotency key %s already exists", ErrDuplicatePosting, posting.IdempotencyKey)
		}
		return 0, fmt.Errorf("failed to insert journal entry: %w", err)
	}

	for _, line := range posting.Lines {
		var accountID int
		err := tx.QueryRow(ctx, "SELECT id FROM accounts WHERE company_id = $1 AND code = $2", posting.CompanyID, line.AccountCode).Scan(&accountID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return 0, fmt.Errorf("account code %s for company %d: %w", line.AccountCode, posting.CompanyID, ErrNotFound)
			}
			return 0, fmt.Errorf("failed to fetch account ID for code %s: %w", line.AccountCode, err)
		}

		debit, credit := decimal.Zero, decimal.Zero
		if line.IsDebit {
			debit = line.Amount
		} else {
			credit = line.Amount
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO journal_lines (entry_id, account_id, debit, credit)
			VALUES ($1, $2, $3, $4)
		`, entryID, accountID, debit.StringFixed(2), credit.StringFixed(2))
		if err != nil {
			return 0, fmt.Errorf("failed to insert journal line: %w", err)
		}
	}

	return entryID, nil
}

func (l *Ledger) GetEntry(ctx context.Context, entryID int) (*JournalEntry, error) {
	var e JournalEntry
	var idempotencyKey *string
	err := l.pool.QueryRow(ctx, `
		SELECT id, company_id, narration, posting_date, document_date, reference_type, reference_id,
		       reversed_entry_id, idempotency_key, created_at
		FROM journal_entries WHERE id = $1
	`, entryID).Scan(&e.ID, &e.CompanyID, &e.Narration, &e.PostingDate, &e.DocumentDate,
		&e.ReferenceType, &e.ReferenceID, &e.ReversedEntryID, &idempotencyKey, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("entry %d: %w", entryID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to fetch entry %d: %w", entryID, err)
	}
	if idempotencyKey != nil {
		e.IdempotencyKey = *idempotencyKey
	}

	rows, err := l.pool.Query(ctx, "SELECT id, entry_id, account_id, debit, credit FROM journal_lines WHERE entry_id = $1 ORDER BY id", entryID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch lines for entry %d: %w", entryID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var jl JournalLine
		if err := rows.Scan(&jl.ID, &jl.EntryID, &jl.AccountID, &jl.Debit, &jl.Credit); err != nil {
			return nil, fmt.Errorf("failed to scan line: %w", err)
		}
		e.Lines = append(e.Lines, jl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating lines: %w", err)
	}
	return &e, nil
}

type AccountBalance struct {
	Code    string          `json:"code"`
	Name    string          `json:"name"`
	Balance decimal.Decimal `json:"balance"`
}

// GetBalances returns the net debit balance of every account of the company.
func (l *Ledger) GetBalances(ctx context.Context, companyID int) ([]AccountBalance, error) {
	rows, err := l.pool.Query(ctx, `
		SELECT a.code, a.name, COALESCE(SUM(jl.debit), 0) - COALESCE(SUM(jl.credit), 0) AS balance
		FROM accounts a
		LEFT JOIN journal_lines jl ON a.id = jl.account_id
		WHERE a.company_id = $1
		GROUP BY a.id, a.code, a.name
		ORDER BY a.code
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var balances []AccountBalance
	for rows.Next() {
		var b AccountBalance
		if err := rows.Scan(&b.Code, &b.Name, &b.Balance); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		balances = append(balances, b)
	}
	return balances, nil
}
