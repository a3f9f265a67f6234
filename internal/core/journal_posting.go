package core

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PostingLine is a single debit or credit of a journal posting.
type PostingLine struct {
	AccountCode string          `json:"account_code"`
	IsDebit     bool            `json:"is_debit"`
	Amount      decimal.Decimal `json:"amount"`
}

// JournalPosting is a balanced journal entry built from a posted voucher or return.
// All amounts are in the company's base currency.
type JournalPosting struct {
	CompanyID      int           `json:"company_id"`
	IdempotencyKey string        `json:"idempotency_key"`
	Narration      string        `json:"narration"`
	PostingDate    string        `json:"posting_date"`
	DocumentDate   string        `json:"document_date"`
	ReferenceType  string        `json:"reference_type"`
	ReferenceID    string        `json:"reference_id"`
	Lines          []PostingLine `json:"lines"`
}

// Debit appends a debit line, skipping zero amounts.
func (p *JournalPosting) Debit(accountCode string, amount decimal.Decimal) {
	p.add(accountCode, true, amount)
}

// Credit appends a credit line, skipping zero amounts.
func (p *JournalPosting) Credit(accountCode string, amount decimal.Decimal) {
	p.add(accountCode, false, amount)
}

// add books a negative amount on the opposite side, so callers can pass
// signed values such as round-off directly.
func (p *JournalPosting) add(accountCode string, isDebit bool, amount decimal.Decimal) {
	if amount.IsZero() {
		return
	}
	if amount.IsNegative() {
		isDebit, amount = !isDebit, amount.Neg()
	}
	p.Lines = append(p.Lines, PostingLine{AccountCode: accountCode, IsDebit: isDebit, Amount: amount})
}

// IsEmpty reports whether the posting has nothing to book.
func (p *JournalPosting) IsEmpty() bool {
	return len(p.Lines) == 0
}

// Validate enforces double-entry rules: at least two lines, positive amounts,
// debits equal to credits.
func (p *JournalPosting) Validate() error {
	if p.CompanyID == 0 {
		return errors.New("posting must specify a company")
	}
	if p.PostingDate == "" {
		return errors.New("posting must specify a posting date")
	}
	if _, err := time.Parse("2006-01-02", p.PostingDate); err != nil {
		return fmt.Errorf("invalid posting date format: %w", err)
	}
	if p.DocumentDate != "" {
		if _, err := time.Parse("2006-01-02", p.DocumentDate); err != nil {
			return fmt.Errorf("invalid document date format: %w", err)
		}
	}

	if len(p.Lines) < 2 {
		return errors.New("transaction must have at least 2 lines")
	}

	totalDebit := decimal.Zero
	totalCredit := decimal.Zero
	for _, line := range p.Lines {
		if line.AccountCode == "" {
			return errors.New("posting line must specify an account code")
		}
		if !line.Amount.IsPositive() {
			return fmt.Errorf("amount must be > 0 for account %s, got %s", line.AccountCode, line.Amount)
		}
		if line.IsDebit {
			totalDebit = totalDebit.Add(line.Amount)
		} else {
			totalCredit = totalCredit.Add(line.Amount)
		}
	}

	if !totalDebit.Equal(totalCredit) {
		return fmt.Errorf("imbalanced posting: debits %s != credits %s", totalDebit, totalCredit)
	}
	return nil
}
