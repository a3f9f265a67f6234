package core

import (
	"time"

	"github.com/shopspring/decimal"
)

type AccountType string

const (
	Asset     AccountType = "asset"
	Liability AccountType = "liability"
	Equity    AccountType = "equity"
	Revenue   AccountType = "revenue"
	Expense   AccountType = "expense"
)

type Account struct {
	ID        int         `json:"id"`
	CompanyID int         `json:"company_id"`
	Code      string      `json:"code"`
	Name      string      `json:"name"`
	Type      AccountType `json:"type"`
}

// Company is the registered business. State is its home GST jurisdiction and
// is the companyState of every voucher it posts.
type Company struct {
	ID           int    `json:"id"`
	CompanyCode  string `json:"company_code"`
	Name         string `json:"name"`
	BaseCurrency string `json:"base_currency"`
	State        string `json:"state"`
	GSTIN        string `json:"gstin,omitempty"`
}

type JournalEntry struct {
	ID              int           `json:"id"`
	CompanyID       int           `json:"company_id"`
	IdempotencyKey  string        `json:"idempotency_key,omitempty"`
	PostingDate     time.Time     `json:"posting_date"`
	DocumentDate    time.Time     `json:"document_date"`
	CreatedAt       time.Time     `json:"created_at"`
	Narration       string        `json:"narration"`
	ReferenceType   *string       `json:"reference_type,omitempty"`
	ReferenceID     *string       `json:"reference_id,omitempty"`
	ReversedEntryID *int          `json:"reversed_entry_id,omitempty"`
	Lines           []JournalLine `json:"lines"`
}

type JournalLine struct {
	ID        int             `json:"id"`
	EntryID   int             `json:"entry_id"`
	AccountID int             `json:"account_id"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
}

type DocumentStatus string

const (
	DocumentStatusDraft     DocumentStatus = "DRAFT"
	DocumentStatusPosted    DocumentStatus = "POSTED"
	DocumentStatusCancelled DocumentStatus = "CANCELLED"
)

type DocumentType struct {
	Code              string `json:"code"`
	Name              string `json:"name"`
	AffectsInventory  bool   `json:"affects_inventory"`
	AffectsGL         bool   `json:"affects_gl"`
	AffectsAR         bool   `json:"affects_ar"`
	AffectsAP         bool   `json:"affects_ap"`
	NumberingStrategy string `json:"numbering_strategy"` // 'global', 'per_fy', 'per_branch'
	ResetsEveryFY     bool   `json:"resets_every_fy"`
}

type Document struct {
	ID             int            `json:"id"`
	CompanyID      int            `json:"company_id"`
	TypeCode       string         `json:"type_code"`
	Status         DocumentStatus `json:"status"`
	DocumentNumber *string        `json:"document_number,omitempty"`
	FinancialYear  *int           `json:"financial_year,omitempty"`
	BranchID       *int           `json:"branch_id,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	PostedAt       *time.Time     `json:"posted_at,omitempty"`
}

// FinancialYearOf returns the Indian financial year (April to March) that date
// falls in, identified by its starting calendar year.
func FinancialYearOf(date time.Time) int {
	if date.Month() < time.April {
		return date.Year() - 1
	}
	return date.Year()
}
