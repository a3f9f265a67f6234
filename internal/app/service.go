package app

import (
	"context"

	"gst-billing/internal/core"
)

// ApplicationService is the single interface all UI adapters (CLI, Web) call.
// It decouples presentation from business logic. Implementations must contain
// no fmt.Println, no ANSI codes, and no display logic of any kind.
type ApplicationService interface {
	// LoadDefaultCompany loads the active company. Uses the configured company
	// code if set; otherwise expects exactly one company in the database.
	LoadDefaultCompany(ctx context.Context) (*core.Company, error)

	// ── Master data ──────────────────────────────────────────────────────────

	ListParties(ctx context.Context, companyCode string, partyType core.PartyType) (*PartyListResult, error)
	CreateParty(ctx context.Context, req CreatePartyRequest) (*core.Party, error)
	ListProducts(ctx context.Context, companyCode string) (*ProductListResult, error)
	CreateProduct(ctx context.Context, req CreateProductRequest) (*core.Product, error)

	// ── Vouchers ─────────────────────────────────────────────────────────────

	// QuoteVoucher prices a voucher against live master data without posting it.
	QuoteVoucher(ctx context.Context, req core.PostVoucherInput) (*core.Voucher, error)

	// PostVoucher posts a sale or purchase: stock, numbering and journal in one
	// transaction. Postings touching the same products are serialized.
	PostVoucher(ctx context.Context, req core.PostVoucherInput) (*core.Voucher, error)

	GetVoucher(ctx context.Context, companyCode, number string) (*core.Voucher, error)
	ListVouchers(ctx context.Context, companyCode string, filter core.VoucherFilter) (*VoucherListResult, error)

	// ── Returns ──────────────────────────────────────────────────────────────

	// GetReturnable reports how much of each line of the voucher can still be returned.
	GetReturnable(ctx context.Context, companyCode, voucherNumber string) (*core.Returnable, error)

	// PostReturn posts a sales or purchase return. Returns against the same
	// voucher are serialized.
	PostReturn(ctx context.Context, req core.PostReturnInput) (*core.ReturnDocument, error)

	ListReturns(ctx context.Context, companyCode, voucherNumber string) (*ReturnListResult, error)

	// ── Stock ────────────────────────────────────────────────────────────────

	// GetStock returns a product's current stock and its most recent movements.
	GetStock(ctx context.Context, companyCode, productCode string, limit int) (*StockResult, error)

	// AdjustStock books a manual stock correction. A negative delta that would
	// drive stock below zero fails with core.ErrInsufficientStock.
	AdjustStock(ctx context.Context, req AdjustStockRequest) (*core.StockMovement, error)

	// ── Ledger and reports ───────────────────────────────────────────────────

	GetTrialBalance(ctx context.Context, companyCode string) (*TrialBalanceResult, error)

	// PostJournalEntry books a manual, balanced journal entry.
	PostJournalEntry(ctx context.Context, req JournalEntryRequest) (*core.JournalEntry, error)

	// GetAccountStatement returns a chronological account statement with running balance.
	// fromDate and toDate are optional (empty string means unbounded).
	GetAccountStatement(ctx context.Context, companyCode, accountCode, fromDate, toDate string) (*AccountStatementResult, error)

	GetPartyStatement(ctx context.Context, companyCode, partyCode, fromDate, toDate string) (*core.PartyStatement, error)
	GetGSTSummary(ctx context.Context, companyCode, fromDate, toDate string) (*core.GSTSummary, error)
	GetProfitAndLoss(ctx context.Context, companyCode, fromDate, toDate string) (*core.PLReport, error)
}
