package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"gst-billing/internal/core"
	"gst-billing/internal/lock"
)

// ErrNoDefaultCompany is returned by LoadDefaultCompany when no company code is
// configured and the database does not hold exactly one company.
var ErrNoDefaultCompany = errors.New("no default company")

// Services bundles the core services the application layer orchestrates.
type Services struct {
	Master   core.MasterDataService
	Vouchers core.VoucherService
	Returns  core.ReturnService
	Stock    core.StockService
	Ledger   core.LedgerService
	Reports  core.ReportingService
}

type appService struct {
	Services
	locker         lock.Locker
	defaultCompany string
	log            *zap.Logger
}

// NewAppService constructs an appService that satisfies ApplicationService.
// A nil locker falls back to an in-process lock.
func NewAppService(svcs Services, locker lock.Locker, defaultCompany string, log *zap.Logger) ApplicationService {
	if locker == nil {
		locker = lock.NewLocal()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &appService{Services: svcs, locker: locker, defaultCompany: defaultCompany, log: log}
}

// Lock keys use trimmed codes, as product lookup does, so " P1" and "P1"
// contend for one key.

func productKey(companyCode, productCode string) string {
	return "product:" + strings.TrimSpace(companyCode) + ":" + strings.TrimSpace(productCode)
}

func voucherKey(companyCode, number string) string {
	return "voucher:" + strings.TrimSpace(companyCode) + ":" + strings.TrimSpace(number)
}

// withLock runs fn while holding keys.
func (s *appService) withLock(ctx context.Context, keys []string, fn func() error) error {
	release, err := s.locker.Lock(ctx, keys...)
	if err != nil {
		s.log.Warn("lock not obtained", zap.Strings("keys", keys), zap.Error(err))
		return err
	}
	defer release()
	return fn()
}

func (s *appService) LoadDefaultCompany(ctx context.Context) (*core.Company, error) {
	if s.defaultCompany != "" {
		return s.Master.GetCompany(ctx, s.defaultCompany)
	}
	companies, err := s.Master.ListCompanies(ctx)
	if err != nil {
		return nil, err
	}
	if len(companies) != 1 {
		return nil, fmt.Errorf("%w: found %d companies, set COMPANY_CODE", ErrNoDefaultCompany, len(companies))
	}
	return &companies[0], nil
}

// ── Master data ──────────────────────────────────────────────────────────────

func (s *appService) ListParties(ctx context.Context, companyCode string, partyType core.PartyType) (*PartyListResult, error) {
	company, err := s.Master.GetCompany(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	parties, err := s.Master.GetParties(ctx, company.ID, partyType)
	if err != nil {
		return nil, err
	}
	return &PartyListResult{Parties: parties}, nil
}

func (s *appService) CreateParty(ctx context.Context, req CreatePartyRequest) (*core.Party, error) {
	company, err := s.Master.GetCompany(ctx, req.CompanyCode)
	if err != nil {
		return nil, err
	}
	return s.Master.CreateParty(ctx, company.ID, req.PartyInput)
}

func (s *appService) ListProducts(ctx context.Context, companyCode string) (*ProductListResult, error) {
	company, err := s.Master.GetCompany(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	products, err := s.Master.GetProducts(ctx, company.ID)
	if err != nil {
		return nil, err
	}
	return &ProductListResult{Products: products}, nil
}

func (s *appService) CreateProduct(ctx context.Context, req CreateProductRequest) (*core.Product, error) {
	company, err := s.Master.GetCompany(ctx, req.CompanyCode)
	if err != nil {
		return nil, err
	}
	return s.Master.CreateProduct(ctx, company.ID, req.ProductInput)
}

// ── Vouchers ─────────────────────────────────────────────────────────────────

func (s *appService) QuoteVoucher(ctx context.Context, req core.PostVoucherInput) (*core.Voucher, error) {
	return s.Vouchers.QuoteVoucher(ctx, req)
}

func (s *appService) PostVoucher(ctx context.Context, req core.PostVoucherInput) (*core.Voucher, error) {
	keys := make([]string, 0, len(req.Lines))
	for _, l := range req.Lines {
		keys = append(keys, productKey(req.CompanyCode, l.ProductCode))
	}

	var v *core.Voucher
	err := s.withLock(ctx, keys, func() error {
		var err error
		v, err = s.Vouchers.PostVoucher(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (s *appService) GetVoucher(ctx context.Context, companyCode, number string) (*core.Voucher, error) {
	company, err := s.Master.GetCompany(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	return s.Vouchers.GetVoucherByNumber(ctx, company.ID, number)
}

func (s *appService) ListVouchers(ctx context.Context, companyCode string, filter core.VoucherFilter) (*VoucherListResult, error) {
	company, err := s.Master.GetCompany(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	vouchers, err := s.Vouchers.ListVouchers(ctx, company.ID, filter)
	if err != nil {
		return nil, err
	}
	return &VoucherListResult{CompanyCode: companyCode, Vouchers: vouchers}, nil
}

// ── Returns ──────────────────────────────────────────────────────────────────

func (s *appService) GetReturnable(ctx context.Context, companyCode, voucherNumber string) (*core.Returnable, error) {
	return s.Returns.GetReturnable(ctx, companyCode, voucherNumber)
}

func (s *appService) PostReturn(ctx context.Context, req core.PostReturnInput) (*core.ReturnDocument, error) {
	var doc *core.ReturnDocument
	err := s.withLock(ctx, []string{voucherKey(req.CompanyCode, req.VoucherNumber)}, func() error {
		var err error
		doc, err = s.Returns.PostReturn(ctx, req)
		return err
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *appService) ListReturns(ctx context.Context, companyCode, voucherNumber string) (*ReturnListResult, error) {
	company, err := s.Master.GetCompany(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	v, err := s.Vouchers.GetVoucherByNumber(ctx, company.ID, voucherNumber)
	if err != nil {
		return nil, err
	}
	returns, err := s.Returns.ListReturns(ctx, v.ID)
	if err != nil {
		return nil, err
	}
	return &ReturnListResult{VoucherNumber: voucherNumber, Returns: returns}, nil
}

// ── Stock ────────────────────────────────────────────────────────────────────

func (s *appService) GetStock(ctx context.Context, companyCode, productCode string, limit int) (*StockResult, error) {
	company, err := s.Master.GetCompany(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	product, err := s.Master.GetProductByCode(ctx, company.ID, productCode)
	if err != nil {
		return nil, err
	}
	movements, err := s.Stock.GetMovements(ctx, company.ID, product.ID, limit)
	if err != nil {
		return nil, err
	}
	return &StockResult{Product: product, Movements: movements}, nil
}

func (s *appService) AdjustStock(ctx context.Context, req AdjustStockRequest) (*core.StockMovement, error) {
	if req.Delta.IsZero() {
		return nil, &core.CalcError{Err: core.ErrInvalidInput, Field: "delta", Details: "must not be zero"}
	}
	company, err := s.Master.GetCompany(ctx, req.CompanyCode)
	if err != nil {
		return nil, err
	}
	product, err := s.Master.GetProductByCode(ctx, company.ID, req.ProductCode)
	if err != nil {
		return nil, err
	}

	var mv *core.StockMovement
	err = s.withLock(ctx, []string{productKey(req.CompanyCode, req.ProductCode)}, func() error {
		var err error
		mv, err = s.Stock.AdjustStock(ctx, company.ID, product.ID, req.Delta)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("stock adjusted",
		zap.String("company", req.CompanyCode),
		zap.String("product", req.ProductCode),
		zap.String("delta", req.Delta.String()),
		zap.String("after", mv.After.String()))
	return mv, nil
}

// ── Ledger and reports ───────────────────────────────────────────────────────

// GetTrialBalance returns the trial balance for the given company.
func (s *appService) GetTrialBalance(ctx context.Context, companyCode string) (*TrialBalanceResult, error) {
	company, err := s.Master.GetCompany(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	balances, err := s.Ledger.GetBalances(ctx, company.ID)
	if err != nil {
		return nil, err
	}
	return &TrialBalanceResult{
		CompanyCode: company.CompanyCode,
		CompanyName: company.Name,
		Currency:    company.BaseCurrency,
		Accounts:    balances,
	}, nil
}

func (s *appService) PostJournalEntry(ctx context.Context, req JournalEntryRequest) (*core.JournalEntry, error) {
	if strings.TrimSpace(req.Narration) == "" {
		return nil, &core.CalcError{Err: core.ErrInvalidInput, Field: "narration", Details: "is required"}
	}
	company, err := s.Master.GetCompany(ctx, req.CompanyCode)
	if err != nil {
		return nil, err
	}

	posting := core.JournalPosting{
		CompanyID:      company.ID,
		IdempotencyKey: uuid.NewString(),
		Narration:      req.Narration,
		PostingDate:    req.PostingDate,
		DocumentDate:   req.DocumentDate,
		ReferenceType:  "JE",
	}
	for i, l := range req.Lines {
		if l.Debit.IsNegative() || l.Credit.IsNegative() || l.Debit.IsPositive() == l.Credit.IsPositive() {
			return nil, &core.CalcError{Err: core.ErrInvalidInput, Field: fmt.Sprintf("lines[%d]", i),
				Details: "exactly one of debit or credit must be positive"}
		}
		posting.Debit(l.AccountCode, core.RoundMoney(l.Debit))
		posting.Credit(l.AccountCode, core.RoundMoney(l.Credit))
	}
	if err := posting.Validate(); err != nil {
		return nil, &core.CalcError{Err: core.ErrInvalidInput, Field: "lines", Details: err.Error()}
	}

	entryID, err := s.Ledger.Commit(ctx, posting)
	if err != nil {
		return nil, err
	}
	s.log.Info("journal entry posted", zap.String("company", req.CompanyCode), zap.Int("entry_id", entryID))
	return s.Ledger.GetEntry(ctx, entryID)
}

func (s *appService) GetAccountStatement(ctx context.Context, companyCode, accountCode, fromDate, toDate string) (*AccountStatementResult, error) {
	lines, err := s.Reports.GetAccountStatement(ctx, companyCode, accountCode, fromDate, toDate)
	if err != nil {
		return nil, err
	}
	return &AccountStatementResult{CompanyCode: companyCode, AccountCode: accountCode, Lines: lines}, nil
}

func (s *appService) GetPartyStatement(ctx context.Context, companyCode, partyCode, fromDate, toDate string) (*core.PartyStatement, error) {
	return s.Reports.GetPartyStatement(ctx, companyCode, partyCode, fromDate, toDate)
}

func (s *appService) GetGSTSummary(ctx context.Context, companyCode, fromDate, toDate string) (*core.GSTSummary, error) {
	return s.Reports.GetGSTSummary(ctx, companyCode, fromDate, toDate)
}

func (s *appService) GetProfitAndLoss(ctx context.Context, companyCode, fromDate, toDate string) (*core.PLReport, error) {
	return s.Reports.GetProfitAndLoss(ctx, companyCode, fromDate, toDate)
}
