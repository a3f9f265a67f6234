package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// VoucherService posts purchase and sales vouchers. Posting computes the
// voucher, takes the next document number, moves stock and books the journal
// in one transaction.
type VoucherService interface {
	// QuoteVoucher computes a voucher from live master data without persisting anything.
	QuoteVoucher(ctx context.Context, input PostVoucherInput) (*Voucher, error)
	PostVoucher(ctx context.Context, input PostVoucherInput) (*Voucher, error)
	GetVoucher(ctx context.Context, voucherID int) (*Voucher, error)
	GetVoucherByNumber(ctx context.Context, companyID int, number string) (*Voucher, error)
	// ListVouchers returns voucher headers without lines, newest first.
	ListVouchers(ctx context.Context, companyID int, filter VoucherFilter) ([]Voucher, error)
}

type voucherService struct {
	pool       *pgxpool.Pool
	docService DocumentService
	ledger     LedgerService
	ruleEngine RuleEngine
	log        *zap.Logger
}

func NewVoucherService(pool *pgxpool.Pool, docService DocumentService, ledger LedgerService, ruleEngine RuleEngine, log *zap.Logger) VoucherService {
	if log == nil {
		log = zap.NewNop()
	}
	return &voucherService{pool: pool, docService: docService, ledger: ledger, ruleEngine: ruleEngine, log: log}
}

func (s *voucherService) QuoteVoucher(ctx context.Context, input PostVoucherInput) (*Voucher, error) {
	company, err := companyByCode(ctx, s.pool, input.CompanyCode)
	if err != nil {
		return nil, err
	}
	draft, err := s.draftFromInput(ctx, s.pool, company, input)
	if err != nil {
		return nil, err
	}
	v, err := BuildVoucher(*draft)
	if err != nil {
		s.logBuildError(err, input)
		return nil, err
	}
	v.CompanyID = company.ID
	return v, nil
}

func (s *voucherService) PostVoucher(ctx context.Context, input PostVoucherInput) (*Voucher, error) {
	date, err := time.Parse("2006-01-02", input.Date)
	if err != nil {
		return nil, invalidInput("date", "must be YYYY-MM-DD, got %q", input.Date)
	}
	if len(input.Lines) == 0 {
		return nil, invalidInput("lines", "a voucher needs at least one line")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	company, err := companyByCode(ctx, tx, input.CompanyCode)
	if err != nil {
		return nil, err
	}
	draft, err := s.draftFromInput(ctx, tx, company, input)
	if err != nil {
		return nil, err
	}
	v, err := BuildVoucher(*draft)
	if err != nil {
		s.logBuildError(err, input)
		return nil, err
	}
	v.CompanyID = company.ID

	fy := FinancialYearOf(date)
	documentID, number, err := s.docService.IssueNumberTx(ctx, tx, company.ID, v.Kind.DocumentTypeCode(), &fy)
	if err != nil {
		return nil, fmt.Errorf("failed to number voucher: %w", err)
	}
	v.Number = number

	if err := insertVoucherTx(ctx, tx, documentID, v); err != nil {
		return nil, err
	}

	if _, err := applyDeltasTx(ctx, tx, company.ID, PlanVoucherDeltas(v), v.Kind.DocumentTypeCode(), documentID); err != nil {
		return nil, fmt.Errorf("voucher %s: %w", v.Number, err)
	}

	accounts, err := s.ruleEngine.ResolveAccounts(ctx, company.ID, VoucherRuleTypes(v.Kind)...)
	if err != nil {
		return nil, err
	}
	if posting := BuildVoucherPosting(v, accounts); !posting.IsEmpty() {
		entryID, err := s.ledger.CommitInTx(ctx, tx, posting)
		if err != nil {
			return nil, fmt.Errorf("failed to book voucher %s: %w", v.Number, err)
		}
		if _, err := tx.Exec(ctx, "UPDATE vouchers SET journal_entry_id = $1 WHERE id = $2", entryID, v.ID); err != nil {
			return nil, fmt.Errorf("failed to link journal entry: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit voucher: %w", err)
	}

	s.log.Info("voucher posted",
		zap.String("number", v.Number),
		zap.String("kind", string(v.Kind)),
		zap.String("party", v.PartyCode),
		zap.String("grand_total", v.Totals.GrandTotal.StringFixed(2)),
	)
	return v, nil
}

// draftFromInput resolves the party and product snapshots for a voucher.
func (s *voucherService) draftFromInput(ctx context.Context, q pgxQuerier, company *Company, input PostVoucherInput) (*VoucherDraft, error) {
	if !input.Kind.IsValid() {
		return nil, invalidInput("kind", "unknown voucher kind %q", input.Kind)
	}
	party, err := partyByCode(ctx, q, company.ID, input.PartyCode)
	if err != nil {
		return nil, err
	}
	wantType := PartyCustomer
	if input.Kind == VoucherPurchase {
		wantType = PartySupplier
	}
	if party.Type != wantType {
		return nil, invalidInput("party_code", "%s is a %s, a %s voucher needs a %s",
			party.Code, party.Type, input.Kind, wantType)
	}

	partyState, fromFallback := party.ResolveState(company.State)
	if fromFallback {
		s.log.Warn("party has no state or GSTIN, treating as intrastate",
			zap.String("company", company.CompanyCode),
			zap.String("party", party.Code),
		)
	}

	draft := &VoucherDraft{
		Kind:         input.Kind,
		Date:         input.Date,
		PartyID:      party.ID,
		PartyCode:    party.Code,
		PartyName:    party.Name,
		PartyState:   partyState,
		CompanyState: company.State,
		OtherCharges: input.OtherCharges,
		RoundOff:     input.RoundOff,
		Payment:      input.Payment,
		Notes:        input.Notes,
		Lines:        make([]DraftLine, 0, len(input.Lines)),
	}
	for i, li := range input.Lines {
		p, err := productByCode(ctx, q, company.ID, strings.TrimSpace(li.ProductCode))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		rate, taxRate := p.RateFor(input.Kind), p.TaxRate
		if li.UnitRate != nil {
			rate = *li.UnitRate
		}
		if li.TaxRate != nil {
			taxRate = *li.TaxRate
		}
		draft.Lines = append(draft.Lines, DraftLine{
			ProductID:   p.ID,
			ProductCode: p.Code,
			ProductName: p.Name,
			Unit:        p.Unit,
			LineInput: LineInput{
				Quantity:     li.Quantity,
				UnitRate:     rate,
				Discount:     li.Discount,
				TaxRate:      taxRate,
				TaxInclusive: p.TaxInclusive,
			},
		})
	}
	return draft, nil
}

func (s *voucherService) logBuildError(err error, input PostVoucherInput) {
	if errors.Is(err, ErrRoundingMismatch) {
		s.log.Error("tax components do not add up",
			zap.String("company", input.CompanyCode),
			zap.String("party", input.PartyCode),
			zap.Error(err),
		)
	}
}

func insertVoucherTx(ctx context.Context, tx pgx.Tx, documentID int, v *Voucher) error {
	t, p := v.Totals, v.Payment
	var postedAt time.Time
	err := tx.QueryRow(ctx, `
		INSERT INTO vouchers (company_id, document_id, kind, number, voucher_date,
			party_id, party_code, party_name, party_state, company_state,
			subtotal, cgst, sgst, igst, total_tax, other_charges, round_off, grand_total,
			payment_method, amount_paid, balance, payment_reference, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
		RETURNING id, posted_at
	`, v.CompanyID, documentID, string(v.Kind), v.Number, v.Date,
		v.PartyID, v.PartyCode, v.PartyName, v.PartyState, v.CompanyState,
		t.Subtotal, t.CGST, t.SGST, t.IGST, t.TotalTax, t.OtherCharges, t.RoundOff, t.GrandTotal,
		string(p.Method), p.AmountPaid, p.Balance, toPtr(p.Reference), toPtr(v.Notes),
	).Scan(&v.ID, &postedAt)
	if err != nil {
		return fmt.Errorf("failed to insert voucher: %w", err)
	}
	v.PostedAt = &postedAt

	for i := range v.Lines {
		l := &v.Lines[i]
		l.VoucherID = v.ID
		err := tx.QueryRow(ctx, `
			INSERT INTO voucher_lines (voucher_id, line_number, product_id, product_code, product_name, unit,
				quantity, unit_rate, discount_kind, discount_value, tax_rate, tax_inclusive,
				base_amount, discount_amount, taxable_amount, tax_base, tax_amount, cgst, sgst, igst, line_total)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
			RETURNING id
		`, v.ID, l.LineNumber, l.ProductID, l.ProductCode, l.ProductName, l.Unit,
			l.Quantity, l.UnitRate, string(l.Discount.Kind), l.Discount.Value, l.TaxRate, l.TaxInclusive,
			l.BaseAmount, l.DiscountAmount, l.TaxableAmount, l.TaxBase, l.TaxAmount, l.CGST, l.SGST, l.IGST, l.LineTotal,
		).Scan(&l.ID)
		if err != nil {
			return fmt.Errorf("failed to insert voucher line %d: %w", l.LineNumber, err)
		}
	}
	return nil
}

// ── Queries ──────────────────────────────────────────────────────────────────

const voucherColumns = `id, company_id, kind, number, voucher_date::text,
	party_id, party_code, party_name, party_state, company_state,
	subtotal, cgst, sgst, igst, total_tax, other_charges, round_off, grand_total,
	payment_method, amount_paid, balance, payment_reference, notes, posted_at`

func scanVoucher(row pgx.Row) (*Voucher, error) {
	v := &Voucher{}
	var ref, notes *string
	var postedAt time.Time
	t, p := &v.Totals, &v.Payment
	if err := row.Scan(&v.ID, &v.CompanyID, &v.Kind, &v.Number, &v.Date,
		&v.PartyID, &v.PartyCode, &v.PartyName, &v.PartyState, &v.CompanyState,
		&t.Subtotal, &t.CGST, &t.SGST, &t.IGST, &t.TotalTax, &t.OtherCharges, &t.RoundOff, &t.GrandTotal,
		&p.Method, &p.AmountPaid, &p.Balance, &ref, &notes, &postedAt); err != nil {
		return nil, err
	}
	p.Reference, v.Notes = deref(ref), deref(notes)
	v.PostedAt = &postedAt
	return v, nil
}

// loadVoucher reads a voucher with its lines through q, which may be a pool or a tx.
func loadVoucher(ctx context.Context, q pgxReader, where string, args ...any) (*Voucher, error) {
	v, err := scanVoucher(q.QueryRow(ctx, `SELECT `+voucherColumns+` FROM vouchers WHERE `+where, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("voucher: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load voucher: %w", err)
	}

	rows, err := q.Query(ctx, `
		SELECT id, voucher_id, line_number, product_id, product_code, product_name, unit,
		       quantity, unit_rate, discount_kind, discount_value, tax_rate, tax_inclusive,
		       base_amount, discount_amount, taxable_amount, tax_base, tax_amount, cgst, sgst, igst, line_total
		FROM voucher_lines
		WHERE voucher_id = $1
		ORDER BY line_number
	`, v.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load lines of voucher %s: %w", v.Number, err)
	}
	defer rows.Close()

	for rows.Next() {
		var l VoucherLine
		if err := rows.Scan(&l.ID, &l.VoucherID, &l.LineNumber, &l.ProductID, &l.ProductCode, &l.ProductName, &l.Unit,
			&l.Quantity, &l.UnitRate, &l.Discount.Kind, &l.Discount.Value, &l.TaxRate, &l.TaxInclusive,
			&l.BaseAmount, &l.DiscountAmount, &l.TaxableAmount, &l.TaxBase, &l.TaxAmount,
			&l.CGST, &l.SGST, &l.IGST, &l.LineTotal); err != nil {
			return nil, fmt.Errorf("failed to scan voucher line: %w", err)
		}
		v.Lines = append(v.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating voucher lines: %w", err)
	}
	return v, nil
}

func (s *voucherService) GetVoucher(ctx context.Context, voucherID int) (*Voucher, error) {
	v, err := loadVoucher(ctx, s.pool, "id = $1", voucherID)
	if err != nil {
		return nil, fmt.Errorf("voucher %d: %w", voucherID, err)
	}
	return v, nil
}

func (s *voucherService) GetVoucherByNumber(ctx context.Context, companyID int, number string) (*Voucher, error) {
	v, err := loadVoucher(ctx, s.pool, "company_id = $1 AND number = $2", companyID, number)
	if err != nil {
		return nil, fmt.Errorf("voucher %s: %w", number, err)
	}
	return v, nil
}

func (s *voucherService) ListVouchers(ctx context.Context, companyID int, filter VoucherFilter) ([]Voucher, error) {
	where := []string{"company_id = $1"}
	args := []any{companyID}
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if filter.Kind != "" {
		add("kind = $%d", string(filter.Kind))
	}
	if filter.PartyID != 0 {
		add("party_id = $%d", filter.PartyID)
	}
	if filter.FromDate != "" {
		add("voucher_date >= $%d", filter.FromDate)
	}
	if filter.ToDate != "" {
		add("voucher_date <= $%d", filter.ToDate)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+voucherColumns+` FROM vouchers WHERE `+strings.Join(where, " AND ")+` ORDER BY voucher_date DESC, id DESC`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query vouchers: %w", err)
	}
	defer rows.Close()

	var vouchers []Voucher
	for rows.Next() {
		v, err := scanVoucher(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan voucher: %w", err)
		}
		vouchers = append(vouchers, *v)
	}
	return vouchers, rows.Err()
}
