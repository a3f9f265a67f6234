package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ReturnService posts sales and purchase returns against posted vouchers.
type ReturnService interface {
	// GetReturnable reports, per line of the voucher, how much is still returnable.
	GetReturnable(ctx context.Context, companyCode, voucherNumber string) (*Returnable, error)
	// PostReturn validates a return against every prior return of the same
	// voucher and posts it. Concurrent returns of one voucher are serialized on
	// the voucher row, so their combined quantity never exceeds the original.
	PostReturn(ctx context.Context, input PostReturnInput) (*ReturnDocument, error)
	GetReturn(ctx context.Context, returnID int) (*ReturnDocument, error)
	// ListReturns returns every return of a voucher, oldest first.
	ListReturns(ctx context.Context, voucherID int) ([]ReturnDocument, error)
}

type returnService struct {
	pool       *pgxpool.Pool
	docService DocumentService
	ledger     LedgerService
	ruleEngine RuleEngine
	log        *zap.Logger
}

func NewReturnService(pool *pgxpool.Pool, docService DocumentService, ledger LedgerService, ruleEngine RuleEngine, log *zap.Logger) ReturnService {
	if log == nil {
		log = zap.NewNop()
	}
	return &returnService{pool: pool, docService: docService, ledger: ledger, ruleEngine: ruleEngine, log: log}
}

func (s *returnService) GetReturnable(ctx context.Context, companyCode, voucherNumber string) (*Returnable, error) {
	company, err := companyByCode(ctx, s.pool, companyCode)
	if err != nil {
		return nil, err
	}
	v, err := loadVoucher(ctx, s.pool, "company_id = $1 AND number = $2", company.ID, voucherNumber)
	if err != nil {
		return nil, fmt.Errorf("voucher %s: %w", voucherNumber, err)
	}
	prior, err := loadReturns(ctx, s.pool, "original_voucher_id = $1", v.ID)
	if err != nil {
		return nil, err
	}
	return &Returnable{Voucher: v, Lines: ReconcileVoucher(v, prior)}, nil
}

func (s *returnService) PostReturn(ctx context.Context, input PostReturnInput) (*ReturnDocument, error) {
	date, err := time.Parse("2006-01-02", input.Date)
	if err != nil {
		return nil, invalidInput("date", "must be YYYY-MM-DD, got %q", input.Date)
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

	// Every return of this voucher queues here until the holder commits.
	var voucherID int
	err = tx.QueryRow(ctx,
		"SELECT id FROM vouchers WHERE company_id = $1 AND number = $2 FOR UPDATE",
		company.ID, input.VoucherNumber,
	).Scan(&voucherID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("voucher %s: %w", input.VoucherNumber, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to lock voucher %s: %w", input.VoucherNumber, err)
	}

	original, err := loadVoucher(ctx, tx, "id = $1", voucherID)
	if err != nil {
		return nil, err
	}
	if input.Date < original.Date {
		return nil, invalidInput("date", "return dated %s is before voucher %s of %s",
			input.Date, original.Number, original.Date)
	}
	prior, err := loadReturns(ctx, tx, "original_voucher_id = $1", voucherID)
	if err != nil {
		return nil, err
	}

	doc, err := BuildReturnDocument(original, prior, input.ReturnRequest)
	if err != nil {
		return nil, err
	}

	fy := FinancialYearOf(date)
	documentID, number, err := s.docService.IssueNumberTx(ctx, tx, company.ID, doc.Kind.DocumentTypeCode(), &fy)
	if err != nil {
		return nil, fmt.Errorf("failed to number return: %w", err)
	}
	doc.Number = number

	if err := insertReturnTx(ctx, tx, documentID, doc); err != nil {
		return nil, err
	}

	deltas, losses := PlanReturnDeltas(doc)
	if _, err := applyDeltasTx(ctx, tx, company.ID, deltas, doc.Kind.DocumentTypeCode(), documentID); err != nil {
		return nil, fmt.Errorf("return %s: %w", doc.Number, err)
	}
	lossCost, err := insertLossesTx(ctx, tx, doc, losses)
	if err != nil {
		return nil, err
	}

	accounts, err := s.ruleEngine.ResolveAccounts(ctx, company.ID, ReturnRuleTypes(doc.Kind)...)
	if err != nil {
		return nil, err
	}
	if posting := BuildReturnPosting(doc, accounts); !posting.IsEmpty() {
		entryID, err := s.ledger.CommitInTx(ctx, tx, posting)
		if err != nil {
			return nil, fmt.Errorf("failed to book return %s: %w", doc.Number, err)
		}
		if _, err := tx.Exec(ctx, "UPDATE return_documents SET journal_entry_id = $1 WHERE id = $2", entryID, doc.ID); err != nil {
			return nil, fmt.Errorf("failed to link journal entry: %w", err)
		}
	}
	if posting := BuildStockLossPosting(doc, lossCost, accounts); !posting.IsEmpty() {
		if _, err := s.ledger.CommitInTx(ctx, tx, posting); err != nil {
			return nil, fmt.Errorf("failed to book stock loss of return %s: %w", doc.Number, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit return: %w", err)
	}

	s.log.Info("return posted",
		zap.String("number", doc.Number),
		zap.String("original", doc.OriginalNumber),
		zap.String("refund", string(doc.Refund.Method)),
		zap.String("grand_total", doc.Totals.GrandTotal.StringFixed(2)),
		zap.Int("losses", len(doc.Losses)),
	)
	return doc, nil
}

func insertReturnTx(ctx context.Context, tx pgx.Tx, documentID int, doc *ReturnDocument) error {
	t, r := doc.Totals, doc.Refund
	var postedAt time.Time
	err := tx.QueryRow(ctx, `
		INSERT INTO return_documents (company_id, document_id, kind, number, return_date,
			original_voucher_id, original_number, party_id, party_code, party_name, party_state, company_state,
			reason, disposition, refund_method, bank_reference, cheque_number, upi_reference,
			subtotal, cgst, sgst, igst, total_tax, round_off, grand_total, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18,
			$19, $20, $21, $22, $23, $24, $25, $26)
		RETURNING id, posted_at
	`, doc.CompanyID, documentID, string(doc.Kind), doc.Number, doc.Date,
		doc.OriginalVoucherID, doc.OriginalNumber, doc.PartyID, doc.PartyCode, doc.PartyName, doc.PartyState, doc.CompanyState,
		doc.Reason, string(doc.Disposition), string(r.Method), toPtr(r.BankReference), toPtr(r.ChequeNumber), toPtr(r.UPIReference),
		t.Subtotal, t.CGST, t.SGST, t.IGST, t.TotalTax, t.RoundOff, t.GrandTotal, toPtr(doc.Notes),
	).Scan(&doc.ID, &postedAt)
	if err != nil {
		return fmt.Errorf("failed to insert return: %w", err)
	}
	doc.PostedAt = &postedAt

	for i := range doc.Lines {
		l := &doc.Lines[i]
		l.ReturnID = doc.ID
		err := tx.QueryRow(ctx, `
			INSERT INTO return_lines (return_id, original_line_id, line_number, product_id, product_code, product_name, unit,
				quantity, unit_rate, discount_kind, discount_value, tax_rate, tax_inclusive, disposition,
				base_amount, discount_amount, taxable_amount, tax_base, tax_amount, cgst, sgst, igst, line_total)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23)
			RETURNING id
		`, doc.ID, l.OriginalLineID, l.LineNumber, l.ProductID, l.ProductCode, l.ProductName, l.Unit,
			l.Quantity, l.UnitRate, string(l.Discount.Kind), l.Discount.Value, l.TaxRate, l.TaxInclusive, string(l.Disposition),
			l.BaseAmount, l.DiscountAmount, l.TaxableAmount, l.TaxBase, l.TaxAmount, l.CGST, l.SGST, l.IGST, l.LineTotal,
		).Scan(&l.ID)
		if err != nil {
			return fmt.Errorf("failed to insert return line %d: %w", l.LineNumber, err)
		}
	}
	return nil
}

// insertLossesTx values each loss at the product's purchase rate, records it
// and returns the total cost written off.
func insertLossesTx(ctx context.Context, tx pgx.Tx, doc *ReturnDocument, losses []StockLoss) (decimal.Decimal, error) {
	total := decimal.Zero
	for i := range losses {
		loss := &losses[i]
		var purchaseRate decimal.Decimal
		if err := tx.QueryRow(ctx, "SELECT purchase_rate FROM products WHERE id = $1", loss.ProductID).Scan(&purchaseRate); err != nil {
			return decimal.Zero, fmt.Errorf("failed to read cost of product %d: %w", loss.ProductID, err)
		}
		loss.Cost = RoundMoney(loss.Quantity.Mul(purchaseRate))

		_, err := tx.Exec(ctx, `
			INSERT INTO stock_losses (company_id, return_id, product_id, original_line_id, quantity, disposition, value, cost)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`, doc.CompanyID, doc.ID, loss.ProductID, loss.OriginalLineID, loss.Quantity, string(loss.Disposition), loss.Value, loss.Cost)
		if err != nil {
			return decimal.Zero, fmt.Errorf("failed to record stock loss: %w", err)
		}
		total = total.Add(loss.Cost)
	}
	doc.Losses = losses
	return total, nil
}

// ── Queries ──────────────────────────────────────────────────────────────────

// loadReturns reads return documents with their lines, oldest first.
func loadReturns(ctx context.Context, q pgxRowQuerier, where string, args ...any) ([]ReturnDocument, error) {
	rows, err := q.Query(ctx, `
		SELECT id, company_id, kind, number, return_date::text, original_voucher_id, original_number,
		       party_id, party_code, party_name, party_state, company_state, reason, disposition,
		       refund_method, bank_reference, cheque_number, upi_reference,
		       subtotal, cgst, sgst, igst, total_tax, round_off, grand_total, notes, posted_at
		FROM return_documents
		WHERE `+where+`
		ORDER BY id
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query returns: %w", err)
	}

	var docs []ReturnDocument
	index := make(map[int]int)
	for rows.Next() {
		var d ReturnDocument
		var bankRef, chequeNo, upiRef, notes *string
		var postedAt time.Time
		t := &d.Totals
		if err := rows.Scan(&d.ID, &d.CompanyID, &d.Kind, &d.Number, &d.Date, &d.OriginalVoucherID, &d.OriginalNumber,
			&d.PartyID, &d.PartyCode, &d.PartyName, &d.PartyState, &d.CompanyState, &d.Reason, &d.Disposition,
			&d.Refund.Method, &bankRef, &chequeNo, &upiRef,
			&t.Subtotal, &t.CGST, &t.SGST, &t.IGST, &t.TotalTax, &t.RoundOff, &t.GrandTotal, &notes, &postedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan return: %w", err)
		}
		d.Refund.BankReference, d.Refund.ChequeNumber, d.Refund.UPIReference = deref(bankRef), deref(chequeNo), deref(upiRef)
		d.Notes = deref(notes)
		d.PostedAt = &postedAt
		index[d.ID] = len(docs)
		docs = append(docs, d)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating returns: %w", err)
	}
	if len(docs) == 0 {
		return nil, nil
	}

	ids := make([]int, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	lineRows, err := q.Query(ctx, `
		SELECT id, return_id, original_line_id, line_number, product_id, product_code, product_name, unit,
		       quantity, unit_rate, discount_kind, discount_value, tax_rate, tax_inclusive, disposition,
		       base_amount, discount_amount, taxable_amount, tax_base, tax_amount, cgst, sgst, igst, line_total
		FROM return_lines
		WHERE return_id = ANY($1)
		ORDER BY return_id, line_number
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query return lines: %w", err)
	}
	defer lineRows.Close()

	for lineRows.Next() {
		var l ReturnLine
		if err := lineRows.Scan(&l.ID, &l.ReturnID, &l.OriginalLineID, &l.LineNumber, &l.ProductID, &l.ProductCode, &l.ProductName, &l.Unit,
			&l.Quantity, &l.UnitRate, &l.Discount.Kind, &l.Discount.Value, &l.TaxRate, &l.TaxInclusive, &l.Disposition,
			&l.BaseAmount, &l.DiscountAmount, &l.TaxableAmount, &l.TaxBase, &l.TaxAmount,
			&l.CGST, &l.SGST, &l.IGST, &l.LineTotal); err != nil {
			return nil, fmt.Errorf("failed to scan return line: %w", err)
		}
		i := index[l.ReturnID]
		docs[i].Lines = append(docs[i].Lines, l)
	}
	if err := lineRows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating return lines: %w", err)
	}
	return docs, nil
}

func (s *returnService) GetReturn(ctx context.Context, returnID int) (*ReturnDocument, error) {
	docs, err := loadReturns(ctx, s.pool, "id = $1", returnID)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("return %d: %w", returnID, ErrNotFound)
	}
	doc := &docs[0]

	rows, err := s.pool.Query(ctx, `
		SELECT product_id, original_line_id, quantity, disposition, value, cost
		FROM stock_losses WHERE return_id = $1 ORDER BY id
	`, returnID)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock losses: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var loss StockLoss
		if err := rows.Scan(&loss.ProductID, &loss.OriginalLineID, &loss.Quantity, &loss.Disposition, &loss.Value, &loss.Cost); err != nil {
			return nil, fmt.Errorf("failed to scan stock loss: %w", err)
		}
		doc.Losses = append(doc.Losses, loss)
	}
	return doc, rows.Err()
}

func (s *returnService) ListReturns(ctx context.Context, voucherID int) ([]ReturnDocument, error) {
	return loadReturns(ctx, s.pool, "original_voucher_id = $1", voucherID)
}
