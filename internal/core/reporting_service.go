package core

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ── Report types ──────────────────────────────────────────────────────────────

// StatementLine is one journal line in an account statement.
// RunningBalance is the cumulative net-debit position after this line.
type StatementLine struct {
	PostingDate    string          `json:"posting_date"`
	Narration      string          `json:"narration"`
	Reference      string          `json:"reference"`
	Debit          decimal.Decimal `json:"debit"`
	Credit         decimal.Decimal `json:"credit"`
	RunningBalance decimal.Decimal `json:"running_balance"`
}

// PartyStatementLine is one voucher or return in a party statement. Billed is
// what the document added to the party's account, Settled what it took off.
type PartyStatementLine struct {
	Date        string          `json:"date"`
	Number      string          `json:"number"`
	Kind        string          `json:"kind"`
	Billed      decimal.Decimal `json:"billed"`
	Settled     decimal.Decimal `json:"settled"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

// PartyStatement lists a party's documents with the running amount owed.
// For a customer Outstanding is what they owe the company; for a supplier it
// is what the company owes them.
type PartyStatement struct {
	PartyCode   string               `json:"party_code"`
	PartyName   string               `json:"party_name"`
	PartyType   PartyType            `json:"party_type"`
	Lines       []PartyStatementLine `json:"lines"`
	Outstanding decimal.Decimal      `json:"outstanding"`
}

// GSTRateRow is the tax collected or paid at one rate, net of returns.
type GSTRateRow struct {
	TaxRate  decimal.Decimal `json:"tax_rate"`
	Taxable  decimal.Decimal `json:"taxable"`
	CGST     decimal.Decimal `json:"cgst"`
	SGST     decimal.Decimal `json:"sgst"`
	IGST     decimal.Decimal `json:"igst"`
	TotalTax decimal.Decimal `json:"total_tax"`
}

// GSTSummary is the output and input tax for a period. NetPayable is output
// tax less input tax credit; a negative value is credit carried forward.
type GSTSummary struct {
	FromDate    string          `json:"from_date"`
	ToDate      string          `json:"to_date"`
	Output      []GSTRateRow    `json:"output"`
	Input       []GSTRateRow    `json:"input"`
	OutputTotal GSTRateRow      `json:"output_total"`
	InputTotal  GSTRateRow      `json:"input_total"`
	NetPayable  decimal.Decimal `json:"net_payable"`
}

// AccountLine is one account in the profit and loss report, positive in the
// account's normal direction.
type AccountLine struct {
	Code    string          `json:"code"`
	Name    string          `json:"name"`
	Balance decimal.Decimal `json:"balance"`
}

// PLReport is the profit and loss for a date range.
type PLReport struct {
	FromDate  string          `json:"from_date"`
	ToDate    string          `json:"to_date"`
	Revenue   []AccountLine   `json:"revenue"`
	Expenses  []AccountLine   `json:"expenses"`
	NetIncome decimal.Decimal `json:"net_income"`
}

// ── Interface ─────────────────────────────────────────────────────────────────

// ReportingService provides read-only queries over vouchers, returns and the ledger.
// Empty date bounds are open.
type ReportingService interface {
	GetAccountStatement(ctx context.Context, companyCode, accountCode, fromDate, toDate string) ([]StatementLine, error)
	GetPartyStatement(ctx context.Context, companyCode, partyCode, fromDate, toDate string) (*PartyStatement, error)
	// GetGSTSummary groups tax by rate: sales less sales returns as output,
	// purchases less purchase returns as input.
	GetGSTSummary(ctx context.Context, companyCode, fromDate, toDate string) (*GSTSummary, error)
	GetProfitAndLoss(ctx context.Context, companyCode, fromDate, toDate string) (*PLReport, error)
}

type reportingService struct {
	pool *pgxpool.Pool
}

// NewReportingService constructs a ReportingService backed by the given pool.
func NewReportingService(pool *pgxpool.Pool) ReportingService {
	return &reportingService{pool: pool}
}

// dateRange appends optional bounds on column to a WHERE clause.
func dateRange(q string, args []any, column, fromDate, toDate string) (string, []any) {
	if fromDate != "" {
		args = append(args, fromDate)
		q += fmt.Sprintf(" AND %s >= $%d::date", column, len(args))
	}
	if toDate != "" {
		args = append(args, toDate)
		q += fmt.Sprintf(" AND %s <= $%d::date", column, len(args))
	}
	return q, args
}

// ── GetAccountStatement ───────────────────────────────────────────────────────

func (s *reportingService) GetAccountStatement(ctx context.Context, companyCode, accountCode, fromDate, toDate string) ([]StatementLine, error) {
	company, err := companyByCode(ctx, s.pool, companyCode)
	if err != nil {
		return nil, err
	}

	q := `
		SELECT je.posting_date::text,
		       je.narration,
		       COALESCE(je.reference_id, ''),
		       jl.debit,
		       jl.credit
		FROM journal_lines jl
		JOIN journal_entries je ON je.id = jl.entry_id
		JOIN accounts a         ON a.id  = jl.account_id
		WHERE je.company_id = $1
		  AND a.code = $2`
	q, args := dateRange(q, []any{company.ID, accountCode}, "je.posting_date", fromDate, toDate)
	q += " ORDER BY je.posting_date ASC, je.id ASC, jl.id ASC"

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query account statement: %w", err)
	}
	defer rows.Close()

	var lines []StatementLine
	running := decimal.Zero
	for rows.Next() {
		var sl StatementLine
		if err := rows.Scan(&sl.PostingDate, &sl.Narration, &sl.Reference, &sl.Debit, &sl.Credit); err != nil {
			return nil, fmt.Errorf("failed to scan statement line: %w", err)
		}
		running = running.Add(sl.Debit).Sub(sl.Credit)
		sl.RunningBalance = running
		lines = append(lines, sl)
	}
	return lines, rows.Err()
}

// ── GetPartyStatement ─────────────────────────────────────────────────────────

// GetPartyStatement walks the party's vouchers and returns in date order.
// A voucher bills its grand total and settles what was paid on it. A return
// settles its grand total only when refunded against the balance or by credit
// note; cash and bank refunds leave the balance alone.
func (s *reportingService) GetPartyStatement(ctx context.Context, companyCode, partyCode, fromDate, toDate string) (*PartyStatement, error) {
	company, err := companyByCode(ctx, s.pool, companyCode)
	if err != nil {
		return nil, err
	}
	party, err := partyByCode(ctx, s.pool, company.ID, partyCode)
	if err != nil {
		return nil, err
	}

	vq, vargs := dateRange(`
		SELECT voucher_date::text AS doc_date, number, kind, grand_total AS billed, amount_paid AS settled, posted_at
		FROM vouchers
		WHERE company_id = $1 AND party_id = $2`,
		[]any{company.ID, party.ID}, "voucher_date", fromDate, toDate)
	rq, _ := dateRange(`
		SELECT return_date::text, number, kind, 0, grand_total, posted_at
		FROM return_documents
		WHERE company_id = $1 AND party_id = $2
		  AND refund_method IN ('CREDIT_NOTE', 'ADJUST_AGAINST_BALANCE')`,
		[]any{company.ID, party.ID}, "return_date", fromDate, toDate)

	rows, err := s.pool.Query(ctx, vq+" UNION ALL "+rq+" ORDER BY doc_date, posted_at", vargs...)
	if err != nil {
		return nil, fmt.Errorf("failed to query party statement: %w", err)
	}
	defer rows.Close()

	st := &PartyStatement{PartyCode: party.Code, PartyName: party.Name, PartyType: party.Type, Outstanding: decimal.Zero}
	for rows.Next() {
		var l PartyStatementLine
		var postedAt time.Time
		if err := rows.Scan(&l.Date, &l.Number, &l.Kind, &l.Billed, &l.Settled, &postedAt); err != nil {
			return nil, fmt.Errorf("failed to scan party statement line: %w", err)
		}
		st.Outstanding = st.Outstanding.Add(l.Billed).Sub(l.Settled)
		l.Outstanding = st.Outstanding
		st.Lines = append(st.Lines, l)
	}
	return st, rows.Err()
}

// ── GetGSTSummary ─────────────────────────────────────────────────────────────

func (s *reportingService) GetGSTSummary(ctx context.Context, companyCode, fromDate, toDate string) (*GSTSummary, error) {
	company, err := companyByCode(ctx, s.pool, companyCode)
	if err != nil {
		return nil, err
	}

	// Return lines count negative against the side of the voucher they reverse.
	vq, args := dateRange(`
		SELECT CASE v.kind WHEN 'SALE' THEN 'OUT' ELSE 'IN' END AS side,
		       vl.tax_rate, vl.tax_base, vl.cgst, vl.sgst, vl.igst
		FROM voucher_lines vl
		JOIN vouchers v ON v.id = vl.voucher_id
		WHERE v.company_id = $1`,
		[]any{company.ID}, "v.voucher_date", fromDate, toDate)
	rq, _ := dateRange(`
		SELECT CASE r.kind WHEN 'SALES_RETURN' THEN 'OUT' ELSE 'IN' END,
		       rl.tax_rate, -rl.tax_base, -rl.cgst, -rl.sgst, -rl.igst
		FROM return_lines rl
		JOIN return_documents r ON r.id = rl.return_id
		WHERE r.company_id = $1`,
		[]any{company.ID}, "r.return_date", fromDate, toDate)

	q := `
		SELECT side, tax_rate, SUM(tax_base), SUM(cgst), SUM(sgst), SUM(igst)
		FROM (` + vq + ` UNION ALL ` + rq + `) t
		GROUP BY side, tax_rate
		ORDER BY side DESC, tax_rate`

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query GST summary: %w", err)
	}
	defer rows.Close()

	sum := &GSTSummary{FromDate: fromDate, ToDate: toDate}
	for rows.Next() {
		var side string
		var r GSTRateRow
		if err := rows.Scan(&side, &r.TaxRate, &r.Taxable, &r.CGST, &r.SGST, &r.IGST); err != nil {
			return nil, fmt.Errorf("failed to scan GST summary row: %w", err)
		}
		r.TotalTax = r.CGST.Add(r.SGST).Add(r.IGST)
		if side == "OUT" {
			sum.Output = append(sum.Output, r)
			sum.OutputTotal = addGSTRow(sum.OutputTotal, r)
		} else {
			sum.Input = append(sum.Input, r)
			sum.InputTotal = addGSTRow(sum.InputTotal, r)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GST summary row iteration error: %w", err)
	}
	sum.NetPayable = sum.OutputTotal.TotalTax.Sub(sum.InputTotal.TotalTax)
	return sum, nil
}

func addGSTRow(total, r GSTRateRow) GSTRateRow {
	return GSTRateRow{
		Taxable:  total.Taxable.Add(r.Taxable),
		CGST:     total.CGST.Add(r.CGST),
		SGST:     total.SGST.Add(r.SGST),
		IGST:     total.IGST.Add(r.IGST),
		TotalTax: total.TotalTax.Add(r.TotalTax),
	}
}

// ── GetProfitAndLoss ──────────────────────────────────────────────────────────

func (s *reportingService) GetProfitAndLoss(ctx context.Context, companyCode, fromDate, toDate string) (*PLReport, error) {
	company, err := companyByCode(ctx, s.pool, companyCode)
	if err != nil {
		return nil, err
	}

	inner, args := dateRange(`
		    SELECT jl.account_id, SUM(jl.debit) AS debit_total, SUM(jl.credit) AS credit_total
		    FROM journal_lines jl
		    JOIN journal_entries je ON je.id = jl.entry_id
		    WHERE je.company_id = $1`,
		[]any{company.ID}, "je.posting_date", fromDate, toDate)
	q := `
		SELECT a.code, a.name, a.type,
		       COALESCE(s.debit_total,  0),
		       COALESCE(s.credit_total, 0)
		FROM accounts a
		LEFT JOIN (` + inner + `
		    GROUP BY jl.account_id
		) s ON s.account_id = a.id
		WHERE a.company_id = $1
		  AND a.type IN ('revenue', 'expense')
		ORDER BY a.type DESC, a.code`

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query P&L: %w", err)
	}
	defer rows.Close()

	report := &PLReport{FromDate: fromDate, ToDate: toDate}
	var totalRevenue, totalExpenses decimal.Decimal
	for rows.Next() {
		var code, name string
		var accType AccountType
		var debit, credit decimal.Decimal
		if err := rows.Scan(&code, &name, &accType, &debit, &credit); err != nil {
			return nil, fmt.Errorf("failed to scan P&L row: %w", err)
		}
		switch accType {
		case Revenue:
			bal := credit.Sub(debit)
			report.Revenue = append(report.Revenue, AccountLine{Code: code, Name: name, Balance: bal})
			totalRevenue = totalRevenue.Add(bal)
		case Expense:
			bal := debit.Sub(credit)
			report.Expenses = append(report.Expenses, AccountLine{Code: code, Name: name, Balance: bal})
			totalExpenses = totalExpenses.Add(bal)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("P&L row iteration error: %w", err)
	}
	report.NetIncome = totalRevenue.Sub(totalExpenses)
	return report, nil
}
