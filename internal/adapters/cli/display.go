package cli

import (
	"fmt"
	"io"
	"strings"

	"gst-billing/internal/app"
	"gst-billing/internal/core"
)

func printTrialBalance(w io.Writer, result *app.TrialBalanceResult) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("=", 62))
	fmt.Fprintf(w, "  %-58s\n", "TRIAL BALANCE")
	fmt.Fprintf(w, "  Company  : %s - %s\n", result.CompanyCode, result.CompanyName)
	fmt.Fprintf(w, "  Currency : %s\n", result.Currency)
	fmt.Fprintln(w, strings.Repeat("=", 62))
	fmt.Fprintf(w, "  %-10s %-30s %15s\n", "CODE", "NAME", "BALANCE")
	fmt.Fprintln(w, strings.Repeat("-", 62))
	for _, b := range result.Accounts {
		fmt.Fprintf(w, "  %-10s %-30s %15s\n", b.Code, b.Name, b.Balance.StringFixed(2))
	}
	fmt.Fprintln(w, strings.Repeat("=", 62))
}

func printVoucher(w io.Writer, v *core.Voucher) {
	number := v.Number
	if number == "" {
		number = "(quote)"
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("=", 78))
	fmt.Fprintf(w, "  %s %s  %s\n", v.Kind, number, v.Date)
	fmt.Fprintf(w, "  Party : %s %s (%s)\n", v.PartyCode, v.PartyName, v.PartyState)
	fmt.Fprintln(w, strings.Repeat("=", 78))
	fmt.Fprintf(w, "  %-3s %-22s %8s %10s %6s %12s %12s\n", "#", "ITEM", "QTY", "RATE", "GST%", "TAX", "TOTAL")
	fmt.Fprintln(w, strings.Repeat("-", 78))
	for _, l := range v.Lines {
		name := l.ProductName
		if name == "" {
			name = l.ProductCode
		}
		fmt.Fprintf(w, "  %-3d %-22s %8s %10s %6s %12s %12s\n",
			l.LineNumber, truncate(name, 22), l.Quantity.String(), l.UnitRate.StringFixed(2),
			l.TaxRate.String(), l.TaxAmount.StringFixed(2), l.LineTotal.StringFixed(2))
	}
	fmt.Fprintln(w, strings.Repeat("-", 78))
	t := v.Totals
	row := func(label string, amount string) { fmt.Fprintf(w, "  %60s %15s\n", label, amount) }
	row("Subtotal", t.Subtotal.StringFixed(2))
	if t.IGST.IsZero() {
		row("CGST", t.CGST.StringFixed(2))
		row("SGST", t.SGST.StringFixed(2))
	} else {
		row("IGST", t.IGST.StringFixed(2))
	}
	if !t.OtherCharges.IsZero() {
		row("Other charges", t.OtherCharges.StringFixed(2))
	}
	if !t.RoundOff.IsZero() {
		row("Round off", t.RoundOff.StringFixed(2))
	}
	row("GRAND TOTAL", t.GrandTotal.StringFixed(2))
	row("Paid ("+string(v.Payment.Method)+")", v.Payment.AmountPaid.StringFixed(2))
	row("Balance", v.Payment.Balance.StringFixed(2))
	fmt.Fprintln(w, strings.Repeat("=", 78))
}

func printReturnable(w io.Writer, r *core.Returnable) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintf(w, "  RETURNABLE - %s %s\n", r.Voucher.Kind, r.Voucher.Number)
	fmt.Fprintln(w, strings.Repeat("=", 72))
	fmt.Fprintf(w, "  %-6s %-24s %9s %9s %9s  %s\n", "LINE", "ITEM", "ORIGINAL", "RETURNED", "REMAINING", "STATE")
	fmt.Fprintln(w, strings.Repeat("-", 72))
	for _, l := range r.Lines {
		fmt.Fprintf(w, "  %-6d %-24s %9s %9s %9s  %s\n",
			l.OriginalLineID, truncate(l.ProductName, 24), l.Original.String(),
			l.AlreadyReturned.String(), l.Remaining.String(), l.State)
	}
	fmt.Fprintln(w, strings.Repeat("=", 72))
}

func printStock(w io.Writer, r *app.StockResult) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s %s: %s %s\n", r.Product.Code, r.Product.Name, r.Product.CurrentStock.String(), r.Product.Unit)
	if len(r.Movements) == 0 {
		fmt.Fprintln(w, "  No movements.")
		return
	}
	fmt.Fprintln(w, strings.Repeat("-", 72))
	fmt.Fprintf(w, "  %-20s %-18s %8s %8s %8s  %s\n", "WHEN", "REASON", "DELTA", "BEFORE", "AFTER", "DOC")
	for _, m := range r.Movements {
		doc := ""
		if m.DocumentType != "" {
			doc = fmt.Sprintf("%s#%d", m.DocumentType, m.DocumentID)
		}
		fmt.Fprintf(w, "  %-20s %-18s %8s %8s %8s  %s\n",
			m.CreatedAt.Format("2006-01-02 15:04"), m.Reason, m.Delta.String(),
			m.Before.String(), m.After.String(), doc)
	}
}

func printGSTSummary(w io.Writer, s *core.GSTSummary) {
	line := func(label string, r core.GSTRateRow) {
		fmt.Fprintf(w, "  %6s %14s %12s %12s %12s %12s\n", label, r.Taxable.StringFixed(2),
			r.CGST.StringFixed(2), r.SGST.StringFixed(2), r.IGST.StringFixed(2), r.TotalTax.StringFixed(2))
	}
	section := func(title string, rows []core.GSTRateRow, total core.GSTRateRow) {
		fmt.Fprintf(w, "  %s\n", title)
		fmt.Fprintf(w, "  %6s %14s %12s %12s %12s %12s\n", "RATE", "TAXABLE", "CGST", "SGST", "IGST", "TAX")
		for _, r := range rows {
			line(r.TaxRate.String()+"%", r)
		}
		line("TOTAL", total)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  GST SUMMARY %s to %s\n", s.FromDate, s.ToDate)
	fmt.Fprintln(w, strings.Repeat("=", 76))
	section("OUTPUT TAX", s.Output, s.OutputTotal)
	fmt.Fprintln(w, strings.Repeat("-", 76))
	section("INPUT TAX", s.Input, s.InputTotal)
	fmt.Fprintln(w, strings.Repeat("=", 76))
	fmt.Fprintf(w, "  NET PAYABLE %63s\n", s.NetPayable.StringFixed(2))
}

func truncate(s string, n int) string {
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "~"
}
