package core

import "github.com/shopspring/decimal"

// VoucherTotals is the document-level summary of a voucher or return.
type VoucherTotals struct {
	Subtotal     decimal.Decimal `json:"subtotal"`
	CGST         decimal.Decimal `json:"cgst"`
	SGST         decimal.Decimal `json:"sgst"`
	IGST         decimal.Decimal `json:"igst"`
	TotalTax     decimal.Decimal `json:"total_tax"`
	OtherCharges decimal.Decimal `json:"other_charges"`
	RoundOff     decimal.Decimal `json:"round_off"`
	GrandTotal   decimal.Decimal `json:"grand_total"`
}

// Aggregate sums line results into voucher totals.
//
// Subtotal is the sum of each line's pre-tax, post-discount TaxBase. Tax totals are
// sums of the per-line rounded components. roundOff is caller-supplied and may be
// negative. An empty line list is a draft and yields zero totals plus the charges.
func Aggregate(lines []LineResult, otherCharges, roundOff decimal.Decimal) VoucherTotals {
	t := VoucherTotals{
		Subtotal:     decimal.Zero,
		CGST:         decimal.Zero,
		SGST:         decimal.Zero,
		IGST:         decimal.Zero,
		OtherCharges: otherCharges,
		RoundOff:     roundOff,
	}
	for _, l := range lines {
		t.Subtotal = t.Subtotal.Add(l.TaxBase)
		t.CGST = t.CGST.Add(l.CGST)
		t.SGST = t.SGST.Add(l.SGST)
		t.IGST = t.IGST.Add(l.IGST)
	}
	t.TotalTax = t.CGST.Add(t.SGST).Add(t.IGST)
	t.GrandTotal = t.Subtotal.Add(t.TotalTax).Add(otherCharges).Add(roundOff)
	return t
}
