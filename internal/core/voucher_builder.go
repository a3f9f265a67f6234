package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// BuildVoucher computes every line of the draft with the draft's state pair,
// aggregates the totals and settles the payment record.
// Line numbers are assigned in draft order; line ids are left for persistence.
func BuildVoucher(d VoucherDraft) (*Voucher, error) {
	if !d.Kind.IsValid() {
		return nil, invalidInput("kind", "unknown voucher kind %q", d.Kind)
	}
	if d.OtherCharges.IsNegative() {
		return nil, invalidInput("other_charges", "must be >= 0, got %s", d.OtherCharges)
	}

	v := &Voucher{
		Kind:         d.Kind,
		Number:       d.Number,
		Date:         d.Date,
		PartyID:      d.PartyID,
		PartyCode:    d.PartyCode,
		PartyName:    d.PartyName,
		PartyState:   d.PartyState,
		CompanyState: d.CompanyState,
		Notes:        d.Notes,
		Lines:        make([]VoucherLine, 0, len(d.Lines)),
	}

	results := make([]LineResult, 0, len(d.Lines))
	for i, dl := range d.Lines {
		res, err := ComputeLine(dl.LineInput, d.CompanyState, d.PartyState)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", i+1, err)
		}
		results = append(results, res)
		v.Lines = append(v.Lines, VoucherLine{
			LineNumber:   i + 1,
			ProductID:    dl.ProductID,
			ProductCode:  dl.ProductCode,
			ProductName:  dl.ProductName,
			Unit:         dl.Unit,
			Quantity:     dl.Quantity,
			UnitRate:     dl.UnitRate,
			Discount:     dl.Discount,
			TaxRate:      dl.TaxRate,
			TaxInclusive: dl.TaxInclusive,
			LineResult:   res,
		})
	}
	v.Totals = Aggregate(results, d.OtherCharges, d.RoundOff)

	payment, err := settlePayment(d.Payment, v.Totals.GrandTotal)
	if err != nil {
		return nil, err
	}
	v.Payment = payment
	return v, nil
}

func settlePayment(in PaymentInput, grandTotal decimal.Decimal) (Payment, error) {
	method := in.Method
	if method == "" {
		if !in.AmountPaid.IsZero() {
			return Payment{}, invalidInput("payment.method", "is required when an amount is paid")
		}
		method = PaymentCredit
	}
	if !method.isValid() {
		return Payment{}, invalidInput("payment.method", "unknown payment method %q", method)
	}
	if in.AmountPaid.IsNegative() {
		return Payment{}, invalidInput("payment.amount_paid", "must be >= 0, got %s", in.AmountPaid)
	}
	if in.AmountPaid.GreaterThan(grandTotal) {
		return Payment{}, invalidInput("payment.amount_paid", "%s exceeds grand total %s", in.AmountPaid, grandTotal)
	}
	if method == PaymentCredit && !in.AmountPaid.IsZero() {
		return Payment{}, invalidInput("payment.amount_paid", "must be 0 for CREDIT, got %s", in.AmountPaid)
	}
	if method.needsReference() && in.AmountPaid.IsPositive() && in.Reference == "" {
		return Payment{}, invalidInput("payment.reference", "is required for %s", method)
	}
	return Payment{
		Method:     method,
		AmountPaid: in.AmountPaid,
		Balance:    grandTotal.Sub(in.AmountPaid),
		Reference:  in.Reference,
	}, nil
}
