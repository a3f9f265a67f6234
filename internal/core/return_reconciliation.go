package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ComputeRemaining sums every prior return line that references line and reports
// how much of it is still returnable. It has no side effects.
func ComputeRemaining(line VoucherLine, prior []ReturnDocument) LineRemaining {
	returned := decimal.Zero
	for _, doc := range prior {
		for _, rl := range doc.Lines {
			if rl.OriginalLineID == line.ID {
				returned = returned.Add(rl.Quantity)
			}
		}
	}
	remaining := line.Quantity.Sub(returned)

	state := LinePartiallyReturned
	switch {
	case returned.IsZero():
		state = LineOpen
	case !remaining.IsPositive():
		state = LineFullyReturned
	}

	return LineRemaining{
		OriginalLineID:  line.ID,
		ProductID:       line.ProductID,
		ProductName:     line.ProductName,
		Original:        line.Quantity,
		AlreadyReturned: returned,
		Remaining:       remaining,
		State:           state,
	}
}

// ReconcileVoucher runs ComputeRemaining for every line of v, in line order.
func ReconcileVoucher(v *Voucher, prior []ReturnDocument) []LineRemaining {
	out := make([]LineRemaining, 0, len(v.Lines))
	for _, l := range v.Lines {
		out = append(out, ComputeRemaining(l, prior))
	}
	return out
}

// ValidateReturnRequest checks one requested quantity against what is left.
func ValidateReturnRequest(requested, remaining decimal.Decimal) error {
	if requested.IsNegative() {
		return invalidInput("quantity", "must be >= 0, got %s", requested)
	}
	if requested.GreaterThan(remaining) {
		return quantityExceeded("quantity", "requested %s, remaining %s", requested, remaining)
	}
	return nil
}

// BuildReturnDocument prices a return from the original voucher's line snapshots
// and checks it against every prior return of that voucher.
//
// prior must be the complete, current set of returns against original; callers
// posting concurrently are expected to hold the voucher lock while reading it.
// Selected lines with a zero quantity are dropped. Discounts follow
// returnDiscount.
func BuildReturnDocument(original *Voucher, prior []ReturnDocument, req ReturnRequest) (*ReturnDocument, error) {
	if original == nil {
		return nil, invalidInput("original_voucher", "is required")
	}
	kind := req.Kind
	if kind == "" {
		kind = ReturnKindFor(original.Kind)
	}
	if kind != SalesReturn && kind != PurchaseReturn {
		return nil, invalidInput("kind", "unknown return kind %q", kind)
	}
	if kind.VoucherKind() != original.Kind {
		return nil, invalidInput("kind", "%s cannot reverse a %s voucher", kind, original.Kind)
	}

	disposition := req.Disposition
	if disposition == "" {
		disposition = DispositionResalable
	}
	if !disposition.isValid() {
		return nil, invalidInput("disposition", "unknown stock disposition %q", disposition)
	}

	doc := &ReturnDocument{
		CompanyID:         original.CompanyID,
		Kind:              kind,
		Number:            req.Number,
		Date:              req.Date,
		OriginalVoucherID: original.ID,
		OriginalNumber:    original.Number,
		PartyID:           original.PartyID,
		PartyCode:         original.PartyCode,
		PartyName:         original.PartyName,
		PartyState:        original.PartyState,
		CompanyState:      original.CompanyState,
		Reason:            req.Reason,
		Disposition:       disposition,
		Refund:            req.Refund,
		Notes:             req.Notes,
	}

	seen := make(map[int]bool, len(req.Lines))
	results := make([]LineResult, 0, len(req.Lines))
	for _, sel := range req.Lines {
		if seen[sel.OriginalLineID] {
			return nil, invalidInput("lines", "original line %d selected more than once", sel.OriginalLineID)
		}
		seen[sel.OriginalLineID] = true

		orig, ok := original.Line(sel.OriginalLineID)
		if !ok {
			return nil, invalidInput("lines", "line %d does not belong to voucher %s", sel.OriginalLineID, original.Number)
		}

		rem := ComputeRemaining(*orig, prior)
		if err := ValidateReturnRequest(sel.Quantity, rem.Remaining); err != nil {
			return nil, fmt.Errorf("line %d (%s): %w", orig.LineNumber, orig.ProductName, err)
		}
		if sel.Quantity.IsZero() {
			continue
		}

		lineDisposition := sel.Disposition
		if lineDisposition == "" {
			lineDisposition = disposition
		}
		if !lineDisposition.isValid() {
			return nil, invalidInput("lines.disposition", "unknown stock disposition %q", lineDisposition)
		}

		in := orig.Input()
		in.Quantity = sel.Quantity
		in.Discount = returnDiscount(*orig, prior, sel.Quantity, sel.Quantity.Equal(rem.Remaining))

		res, err := ComputeLine(in, original.CompanyState, original.PartyState)
		if err != nil {
			return nil, fmt.Errorf("line %d (%s): %w", orig.LineNumber, orig.ProductName, err)
		}
		results = append(results, res)
		doc.Lines = append(doc.Lines, ReturnLine{
			OriginalLineID: orig.ID,
			LineNumber:     len(doc.Lines) + 1,
			ProductID:      orig.ProductID,
			ProductCode:    orig.ProductCode,
			ProductName:    orig.ProductName,
			Unit:           orig.Unit,
			Quantity:       sel.Quantity,
			UnitRate:       orig.UnitRate,
			Discount:       in.Discount,
			TaxRate:        orig.TaxRate,
			TaxInclusive:   orig.TaxInclusive,
			Disposition:    lineDisposition,
			LineResult:     res,
		})
	}

	if len(doc.Lines) == 0 {
		return nil, &CalcError{Err: ErrEmptyReturn, Details: "no line has a return quantity above zero"}
	}
	if err := req.Refund.Validate(); err != nil {
		return nil, err
	}

	doc.Totals = Aggregate(results, decimal.Zero, req.RoundOff)
	return doc, nil
}

// returnDiscount is the discount a return of qty units of line carries. Partial
// returns take their prorated share, capped at what prior returns left of the
// line's discount; the return that closes the line takes all of the remainder,
// so the returns of a line never refund more than it was billed.
func returnDiscount(line VoucherLine, prior []ReturnDocument, qty decimal.Decimal, closesLine bool) Discount {
	if line.Discount.Kind == DiscountNone {
		return line.Discount
	}
	taken := decimal.Zero
	for _, doc := range prior {
		for _, rl := range doc.Lines {
			if rl.OriginalLineID == line.ID {
				taken = taken.Add(rl.DiscountAmount)
			}
		}
	}
	left := line.DiscountAmount.Sub(taken)
	if !left.IsPositive() {
		return AmountOff(decimal.Zero)
	}
	if closesLine {
		return AmountOff(left)
	}
	if line.Discount.Kind == DiscountPercent {
		share := RoundMoney(Percent(RoundMoney(qty.Mul(line.UnitRate)), line.Discount.Value))
		if share.LessThanOrEqual(left) {
			return line.Discount
		}
		return AmountOff(left)
	}
	return AmountOff(minDecimal(RoundMoney(line.Discount.Value.Mul(qty).Div(line.Quantity)), left))
}
