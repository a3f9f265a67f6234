package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DiscountKind selects how Discount.Value is interpreted.
type DiscountKind string

const (
	DiscountNone    DiscountKind = ""
	DiscountPercent DiscountKind = "PERCENT"
	DiscountAmount  DiscountKind = "AMOUNT"
)

// Discount is either a percentage of the line base or an absolute amount.
type Discount struct {
	Kind  DiscountKind    `json:"kind,omitempty"`
	Value decimal.Decimal `json:"value"`
}

// PercentOff builds a percentage discount.
func PercentOff(pct decimal.Decimal) Discount {
	return Discount{Kind: DiscountPercent, Value: pct}
}

// AmountOff builds an absolute discount.
func AmountOff(amount decimal.Decimal) Discount {
	return Discount{Kind: DiscountAmount, Value: amount}
}

// LineInput is the full input set for one line. The calculator is stateless:
// every recalculation passes the complete input again.
type LineInput struct {
	Quantity     decimal.Decimal `json:"quantity"`
	UnitRate     decimal.Decimal `json:"unit_rate"`
	Discount     Discount        `json:"discount"`
	TaxRate      decimal.Decimal `json:"tax_rate"`
	TaxInclusive bool            `json:"tax_inclusive"`
}

// LineResult holds every derived amount of a line.
//
// TaxableAmount is base − discount, as entered. TaxBase is the pre-tax part of it:
// equal to TaxableAmount for tax-exclusive lines, TaxableAmount − TaxAmount for
// tax-inclusive ones. The CGST/SGST/IGST split is always computed on TaxBase.
type LineResult struct {
	BaseAmount     decimal.Decimal `json:"base_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	TaxableAmount  decimal.Decimal `json:"taxable_amount"`
	TaxBase        decimal.Decimal `json:"tax_base"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	CGST           decimal.Decimal `json:"cgst"`
	SGST           decimal.Decimal `json:"sgst"`
	IGST           decimal.Decimal `json:"igst"`
	LineTotal      decimal.Decimal `json:"line_total"`
}

func zeroLineResult() LineResult {
	return LineResult{
		BaseAmount:     decimal.Zero,
		DiscountAmount: decimal.Zero,
		TaxableAmount:  decimal.Zero,
		TaxBase:        decimal.Zero,
		TaxAmount:      decimal.Zero,
		CGST:           decimal.Zero,
		SGST:           decimal.Zero,
		IGST:           decimal.Zero,
		LineTotal:      decimal.Zero,
	}
}

// Split returns the GST components of the line.
func (r LineResult) Split() TaxSplit {
	return TaxSplit{CGST: r.CGST, SGST: r.SGST, IGST: r.IGST}
}

// Validate checks the numeric ranges of a line input.
func (in LineInput) Validate() error {
	if in.Quantity.IsNegative() {
		return invalidInput("quantity", "must be >= 0, got %s", in.Quantity)
	}
	if in.UnitRate.IsNegative() {
		return invalidInput("unit_rate", "must be >= 0, got %s", in.UnitRate)
	}
	if in.TaxRate.IsNegative() {
		return invalidInput("tax_rate", "must be >= 0, got %s", in.TaxRate)
	}
	switch in.Discount.Kind {
	case DiscountNone:
		if !in.Discount.Value.IsZero() {
			return invalidInput("discount", "value %s given without a discount kind", in.Discount.Value)
		}
	case DiscountPercent, DiscountAmount:
		if in.Discount.Value.IsNegative() {
			return invalidInput("discount", "must be >= 0, got %s", in.Discount.Value)
		}
	default:
		return invalidInput("discount", "unknown discount kind %q", in.Discount.Kind)
	}
	return nil
}

// ComputeLine derives base, discount, tax and total for one line.
//
// Discounts larger than the base (including percentages above 100) are clamped
// to the base. A zero quantity is an unfilled line and yields an all-zero result.
// If the rounded GST components drift from TaxAmount by more than MoneyTolerance
// the line fails with ErrRoundingMismatch.
func ComputeLine(in LineInput, companyState, partyState string) (LineResult, error) {
	if err := in.Validate(); err != nil {
		return LineResult{}, err
	}
	if in.Quantity.IsZero() {
		return zeroLineResult(), nil
	}

	res := zeroLineResult()
	res.BaseAmount = RoundMoney(in.Quantity.Mul(in.UnitRate))

	switch in.Discount.Kind {
	case DiscountPercent:
		res.DiscountAmount = RoundMoney(Percent(res.BaseAmount, in.Discount.Value))
	case DiscountAmount:
		res.DiscountAmount = RoundMoney(in.Discount.Value)
	}
	res.DiscountAmount = minDecimal(res.DiscountAmount, res.BaseAmount)
	res.TaxableAmount = res.BaseAmount.Sub(res.DiscountAmount)

	if in.TaxInclusive {
		res.TaxAmount = RoundMoney(res.TaxableAmount.Mul(in.TaxRate).Div(hundred.Add(in.TaxRate)))
		res.TaxBase = res.TaxableAmount.Sub(res.TaxAmount)
		res.LineTotal = res.TaxableAmount
	} else {
		res.TaxAmount = RoundMoney(Percent(res.TaxableAmount, in.TaxRate))
		res.TaxBase = res.TaxableAmount
		res.LineTotal = res.TaxableAmount.Add(res.TaxAmount)
	}

	split, err := ComputeTaxSplit(res.TaxBase, in.TaxRate, companyState, partyState)
	if err != nil {
		return LineResult{}, err
	}
	res.CGST, res.SGST, res.IGST = split.CGST, split.SGST, split.IGST

	if !withinTolerance(split.Total(), res.TaxAmount) {
		return LineResult{}, &CalcError{
			Err:     ErrRoundingMismatch,
			Field:   "tax_amount",
			Details: fmt.Sprintf("components sum to %s, line tax is %s", split.Total(), res.TaxAmount),
		}
	}
	return res, nil
}
