package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// TaxSplit is the GST breakdown of one taxable amount. Intrastate supplies carry
// equal CGST and SGST halves; interstate supplies carry IGST only.
type TaxSplit struct {
	CGST decimal.Decimal `json:"cgst"`
	SGST decimal.Decimal `json:"sgst"`
	IGST decimal.Decimal `json:"igst"`
}

// Total is the sum of the already-rounded components.
func (t TaxSplit) Total() decimal.Decimal {
	return t.CGST.Add(t.SGST).Add(t.IGST)
}

// IsInterstate reports whether the split was computed as an interstate supply.
func (t TaxSplit) IsInterstate() bool {
	return !t.IGST.IsZero()
}

// ComputeTaxSplit splits baseAmount × taxRatePercent / 100 into CGST/SGST when
// companyState and counterpartyState match, or IGST otherwise.
// Each component is rounded to two places on its own; the total is never re-rounded.
// An empty counterpartyState is treated as intrastate.
func ComputeTaxSplit(baseAmount, taxRatePercent decimal.Decimal, companyState, counterpartyState string) (TaxSplit, error) {
	if baseAmount.IsNegative() {
		return TaxSplit{}, invalidInput("base_amount", "must be >= 0, got %s", baseAmount)
	}
	if taxRatePercent.IsNegative() {
		return TaxSplit{}, invalidInput("tax_rate", "must be >= 0, got %s", taxRatePercent)
	}
	if strings.TrimSpace(companyState) == "" {
		return TaxSplit{}, invalidInput("company_state", "is required for tax computation")
	}

	split := TaxSplit{CGST: decimal.Zero, SGST: decimal.Zero, IGST: decimal.Zero}
	tax := Percent(baseAmount, taxRatePercent)

	if strings.TrimSpace(counterpartyState) == "" || SameState(companyState, counterpartyState) {
		half := RoundMoney(tax.Div(two))
		split.CGST = half
		split.SGST = half
		return split, nil
	}

	split.IGST = RoundMoney(tax)
	return split, nil
}
