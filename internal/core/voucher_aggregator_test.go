package core_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"gst-billing/internal/core"
)

func mustLine(t *testing.T, in core.LineInput, company, party string) core.LineResult {
	t.Helper()
	res, err := core.ComputeLine(in, company, party)
	require.NoError(t, err)
	return res
}

func TestAggregate(t *testing.T) {
	lines := []core.LineResult{
		mustLine(t, core.LineInput{Quantity: d("1"), UnitRate: d("1000"), TaxRate: d("18")}, "Karnataka", "Karnataka"),
		mustLine(t, core.LineInput{Quantity: d("2"), UnitRate: d("250"), TaxRate: d("12"), Discount: core.AmountOff(d("100"))}, "Karnataka", "Karnataka"),
	}

	totals := core.Aggregate(lines, d("50"), d("-0.5"))
	assertMoney(t, "1400", totals.Subtotal, "subtotal")
	assertMoney(t, "114", totals.CGST, "cgst")
	assertMoney(t, "114", totals.SGST, "sgst")
	assertMoney(t, "0", totals.IGST, "igst")
	assertMoney(t, "228", totals.TotalTax, "total tax")
	assertMoney(t, "50", totals.OtherCharges, "charges")
	assertMoney(t, "1677.50", totals.GrandTotal, "grand total")
}

func TestAggregate_TaxInclusiveNotCountedTwice(t *testing.T) {
	lines := []core.LineResult{
		mustLine(t, core.LineInput{Quantity: d("1"), UnitRate: d("1180"), TaxRate: d("18"), TaxInclusive: true}, "Karnataka", "Goa"),
	}
	totals := core.Aggregate(lines, decimal.Zero, decimal.Zero)
	assertMoney(t, "1000", totals.Subtotal, "subtotal")
	assertMoney(t, "180", totals.IGST, "igst")
	assertMoney(t, "1180", totals.GrandTotal, "grand total")
}

func TestAggregate_EmptyDraft(t *testing.T) {
	totals := core.Aggregate(nil, decimal.Zero, decimal.Zero)
	assertMoney(t, "0", totals.Subtotal, "subtotal")
	assertMoney(t, "0", totals.TotalTax, "total tax")
	assertMoney(t, "0", totals.GrandTotal, "grand total")
}

func TestSuggestRoundOff(t *testing.T) {
	assertMoney(t, "0.50", core.SuggestRoundOff(d("1677.50")), "half up")
	assertMoney(t, "-0.49", core.SuggestRoundOff(d("1677.49")), "down")
	assertMoney(t, "0", core.SuggestRoundOff(d("1180")), "whole")
}
