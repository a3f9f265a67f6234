package core_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gst-billing/internal/core"
)

func saleDraft() core.VoucherDraft {
	return core.VoucherDraft{
		Kind:         core.VoucherSale,
		Date:         "2026-04-01",
		PartyID:      7,
		PartyCode:    "C001",
		PartyName:    "Sharma Traders",
		PartyState:   "Maharashtra",
		CompanyState: "Karnataka",
		Lines: []core.DraftLine{
			{ProductID: 1, ProductCode: "P001", ProductName: "Rice 25kg", Unit: "BAG",
				LineInput: core.LineInput{Quantity: d("10"), UnitRate: d("100"), TaxRate: d("5")}},
			{ProductID: 2, ProductCode: "P002", ProductName: "Sugar 1kg", Unit: "PKT",
				LineInput: core.LineInput{Quantity: d("4"), UnitRate: d("45"), TaxRate: d("5"), Discount: core.PercentOff(d("10"))}},
		},
		OtherCharges: d("20"),
		RoundOff:     d("0.10"),
		Payment:      core.PaymentInput{Method: core.PaymentUPI, AmountPaid: d("500"), Reference: "UPI-889"},
	}
}

func TestBuildVoucher(t *testing.T) {
	v, err := core.BuildVoucher(saleDraft())
	require.NoError(t, err)

	require.Len(t, v.Lines, 2)
	assert.Equal(t, 1, v.Lines[0].LineNumber)
	assert.Equal(t, 2, v.Lines[1].LineNumber)
	assert.Equal(t, "Sugar 1kg", v.Lines[1].ProductName)

	// 1000 @5% IGST = 50; 180 - 18 = 162 @5% IGST = 8.10
	assertMoney(t, "1162", v.Totals.Subtotal, "subtotal")
	assertMoney(t, "58.10", v.Totals.IGST, "igst")
	assertMoney(t, "0", v.Totals.CGST, "cgst")
	assertMoney(t, "1240.20", v.Totals.GrandTotal, "grand total")

	assert.Equal(t, core.PaymentUPI, v.Payment.Method)
	assertMoney(t, "740.20", v.Payment.Balance, "balance")
}

func TestBuildVoucher_CreditDefault(t *testing.T) {
	draft := saleDraft()
	draft.Payment = core.PaymentInput{}

	v, err := core.BuildVoucher(draft)
	require.NoError(t, err)
	assert.Equal(t, core.PaymentCredit, v.Payment.Method)
	assert.True(t, v.Payment.Balance.Equal(v.Totals.GrandTotal))
}

func TestBuildVoucher_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*core.VoucherDraft)
	}{
		{"unknown kind", func(dr *core.VoucherDraft) { dr.Kind = "QUOTE" }},
		{"negative charges", func(dr *core.VoucherDraft) { dr.OtherCharges = d("-1") }},
		{"overpaid", func(dr *core.VoucherDraft) { dr.Payment.AmountPaid = d("5000") }},
		{"negative payment", func(dr *core.VoucherDraft) { dr.Payment.AmountPaid = d("-5") }},
		{"missing reference", func(dr *core.VoucherDraft) { dr.Payment.Reference = "" }},
		{"credit with payment", func(dr *core.VoucherDraft) { dr.Payment.Method = core.PaymentCredit }},
		{"paid without method", func(dr *core.VoucherDraft) { dr.Payment.Method = "" }},
		{"bad line", func(dr *core.VoucherDraft) { dr.Lines[1].Quantity = d("-2") }},
		{"missing company state", func(dr *core.VoucherDraft) { dr.CompanyState = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			draft := saleDraft()
			tt.mutate(&draft)
			_, err := core.BuildVoucher(draft)
			assert.ErrorIs(t, err, core.ErrInvalidInput)
		})
	}
}

func TestParty_ResolveState(t *testing.T) {
	state, fallback := core.Party{State: "Kerala", GSTIN: "29ABCDE1234F1Z5"}.ResolveState("Karnataka")
	assert.Equal(t, "Kerala", state)
	assert.False(t, fallback)

	state, fallback = core.Party{GSTIN: "27ABCDE1234F1Z5"}.ResolveState("Karnataka")
	assert.Equal(t, "Maharashtra", state)
	assert.False(t, fallback)

	state, fallback = core.Party{}.ResolveState("Karnataka")
	assert.Equal(t, "Karnataka", state)
	assert.True(t, fallback)
}
