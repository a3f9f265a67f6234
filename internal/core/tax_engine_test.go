package core_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gst-billing/internal/core"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertMoney(t *testing.T, want string, got decimal.Decimal, label string) {
	t.Helper()
	assert.Truef(t, d(want).Equal(got), "%s: want %s, got %s", label, want, got)
}

func TestComputeTaxSplit(t *testing.T) {
	tests := []struct {
		name           string
		base, rate     string
		company, party string
		cgst, sgst     string
		igst           string
	}{
		{"same state", "1000", "18", "Karnataka", "Karnataka", "90", "90", "0"},
		{"cross state", "1000", "18", "Karnataka", "Maharashtra", "0", "0", "180"},
		{"case insensitive", "1000", "18", "Karnataka", "  KARNATAKA ", "90", "90", "0"},
		{"gst code matches name", "1000", "18", "Karnataka", "29", "90", "90", "0"},
		{"empty party state is intrastate", "1000", "5", "Karnataka", "", "25", "25", "0"},
		{"zero base", "0", "18", "Karnataka", "Kerala", "0", "0", "0"},
		{"zero rate", "1000", "0", "Karnataka", "Karnataka", "0", "0", "0"},
		{"half cent rounds up", "1", "1", "Karnataka", "Karnataka", "0.01", "0.01", "0"},
		{"below half rounds down", "10.05", "5", "Karnataka", "Karnataka", "0.25", "0.25", "0"},
		{"igst rounding", "333.33", "12", "Karnataka", "Goa", "0", "0", "40"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			split, err := core.ComputeTaxSplit(d(tt.base), d(tt.rate), tt.company, tt.party)
			require.NoError(t, err)
			assertMoney(t, tt.cgst, split.CGST, "cgst")
			assertMoney(t, tt.sgst, split.SGST, "sgst")
			assertMoney(t, tt.igst, split.IGST, "igst")
		})
	}
}

func TestComputeTaxSplit_RejectsBadInput(t *testing.T) {
	_, err := core.ComputeTaxSplit(d("-1"), d("18"), "Karnataka", "Karnataka")
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = core.ComputeTaxSplit(d("100"), d("-5"), "Karnataka", "Karnataka")
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = core.ComputeTaxSplit(d("100"), d("5"), "", "Karnataka")
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestComputeTaxSplit_Properties(t *testing.T) {
	bases := []string{"0", "0.01", "1", "99.99", "123.45", "1000", "1234567.89"}
	rates := []string{"0", "0.25", "3", "5", "12", "18", "28"}

	for _, b := range bases {
		for _, r := range rates {
			expected := d(b).Mul(d(r)).Div(decimal.NewFromInt(100))

			intra, err := core.ComputeTaxSplit(d(b), d(r), "Karnataka", "karnataka")
			require.NoError(t, err)
			assert.True(t, intra.CGST.Equal(intra.SGST), "cgst != sgst for %s@%s", b, r)
			assert.True(t, intra.IGST.IsZero())
			assert.True(t, intra.Total().Sub(expected).Abs().LessThanOrEqual(core.MoneyTolerance),
				"intrastate %s@%s: %s vs %s", b, r, intra.Total(), expected)
			assert.False(t, intra.IsInterstate())

			inter, err := core.ComputeTaxSplit(d(b), d(r), "Karnataka", "Tamil Nadu")
			require.NoError(t, err)
			assert.True(t, inter.CGST.IsZero())
			assert.True(t, inter.SGST.IsZero())
			assert.True(t, inter.IGST.Sub(expected).Abs().LessThanOrEqual(core.MoneyTolerance))
		}
	}
}

func TestStateFromGSTIN(t *testing.T) {
	state, ok := core.StateFromGSTIN("29ABCDE1234F1Z5")
	require.True(t, ok)
	assert.Equal(t, "Karnataka", state)

	_, ok = core.StateFromGSTIN("X")
	assert.False(t, ok)

	_, ok = core.StateFromGSTIN("00ABCDE1234F1Z5")
	assert.False(t, ok)
}
