package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"gst-billing/internal/app"
	"gst-billing/internal/core"
)

const draftYAML = `
kind: SALE
date: "2026-05-10"
party_code: C001
party_name: Local Retail
party_state: Karnataka
company_state: "29"
lines:
  - product_code: P001
    product_name: Widget
    quantity: 5
    unit_rate: "100"
    tax_rate: 18
payment:
  method: CASH
  amount_paid: 590
`

type fakeService struct {
	app.ApplicationService
	gotCompany string
}

func (f *fakeService) LoadDefaultCompany(context.Context) (*core.Company, error) {
	return &core.Company{CompanyCode: "ACME"}, nil
}

func (f *fakeService) GetReturnable(_ context.Context, companyCode, number string) (*core.Returnable, error) {
	f.gotCompany = companyCode
	return &core.Returnable{
		Voucher: &core.Voucher{Kind: core.VoucherSale, Number: number},
		Lines: []core.LineRemaining{{
			OriginalLineID: 1, ProductName: "Widget",
			Original: decimal.NewFromInt(10), AlreadyReturned: decimal.NewFromInt(4),
			Remaining: decimal.NewFromInt(6), State: core.LinePartiallyReturned,
		}},
	}, nil
}

func (f *fakeService) GetTrialBalance(_ context.Context, companyCode string) (*app.TrialBalanceResult, error) {
	f.gotCompany = companyCode
	return &app.TrialBalanceResult{
		CompanyCode: companyCode, CompanyName: "Acme Traders", Currency: "INR",
		Accounts: []core.AccountBalance{{Code: "1000", Name: "Cash", Balance: decimal.NewFromInt(708)}},
	}, nil
}

func noDatabase(t *testing.T) ServiceFactory {
	return func() (app.ApplicationService, error) {
		t.Error("command must not open the database")
		return nil, errors.New("no database")
	}
}

func run(t *testing.T, open ServiceFactory, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand(open)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestQuote_YAMLFileToJSON(t *testing.T) {
	out, err := run(t, noDatabase(t), "", "quote", writeFile(t, "draft.yaml", draftYAML), "-o", "json")
	require.NoError(t, err)

	var v struct {
		Totals struct {
			CGST       decimal.Decimal `json:"cgst"`
			SGST       decimal.Decimal `json:"sgst"`
			GrandTotal decimal.Decimal `json:"grand_total"`
		} `json:"totals"`
		Payment struct {
			Balance decimal.Decimal `json:"balance"`
		} `json:"payment"`
		SuggestedRoundOff decimal.Decimal `json:"suggested_round_off"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &v), out)
	assert.Equal(t, "590.00", v.Totals.GrandTotal.StringFixed(2))
	assert.Equal(t, "45.00", v.Totals.CGST.StringFixed(2), "29 and Karnataka are the same state")
	assert.Equal(t, "45.00", v.Totals.SGST.StringFixed(2))
	assert.True(t, v.Payment.Balance.IsZero())
	assert.True(t, v.SuggestedRoundOff.IsZero())
}

func TestQuote_StdinJSONToYAML(t *testing.T) {
	var draft any
	require.NoError(t, yaml.Unmarshal([]byte(draftYAML), &draft))
	body, err := json.Marshal(draft)
	require.NoError(t, err)

	out, err := run(t, noDatabase(t), string(body), "quote", "-o", "yaml")
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(out), &doc), out)
	totals, ok := doc["totals"].(map[string]any)
	require.True(t, ok, out)
	assert.Equal(t, "590", totals["grand_total"])
}

func TestQuote_Table(t *testing.T) {
	out, err := run(t, noDatabase(t), "", "quote", writeFile(t, "draft.yml", draftYAML))
	require.NoError(t, err)
	assert.Contains(t, out, "(quote)")
	assert.Contains(t, out, "GRAND TOTAL")
	assert.Contains(t, out, "590.00")
	assert.NotContains(t, out, "IGST")
}

func TestQuote_Rejections(t *testing.T) {
	_, err := run(t, noDatabase(t), `{"kind":"LOAN","company_state":"29"}`, "quote")
	assert.True(t, errors.Is(err, core.ErrInvalidInput), "got %v", err)

	_, err = run(t, noDatabase(t), `{"kind":"SALE","bogus":1}`, "quote")
	assert.ErrorContains(t, err, "invalid input")

	_, err = run(t, noDatabase(t), strings.Replace(draftYAML, "quantity: 5", "quantity: -5", 1), "quote", "-f", "yaml")
	assert.True(t, errors.Is(err, core.ErrInvalidInput), "got %v", err)

	_, err = run(t, noDatabase(t), "", "quote", writeFile(t, "draft.yaml", draftYAML), "-o", "xml")
	assert.ErrorContains(t, err, "unknown output format")
}

func TestReturnable_DefaultCompany(t *testing.T) {
	svc := &fakeService{}
	open := func() (app.ApplicationService, error) { return svc, nil }

	out, err := run(t, open, "", "returnable", "SV-2026-00001")
	require.NoError(t, err)
	assert.Equal(t, "ACME", svc.gotCompany)
	assert.Contains(t, out, "PARTIALLY_RETURNED")
	assert.Contains(t, out, "SV-2026-00001")

	_, err = run(t, open, "", "returnable", "SV-2026-00001", "--company", "BETA")
	require.NoError(t, err)
	assert.Equal(t, "BETA", svc.gotCompany)
}

func TestBalances(t *testing.T) {
	svc := &fakeService{}
	out, err := run(t, func() (app.ApplicationService, error) { return svc, nil }, "", "bal")
	require.NoError(t, err)
	assert.Contains(t, out, "TRIAL BALANCE")
	assert.Contains(t, out, "708.00")
}

func TestOpenFailureIsReported(t *testing.T) {
	_, err := run(t, func() (app.ApplicationService, error) {
		return nil, errors.New("DATABASE_URL environment variable not set")
	}, "", "stock", "P001")
	assert.ErrorContains(t, err, "DATABASE_URL")
}
