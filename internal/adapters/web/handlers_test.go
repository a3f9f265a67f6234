package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"gst-billing/internal/app"
	"gst-billing/internal/core"
	"gst-billing/internal/lock"
)

// fakeService embeds the interface so each test only implements what it calls.
type fakeService struct {
	app.ApplicationService
	postVoucherErr error
	gotVoucher     core.PostVoucherInput
	gotReturn      core.PostReturnInput
	panicOnQuote   bool
}

func (f *fakeService) LoadDefaultCompany(context.Context) (*core.Company, error) {
	return &core.Company{CompanyCode: "ACME"}, nil
}

func (f *fakeService) QuoteVoucher(_ context.Context, in core.PostVoucherInput) (*core.Voucher, error) {
	if f.panicOnQuote {
		panic("boom")
	}
	return &core.Voucher{Kind: in.Kind, Totals: core.VoucherTotals{GrandTotal: decimal.NewFromInt(590)}}, nil
}

func (f *fakeService) PostVoucher(_ context.Context, in core.PostVoucherInput) (*core.Voucher, error) {
	f.gotVoucher = in
	if f.postVoucherErr != nil {
		return nil, f.postVoucherErr
	}
	return &core.Voucher{Number: "SV-2026-00001", Kind: in.Kind}, nil
}

func (f *fakeService) PostReturn(_ context.Context, in core.PostReturnInput) (*core.ReturnDocument, error) {
	f.gotReturn = in
	return &core.ReturnDocument{Number: "SR-2026-00001", OriginalNumber: in.VoucherNumber}, nil
}

func (f *fakeService) GetVoucher(_ context.Context, _, number string) (*core.Voucher, error) {
	return nil, fmt.Errorf("voucher %s: %w", number, core.ErrNotFound)
}

func (f *fakeService) GetAccountStatement(_ context.Context, companyCode, accountCode, _, _ string) (*app.AccountStatementResult, error) {
	return &app.AccountStatementResult{
		CompanyCode: companyCode,
		AccountCode: accountCode,
		Lines: []core.StatementLine{{
			PostingDate: "2026-05-10", Narration: "Sale SV-2026-00001",
			Debit: decimal.NewFromInt(100), Credit: decimal.Zero, RunningBalance: decimal.NewFromInt(100),
		}},
	}, nil
}

func newTestHandler(svc app.ApplicationService) http.Handler {
	return NewHandler(svc, nil, Options{MaxBodyBytes: 4096})
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorResponse {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestHandler(&fakeService{}), http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","company":"ACME"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestPostVoucher_UsesCompanyFromURL(t *testing.T) {
	svc := &fakeService{}
	body := `{"company_code":"OTHER","kind":"sale","date":"2026-05-10","party_code":"C001",
		"lines":[{"product_code":"P001","quantity":"2"}]}`
	rec := do(t, newTestHandler(svc), http.MethodPost, "/api/companies/ACME/vouchers", body)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "ACME", svc.gotVoucher.CompanyCode)
	assert.Equal(t, core.VoucherSale, svc.gotVoucher.Kind)
	assert.Equal(t, "2", svc.gotVoucher.Lines[0].Quantity.String())
}

func TestPostVoucher_ErrorMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{&core.CalcError{Err: core.ErrInvalidInput, Field: "quantity", Details: "must be positive"}, http.StatusBadRequest, "INVALID_INPUT"},
		{&core.CalcError{Err: core.ErrInsufficientStock, Field: "product 1"}, http.StatusConflict, "INSUFFICIENT_STOCK"},
		{fmt.Errorf("party C9: %w", core.ErrNotFound), http.StatusNotFound, "NOT_FOUND"},
		{fmt.Errorf("%w: product:ACME:P001", lock.ErrNotObtained), http.StatusServiceUnavailable, "BUSY"},
		{&core.CalcError{Err: core.ErrRoundingMismatch}, http.StatusInternalServerError, "ROUNDING_MISMATCH"},
		{errors.New("connection reset"), http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tc := range tests {
		t.Run(tc.code, func(t *testing.T) {
			svc := &fakeService{postVoucherErr: tc.err}
			rec := do(t, newTestHandler(svc), http.MethodPost, "/api/companies/ACME/vouchers", `{"kind":"SALE"}`)
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, tc.code, decodeError(t, rec).Code)
		})
	}

	t.Run("field and hidden internals", func(t *testing.T) {
		svc := &fakeService{postVoucherErr: &core.CalcError{Err: core.ErrInvalidInput, Field: "quantity", Details: "must be positive"}}
		resp := decodeError(t, do(t, newTestHandler(svc), http.MethodPost, "/api/companies/ACME/vouchers", `{}`))
		assert.Equal(t, "quantity", resp.Field)
		assert.NotEmpty(t, resp.RequestID)

		svc = &fakeService{postVoucherErr: errors.New("password=hunter2")}
		resp = decodeError(t, do(t, newTestHandler(svc), http.MethodPost, "/api/companies/ACME/vouchers", `{}`))
		assert.Equal(t, "internal server error", resp.Error)
	})
}

func TestDecodeJSON_Rejections(t *testing.T) {
	h := newTestHandler(&fakeService{})

	rec := do(t, h, http.MethodPost, "/api/companies/ACME/vouchers", `{"kind":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPost, "/api/companies/ACME/vouchers", `{"unknown_field":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	big := `{"notes":"` + strings.Repeat("x", 5000) + `"}`
	rec = do(t, h, http.MethodPost, "/api/companies/ACME/vouchers", big)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestPostReturn_VoucherFromURL(t *testing.T) {
	svc := &fakeService{}
	body := `{"date":"2026-05-20","reason":"damaged in transit","disposition":"DAMAGED",
		"refund":{"method":"CREDIT_NOTE"},"lines":[{"original_line_id":7,"quantity":"1"}]}`
	rec := do(t, newTestHandler(svc), http.MethodPost, "/api/companies/ACME/vouchers/SV-2026-00001/returns", body)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "SV-2026-00001", svc.gotReturn.VoucherNumber)
	assert.Equal(t, "ACME", svc.gotReturn.CompanyCode)
	assert.Equal(t, core.DispositionDamaged, svc.gotReturn.Disposition)
	assert.Equal(t, 7, svc.gotReturn.Lines[0].OriginalLineID)
}

func TestGetVoucher_NotFound(t *testing.T) {
	rec := do(t, newTestHandler(&fakeService{}), http.MethodGet, "/api/companies/ACME/vouchers/SV-2026-09999", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecoverer(t *testing.T) {
	rec := do(t, newTestHandler(&fakeService{panicOnQuote: true}), http.MethodPost, "/api/companies/ACME/vouchers/quote", `{}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "INTERNAL_ERROR", decodeError(t, rec).Code)
}

func TestAccountStatement_CSV(t *testing.T) {
	rec := do(t, newTestHandler(&fakeService{}), http.MethodGet, "/api/companies/ACME/accounts/1100/statement?format=csv", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "2026-05-10,Sale SV-2026-00001,,100.00,0.00,100.00", lines[1])
}

func TestSchemas(t *testing.T) {
	h := newTestHandler(&fakeService{})

	rec := do(t, h, http.MethodGet, "/api/schemas", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"voucher"`)

	rec = do(t, h, http.MethodGet, "/api/schemas/return", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var schema map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &schema))
	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok, "schema has properties: %s", rec.Body.String())
	assert.Contains(t, props, "refund")
	assert.Contains(t, props, "lines")
	assert.Contains(t, rec.Body.String(), "ADJUST_AGAINST_BALANCE")

	rec = do(t, h, http.MethodGet, "/api/schemas/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORS(t *testing.T) {
	h := NewHandler(&fakeService{}, nil, Options{AllowedOrigins: "https://billing.example.com"})

	req := httptest.NewRequest(http.MethodOptions, "/api/health", nil)
	req.Header.Set("Origin", "https://billing.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://billing.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Origin", rec.Header().Get("Vary"))
	assert.Contains(t, rec.Header().Get("Access-Control-Expose-Headers"), "Retry-After")
	assert.NotContains(t, rec.Header().Get("Access-Control-Allow-Methods"), "DELETE")

	req = httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestBodyLimit_RejectsDeclaredLengthBeforeRouting(t *testing.T) {
	obs, logs := observer.New(zap.WarnLevel)
	svc := &fakeService{}
	h := NewHandler(svc, zap.New(obs), Options{MaxBodyBytes: 64})

	req := httptest.NewRequest(http.MethodPost, "/api/companies/ACME/vouchers", strings.NewReader(strings.Repeat("x", 100)))
	req.Header.Set("X-Request-ID", "till-7-0042")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "REQUEST_TOO_LARGE", resp.Code)
	assert.Equal(t, "till-7-0042", resp.RequestID)
	assert.Empty(t, svc.gotVoucher.CompanyCode, "handler must not run")

	rejected := logs.FilterMessage("request body too large").All()
	require.Len(t, rejected, 1)
	fields := rejected[0].ContextMap()
	assert.Equal(t, "till-7-0042", fields["request_id"])
	assert.Equal(t, int64(100), fields["content_length"])
	assert.Equal(t, int64(64), fields["limit"])
}

func TestLogger_LevelFollowsStatus(t *testing.T) {
	obs, logs := observer.New(zap.DebugLevel)
	h := NewHandler(&fakeService{}, zap.New(obs), Options{})

	do(t, h, http.MethodGet, "/api/health", "")
	do(t, h, http.MethodGet, "/api/schemas/nope", "")

	requests := logs.FilterMessage("request").All()
	require.Len(t, requests, 2)
	assert.Equal(t, zap.DebugLevel, requests[0].Level)
	assert.Equal(t, zap.WarnLevel, requests[1].Level)
	assert.Equal(t, int64(http.StatusNotFound), requests[1].ContextMap()["status"])
}
