package app

import "gst-billing/internal/core"

// TrialBalanceResult is returned by GetTrialBalance.
type TrialBalanceResult struct {
	CompanyCode string                `json:"company_code"`
	CompanyName string                `json:"company_name"`
	Currency    string                `json:"currency"`
	Accounts    []core.AccountBalance `json:"accounts"`
}

// PartyListResult is returned by ListParties.
type PartyListResult struct {
	Parties []core.Party `json:"parties"`
}

// ProductListResult is returned by ListProducts.
type ProductListResult struct {
	Products []core.Product `json:"products"`
}

// VoucherListResult is returned by ListVouchers.
type VoucherListResult struct {
	CompanyCode string         `json:"company_code"`
	Vouchers    []core.Voucher `json:"vouchers"`
}

// ReturnListResult is returned by ListReturns.
type ReturnListResult struct {
	VoucherNumber string                `json:"voucher_number"`
	Returns       []core.ReturnDocument `json:"returns"`
}

// StockResult is returned by GetStock.
type StockResult struct {
	Product   *core.Product        `json:"product"`
	Movements []core.StockMovement `json:"movements"`
}

// AccountStatementResult is returned by GetAccountStatement.
type AccountStatementResult struct {
	CompanyCode string               `json:"company_code"`
	AccountCode string               `json:"account_code"`
	Lines       []core.StatementLine `json:"lines"`
}
