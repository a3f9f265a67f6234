package app

import (
	"github.com/shopspring/decimal"

	"gst-billing/internal/core"
)

// CreatePartyRequest is the input for creating a customer or supplier.
type CreatePartyRequest struct {
	CompanyCode string `json:"-"`
	core.PartyInput
}

// CreateProductRequest is the input for adding a catalog product.
type CreateProductRequest struct {
	CompanyCode string `json:"-"`
	core.ProductInput
}

// AdjustStockRequest is a manual stock correction. Delta is signed.
type AdjustStockRequest struct {
	CompanyCode string          `json:"-"`
	ProductCode string          `json:"product_code" jsonschema:"required"`
	Delta       decimal.Decimal `json:"delta" jsonschema:"required"`
}

// JournalEntryRequest is a manual journal entry. Each line sets either Debit or Credit.
type JournalEntryRequest struct {
	CompanyCode  string             `json:"-"`
	Narration    string             `json:"narration" jsonschema:"required"`
	PostingDate  string             `json:"posting_date" jsonschema:"required,format=date"`
	DocumentDate string             `json:"document_date,omitempty" jsonschema:"format=date"`
	Lines        []JournalLineInput `json:"lines" jsonschema:"required,minItems=2"`
}

// JournalLineInput is one line of a JournalEntryRequest.
type JournalLineInput struct {
	AccountCode string          `json:"account_code" jsonschema:"required"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
}
