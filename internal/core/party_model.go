package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// PartyType distinguishes the two sides a company trades with.
type PartyType string

const (
	PartyCustomer PartyType = "CUSTOMER"
	PartySupplier PartyType = "SUPPLIER"
)

// Party is a customer or supplier master record, scoped to a company.
// State is the tax jurisdiction compared against the company's home state.
type Party struct {
	ID        int       `json:"id"`
	CompanyID int       `json:"company_id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Type      PartyType `json:"type"`
	State     string    `json:"state"`
	GSTIN     string    `json:"gstin,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ResolveState returns the party's tax jurisdiction: the recorded state, then the
// state encoded in its GSTIN, then homeState. fromFallback is true only when
// homeState had to be used.
func (p Party) ResolveState(homeState string) (state string, fromFallback bool) {
	if s := strings.TrimSpace(p.State); s != "" {
		return s, false
	}
	if s, ok := StateFromGSTIN(p.GSTIN); ok {
		return s, false
	}
	return homeState, true
}

// Product is a catalog item. CurrentStock is only changed through the stock ledger.
type Product struct {
	ID           int             `json:"id"`
	CompanyID    int             `json:"company_id"`
	Code         string          `json:"code"`
	Name         string          `json:"name"`
	Unit         string          `json:"unit"`
	PurchaseRate decimal.Decimal `json:"purchase_rate"`
	SellingRate  decimal.Decimal `json:"selling_rate"`
	TaxRate      decimal.Decimal `json:"tax_rate"`
	TaxInclusive bool            `json:"tax_inclusive"`
	CurrentStock decimal.Decimal `json:"current_stock"`
	IsActive     bool            `json:"is_active"`
	CreatedAt    time.Time       `json:"created_at"`
}

// RateFor returns the default unit rate for a voucher of the given kind.
func (p Product) RateFor(kind VoucherKind) decimal.Decimal {
	if kind == VoucherPurchase {
		return p.PurchaseRate
	}
	return p.SellingRate
}

// PartyInput holds the fields accepted when creating a party.
type PartyInput struct {
	Code    string    `json:"code"`
	Name    string    `json:"name"`
	Type    PartyType `json:"type"`
	State   string    `json:"state"`
	GSTIN   string    `json:"gstin,omitempty"`
	Phone   string    `json:"phone,omitempty"`
	Address string    `json:"address,omitempty"`
}

// ProductInput holds the fields accepted when creating a product. OpeningStock
// is booked as a manual stock adjustment.
type ProductInput struct {
	Code         string          `json:"code"`
	Name         string          `json:"name"`
	Unit         string          `json:"unit"`
	PurchaseRate decimal.Decimal `json:"purchase_rate"`
	SellingRate  decimal.Decimal `json:"selling_rate"`
	TaxRate      decimal.Decimal `json:"tax_rate"`
	TaxInclusive bool            `json:"tax_inclusive"`
	OpeningStock decimal.Decimal `json:"opening_stock"`
}
