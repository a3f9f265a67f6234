package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// VoucherKind is the direction of a posted trade document.
type VoucherKind string

const (
	VoucherPurchase VoucherKind = "PURCHASE"
	VoucherSale     VoucherKind = "SALE"
)

// IsValid reports whether k is a known voucher kind.
func (k VoucherKind) IsValid() bool {
	return k == VoucherPurchase || k == VoucherSale
}

// DocumentTypeCode is the numbering series used for the kind.
func (k VoucherKind) DocumentTypeCode() string {
	if k == VoucherPurchase {
		return "PV"
	}
	return "SV"
}

// PaymentMethod is how a voucher was (or will be) settled.
type PaymentMethod string

const (
	PaymentCash         PaymentMethod = "CASH"
	PaymentCard         PaymentMethod = "CARD"
	PaymentUPI          PaymentMethod = "UPI"
	PaymentBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentCheque       PaymentMethod = "CHEQUE"
	PaymentCredit       PaymentMethod = "CREDIT" // nothing paid yet; full amount on account
)

func (m PaymentMethod) isValid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentUPI, PaymentBankTransfer, PaymentCheque, PaymentCredit:
		return true
	}
	return false
}

func (m PaymentMethod) needsReference() bool {
	return m == PaymentUPI || m == PaymentBankTransfer || m == PaymentCheque
}

// Payment is the settlement record of a voucher. Balance = grand total − amount paid.
type Payment struct {
	Method     PaymentMethod   `json:"method"`
	AmountPaid decimal.Decimal `json:"amount_paid"`
	Balance    decimal.Decimal `json:"balance"`
	Reference  string          `json:"reference,omitempty"`
}

// VoucherLine is one posted line. Product name, rate, tax rate and discount are
// snapshots taken when the voucher was built; returns price from them, never
// from the live catalog.
type VoucherLine struct {
	ID           int             `json:"id"`
	VoucherID    int             `json:"voucher_id"`
	LineNumber   int             `json:"line_number"`
	ProductID    int             `json:"product_id"`
	ProductCode  string          `json:"product_code"`
	ProductName  string          `json:"product_name"`
	Unit         string          `json:"unit"`
	Quantity     decimal.Decimal `json:"quantity"`
	UnitRate     decimal.Decimal `json:"unit_rate"`
	Discount     Discount        `json:"discount"`
	TaxRate      decimal.Decimal `json:"tax_rate"`
	TaxInclusive bool            `json:"tax_inclusive"`
	LineResult
}

// Input reconstructs the calculator input the line was computed from.
func (l VoucherLine) Input() LineInput {
	return LineInput{
		Quantity:     l.Quantity,
		UnitRate:     l.UnitRate,
		Discount:     l.Discount,
		TaxRate:      l.TaxRate,
		TaxInclusive: l.TaxInclusive,
	}
}

// Voucher is a posted purchase or sale. It is immutable once posted; reversals go
// through a ReturnDocument.
type Voucher struct {
	ID           int           `json:"id"`
	CompanyID    int           `json:"company_id"`
	Kind         VoucherKind   `json:"kind"`
	Number       string        `json:"number"`
	Date         string        `json:"date"` // YYYY-MM-DD
	PartyID      int           `json:"party_id"`
	PartyCode    string        `json:"party_code"`
	PartyName    string        `json:"party_name"`
	PartyState   string        `json:"party_state"`
	CompanyState string        `json:"company_state"`
	Lines        []VoucherLine `json:"lines"`
	Totals       VoucherTotals `json:"totals"`
	Payment      Payment       `json:"payment"`
	Notes        string        `json:"notes,omitempty"`
	PostedAt     *time.Time    `json:"posted_at,omitempty"`
}

// Line returns the voucher line with the given id.
func (v *Voucher) Line(lineID int) (*VoucherLine, bool) {
	for i := range v.Lines {
		if v.Lines[i].ID == lineID {
			return &v.Lines[i], true
		}
	}
	return nil, false
}

// DraftLine is a voucher line before calculation.
type DraftLine struct {
	ProductID   int    `json:"product_id"`
	ProductCode string `json:"product_code"`
	ProductName string `json:"product_name"`
	Unit        string `json:"unit"`
	LineInput
}

// PaymentInput is the caller-entered part of the payment record.
type PaymentInput struct {
	Method     PaymentMethod   `json:"method"`
	AmountPaid decimal.Decimal `json:"amount_paid"`
	Reference  string          `json:"reference,omitempty"`
}

// VoucherDraft carries everything BuildVoucher needs. CompanyState and PartyState
// are explicit; nothing is read from ambient defaults.
type VoucherDraft struct {
	Kind         VoucherKind     `json:"kind"`
	Number       string          `json:"number,omitempty"`
	Date         string          `json:"date"`
	PartyID      int             `json:"party_id"`
	PartyCode    string          `json:"party_code"`
	PartyName    string          `json:"party_name"`
	PartyState   string          `json:"party_state"`
	CompanyState string          `json:"company_state"`
	Lines        []DraftLine     `json:"lines"`
	OtherCharges decimal.Decimal `json:"other_charges"`
	RoundOff     decimal.Decimal `json:"round_off"`
	Payment      PaymentInput    `json:"payment"`
	Notes        string          `json:"notes,omitempty"`
}

// VoucherLineInput is one requested line of a voucher to post. Nil UnitRate and
// TaxRate fall back to the product's catalog values.
type VoucherLineInput struct {
	ProductCode string           `json:"product_code"`
	Quantity    decimal.Decimal  `json:"quantity"`
	UnitRate    *decimal.Decimal `json:"unit_rate,omitempty"`
	TaxRate     *decimal.Decimal `json:"tax_rate,omitempty"`
	Discount    Discount         `json:"discount"`
}

// PostVoucherInput is a voucher as entered by the user, keyed by codes.
type PostVoucherInput struct {
	CompanyCode  string             `json:"company_code"`
	Kind         VoucherKind        `json:"kind"`
	Date         string             `json:"date"`
	PartyCode    string             `json:"party_code"`
	Lines        []VoucherLineInput `json:"lines"`
	OtherCharges decimal.Decimal    `json:"other_charges"`
	RoundOff     decimal.Decimal    `json:"round_off"`
	Payment      PaymentInput       `json:"payment"`
	Notes        string             `json:"notes,omitempty"`
}

// VoucherFilter narrows ListVouchers. Zero fields do not filter.
type VoucherFilter struct {
	Kind     VoucherKind `json:"kind,omitempty"`
	PartyID  int         `json:"party_id,omitempty"`
	FromDate string      `json:"from_date,omitempty"`
	ToDate   string      `json:"to_date,omitempty"`
}
