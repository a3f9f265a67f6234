package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReturnKind identifies which side of a trade is being reversed.
type ReturnKind string

const (
	SalesReturn    ReturnKind = "SALES_RETURN"
	PurchaseReturn ReturnKind = "PURCHASE_RETURN"
)

// ReturnKindFor returns the return kind that reverses a voucher of kind k.
func ReturnKindFor(k VoucherKind) ReturnKind {
	if k == VoucherPurchase {
		return PurchaseReturn
	}
	return SalesReturn
}

// VoucherKind is the kind of voucher this return may reference.
func (k ReturnKind) VoucherKind() VoucherKind {
	if k == PurchaseReturn {
		return VoucherPurchase
	}
	return VoucherSale
}

func (k ReturnKind) DocumentTypeCode() string {
	if k == PurchaseReturn {
		return "PR"
	}
	return "SR"
}

// StockDisposition says what happens to returned goods.
type StockDisposition string

const (
	DispositionResalable StockDisposition = "RESALABLE"
	DispositionDamaged   StockDisposition = "DAMAGED"
	DispositionExpired   StockDisposition = "EXPIRED"
)

func (d StockDisposition) isValid() bool {
	return d == DispositionResalable || d == DispositionDamaged || d == DispositionExpired
}

// RestoresStock reports whether goods with this disposition go back on the shelf.
func (d StockDisposition) RestoresStock() bool {
	return d == DispositionResalable
}

// RefundMethod is how the value of a return is settled with the party.
type RefundMethod string

const (
	RefundCash                 RefundMethod = "CASH"
	RefundBankTransfer         RefundMethod = "BANK_TRANSFER"
	RefundCheque               RefundMethod = "CHEQUE"
	RefundUPI                  RefundMethod = "UPI"
	RefundCreditNote           RefundMethod = "CREDIT_NOTE"
	RefundAdjustAgainstBalance RefundMethod = "ADJUST_AGAINST_BALANCE"
)

// RefundDetails carries the method and the supplementary fields some methods need.
type RefundDetails struct {
	Method        RefundMethod `json:"method"`
	BankReference string       `json:"bank_reference,omitempty"`
	ChequeNumber  string       `json:"cheque_number,omitempty"`
	UPIReference  string       `json:"upi_reference,omitempty"`
}

// Validate fails with ErrRefundDetailsMissing when the method or a field the
// method requires is absent.
func (r RefundDetails) Validate() error {
	switch r.Method {
	case "":
		return refundDetailsMissing("method", "a refund method is required")
	case RefundBankTransfer:
		if r.BankReference == "" {
			return refundDetailsMissing("bank_reference", "required for BANK_TRANSFER")
		}
	case RefundCheque:
		if r.ChequeNumber == "" {
			return refundDetailsMissing("cheque_number", "required for CHEQUE")
		}
	case RefundUPI:
		if r.UPIReference == "" {
			return refundDetailsMissing("upi_reference", "required for UPI")
		}
	case RefundCash, RefundCreditNote, RefundAdjustAgainstBalance:
	default:
		return invalidInput("refund.method", "unknown refund method %q", r.Method)
	}
	return nil
}

// ReturnLine reverses part of one original voucher line. Pricing fields are
// copied from the original line.
type ReturnLine struct {
	ID             int              `json:"id"`
	ReturnID       int              `json:"return_id"`
	OriginalLineID int              `json:"original_line_id"`
	LineNumber     int              `json:"line_number"`
	ProductID      int              `json:"product_id"`
	ProductCode    string           `json:"product_code"`
	ProductName    string           `json:"product_name"`
	Unit           string           `json:"unit"`
	Quantity       decimal.Decimal  `json:"quantity"`
	UnitRate       decimal.Decimal  `json:"unit_rate"`
	Discount       Discount         `json:"discount"`
	TaxRate        decimal.Decimal  `json:"tax_rate"`
	TaxInclusive   bool             `json:"tax_inclusive"`
	Disposition    StockDisposition `json:"disposition"`
	LineResult
}

// ReturnDocument is a posted purchase or sales return.
type ReturnDocument struct {
	ID                int              `json:"id"`
	CompanyID         int              `json:"company_id"`
	Kind              ReturnKind       `json:"kind"`
	Number            string           `json:"number"`
	Date              string           `json:"date"`
	OriginalVoucherID int              `json:"original_voucher_id"`
	OriginalNumber    string           `json:"original_number"`
	PartyID           int              `json:"party_id"`
	PartyCode         string           `json:"party_code"`
	PartyName         string           `json:"party_name"`
	PartyState        string           `json:"party_state"`
	CompanyState      string           `json:"company_state"`
	Reason            string           `json:"reason"`
	Disposition       StockDisposition `json:"disposition"`
	Refund            RefundDetails    `json:"refund"`
	Lines             []ReturnLine     `json:"lines"`
	Totals            VoucherTotals    `json:"totals"`
	Losses            []StockLoss      `json:"losses,omitempty"`
	Notes             string           `json:"notes,omitempty"`
	PostedAt          *time.Time       `json:"posted_at,omitempty"`
}

// ReturnLineRequest selects a quantity of one original line. An empty
// Disposition falls back to the request's disposition.
type ReturnLineRequest struct {
	OriginalLineID int              `json:"original_line_id"`
	Quantity       decimal.Decimal  `json:"quantity"`
	Disposition    StockDisposition `json:"disposition,omitempty"`
}

// ReturnRequest is the caller's description of a return against one voucher.
type ReturnRequest struct {
	Kind        ReturnKind          `json:"kind"`
	Number      string              `json:"number,omitempty"`
	Date        string              `json:"date"`
	Reason      string              `json:"reason"`
	Disposition StockDisposition    `json:"disposition"`
	Refund      RefundDetails       `json:"refund"`
	Lines       []ReturnLineRequest `json:"lines"`
	RoundOff    decimal.Decimal     `json:"round_off"`
	Notes       string              `json:"notes,omitempty"`
}

// LineReturnState is the return progress of one original voucher line.
type LineReturnState string

const (
	LineOpen              LineReturnState = "OPEN"
	LinePartiallyReturned LineReturnState = "PARTIALLY_RETURNED"
	LineFullyReturned     LineReturnState = "FULLY_RETURNED"
)

// LineRemaining is the reconciliation view of one original line.
type LineRemaining struct {
	OriginalLineID  int             `json:"original_line_id"`
	ProductID       int             `json:"product_id"`
	ProductName     string          `json:"product_name"`
	Original        decimal.Decimal `json:"original"`
	AlreadyReturned decimal.Decimal `json:"already_returned"`
	Remaining       decimal.Decimal `json:"remaining"`
	State           LineReturnState `json:"state"`
}

// PostReturnInput identifies the original voucher by company and number.
type PostReturnInput struct {
	CompanyCode   string `json:"company_code"`
	VoucherNumber string `json:"voucher_number"`
	ReturnRequest
}

// Returnable is a voucher alongside the per-line quantities still open for return.
type Returnable struct {
	Voucher *Voucher        `json:"voucher"`
	Lines   []LineRemaining `json:"lines"`
}
