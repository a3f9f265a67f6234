package core

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// settlementRule is the account rule that receives or pays cash for a voucher.
func settlementRule(m PaymentMethod) string {
	if m == PaymentCash {
		return RuleCash
	}
	return RuleBank
}

// refundRule is the account rule a return is settled through. Credit notes and
// balance adjustments stay on the party's account.
func refundRule(kind ReturnKind, m RefundMethod) string {
	switch m {
	case RefundCash:
		return RuleCash
	case RefundBankTransfer, RefundCheque, RefundUPI:
		return RuleBank
	}
	if kind == PurchaseReturn {
		return RulePayable
	}
	return RuleReceivable
}

// VoucherRuleTypes lists every account rule BuildVoucherPosting may use.
func VoucherRuleTypes(kind VoucherKind) []string {
	if kind == VoucherPurchase {
		return []string{RulePurchases, RuleCGSTInput, RuleSGSTInput, RuleIGSTInput,
			RuleOtherCharges, RuleRoundOff, RuleCash, RuleBank, RulePayable}
	}
	return []string{RuleSales, RuleCGSTOutput, RuleSGSTOutput, RuleIGSTOutput,
		RuleOtherCharges, RuleRoundOff, RuleCash, RuleBank, RuleReceivable}
}

// ReturnRuleTypes lists every account rule BuildReturnPosting and
// BuildStockLossPosting may use.
func ReturnRuleTypes(kind ReturnKind) []string {
	return append(VoucherRuleTypes(kind.VoucherKind()), RuleInventoryLoss, RulePurchases)
}

// BuildVoucherPosting books a voucher. A sale debits what was received and the
// outstanding balance, and credits sales, output GST and charges. A purchase
// mirrors it against purchases and input GST.
func BuildVoucherPosting(v *Voucher, accounts map[string]string) JournalPosting {
	p := JournalPosting{
		CompanyID:      v.CompanyID,
		IdempotencyKey: fmt.Sprintf("voucher-%d-%s", v.CompanyID, v.Number),
		PostingDate:    v.Date,
		DocumentDate:   v.Date,
		ReferenceType:  "VOUCHER",
		ReferenceID:    v.Number,
	}
	t := v.Totals
	settle := accounts[settlementRule(v.Payment.Method)]

	if v.Kind == VoucherPurchase {
		p.Narration = fmt.Sprintf("Purchase %s from %s", v.Number, v.PartyName)
		p.Debit(accounts[RulePurchases], t.Subtotal)
		p.Debit(accounts[RuleCGSTInput], t.CGST)
		p.Debit(accounts[RuleSGSTInput], t.SGST)
		p.Debit(accounts[RuleIGSTInput], t.IGST)
		p.Debit(accounts[RuleOtherCharges], t.OtherCharges)
		p.Debit(accounts[RuleRoundOff], t.RoundOff)
		p.Credit(settle, v.Payment.AmountPaid)
		p.Credit(accounts[RulePayable], v.Payment.Balance)
		return p
	}

	p.Narration = fmt.Sprintf("Sale %s to %s", v.Number, v.PartyName)
	p.Debit(settle, v.Payment.AmountPaid)
	p.Debit(accounts[RuleReceivable], v.Payment.Balance)
	p.Credit(accounts[RuleSales], t.Subtotal)
	p.Credit(accounts[RuleCGSTOutput], t.CGST)
	p.Credit(accounts[RuleSGSTOutput], t.SGST)
	p.Credit(accounts[RuleIGSTOutput], t.IGST)
	p.Credit(accounts[RuleOtherCharges], t.OtherCharges)
	p.Credit(accounts[RuleRoundOff], t.RoundOff)
	return p
}

// BuildReturnPosting reverses the revenue or cost side of the original voucher
// and settles the return's grand total through the refund method.
func BuildReturnPosting(doc *ReturnDocument, accounts map[string]string) JournalPosting {
	p := JournalPosting{
		CompanyID:      doc.CompanyID,
		IdempotencyKey: fmt.Sprintf("return-%d-%s", doc.CompanyID, doc.Number),
		PostingDate:    doc.Date,
		DocumentDate:   doc.Date,
		ReferenceType:  "RETURN",
		ReferenceID:    doc.Number,
	}
	t := doc.Totals
	settle := accounts[refundRule(doc.Kind, doc.Refund.Method)]

	if doc.Kind == PurchaseReturn {
		p.Narration = fmt.Sprintf("Purchase return %s against %s", doc.Number, doc.OriginalNumber)
		p.Debit(settle, t.GrandTotal)
		p.Credit(accounts[RulePurchases], t.Subtotal)
		p.Credit(accounts[RuleCGSTInput], t.CGST)
		p.Credit(accounts[RuleSGSTInput], t.SGST)
		p.Credit(accounts[RuleIGSTInput], t.IGST)
		p.Credit(accounts[RuleRoundOff], t.RoundOff)
		return p
	}

	p.Narration = fmt.Sprintf("Sales return %s against %s", doc.Number, doc.OriginalNumber)
	p.Debit(accounts[RuleSales], t.Subtotal)
	p.Debit(accounts[RuleCGSTOutput], t.CGST)
	p.Debit(accounts[RuleSGSTOutput], t.SGST)
	p.Debit(accounts[RuleIGSTOutput], t.IGST)
	p.Debit(accounts[RuleRoundOff], t.RoundOff)
	p.Credit(settle, t.GrandTotal)
	return p
}

// BuildStockLossPosting writes off goods accepted back but not restocked, at cost.
func BuildStockLossPosting(doc *ReturnDocument, cost decimal.Decimal, accounts map[string]string) JournalPosting {
	p := JournalPosting{
		CompanyID:      doc.CompanyID,
		IdempotencyKey: fmt.Sprintf("stock-loss-%d-%s", doc.CompanyID, doc.Number),
		Narration:      fmt.Sprintf("Stock written off on return %s", doc.Number),
		PostingDate:    doc.Date,
		DocumentDate:   doc.Date,
		ReferenceType:  "RETURN",
		ReferenceID:    doc.Number,
	}
	p.Debit(accounts[RuleInventoryLoss], cost)
	p.Credit(accounts[RulePurchases], cost)
	return p
}
