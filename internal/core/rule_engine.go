package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Account rule types used when booking vouchers and returns.
const (
	RuleSales         = "SALES"
	RulePurchases     = "PURCHASES"
	RuleReceivable    = "AR"
	RulePayable       = "AP"
	RuleCash          = "CASH"
	RuleBank          = "BANK"
	RuleCGSTOutput    = "CGST_OUTPUT"
	RuleSGSTOutput    = "SGST_OUTPUT"
	RuleIGSTOutput    = "IGST_OUTPUT"
	RuleCGSTInput     = "CGST_INPUT"
	RuleSGSTInput     = "SGST_INPUT"
	RuleIGSTInput     = "IGST_INPUT"
	RuleOtherCharges  = "OTHER_CHARGES"
	RuleRoundOff      = "ROUND_OFF"
	RuleInventoryLoss = "INVENTORY_LOSS"
)

// RuleEngine resolves configurable account mappings from the account_rules table.
type RuleEngine interface {
	ResolveAccount(ctx context.Context, companyID int, ruleType string) (string, error)
	// ResolveAccounts resolves several rule types at once, failing on the first missing rule.
	ResolveAccounts(ctx context.Context, companyID int, ruleTypes ...string) (map[string]string, error)
}

type ruleEngine struct {
	pool *pgxpool.Pool
}

// NewRuleEngine constructs a RuleEngine backed by the account_rules table.
func NewRuleEngine(pool *pgxpool.Pool) RuleEngine {
	return &ruleEngine{pool: pool}
}

// ResolveAccount returns the account code for (companyID, ruleType), highest priority first.
// Returns a descriptive error if no active rule exists.
func (r *ruleEngine) ResolveAccount(ctx context.Context, companyID int, ruleType string) (string, error) {
	var accountCode string
	err := r.pool.QueryRow(ctx, `
		SELECT account_code
		FROM account_rules
		WHERE company_id = $1
		  AND rule_type = $2
		  AND effective_from <= CURRENT_DATE
		  AND (effective_to IS NULL OR effective_to >= CURRENT_DATE)
		ORDER BY priority DESC
		LIMIT 1
	`, companyID, ruleType).Scan(&accountCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("no account rule found for company_id %d, rule_type %q: seed account_rules", companyID, ruleType)
		}
		return "", fmt.Errorf("failed to resolve account rule (company_id=%d, rule_type=%q): %w", companyID, ruleType, err)
	}
	return accountCode, nil
}

func (r *ruleEngine) ResolveAccounts(ctx context.Context, companyID int, ruleTypes ...string) (map[string]string, error) {
	accounts := make(map[string]string, len(ruleTypes))
	for _, rt := range ruleTypes {
		if _, ok := accounts[rt]; ok {
			continue
		}
		code, err := r.ResolveAccount(ctx, companyID, rt)
		if err != nil {
			return nil, err
		}
		accounts[rt] = code
	}
	return accounts, nil
}
