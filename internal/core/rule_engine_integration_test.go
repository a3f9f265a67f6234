package core_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gst-billing/internal/core"
)

func TestRuleEngine_ResolveAccount(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ctx := context.Background()
	_, err := pool.Exec(ctx, `
		INSERT INTO account_rules (company_id, rule_type, account_code, priority, effective_from)
		VALUES
		  (1, 'HIGH_PRIO', '9999', 10, '2020-01-01'),
		  (1, 'HIGH_PRIO', '8888', 0, '2020-01-01'),
		  (1, 'EXPIRED', '7777', 0, '2020-01-01');
		UPDATE account_rules SET effective_to = '2021-01-01' WHERE rule_type = 'EXPIRED';
	`)
	require.NoError(t, err)

	re := core.NewRuleEngine(pool)

	t.Run("resolves AR", func(t *testing.T) {
		code, err := re.ResolveAccount(ctx, 1, core.RuleReceivable)
		require.NoError(t, err)
		assert.Equal(t, "1100", code)
	})

	t.Run("priority DESC picks highest priority row", func(t *testing.T) {
		code, err := re.ResolveAccount(ctx, 1, "HIGH_PRIO")
		require.NoError(t, err)
		assert.Equal(t, "9999", code)
	})

	t.Run("expired rule is ignored", func(t *testing.T) {
		_, err := re.ResolveAccount(ctx, 1, "EXPIRED")
		assert.Error(t, err)
	})

	t.Run("resolves every voucher rule", func(t *testing.T) {
		accounts, err := re.ResolveAccounts(ctx, 1, core.VoucherRuleTypes(core.VoucherSale)...)
		require.NoError(t, err)
		assert.Equal(t, "2230", accounts[core.RuleIGSTOutput])
		assert.Equal(t, "1010", accounts[core.RuleBank])
	})

	t.Run("company isolation", func(t *testing.T) {
		_, err := pool.Exec(ctx, `
			INSERT INTO companies (id, company_code, name, base_currency, state)
			VALUES (2, 'BETA', 'Beta Traders', 'INR', 'Kerala')
			ON CONFLICT DO NOTHING;
		`)
		require.NoError(t, err)

		_, err = re.ResolveAccount(ctx, 2, core.RuleReceivable)
		assert.Error(t, err, "company 2 has no AR rule")
	})
}
