package core_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gst-billing/internal/core"
)

// setupTestDB seeds company ACME (Karnataka) with a GST chart of accounts, its
// account rules, four parties and three products.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	_ = godotenv.Load("../../.env")

	// Use a dedicated TEST database to avoid wiping the live app database.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE stock_losses, stock_movements, return_lines, return_documents,
			voucher_lines, vouchers, products, parties, journal_lines, journal_entries,
			account_rules, accounts, documents, document_sequences, companies RESTART IDENTITY CASCADE;

		INSERT INTO companies (id, company_code, name, base_currency, state, gstin) VALUES
		(1, 'ACME', 'Acme Traders', 'INR', 'Karnataka', '29ABCDE1234F1Z5');

		INSERT INTO accounts (company_id, code, name, type) VALUES
		(1, '1000', 'Cash', 'asset'),
		(1, '1010', 'Bank', 'asset'),
		(1, '1100', 'Accounts Receivable', 'asset'),
		(1, '1210', 'CGST Input', 'asset'),
		(1, '1220', 'SGST Input', 'asset'),
		(1, '1230', 'IGST Input', 'asset'),
		(1, '2000', 'Accounts Payable', 'liability'),
		(1, '2210', 'CGST Output', 'liability'),
		(1, '2220', 'SGST Output', 'liability'),
		(1, '2230', 'IGST Output', 'liability'),
		(1, '4000', 'Sales', 'revenue'),
		(1, '4100', 'Other Charges', 'revenue'),
		(1, '4900', 'Round Off', 'revenue'),
		(1, '5000', 'Purchases', 'expense'),
		(1, '5900', 'Inventory Loss', 'expense');

		INSERT INTO account_rules (company_id, rule_type, account_code, effective_from) VALUES
		(1, 'SALES', '4000', '2020-01-01'),
		(1, 'PURCHASES', '5000', '2020-01-01'),
		(1, 'AR', '1100', '2020-01-01'),
		(1, 'AP', '2000', '2020-01-01'),
		(1, 'CASH', '1000', '2020-01-01'),
		(1, 'BANK', '1010', '2020-01-01'),
		(1, 'CGST_OUTPUT', '2210', '2020-01-01'),
		(1, 'SGST_OUTPUT', '2220', '2020-01-01'),
		(1, 'IGST_OUTPUT', '2230', '2020-01-01'),
		(1, 'CGST_INPUT', '1210', '2020-01-01'),
		(1, 'SGST_INPUT', '1220', '2020-01-01'),
		(1, 'IGST_INPUT', '1230', '2020-01-01'),
		(1, 'OTHER_CHARGES', '4100', '2020-01-01'),
		(1, 'ROUND_OFF', '4900', '2020-01-01'),
		(1, 'INVENTORY_LOSS', '5900', '2020-01-01');

		INSERT INTO parties (company_id, code, name, type, state, gstin) VALUES
		(1, 'C001', 'Local Retail', 'CUSTOMER', 'Karnataka', NULL),
		(1, 'C002', 'Mumbai Stores', 'CUSTOMER', '', '27AAAAA0000A1Z5'),
		(1, 'C003', 'Walk-in', 'CUSTOMER', '', NULL),
		(1, 'S001', 'Bengaluru Wholesale', 'SUPPLIER', '29', NULL);

		INSERT INTO products (company_id, code, name, unit, purchase_rate, selling_rate, tax_rate, tax_inclusive, current_stock) VALUES
		(1, 'P001', 'Widget', 'NOS', 60, 100, 18, false, 50),
		(1, 'P002', 'Gadget', 'NOS', 150, 200, 5, false, 20),
		(1, 'P003', 'Boxed Tea', 'BOX', 80, 118, 18, true, 10);
	`)
	if err != nil {
		t.Fatalf("Failed to seed test database: %v", err)
	}

	return pool
}

func journalOf(amount decimal.Decimal, date string) core.JournalPosting {
	p := core.JournalPosting{
		CompanyID:      1,
		IdempotencyKey: uuid.NewString(),
		Narration:      "Owner capital",
		PostingDate:    date,
	}
	p.Debit("1000", amount)
	p.Credit("4000", amount)
	return p
}

func TestLedger_Idempotency(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ledger := core.NewLedger(pool)
	ctx := context.Background()

	posting := journalOf(decimal.NewFromInt(150), "2026-05-01")
	_, err := ledger.Commit(ctx, posting)
	require.NoError(t, err)

	_, err = ledger.Commit(ctx, posting)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrDuplicatePosting), "got %v", err)
}

func TestLedger_UnknownAccount(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ledger := core.NewLedger(pool)
	ctx := context.Background()

	posting := core.JournalPosting{CompanyID: 1, IdempotencyKey: uuid.NewString(), Narration: "bad", PostingDate: "2026-05-01"}
	posting.Debit("9999", decimal.NewFromInt(100))
	posting.Credit("4000", decimal.NewFromInt(100))

	_, err := ledger.Commit(ctx, posting)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrNotFound), "got %v", err)

	var count int
	require.NoError(t, pool.QueryRow(ctx, "SELECT count(*) FROM journal_entries").Scan(&count))
	assert.Zero(t, count, "failed posting must roll back its header")
}

func TestLedger_GetEntryAndBalances(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	ledger := core.NewLedger(pool)
	ctx := context.Background()

	entryID, err := ledger.Commit(ctx, journalOf(decimal.NewFromInt(250), "2026-05-01"))
	require.NoError(t, err)

	entry, err := ledger.GetEntry(ctx, entryID)
	require.NoError(t, err)
	require.Len(t, entry.Lines, 2)
	assert.Equal(t, "250.00", entry.Lines[0].Debit.StringFixed(2))

	balances, err := ledger.GetBalances(ctx, 1)
	require.NoError(t, err)
	byCode := make(map[string]string)
	for _, b := range balances {
		byCode[b.Code] = b.Balance.StringFixed(2)
	}
	assert.Equal(t, "250.00", byCode["1000"])
	assert.Equal(t, "-250.00", byCode["4000"])
	assert.Equal(t, "0.00", byCode["2000"])
}
