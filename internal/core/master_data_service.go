package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// MasterDataService manages parties and the product catalog.
type MasterDataService interface {
	GetCompany(ctx context.Context, companyCode string) (*Company, error)
	ListCompanies(ctx context.Context) ([]Company, error)

	CreateParty(ctx context.Context, companyID int, input PartyInput) (*Party, error)
	// GetParties returns parties of one type, or all parties when partyType is empty.
	GetParties(ctx context.Context, companyID int, partyType PartyType) ([]Party, error)
	GetPartyByCode(ctx context.Context, companyID int, code string) (*Party, error)

	CreateProduct(ctx context.Context, companyID int, input ProductInput) (*Product, error)
	GetProducts(ctx context.Context, companyID int) ([]Product, error)
	GetProductByCode(ctx context.Context, companyID int, code string) (*Product, error)
}

type masterDataService struct {
	pool *pgxpool.Pool
}

// NewMasterDataService constructs a MasterDataService backed by PostgreSQL.
func NewMasterDataService(pool *pgxpool.Pool) MasterDataService {
	return &masterDataService{pool: pool}
}

func (s *masterDataService) GetCompany(ctx context.Context, companyCode string) (*Company, error) {
	return companyByCode(ctx, s.pool, companyCode)
}

func (s *masterDataService) ListCompanies(ctx context.Context) ([]Company, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT id, company_code, name, base_currency, state, gstin FROM companies ORDER BY company_code")
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	defer rows.Close()

	var companies []Company
	for rows.Next() {
		var c Company
		var gstin *string
		if err := rows.Scan(&c.ID, &c.CompanyCode, &c.Name, &c.BaseCurrency, &c.State, &gstin); err != nil {
			return nil, fmt.Errorf("failed to scan company: %w", err)
		}
		c.GSTIN = deref(gstin)
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

// ── Parties ──────────────────────────────────────────────────────────────────

const partyColumns = `id, company_id, code, name, type, state, gstin, phone, address, created_at`

func scanParty(row pgx.Row) (*Party, error) {
	p := &Party{}
	var gstin, phone, address *string
	if err := row.Scan(&p.ID, &p.CompanyID, &p.Code, &p.Name, &p.Type, &p.State,
		&gstin, &phone, &address, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.GSTIN, p.Phone, p.Address = deref(gstin), deref(phone), deref(address)
	return p, nil
}

// CreateParty inserts a new customer or supplier for the given company.
func (s *masterDataService) CreateParty(ctx context.Context, companyID int, input PartyInput) (*Party, error) {
	if strings.TrimSpace(input.Code) == "" || strings.TrimSpace(input.Name) == "" {
		return nil, invalidInput("party", "code and name are required")
	}
	if input.Type != PartyCustomer && input.Type != PartySupplier {
		return nil, invalidInput("party.type", "must be CUSTOMER or SUPPLIER, got %q", input.Type)
	}
	gstin := strings.ToUpper(strings.TrimSpace(input.GSTIN))
	if gstin != "" {
		if _, ok := StateFromGSTIN(gstin); !ok || len(gstin) != 15 {
			return nil, invalidInput("party.gstin", "%q is not a valid GSTIN", input.GSTIN)
		}
	}

	p, err := scanParty(s.pool.QueryRow(ctx, `
		INSERT INTO parties (company_id, code, name, type, state, gstin, phone, address)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+partyColumns,
		companyID, input.Code, input.Name, string(input.Type), strings.TrimSpace(input.State),
		toPtr(gstin), toPtr(input.Phone), toPtr(input.Address),
	))
	if err != nil {
		return nil, fmt.Errorf("create party %q: %w", input.Code, err)
	}
	return p, nil
}

// GetParties returns the company's parties ordered by code.
func (s *masterDataService) GetParties(ctx context.Context, companyID int, partyType PartyType) ([]Party, error) {
	q := `SELECT ` + partyColumns + ` FROM parties WHERE company_id = $1`
	args := []any{companyID}
	if partyType != "" {
		args = append(args, string(partyType))
		q += " AND type = $2"
	}
	q += " ORDER BY code"

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("get parties: %w", err)
	}
	defer rows.Close()

	var parties []Party
	for rows.Next() {
		p, err := scanParty(rows)
		if err != nil {
			return nil, fmt.Errorf("scan party: %w", err)
		}
		parties = append(parties, *p)
	}
	return parties, rows.Err()
}

func (s *masterDataService) GetPartyByCode(ctx context.Context, companyID int, code string) (*Party, error) {
	return partyByCode(ctx, s.pool, companyID, code)
}

func partyByCode(ctx context.Context, q pgxQuerier, companyID int, code string) (*Party, error) {
	p, err := scanParty(q.QueryRow(ctx,
		`SELECT `+partyColumns+` FROM parties WHERE company_id = $1 AND code = $2`,
		companyID, code,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("party %q: %w", code, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to resolve party %q: %w", code, err)
	}
	return p, nil
}

// ── Products ─────────────────────────────────────────────────────────────────

const productColumns = `id, company_id, code, name, unit, purchase_rate, selling_rate,
	tax_rate, tax_inclusive, current_stock, is_active, created_at`

func scanProduct(row pgx.Row) (*Product, error) {
	p := &Product{}
	if err := row.Scan(&p.ID, &p.CompanyID, &p.Code, &p.Name, &p.Unit,
		&p.PurchaseRate, &p.SellingRate, &p.TaxRate, &p.TaxInclusive,
		&p.CurrentStock, &p.IsActive, &p.CreatedAt); err != nil {
		return nil, err
	}
	return p, nil
}

// CreateProduct inserts a catalog item. A positive opening stock is recorded as
// a manual adjustment in the same transaction.
func (s *masterDataService) CreateProduct(ctx context.Context, companyID int, input ProductInput) (*Product, error) {
	if strings.TrimSpace(input.Code) == "" || strings.TrimSpace(input.Name) == "" {
		return nil, invalidInput("product", "code and name are required")
	}
	for field, v := range map[string]decimal.Decimal{
		"product.purchase_rate": input.PurchaseRate,
		"product.selling_rate":  input.SellingRate,
		"product.tax_rate":      input.TaxRate,
		"product.opening_stock": input.OpeningStock,
	} {
		if v.IsNegative() {
			return nil, invalidInput(field, "must be >= 0, got %s", v)
		}
	}
	unit := input.Unit
	if unit == "" {
		unit = "NOS"
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	p, err := scanProduct(tx.QueryRow(ctx, `
		INSERT INTO products (company_id, code, name, unit, purchase_rate, selling_rate, tax_rate, tax_inclusive)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+productColumns,
		companyID, input.Code, input.Name, unit,
		input.PurchaseRate, input.SellingRate, input.TaxRate, input.TaxInclusive,
	))
	if err != nil {
		return nil, fmt.Errorf("create product %q: %w", input.Code, err)
	}

	if input.OpeningStock.IsPositive() {
		movements, err := applyDeltasTx(ctx, tx, companyID,
			[]StockDelta{{ProductID: p.ID, Quantity: input.OpeningStock, Reason: StockManualAdjustment}}, "", 0)
		if err != nil {
			return nil, fmt.Errorf("opening stock for %q: %w", input.Code, err)
		}
		p.CurrentStock = movements[0].After
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit product creation: %w", err)
	}
	return p, nil
}

// GetProducts returns all active products for a company, ordered by code.
func (s *masterDataService) GetProducts(ctx context.Context, companyID int) ([]Product, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+productColumns+` FROM products WHERE company_id = $1 AND is_active = true ORDER BY code`,
		companyID,
	)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

func (s *masterDataService) GetProductByCode(ctx context.Context, companyID int, code string) (*Product, error) {
	return productByCode(ctx, s.pool, companyID, code)
}

func productByCode(ctx context.Context, q pgxQuerier, companyID int, code string) (*Product, error) {
	p, err := scanProduct(q.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE company_id = $1 AND code = $2 AND is_active = true`,
		companyID, code,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("product %q: %w", code, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to resolve product %q: %w", code, err)
	}
	return p, nil
}
