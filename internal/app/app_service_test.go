package app

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gst-billing/internal/core"
	"gst-billing/internal/lock"
)

// Fakes embed the core interfaces so only the methods a test needs are implemented.

type fakeMaster struct {
	core.MasterDataService
	companies []core.Company
	products  map[string]*core.Product
}

func (f *fakeMaster) GetCompany(_ context.Context, code string) (*core.Company, error) {
	for i := range f.companies {
		if f.companies[i].CompanyCode == code {
			return &f.companies[i], nil
		}
	}
	return nil, core.ErrNotFound
}

func (f *fakeMaster) ListCompanies(context.Context) ([]core.Company, error) {
	return f.companies, nil
}

func (f *fakeMaster) GetProductByCode(_ context.Context, _ int, code string) (*core.Product, error) {
	if p, ok := f.products[code]; ok {
		return p, nil
	}
	return nil, core.ErrNotFound
}

type fakeVouchers struct {
	core.VoucherService
	posted int32
}

func (f *fakeVouchers) PostVoucher(_ context.Context, in core.PostVoucherInput) (*core.Voucher, error) {
	atomic.AddInt32(&f.posted, 1)
	return &core.Voucher{Number: "SV-2026-00001", Kind: in.Kind}, nil
}

type fakeReturns struct {
	core.ReturnService
	active, peak int32
}

func (f *fakeReturns) PostReturn(_ context.Context, in core.PostReturnInput) (*core.ReturnDocument, error) {
	n := atomic.AddInt32(&f.active, 1)
	defer atomic.AddInt32(&f.active, -1)
	for {
		p := atomic.LoadInt32(&f.peak)
		if n <= p || atomic.CompareAndSwapInt32(&f.peak, p, n) {
			break
		}
	}
	time.Sleep(2 * time.Millisecond)
	return &core.ReturnDocument{OriginalNumber: in.VoucherNumber}, nil
}

type fakeLedger struct {
	core.LedgerService
	committed []core.JournalPosting
}

func (f *fakeLedger) Commit(_ context.Context, p core.JournalPosting) (int, error) {
	f.committed = append(f.committed, p)
	return len(f.committed), nil
}

func (f *fakeLedger) GetEntry(_ context.Context, id int) (*core.JournalEntry, error) {
	return &core.JournalEntry{ID: id}, nil
}

type recordingLocker struct {
	keys [][]string
	err  error
}

func (l *recordingLocker) Lock(_ context.Context, keys ...string) (func(), error) {
	l.keys = append(l.keys, keys)
	if l.err != nil {
		return nil, l.err
	}
	return func() {}, nil
}

func acme() *fakeMaster {
	return &fakeMaster{
		companies: []core.Company{{ID: 1, CompanyCode: "ACME", Name: "Acme Traders", State: "Karnataka"}},
		products:  map[string]*core.Product{"P001": {ID: 1, Code: "P001"}},
	}
}

func TestPostVoucher_LocksEveryProduct(t *testing.T) {
	locker := &recordingLocker{}
	vouchers := &fakeVouchers{}
	svc := NewAppService(Services{Master: acme(), Vouchers: vouchers}, locker, "", nil)

	_, err := svc.PostVoucher(context.Background(), core.PostVoucherInput{
		CompanyCode: "ACME",
		Kind:        core.VoucherSale,
		Lines:       []core.VoucherLineInput{{ProductCode: "P002"}, {ProductCode: "P001"}},
	})
	require.NoError(t, err)
	require.Len(t, locker.keys, 1)
	assert.ElementsMatch(t, []string{"product:ACME:P001", "product:ACME:P002"}, locker.keys[0])
	assert.Equal(t, int32(1), vouchers.posted)
}

func TestPostVoucher_LockKeysIgnoreSurroundingSpace(t *testing.T) {
	locker := &recordingLocker{}
	svc := NewAppService(Services{Master: acme(), Vouchers: &fakeVouchers{}, Returns: &fakeReturns{}}, locker, "", nil)

	_, err := svc.PostVoucher(context.Background(), core.PostVoucherInput{
		CompanyCode: "ACME",
		Kind:        core.VoucherSale,
		Lines:       []core.VoucherLineInput{{ProductCode: " P001"}, {ProductCode: "P001 "}},
	})
	require.NoError(t, err)
	require.Len(t, locker.keys, 1)
	for _, k := range locker.keys[0] {
		assert.Equal(t, "product:ACME:P001", k)
	}

	_, err = svc.PostReturn(context.Background(), core.PostReturnInput{CompanyCode: "ACME", VoucherNumber: " SV-2026-00001 "})
	require.NoError(t, err)
	require.Len(t, locker.keys, 2)
	assert.Equal(t, []string{"voucher:ACME:SV-2026-00001"}, locker.keys[1])
}

func TestPostVoucher_LockFailureSkipsPosting(t *testing.T) {
	locker := &recordingLocker{err: lock.ErrNotObtained}
	vouchers := &fakeVouchers{}
	svc := NewAppService(Services{Master: acme(), Vouchers: vouchers}, locker, "", nil)

	_, err := svc.PostVoucher(context.Background(), core.PostVoucherInput{
		CompanyCode: "ACME",
		Lines:       []core.VoucherLineInput{{ProductCode: "P001"}},
	})
	assert.True(t, errors.Is(err, lock.ErrNotObtained), "got %v", err)
	assert.Zero(t, vouchers.posted)
}

func TestPostReturn_SerializedPerVoucher(t *testing.T) {
	returns := &fakeReturns{}
	svc := NewAppService(Services{Master: acme(), Returns: returns}, lock.NewLocal(), "", nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.PostReturn(context.Background(), core.PostReturnInput{CompanyCode: "ACME", VoucherNumber: "SV-2026-00001"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), returns.peak, "returns against one voucher never overlap")
}

func TestLoadDefaultCompany(t *testing.T) {
	ctx := context.Background()

	c, err := NewAppService(Services{Master: acme()}, nil, "", nil).LoadDefaultCompany(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ACME", c.CompanyCode, "the only company is the default")

	two := acme()
	two.companies = append(two.companies, core.Company{ID: 2, CompanyCode: "BETA"})
	_, err = NewAppService(Services{Master: two}, nil, "", nil).LoadDefaultCompany(ctx)
	assert.True(t, errors.Is(err, ErrNoDefaultCompany), "got %v", err)

	c, err = NewAppService(Services{Master: two}, nil, "BETA", nil).LoadDefaultCompany(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, c.ID)
}

func TestPostJournalEntry(t *testing.T) {
	ledger := &fakeLedger{}
	svc := NewAppService(Services{Master: acme(), Ledger: ledger}, nil, "", nil)
	ctx := context.Background()

	entry, err := svc.PostJournalEntry(ctx, JournalEntryRequest{
		CompanyCode: "ACME",
		Narration:   "Owner capital",
		PostingDate: "2026-05-01",
		Lines: []JournalLineInput{
			{AccountCode: "1000", Debit: decimal.RequireFromString("500.005")},
			{AccountCode: "3000", Credit: decimal.RequireFromString("500.005")},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, entry.ID)
	require.Len(t, ledger.committed, 1)
	p := ledger.committed[0]
	assert.NotEmpty(t, p.IdempotencyKey)
	assert.Equal(t, 1, p.CompanyID)
	assert.Equal(t, "500.01", p.Lines[0].Amount.StringFixed(2))

	t.Run("line with both sides", func(t *testing.T) {
		_, err := svc.PostJournalEntry(ctx, JournalEntryRequest{
			CompanyCode: "ACME", Narration: "bad", PostingDate: "2026-05-01",
			Lines: []JournalLineInput{
				{AccountCode: "1000", Debit: decimal.NewFromInt(1), Credit: decimal.NewFromInt(1)},
				{AccountCode: "3000", Credit: decimal.NewFromInt(1)},
			},
		})
		assert.True(t, errors.Is(err, core.ErrInvalidInput), "got %v", err)
	})

	t.Run("unbalanced", func(t *testing.T) {
		_, err := svc.PostJournalEntry(ctx, JournalEntryRequest{
			CompanyCode: "ACME", Narration: "bad", PostingDate: "2026-05-01",
			Lines: []JournalLineInput{
				{AccountCode: "1000", Debit: decimal.NewFromInt(2)},
				{AccountCode: "3000", Credit: decimal.NewFromInt(1)},
			},
		})
		assert.True(t, errors.Is(err, core.ErrInvalidInput), "got %v", err)
		assert.Len(t, ledger.committed, 1)
	})
}

func TestAdjustStock_ZeroDelta(t *testing.T) {
	svc := NewAppService(Services{Master: acme()}, nil, "", nil)
	_, err := svc.AdjustStock(context.Background(), AdjustStockRequest{CompanyCode: "ACME", ProductCode: "P001"})
	assert.True(t, errors.Is(err, core.ErrInvalidInput), "got %v", err)
}
